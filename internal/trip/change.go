package trip

import (
	"fmt"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/entity"
)

// Change is one typed per-field update. The original UI dispatched on dynamic
// field names; here each field gets its own command variant so a typo cannot
// silently write an unknown field.
type Change interface {
	apply(*entity.Trip) error
}

// SetProject changes the cost center the trip's per-diem governs.
type SetProject struct{ Project string }

func (c SetProject) apply(t *entity.Trip) error {
	if !constants.IsProject(c.Project) {
		return fmt.Errorf("unknown project %q", c.Project)
	}
	t.Project = constants.Project(c.Project)
	return nil
}

// SetPurpose changes the free-form trip purpose.
type SetPurpose struct{ Purpose string }

func (c SetPurpose) apply(t *entity.Trip) error {
	t.Purpose = c.Purpose
	return nil
}

// SetStartDate changes the trip start date (YYYY-MM-DD).
type SetStartDate struct{ Date string }

func (c SetStartDate) apply(t *entity.Trip) error {
	t.StartDate = c.Date
	return nil
}

// SetEndDate changes the trip end date (YYYY-MM-DD).
type SetEndDate struct{ Date string }

func (c SetEndDate) apply(t *entity.Trip) error {
	t.EndDate = c.Date
	return nil
}

// SetZip changes the destination ZIP code.
type SetZip struct{ Zip string }

func (c SetZip) apply(t *entity.Trip) error {
	t.Location.Zip = c.Zip
	return nil
}

// SetCity changes the destination city.
type SetCity struct{ City string }

func (c SetCity) apply(t *entity.Trip) error {
	t.Location.City = c.City
	return nil
}

// SetState changes the destination state.
type SetState struct{ State string }

func (c SetState) apply(t *entity.Trip) error {
	t.Location.State = c.State
	return nil
}

// ParseChange maps a (field, value) pair from the API onto a typed Change.
func ParseChange(field, value string) (Change, error) {
	switch field {
	case "project":
		return SetProject{Project: value}, nil
	case "purpose":
		return SetPurpose{Purpose: value}, nil
	case "startDate":
		return SetStartDate{Date: value}, nil
	case "endDate":
		return SetEndDate{Date: value}, nil
	case "zip":
		return SetZip{Zip: value}, nil
	case "city":
		return SetCity{City: value}, nil
	case "state":
		return SetState{State: value}, nil
	default:
		return nil, fmt.Errorf("unknown trip field %q", field)
	}
}
