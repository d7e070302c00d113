package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/entity"
)

// Change is one typed per-field update to an expense item, replacing the
// original UI's dynamic field-name dispatch.
type Change interface {
	apply(*entity.ExpenseItem) error
}

// SetDate changes the transaction date (YYYY-MM-DD).
type SetDate struct{ Date string }

func (c SetDate) apply(it *entity.ExpenseItem) error {
	it.Date = c.Date
	return nil
}

// SetCategory changes the expense category; the value must be a member of
// the fixed category list.
type SetCategory struct{ Category string }

func (c SetCategory) apply(it *entity.ExpenseItem) error {
	if !constants.IsCategory(c.Category) {
		return fmt.Errorf("unknown category %q", c.Category)
	}
	it.Category = constants.Category(c.Category)
	return nil
}

// SetProject changes the cost center; the value must be a member of the
// fixed project list.
type SetProject struct{ Project string }

func (c SetProject) apply(it *entity.ExpenseItem) error {
	if !constants.IsProject(c.Project) {
		return fmt.Errorf("unknown project %q", c.Project)
	}
	it.Project = constants.Project(c.Project)
	return nil
}

// SetDescription changes the free-form description.
type SetDescription struct{ Description string }

func (c SetDescription) apply(it *entity.ExpenseItem) error {
	it.Description = c.Description
	return nil
}

// SetAmount writes the raw amount input. The empty string is a valid
// transient state (pending input); nothing is validated or capped here —
// that happens at the amount commit point.
type SetAmount struct{ Amount string }

func (c SetAmount) apply(it *entity.ExpenseItem) error {
	it.Amount = c.Amount
	return nil
}

// SetTripID changes the trip linkage. Any value is accepted: NoTrip and
// dangling ids are both legal and resolve to "no trip" at read time.
type SetTripID struct{ TripID string }

func (c SetTripID) apply(it *entity.ExpenseItem) error {
	if c.TripID == "" {
		it.TripID = entity.NoTrip
		return nil
	}
	it.TripID = c.TripID
	return nil
}

// SetReceiptIDs replaces the receipt linkage wholesale (the manage-receipts
// flow). Order is preserved for display.
type SetReceiptIDs struct{ ReceiptIDs []uuid.UUID }

func (c SetReceiptIDs) apply(it *entity.ExpenseItem) error {
	it.ReceiptIDs = append([]uuid.UUID(nil), c.ReceiptIDs...)
	return nil
}

// ParseChange maps a (field, value) pair from the API onto a typed Change.
// Receipt linkage goes through its own endpoint, not this dispatch.
func ParseChange(field, value string) (Change, error) {
	switch field {
	case "date":
		return SetDate{Date: value}, nil
	case "category":
		return SetCategory{Category: value}, nil
	case "project":
		return SetProject{Project: value}, nil
	case "description":
		return SetDescription{Description: value}, nil
	case "amount":
		return SetAmount{Amount: value}, nil
	case "tripId":
		return SetTripID{TripID: value}, nil
	default:
		return nil, fmt.Errorf("unknown expense item field %q", field)
	}
}
