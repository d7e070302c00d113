package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blackcape/expense-reporter/constants"
)

// FetchState is the lifecycle state of a trip's per-diem rate fetch.
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchLoading FetchState = "loading"
	FetchSuccess FetchState = "success"
	FetchError   FetchState = "error"
)

// Location identifies where a trip took place. Either Zip or both City and
// State must be set before rates can be fetched.
type Location struct {
	Zip   string `json:"zip,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// Valid reports whether the location is complete enough for a rate lookup.
func (l Location) Valid() bool {
	return l.Zip != "" || (l.City != "" && l.State != "")
}

// LodgingRate is one month's lodging ceiling from the GSA rate table.
type LodgingRate struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// MIEBreakdown is the meals-and-incidentals rate with its per-meal split.
type MIEBreakdown struct {
	Total      decimal.Decimal `json:"total"`
	Breakfast  decimal.Decimal `json:"breakfast"`
	Lunch      decimal.Decimal `json:"lunch"`
	Dinner     decimal.Decimal `json:"dinner"`
	Incidental decimal.Decimal `json:"incidental"`
}

// RateSnapshot is an immutable capture of the GSA rates for a trip's location
// and year. A successful re-fetch replaces it wholesale.
type RateSnapshot struct {
	LodgingByMonth []LodgingRate `json:"lodgingByMonth"`
	MIE            MIEBreakdown  `json:"mie"`
}

// LodgingFor returns the lodging rate for the given calendar month name, or
// false if the snapshot has no entry for it.
func (rs *RateSnapshot) LodgingFor(monthName string) (decimal.Decimal, bool) {
	for _, lr := range rs.LodgingByMonth {
		if lr.Month == monthName {
			return lr.Value, true
		}
	}
	return decimal.Decimal{}, false
}

// Trip is a user-declared business trip, optionally annotated with a fetched
// per-diem rate snapshot.
type Trip struct {
	ID           uuid.UUID         `json:"id"`
	Project      constants.Project `json:"project"`
	Purpose      string            `json:"purpose"`
	StartDate    string            `json:"startDate"` // YYYY-MM-DD
	EndDate      string            `json:"endDate"`   // YYYY-MM-DD
	Location     Location          `json:"location"`
	Rates        *RateSnapshot     `json:"rates,omitempty"`
	FetchState   FetchState        `json:"fetchState"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}
