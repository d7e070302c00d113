// Package perdiem computes GSA per-diem ceilings for expense line items and
// caps amounts against them. Both functions are pure over their inputs.
package perdiem

import (
	"github.com/shopspring/decimal"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/entity"
)

// TripSource resolves an item's tripId to a trip. The NoTrip marker, a
// malformed id, and a dangling id all resolve to (zero, false).
type TripSource interface {
	Lookup(tripID string) (entity.Trip, bool)
}

// ComputeCeiling returns the applicable per-diem ceiling for the item, or nil
// when no ceiling applies:
//   - no resolvable trip,
//   - the trip's project differs from the item's (a trip's per-diem only
//     governs expenses charged to that trip's project),
//   - no rate snapshot on the trip,
//   - a lodging item whose month has no entry in the snapshot,
//   - any category outside the lodging and meals sets.
func ComputeCeiling(item entity.ExpenseItem, trips TripSource) *decimal.Decimal {
	t, ok := trips.Lookup(item.TripID)
	if !ok {
		return nil
	}
	if t.Project != item.Project {
		return nil
	}
	if t.Rates == nil {
		return nil
	}

	switch {
	case constants.IsLodging(item.Category):
		month, ok := item.MonthName()
		if !ok {
			return nil
		}
		rate, found := t.Rates.LodgingFor(month)
		if !found {
			return nil
		}
		return &rate
	case constants.IsMeals(item.Category):
		total := t.Rates.MIE.Total
		return &total
	default:
		return nil
	}
}

// CapAmount returns the item's amount, lowered to the ceiling when one
// applies and the parsed amount exceeds it. Unparseable or pending amounts
// pass through unchanged. The boolean reports whether capping occurred.
// Callers invoke this at the amount commit point (input losing focus), not
// on every keystroke.
func CapAmount(item entity.ExpenseItem, trips TripSource) (string, bool) {
	ceiling := ComputeCeiling(item, trips)
	if ceiling == nil {
		return item.Amount, false
	}
	amount, ok := item.AmountDecimal()
	if !ok {
		return item.Amount, false
	}
	if amount.GreaterThan(*ceiling) {
		return ceiling.StringFixed(2), true
	}
	return item.Amount, false
}
