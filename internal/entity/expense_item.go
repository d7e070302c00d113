package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blackcape/expense-reporter/constants"
)

// NoTrip marks an expense item as not belonging to any trip. A tripId that
// points at a deleted trip resolves to the same behavior at read time.
const NoTrip = "N/A"

// ExpenseItem is one reimbursable transaction row in the report.
//
// Amount is kept as the raw input string: the empty string is a valid
// transient state (pending input) distinct from zero. Validation and capping
// happen at commit points, not on every edit.
type ExpenseItem struct {
	ID          uuid.UUID          `json:"id"`
	ReceiptIDs  []uuid.UUID        `json:"receiptIds"`
	Date        string             `json:"date"` // YYYY-MM-DD
	Category    constants.Category `json:"category"`
	Project     constants.Project  `json:"project"`
	Description string             `json:"description"`
	Amount      string             `json:"amount"`
	TripID      string             `json:"tripId"`
}

// AmountDecimal parses the amount field. The boolean is false when the field
// is empty or not a valid number.
func (it ExpenseItem) AmountDecimal() (decimal.Decimal, bool) {
	if it.Amount == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// References reports whether the item links to the given receipt.
func (it ExpenseItem) References(receiptID uuid.UUID) bool {
	for _, id := range it.ReceiptIDs {
		if id == receiptID {
			return true
		}
	}
	return false
}

// MonthName returns the calendar month name of the item's date ("June"), or
// false if the date does not parse.
func (it ExpenseItem) MonthName() (string, bool) {
	t, err := time.Parse("2006-01-02", it.Date)
	if err != nil {
		return "", false
	}
	return t.Month().String(), true
}

// ParsedReceipt is the best-effort field set returned by the extraction
// collaborator for one receipt image.
type ParsedReceipt struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}
