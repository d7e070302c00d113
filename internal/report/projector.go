// Package report derives the final, renderable expense report from the
// ledger and the receipt store.
package report

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blackcape/expense-reporter/internal/entity"
)

// Row is one finalized report line.
type Row struct {
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Project     string          `json:"project"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Report is the projector output handed unchanged to the rendering
// collaborator.
type Report struct {
	Rows             []Row            `json:"rows"`
	Total            decimal.Decimal  `json:"total"`
	AttachedReceipts []entity.Receipt `json:"attachedReceipts"`
}

// Project derives the report rows, total, and referenced receipt subset.
// Every item yields a row; an amount that does not parse contributes zero,
// never an error and never a dropped row. The total is summed as exact
// decimals and rounded to two places once, at the point of summation, so
// per-row rounding error cannot compound. Attached receipts are the union of
// all items' receipt ids, de-duplicated, in receipt-store order.
func Project(items []entity.ExpenseItem, receipts []entity.Receipt) Report {
	rows := make([]Row, 0, len(items))
	total := decimal.Zero
	referenced := make(map[uuid.UUID]struct{})

	for _, it := range items {
		amount, ok := it.AmountDecimal()
		if !ok {
			amount = decimal.Zero
		}
		rows = append(rows, Row{
			Date:        it.Date,
			Category:    string(it.Category),
			Project:     string(it.Project),
			Description: it.Description,
			Amount:      amount,
		})
		total = total.Add(amount)
		for _, rid := range it.ReceiptIDs {
			referenced[rid] = struct{}{}
		}
	}

	attached := make([]entity.Receipt, 0, len(referenced))
	for _, r := range receipts {
		if _, ok := referenced[r.ID]; ok {
			attached = append(attached, r)
		}
	}

	return Report{
		Rows:             rows,
		Total:            total.Round(2),
		AttachedReceipts: attached,
	}
}
