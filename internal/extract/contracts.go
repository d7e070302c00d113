// Package extract wraps the AI receipt-field extraction collaborator.
package extract

import (
	"context"
	"time"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/entity"
)

// Request carries one receipt image to the extraction collaborator.
type Request struct {
	Image    []byte
	MIMEType string
}

// Extractor is the interface the upload flow depends on.
type Extractor interface {
	ExtractReceipt(ctx context.Context, req Request) (entity.ParsedReceipt, error)
}

// DefaultFields is what an item is seeded with when extraction fails after
// all retries: the row is still created, never silently dropped.
func DefaultFields() entity.ParsedReceipt {
	return entity.ParsedReceipt{
		Date:        time.Now().Format("2006-01-02"),
		Description: "",
		Amount:      0,
		Category:    string(constants.DefaultCategory),
	}
}
