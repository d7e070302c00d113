// Package ledger owns the ordered collection of expense line items: creation,
// splitting, field mutation, deletion, and receipt linkage.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/store"
)

const bucket = "expense_items"

// Ledger is the expense item collection. Mutations are serialized by the
// ledger lock and always run against the latest state, so concurrently
// finishing parse tasks cannot clobber each other's rows.
type Ledger struct {
	mu     sync.Mutex
	items  []entity.ExpenseItem
	kv     store.KV
	logger *slog.Logger
}

// New loads persisted items and returns the ledger.
func New(ctx context.Context, kv store.KV, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{kv: kv, logger: logger}

	entries, err := kv.List(ctx, bucket)
	if err != nil {
		return nil, common.WrapError(err, "load expense items")
	}
	for _, e := range entries {
		var it entity.ExpenseItem
		if err := json.Unmarshal(e.Value, &it); err != nil {
			logger.Warn("skipping unreadable expense item record", "key", e.Key, "error", err)
			continue
		}
		l.items = append(l.items, it)
	}
	logger.Info("ledger loaded", "count", len(l.items))
	return l, nil
}

// AddBlank appends an empty row with defaults.
func (l *Ledger) AddBlank(ctx context.Context) (entity.ExpenseItem, error) {
	it := entity.ExpenseItem{
		ID:         uuid.New(),
		ReceiptIDs: []uuid.UUID{},
		Date:       time.Now().Format("2006-01-02"),
		Category:   constants.DefaultCategory,
		Project:    constants.DefaultProject,
		TripID:     entity.NoTrip,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := append(append([]entity.ExpenseItem(nil), l.items...), it)
	if err := l.persistAllLocked(ctx, next); err != nil {
		return entity.ExpenseItem{}, err
	}
	l.items = next
	return it, nil
}

// AddFromParse maps extraction collaborator output plus a stored receipt into
// a new row. An unrecognized category is coerced to the default category
// before it enters the ledger; a missing date defaults to today.
func (l *Ledger) AddFromParse(ctx context.Context, parsed entity.ParsedReceipt, receiptID uuid.UUID) (entity.ExpenseItem, error) {
	date := strings.TrimSpace(parsed.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	category, matched := constants.CoerceCategory(parsed.Category)
	if !matched {
		l.logger.Info("coerced unknown category", "extracted", parsed.Category, "stored", category)
	}

	it := entity.ExpenseItem{
		ID:          uuid.New(),
		ReceiptIDs:  []uuid.UUID{receiptID},
		Date:        date,
		Category:    category,
		Project:     constants.DefaultProject,
		Description: parsed.Description,
		Amount:      formatAmount(parsed.Amount),
		TripID:      entity.NoTrip,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := append(append([]entity.ExpenseItem(nil), l.items...), it)
	if err := l.persistAllLocked(ctx, next); err != nil {
		return entity.ExpenseItem{}, err
	}
	l.items = next
	l.logger.Info("expense item created from parse", "item_id", it.ID, "receipt_id", receiptID)
	return it, nil
}

// Split clones the source row — same receipts, date, project and trip — with
// category reset to the default and description/amount cleared, and inserts
// the clone immediately after the source. This models one receipt covering
// two expenses.
func (l *Ledger) Split(ctx context.Context, sourceID uuid.UUID) (entity.ExpenseItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(sourceID)
	if idx < 0 {
		return entity.ExpenseItem{}, common.ErrNotFound
	}
	src := l.items[idx]

	clone := entity.ExpenseItem{
		ID:         uuid.New(),
		ReceiptIDs: append([]uuid.UUID(nil), src.ReceiptIDs...),
		Date:       src.Date,
		Category:   constants.DefaultCategory,
		Project:    src.Project,
		TripID:     src.TripID,
	}

	next := make([]entity.ExpenseItem, 0, len(l.items)+1)
	next = append(next, l.items[:idx+1]...)
	next = append(next, clone)
	next = append(next, l.items[idx+1:]...)

	if err := l.persistAllLocked(ctx, next); err != nil {
		return entity.ExpenseItem{}, err
	}
	l.items = next
	l.logger.Info("expense item split", "source_id", sourceID, "new_id", clone.ID)
	return clone, nil
}

// Update applies a typed field change. No validation beyond enum membership
// happens here; capping runs at its own commit point.
func (l *Ledger) Update(ctx context.Context, id uuid.UUID, change Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(id)
	if idx < 0 {
		return common.ErrNotFound
	}
	updated := l.items[idx]
	if err := change.apply(&updated); err != nil {
		return err
	}
	if err := l.persistOneLocked(ctx, updated, idx); err != nil {
		return err
	}
	l.items[idx] = updated
	return nil
}

// Remove deletes the item and returns the receipt ids it referenced that no
// remaining item references. The caller hands those to the receipt store;
// the ledger decides orphans, the store deletes them.
func (l *Ledger) Remove(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(id)
	if idx < 0 {
		return nil, common.ErrNotFound
	}
	removed := l.items[idx]

	next := append([]entity.ExpenseItem(nil), l.items[:idx]...)
	next = append(next, l.items[idx+1:]...)
	if err := l.persistAllLocked(ctx, next); err != nil {
		return nil, err
	}
	l.items = next

	var orphaned []uuid.UUID
	for _, rid := range removed.ReceiptIDs {
		referenced := false
		for _, it := range l.items {
			if it.References(rid) {
				referenced = true
				break
			}
		}
		if !referenced {
			orphaned = append(orphaned, rid)
		}
	}
	l.logger.Info("expense item removed", "item_id", id, "orphaned_receipts", len(orphaned))
	return orphaned, nil
}

// List returns items in display order, optionally filtered by tripId.
func (l *Ledger) List(filterByTrip string) []entity.ExpenseItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	if filterByTrip == "" {
		return append([]entity.ExpenseItem(nil), l.items...)
	}
	var out []entity.ExpenseItem
	for _, it := range l.items {
		if it.TripID == filterByTrip {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the item with the given id.
func (l *Ledger) Get(id uuid.UUID) (entity.ExpenseItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx := l.indexLocked(id); idx >= 0 {
		return l.items[idx], true
	}
	return entity.ExpenseItem{}, false
}

func (l *Ledger) indexLocked(id uuid.UUID) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) persistOneLocked(ctx context.Context, it entity.ExpenseItem, pos int) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return common.WrapError(err, "encode expense item")
	}
	if err := l.kv.Put(ctx, bucket, store.Entry{Key: it.ID.String(), Value: raw, Position: pos}); err != nil {
		return common.WrapError(err, "persist expense item")
	}
	return nil
}

// persistAllLocked rewrites the bucket for structural changes (insert,
// split, delete) so display positions stay consistent.
func (l *Ledger) persistAllLocked(ctx context.Context, items []entity.ExpenseItem) error {
	entries := make([]store.Entry, 0, len(items))
	for i, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return common.WrapError(err, "encode expense item")
		}
		entries = append(entries, store.Entry{Key: it.ID.String(), Value: raw, Position: i})
	}
	if err := l.kv.ReplaceAll(ctx, bucket, entries); err != nil {
		return common.WrapError(err, "persist expense items")
	}
	return nil
}

func formatAmount(amount float64) string {
	if amount == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", amount)
}
