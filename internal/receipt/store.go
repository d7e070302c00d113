// Package receipt owns uploaded receipt images and their identities.
// The collection is append-only except for explicit removal; removal is
// driven by the ledger's orphan computation, never done speculatively.
package receipt

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/store"
)

const bucket = "receipts"

// Store holds receipt images in upload order and persists every mutation
// with bulk-replace semantics: readers never observe a partial write.
type Store struct {
	mu       sync.Mutex
	receipts []entity.Receipt
	kv       store.KV
	logger   *slog.Logger
}

// NewStore loads any persisted receipts and returns the store.
func NewStore(ctx context.Context, kv store.KV, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{kv: kv, logger: logger}

	entries, err := kv.List(ctx, bucket)
	if err != nil {
		return nil, common.WrapError(err, "load receipts")
	}
	for _, e := range entries {
		var r entity.Receipt
		if err := json.Unmarshal(e.Value, &r); err != nil {
			logger.Warn("skipping unreadable receipt record", "key", e.Key, "error", err)
			continue
		}
		s.receipts = append(s.receipts, r)
	}
	logger.Info("receipt store loaded", "count", len(s.receipts))
	return s, nil
}

// Add stores a single receipt and returns its id. A zero id is assigned.
func (s *Store) Add(ctx context.Context, r entity.Receipt) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]entity.Receipt(nil), s.receipts...), r)
	if err := s.persistLocked(ctx, next); err != nil {
		return uuid.Nil, err
	}
	s.receipts = next
	s.logger.Info("receipt added", "receipt_id", r.ID, "file_name", r.FileName)
	return r.ID, nil
}

// AddBatch stores several receipts as one durable transaction. Receipts from
// concurrently completing uploads interleave safely because the whole
// read-modify-write runs under the store lock against the latest state.
func (s *Store) AddBatch(ctx context.Context, rs []entity.Receipt) error {
	if len(rs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]entity.Receipt(nil), s.receipts...)
	for i := range rs {
		if rs[i].ID == uuid.Nil {
			rs[i].ID = uuid.New()
		}
		next = append(next, rs[i])
	}
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.receipts = next
	return nil
}

// Remove deletes the given receipts. Removing an id that is not present is a
// no-op, so the orphan-cleanup handshake with the ledger is idempotent.
func (s *Store) Remove(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]entity.Receipt, 0, len(s.receipts))
	removed := 0
	for _, r := range s.receipts {
		if _, gone := drop[r.ID]; gone {
			removed++
			continue
		}
		next = append(next, r)
	}
	if removed == 0 {
		return nil
	}
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.receipts = next
	s.logger.Info("receipts removed", "count", removed)
	return nil
}

// List returns all receipts in upload order.
func (s *Store) List() []entity.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Receipt(nil), s.receipts...)
}

// Get returns the receipt with the given id.
func (s *Store) Get(id uuid.UUID) (entity.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.receipts {
		if r.ID == id {
			return r, true
		}
	}
	return entity.Receipt{}, false
}

func (s *Store) persistLocked(ctx context.Context, receipts []entity.Receipt) error {
	entries := make([]store.Entry, 0, len(receipts))
	for i, r := range receipts {
		raw, err := json.Marshal(r)
		if err != nil {
			return common.WrapError(err, "encode receipt")
		}
		entries = append(entries, store.Entry{Key: r.ID.String(), Value: raw, Position: i})
	}
	if err := s.kv.ReplaceAll(ctx, bucket, entries); err != nil {
		return common.WrapError(err, "persist receipts")
	}
	return nil
}
