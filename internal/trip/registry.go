// Package trip holds user-declared trips and their per-diem rate snapshots.
package trip

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/store"
)

const bucket = "trips"

// RateSource is the external rate-lookup collaborator.
type RateSource interface {
	Lookup(ctx context.Context, date string, loc entity.Location) (*entity.RateSnapshot, error)
}

// Registry is the trip collection. All writes are serialized per registry so
// a field edit landing while a rate fetch is in flight cannot be lost: every
// mutation is a read-modify-write against the latest stored trip.
type Registry struct {
	mu     sync.Mutex
	trips  []entity.Trip
	kv     store.KV
	rates  RateSource
	logger *slog.Logger
}

// NewRegistry loads persisted trips and returns the registry.
func NewRegistry(ctx context.Context, kv store.KV, rates RateSource, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{kv: kv, rates: rates, logger: logger}

	entries, err := kv.List(ctx, bucket)
	if err != nil {
		return nil, common.WrapError(err, "load trips")
	}
	for _, e := range entries {
		var t entity.Trip
		if err := json.Unmarshal(e.Value, &t); err != nil {
			logger.Warn("skipping unreadable trip record", "key", e.Key, "error", err)
			continue
		}
		// A fetch that was in flight when the process stopped never finished.
		if t.FetchState == entity.FetchLoading {
			t.FetchState = entity.FetchIdle
		}
		r.trips = append(r.trips, t)
	}
	logger.Info("trip registry loaded", "count", len(r.trips))
	return r, nil
}

// Add creates an empty trip with defaults and appends it.
func (r *Registry) Add(ctx context.Context) (entity.Trip, error) {
	today := time.Now().Format("2006-01-02")
	t := entity.Trip{
		ID:         uuid.New(),
		Project:    constants.DefaultProject,
		StartDate:  today,
		EndDate:    today,
		FetchState: entity.FetchIdle,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips = append(r.trips, t)
	if err := r.persistOneLocked(ctx, t, len(r.trips)-1); err != nil {
		r.trips = r.trips[:len(r.trips)-1]
		return entity.Trip{}, err
	}
	r.logger.Info("trip added", "trip_id", t.ID)
	return t, nil
}

// Update applies a typed field change to the trip with the given id.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, change Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(ctx, id, change.apply)
}

// Remove deletes a trip. Expense items referencing it keep their tripId; the
// dangling reference resolves to "no trip" at read time.
func (r *Registry) Remove(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return common.ErrNotFound
	}
	if err := r.kv.Delete(ctx, bucket, id.String()); err != nil {
		return common.WrapError(err, "delete trip")
	}
	r.trips = append(r.trips[:idx], r.trips[idx+1:]...)
	r.logger.Info("trip removed", "trip_id", id)
	return nil
}

// Get returns the trip with the given id.
func (r *Registry) Get(id uuid.UUID) (entity.Trip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexLocked(id); idx >= 0 {
		return r.trips[idx], true
	}
	return entity.Trip{}, false
}

// Lookup resolves a tripId string as the capping engine sees it: the NoTrip
// marker, an unparseable id, and a dangling id all mean "no trip selected".
func (r *Registry) Lookup(tripID string) (entity.Trip, bool) {
	if tripID == "" || tripID == entity.NoTrip {
		return entity.Trip{}, false
	}
	id, err := uuid.Parse(tripID)
	if err != nil {
		return entity.Trip{}, false
	}
	return r.Get(id)
}

// List returns all trips in creation order.
func (r *Registry) List() []entity.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Trip(nil), r.trips...)
}

// FetchRates runs the rate-fetch lifecycle for one trip:
// Idle/whatever -> Loading -> Success (snapshot replaced) or Error (message
// set, any prior snapshot preserved). Location validation happens before the
// collaborator is called. The collaborator call runs outside the registry
// lock so independent trips can fetch concurrently; the result is applied
// against the latest trip state keyed by id, and becomes a no-op if the trip
// was deleted mid-flight.
func (r *Registry) FetchRates(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return common.ErrNotFound
	}
	t := r.trips[idx]

	if !t.Location.Valid() {
		err := r.applyLocked(ctx, id, func(t *entity.Trip) error {
			t.FetchState = entity.FetchError
			t.ErrorMessage = "Please enter a ZIP code, or a city and state."
			return nil
		})
		r.mu.Unlock()
		if err != nil {
			return err
		}
		return common.ErrInvalidInput
	}

	if err := r.applyLocked(ctx, id, func(t *entity.Trip) error {
		t.FetchState = entity.FetchLoading
		t.ErrorMessage = ""
		return nil
	}); err != nil {
		r.mu.Unlock()
		return err
	}
	startDate, loc := t.StartDate, t.Location
	r.mu.Unlock()

	snapshot, fetchErr := r.rates.Lookup(ctx, startDate, loc)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(id) < 0 {
		// Trip deleted while the fetch was in flight.
		r.logger.Info("dropping rate fetch result for deleted trip", "trip_id", id)
		return nil
	}
	if fetchErr != nil {
		r.logger.Warn("rate fetch failed", "trip_id", id, "error", fetchErr)
		return r.applyLocked(ctx, id, func(t *entity.Trip) error {
			t.FetchState = entity.FetchError
			t.ErrorMessage = fetchErr.Error()
			// t.Rates deliberately untouched: a stale snapshot beats none.
			return nil
		})
	}
	r.logger.Info("rate fetch succeeded", "trip_id", id, "months", len(snapshot.LodgingByMonth))
	return r.applyLocked(ctx, id, func(t *entity.Trip) error {
		t.Rates = snapshot
		t.FetchState = entity.FetchSuccess
		t.ErrorMessage = ""
		return nil
	})
}

func (r *Registry) indexLocked(id uuid.UUID) int {
	for i := range r.trips {
		if r.trips[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) applyLocked(ctx context.Context, id uuid.UUID, fn func(*entity.Trip) error) error {
	idx := r.indexLocked(id)
	if idx < 0 {
		return common.ErrNotFound
	}
	updated := r.trips[idx]
	if err := fn(&updated); err != nil {
		return err
	}
	if err := r.persistOneLocked(ctx, updated, idx); err != nil {
		return err
	}
	r.trips[idx] = updated
	return nil
}

func (r *Registry) persistOneLocked(ctx context.Context, t entity.Trip, pos int) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return common.WrapError(err, "encode trip")
	}
	if err := r.kv.Put(ctx, bucket, store.Entry{Key: t.ID.String(), Value: raw, Position: pos}); err != nil {
		return common.WrapError(err, "persist trip")
	}
	return nil
}
