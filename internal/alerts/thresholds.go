// internal/alerts/thresholds.go
package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/dlevitt/radar/internal/store"
)

// ErrInvalidThreshold indicates a non-finite or non-positive distance.
var ErrInvalidThreshold = errors.New("threshold must be a finite positive distance")

// Thresholds is a thin layer over the store for per-(owner, friend)
// alert distances. Each direction is independent: an owner may set a
// distance for a friend without the friend setting one back.
type Thresholds struct {
	store store.Store
}

// NewThresholds returns a Thresholds over st.
func NewThresholds(st store.Store) *Thresholds {
	return &Thresholds{store: st}
}

// Set records the owner's alert distance for friendID in kilometers.
func (t *Thresholds) Set(ctx context.Context, ownerID, friendID uuid.UUID, km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, km)
	}
	fields := store.Record{
		friendID.String(): strconv.FormatFloat(km, 'f', -1, 64),
	}
	if err := t.store.Merge(ctx, store.ThresholdsKey(ownerID), fields); err != nil {
		return fmt.Errorf("store threshold: %w", err)
	}
	return nil
}

// Get returns the configured distance for friendID and whether one is
// set.
func (t *Thresholds) Get(ctx context.Context, ownerID, friendID uuid.UUID) (float64, bool, error) {
	all, err := t.All(ctx, ownerID)
	if err != nil {
		return 0, false, err
	}
	km, ok := all[friendID]
	return km, ok, nil
}

// All returns every threshold the owner has configured, keyed by
// friend id. Malformed entries are skipped.
func (t *Thresholds) All(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]float64, error) {
	rec, err := t.store.Get(ctx, store.ThresholdsKey(ownerID))
	if err != nil {
		return nil, fmt.Errorf("read thresholds: %w", err)
	}

	out := make(map[uuid.UUID]float64, len(rec))
	for field, value := range rec {
		friendID, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		km, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		out[friendID] = km
	}
	return out, nil
}

// Subscribe runs notify after every threshold change for the owner.
func (t *Thresholds) Subscribe(ctx context.Context, ownerID uuid.UUID, notify func()) (store.CancelFunc, error) {
	return t.store.Subscribe(ctx, store.ThresholdsKey(ownerID), notify)
}
