// internal/location/propagator.go
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/store"
)

// ErrInvalidPosition indicates coordinates outside the WGS84 range.
var ErrInvalidPosition = errors.New("invalid position")

// Propagator forwards the latest accepted fix for an account into the
// store as a field-level merge, never disturbing other record fields.
// A per-account limiter drops redundant high-frequency samples; the
// semantics are last-write-wins, so a dropped sample costs nothing.
type Propagator struct {
	store       store.Store
	log         *logrus.Logger
	minInterval time.Duration

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// NewPropagator returns a Propagator with the given minimum spacing
// between accepted writes per account. Zero disables the throttle.
func NewPropagator(st store.Store, log *logrus.Logger, minInterval time.Duration) *Propagator {
	return &Propagator{
		store:       st,
		log:         log,
		minInterval: minInterval,
		limiters:    make(map[uuid.UUID]*rate.Limiter),
	}
}

func (p *Propagator) limiter(ownerID uuid.UUID) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[ownerID]
	if !ok {
		limit := rate.Inf
		if p.minInterval > 0 {
			limit = rate.Every(p.minInterval)
		}
		lim = rate.NewLimiter(limit, 1)
		p.limiters[ownerID] = lim
	}
	return lim
}

// Report merges pt into the owner's record. Samples arriving faster
// than the configured spacing are silently dropped.
func (p *Propagator) Report(ctx context.Context, ownerID uuid.UUID, pt geo.Point) error {
	if !pt.Valid() {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidPosition, pt.Latitude, pt.Longitude)
	}
	if !p.limiter(ownerID).Allow() {
		return nil
	}

	fields := store.Record{
		store.FieldLatitude:  strconv.FormatFloat(pt.Latitude, 'f', -1, 64),
		store.FieldLongitude: strconv.FormatFloat(pt.Longitude, 'f', -1, 64),
		store.FieldUpdatedAt: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if err := p.store.Merge(ctx, store.UserKey(ownerID), fields); err != nil {
		return fmt.Errorf("merge position: %w", err)
	}
	return nil
}

// Track pipes a continuous watch into Report until ctx is done.
// Transient sample errors are logged and skipped; tracking resumes on
// the next callback.
func (p *Propagator) Track(ctx context.Context, ownerID uuid.UUID, src Source, opts WatchOptions) error {
	samples, cancel, err := src.Watch(ctx, opts)
	if err != nil {
		return fmt.Errorf("start watch: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				return nil
			}
			if sample.Err != nil {
				p.log.WithError(sample.Err).WithField("owner", ownerID).Warn("sensor error, awaiting next fix")
				continue
			}
			if err := p.Report(ctx, ownerID, sample.Point); err != nil {
				p.log.WithError(err).WithField("owner", ownerID).Warn("position report failed")
			}
		}
	}
}

// ParsePosition extracts a position from a user record, or nil when no
// fix has been recorded yet.
func ParsePosition(rec store.Record) *geo.Point {
	if rec == nil {
		return nil
	}
	latStr, okLat := rec[store.FieldLatitude]
	lonStr, okLon := rec[store.FieldLongitude]
	if !okLat || !okLon {
		return nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil
	}
	return &geo.Point{Latitude: lat, Longitude: lon}
}
