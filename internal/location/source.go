// internal/location/source.go

// Package location covers the sensor side of tracking: the geo-sample
// source abstraction and the propagator that forwards accepted fixes
// into the store.
package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dlevitt/radar/internal/geo"
)

// ErrSourceUnavailable indicates no geolocation capability at all, as
// opposed to a transient per-sample failure.
var ErrSourceUnavailable = errors.New("geolocation source unavailable")

// WatchOptions tune a continuous watch.
type WatchOptions struct {
	HighAccuracy bool
	MaxAge       time.Duration
	Timeout      time.Duration
}

// Sample is one callback from a watch. Err is set for transient
// sensor failures; tracking continues on the next sample.
type Sample struct {
	Point geo.Point
	Err   error
}

// Source supplies position fixes with no fixed cadence.
type Source interface {
	// Current acquires a one-shot fix.
	Current(ctx context.Context) (geo.Point, error)

	// Watch streams samples until the returned cancel runs or ctx is
	// done. The channel is closed on teardown.
	Watch(ctx context.Context, opts WatchOptions) (<-chan Sample, func(), error)
}

// SimSource is a hand-driven Source for tests and local runs. Emit
// pushes samples to the active watcher; SetCurrent controls the
// one-shot fix.
type SimSource struct {
	mu     sync.Mutex
	cur    *geo.Point
	curErr error
	ch     chan Sample
}

// NewSimSource returns an idle SimSource with no current fix.
func NewSimSource() *SimSource {
	return &SimSource{}
}

// SetCurrent sets the fix returned by Current.
func (s *SimSource) SetCurrent(p geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &p
	s.curErr = nil
}

// SetCurrentError makes Current fail with err.
func (s *SimSource) SetCurrentError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	s.curErr = err
}

func (s *SimSource) Current(context.Context) (geo.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curErr != nil {
		return geo.Point{}, s.curErr
	}
	if s.cur == nil {
		return geo.Point{}, ErrSourceUnavailable
	}
	return *s.cur, nil
}

func (s *SimSource) Watch(ctx context.Context, _ WatchOptions) (<-chan Sample, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		return nil, nil, errors.New("sim source already watched")
	}
	ch := make(chan Sample, 16)
	s.ch = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			close(ch)
			s.ch = nil
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

// Emit delivers a sample to the watcher, if any. Dropped when the
// watcher's buffer is full, matching a sensor that outpaces its
// consumer.
func (s *SimSource) Emit(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return
	}
	select {
	case s.ch <- sample:
	default:
	}
}
