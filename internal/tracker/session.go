// internal/tracker/session.go

// Package tracker ties the live pieces together for one signed-in
// account: the sensor pipe, the friend-position view, the thresholds,
// and proximity evaluation. A Session re-evaluates on any of the three
// change sources and pushes the result to its subscribers.
package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dlevitt/radar/internal/aggregator"
	"github.com/dlevitt/radar/internal/alerts"
	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

// Update is one snapshot pushed to session subscribers.
type Update struct {
	Self     *geo.Point              `json:"self,omitempty"`
	Recenter *geo.Point              `json:"recenter,omitempty"`
	Friends  []models.FriendPosition `json:"friends"`
	Alerts   []models.ProximityAlert `json:"alerts"`
}

// Deps are the collaborators a Session runs on.
type Deps struct {
	Store      store.Store
	Aggregator *aggregator.Aggregator
	Thresholds *alerts.Thresholds
	Propagator *location.Propagator
	Log        *logrus.Logger

	// Source is optional. When set, the session seeds self position
	// with a one-shot fix (falling back to Fallback on sensor error)
	// and pipes the continuous watch into the propagator.
	Source   location.Source
	Fallback geo.Point
}

// Session is the live tracking state for one account.
type Session struct {
	ownerID uuid.UUID
	deps    Deps

	stop    context.CancelFunc
	cancels []store.CancelFunc

	mu         sync.Mutex
	self       *geo.Point
	friends    []models.FriendPosition
	thresholds map[uuid.UUID]float64
	alerts     []models.ProximityAlert

	nextListener int
	listeners    map[int]chan Update
	closed       bool
}

// NewSession starts a session for ownerID. Call Close on teardown or
// every inner subscription leaks.
func NewSession(ctx context.Context, ownerID uuid.UUID, deps Deps) (*Session, error) {
	sessCtx, stop := context.WithCancel(ctx)
	s := &Session{
		ownerID:    ownerID,
		deps:       deps,
		stop:       stop,
		thresholds: make(map[uuid.UUID]float64),
		listeners:  make(map[int]chan Update),
	}

	if err := s.start(sessCtx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	// Self position follows the owner's own store record, so fixes
	// reported from any channel (sensor pipe, HTTP) are picked up.
	selfCancel, err := s.deps.Store.Subscribe(ctx, store.UserKey(s.ownerID), func() {
		s.refreshSelf(ctx)
	})
	if err != nil {
		return fmt.Errorf("watch own position: %w", err)
	}
	s.cancels = append(s.cancels, selfCancel)

	thCancel, err := s.deps.Thresholds.Subscribe(ctx, s.ownerID, func() {
		s.refreshThresholds(ctx)
	})
	if err != nil {
		return fmt.Errorf("watch thresholds: %w", err)
	}
	s.cancels = append(s.cancels, thCancel)

	aggCancel, err := s.deps.Aggregator.SubscribeFriendPositions(ctx, s.ownerID, func(fps []models.FriendPosition) {
		s.mu.Lock()
		s.friends = fps
		s.mu.Unlock()
		s.reevaluate(nil)
	})
	if err != nil {
		return fmt.Errorf("watch friend positions: %w", err)
	}
	s.cancels = append(s.cancels, aggCancel)

	s.refreshThresholds(ctx)
	s.refreshSelf(ctx)
	s.seedFromSource(ctx)
	return nil
}

// seedFromSource acquires a one-shot fix and starts the continuous
// sensor pipe. A failed one-shot falls back to the configured default
// rather than aborting the session.
func (s *Session) seedFromSource(ctx context.Context) {
	src := s.deps.Source
	if src == nil {
		return
	}

	pt, err := src.Current(ctx)
	if err != nil {
		s.deps.Log.WithError(err).WithField("owner", s.ownerID).Warn("one-shot fix failed, using fallback position")
		pt = s.deps.Fallback
	}
	if err := s.deps.Propagator.Report(ctx, s.ownerID, pt); err != nil {
		s.deps.Log.WithError(err).WithField("owner", s.ownerID).Warn("seed position report failed")
	}

	go func() {
		if err := s.deps.Propagator.Track(ctx, s.ownerID, src, location.WatchOptions{HighAccuracy: true}); err != nil && ctx.Err() == nil {
			s.deps.Log.WithError(err).WithField("owner", s.ownerID).Warn("sensor watch ended")
		}
	}()
}

func (s *Session) refreshSelf(ctx context.Context) {
	rec, err := s.deps.Store.Get(ctx, store.UserKey(s.ownerID))
	if err != nil {
		s.deps.Log.WithError(err).WithField("owner", s.ownerID).Warn("self position read failed")
		return
	}
	pt := location.ParsePosition(rec)
	if pt == nil {
		return
	}
	s.mu.Lock()
	s.self = pt
	s.mu.Unlock()
	s.reevaluate(nil)
}

func (s *Session) refreshThresholds(ctx context.Context) {
	all, err := s.deps.Thresholds.All(ctx, s.ownerID)
	if err != nil {
		s.deps.Log.WithError(err).WithField("owner", s.ownerID).Warn("threshold read failed")
		return
	}
	s.mu.Lock()
	s.thresholds = all
	s.mu.Unlock()
	s.reevaluate(nil)
}

// reevaluate recomputes the alert set from current state and pushes an
// update. recenter, when set, is forwarded to consumers as an
// imperative map-recenter request.
func (s *Session) reevaluate(recenter *geo.Point) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.self != nil {
		s.alerts = alerts.Evaluate(*s.self, s.friends, s.thresholds)
	} else {
		s.alerts = nil
	}
	update := s.snapshotLocked()
	update.Recenter = recenter
	// Send while still holding the lock: a subscriber's cancel closes
	// its channel under the same lock, so the close can never race a
	// send. The sends never block.
	for _, ch := range s.listeners {
		select {
		case ch <- update:
		default:
			// Slow consumer; it will catch up on the next update.
		}
	}
	s.mu.Unlock()
}

func (s *Session) snapshotLocked() Update {
	u := Update{
		Self:    s.self,
		Friends: make([]models.FriendPosition, len(s.friends)),
		Alerts:  make([]models.ProximityAlert, len(s.alerts)),
	}
	copy(u.Friends, s.friends)
	copy(u.Alerts, s.alerts)
	return u
}

// Snapshot returns the current state without subscribing.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of updates plus its cancel. The channel
// is buffered; a consumer that falls behind misses intermediate
// frames, never the latest state.
func (s *Session) Subscribe() (<-chan Update, store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	ch := make(chan Update, 8)
	s.listeners[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Close only if still registered; Close() may have already
		// drained the listener map and closed the channel.
		if _, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(ch)
		}
	}
}

// ListenerCount reports the number of attached subscribers.
func (s *Session) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Recenter asks consumers to recenter on p.
func (s *Session) Recenter(p geo.Point) {
	s.reevaluate(&p)
}

// OwnerID returns the owning account id.
func (s *Session) OwnerID() uuid.UUID {
	return s.ownerID
}

// Close cancels the sensor pipe and every inner subscription.
func (s *Session) Close() {
	s.stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	listeners := s.listeners
	s.listeners = make(map[int]chan Update)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, ch := range listeners {
		close(ch)
	}
}
