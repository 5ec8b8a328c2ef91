// internal/aggregator/aggregator.go

// Package aggregator resolves an owner's live friend set into the
// friends' latest known positions. Two independent change streams
// feed it (friend membership, per-friend position); both collapse
// into a single coalescing wakeup, and every emission is recomputed
// from current store state, so out-of-order arrival across keys is
// harmless.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

// Aggregator builds live friend-position views.
type Aggregator struct {
	store   store.Store
	friends *friends.Manager
	log     *logrus.Logger
}

// New returns an Aggregator over the given store and friend manager.
func New(st store.Store, fm *friends.Manager, log *logrus.Logger) *Aggregator {
	return &Aggregator{store: st, friends: fm, log: log}
}

// SubscribeFriendPositions emits the owner's friend positions now and
// after every friend-set or position change. Friends with no recorded
// fix are included with a nil Position. Emissions come from a single
// goroutine in recompute order. The returned CancelFunc releases the
// friend-set subscription and every per-friend position watcher.
func (a *Aggregator) SubscribeFriendPositions(ctx context.Context, ownerID uuid.UUID, onUpdate func([]models.FriendPosition)) (store.CancelFunc, error) {
	subCtx, stop := context.WithCancel(ctx)

	sub := &subscription{
		agg:      a,
		ownerID:  ownerID,
		onUpdate: onUpdate,
		kick:     make(chan struct{}, 1),
		watchers: make(map[uuid.UUID]store.CancelFunc),
	}

	friendCancel, err := a.friends.SubscribeFriends(subCtx, ownerID, func(refs []models.AccountRef) {
		sub.setFriends(subCtx, refs)
		sub.wake()
	})
	if err != nil {
		stop()
		return nil, fmt.Errorf("subscribe friend set: %w", err)
	}

	go sub.run(subCtx)
	sub.wake()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			friendCancel()
			sub.closeWatchers()
		})
	}, nil
}

// subscription is the per-caller state behind one live view.
type subscription struct {
	agg      *Aggregator
	ownerID  uuid.UUID
	onUpdate func([]models.FriendPosition)

	// kick coalesces wakeups from every change source.
	kick chan struct{}

	mu       sync.Mutex
	refs     []models.AccountRef
	watchers map[uuid.UUID]store.CancelFunc
	closed   bool
}

func (s *subscription) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// setFriends records the new friend set and reconciles the per-friend
// position watchers against it.
func (s *subscription) setFriends(ctx context.Context, refs []models.AccountRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.refs = refs

	current := make(map[uuid.UUID]struct{}, len(refs))
	for _, ref := range refs {
		current[ref.ID] = struct{}{}
		if _, ok := s.watchers[ref.ID]; ok {
			continue
		}
		cancel, err := s.agg.store.Subscribe(ctx, store.UserKey(ref.ID), s.wake)
		if err != nil {
			s.agg.log.WithError(err).WithField("friend", ref.ID).Warn("position watch failed")
			continue
		}
		s.watchers[ref.ID] = cancel
	}
	for id, cancel := range s.watchers {
		if _, ok := current[id]; !ok {
			cancel()
			delete(s.watchers, id)
		}
	}
}

func (s *subscription) closeWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, cancel := range s.watchers {
		cancel()
		delete(s.watchers, id)
	}
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			snapshot, err := s.recompute(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.agg.log.WithError(err).WithField("owner", s.ownerID).Warn("friend position refresh failed")
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.onUpdate(snapshot)
		}
	}
}

// recompute reads every current friend's record and builds the
// snapshot, sorted by email for stable output.
func (s *subscription) recompute(ctx context.Context) ([]models.FriendPosition, error) {
	s.mu.Lock()
	refs := make([]models.AccountRef, len(s.refs))
	copy(refs, s.refs)
	s.mu.Unlock()

	out := make([]models.FriendPosition, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			rec, err := s.agg.store.Get(gctx, store.UserKey(ref.ID))
			if err != nil {
				return fmt.Errorf("read position for %s: %w", ref.ID, err)
			}
			out[i] = models.FriendPosition{
				ID:       ref.ID,
				Email:    ref.Email,
				Position: location.ParsePosition(rec),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
