// internal/aggregator/aggregator_test.go
package aggregator

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/geo"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

// emissions collects onUpdate calls for assertion.
type emissions struct {
	mu   sync.Mutex
	snap [][]models.FriendPosition
}

func (e *emissions) record(fps []models.FriendPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = append(e.snap, fps)
}

func (e *emissions) last() []models.FriendPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snap) == 0 {
		return nil
	}
	return e.snap[len(e.snap)-1]
}

func (e *emissions) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.snap)
}

func setup(t *testing.T) (*Aggregator, *friends.MemoryDirectory, *store.MemoryStore, *friends.Manager) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := friends.NewMemoryDirectory()
	st := store.NewMemoryStore()
	fm := friends.New(st, dir, log)
	return New(st, fm, log), dir, st, fm
}

func TestSubscribeEmitsFriendWithoutPosition(t *testing.T) {
	ctx := context.Background()
	agg, dir, _, fm := setup(t)
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")
	require.NoError(t, fm.AddFriend(ctx, alice.ID, "bob@example.com"))

	var got emissions
	cancel, err := agg.SubscribeFriendPositions(ctx, alice.ID, got.record)
	require.NoError(t, err)
	defer cancel()

	require.Eventually(t, func() bool {
		last := got.last()
		return len(last) == 1 && last[0].ID == bob.ID
	}, time.Second, 10*time.Millisecond)

	last := got.last()
	assert.Equal(t, "bob@example.com", last[0].Email)
	assert.Nil(t, last[0].Position, "friend with no fix is listed with absent position")
}

func TestSubscribeReactsToPositionChange(t *testing.T) {
	ctx := context.Background()
	agg, dir, st, fm := setup(t)
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")
	require.NoError(t, fm.AddFriend(ctx, alice.ID, "bob@example.com"))

	var got emissions
	cancel, err := agg.SubscribeFriendPositions(ctx, alice.ID, got.record)
	require.NoError(t, err)
	defer cancel()

	require.Eventually(t, func() bool { return got.count() > 0 }, time.Second, 10*time.Millisecond)

	log := logrus.New()
	log.SetOutput(io.Discard)
	prop := location.NewPropagator(st, log, 0)
	require.NoError(t, prop.Report(ctx, bob.ID, geo.Point{Latitude: 40.05, Longitude: -73.0}))

	require.Eventually(t, func() bool {
		last := got.last()
		return len(last) == 1 && last[0].Position != nil
	}, time.Second, 10*time.Millisecond)

	assert.InDelta(t, 40.05, got.last()[0].Position.Latitude, 1e-9)
}

func TestSubscribeReactsToFriendSetChange(t *testing.T) {
	ctx := context.Background()
	agg, dir, _, fm := setup(t)
	alice := dir.Add("alice@example.com")
	dir.Add("bob@example.com")
	dir.Add("carol@example.com")

	var got emissions
	cancel, err := agg.SubscribeFriendPositions(ctx, alice.ID, got.record)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, fm.AddFriend(ctx, alice.ID, "bob@example.com"))
	require.NoError(t, fm.AddFriend(ctx, alice.ID, "carol@example.com"))

	require.Eventually(t, func() bool { return len(got.last()) == 2 }, time.Second, 10*time.Millisecond)

	last := got.last()
	assert.Equal(t, "bob@example.com", last[0].Email)
	assert.Equal(t, "carol@example.com", last[1].Email)
}

// A new friend's later position updates must be observed even though
// the position watcher was attached after the initial subscribe.
func TestSubscribeWatchesNewFriendPositions(t *testing.T) {
	ctx := context.Background()
	agg, dir, st, fm := setup(t)
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")

	var got emissions
	cancel, err := agg.SubscribeFriendPositions(ctx, alice.ID, got.record)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, fm.AddFriend(ctx, alice.ID, "bob@example.com"))
	require.Eventually(t, func() bool { return len(got.last()) == 1 }, time.Second, 10*time.Millisecond)

	log := logrus.New()
	log.SetOutput(io.Discard)
	prop := location.NewPropagator(st, log, 0)
	require.NoError(t, prop.Report(ctx, bob.ID, geo.Point{Latitude: 1, Longitude: 2}))

	require.Eventually(t, func() bool {
		last := got.last()
		return len(last) == 1 && last[0].Position != nil && last[0].Position.Longitude == 2
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeCancelReleasesWatchers(t *testing.T) {
	ctx := context.Background()
	agg, dir, st, fm := setup(t)
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")
	require.NoError(t, fm.AddFriend(ctx, alice.ID, "bob@example.com"))

	var got emissions
	cancel, err := agg.SubscribeFriendPositions(ctx, alice.ID, got.record)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return got.count() > 0 }, time.Second, 10*time.Millisecond)
	cancel()
	cancel() // safe to call twice
	before := got.count()

	log := logrus.New()
	log.SetOutput(io.Discard)
	prop := location.NewPropagator(st, log, 0)
	require.NoError(t, prop.Report(ctx, bob.ID, geo.Point{Latitude: 1, Longitude: 1}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, got.count())
}
