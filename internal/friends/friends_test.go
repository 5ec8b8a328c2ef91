// internal/friends/friends_test.go
package friends

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupManager() (*Manager, *MemoryDirectory, *store.MemoryStore) {
	dir := NewMemoryDirectory()
	st := store.NewMemoryStore()
	return New(st, dir, testLogger()), dir, st
}

func friendEmails(t *testing.T, m *Manager, id uuid.UUID) []string {
	t.Helper()
	refs, err := m.ListFriends(context.Background(), id)
	require.NoError(t, err)
	emails := make([]string, len(refs))
	for i, r := range refs {
		emails[i] = r.Email
	}
	return emails
}

func TestAddFriendSymmetry(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")

	require.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))

	assert.Equal(t, []string{"bob@example.com"}, friendEmails(t, m, alice.ID))
	assert.Equal(t, []string{"alice@example.com"}, friendEmails(t, m, bob.ID))
}

func TestAddFriendNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	dir.Add("bob@example.com")

	require.NoError(t, m.AddFriend(ctx, alice.ID, "  Bob@Example.COM "))
	assert.Equal(t, []string{"bob@example.com"}, friendEmails(t, m, alice.ID))
}

func TestAddFriendNotFound(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")

	err := m.AddFriend(ctx, alice.ID, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, friendEmails(t, m, alice.ID))
}

func TestAddFriendSelfReference(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")

	err := m.AddFriend(ctx, alice.ID, "alice@example.com")
	assert.ErrorIs(t, err, ErrSelfReference)
	assert.Empty(t, friendEmails(t, m, alice.ID))
}

func TestAddFriendIdempotent(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")

	require.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))
	require.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))

	assert.Equal(t, []string{"bob@example.com"}, friendEmails(t, m, alice.ID))
	assert.Equal(t, []string{"alice@example.com"}, friendEmails(t, m, bob.ID))
}

// Both sides add each other at the same time; the union merges must
// converge on one symmetric edge with no duplicates.
func TestAddFriendConcurrentConvergence(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	bob := dir.Add("bob@example.com")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, m.AddFriend(ctx, bob.ID, "alice@example.com"))
	}()
	wg.Wait()

	assert.Equal(t, []string{"bob@example.com"}, friendEmails(t, m, alice.ID))
	assert.Equal(t, []string{"alice@example.com"}, friendEmails(t, m, bob.ID))
}

func TestSubscribeFriendsLiveView(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	dir.Add("bob@example.com")
	dir.Add("carol@example.com")

	var mu sync.Mutex
	var emissions [][]models.AccountRef
	cancel, err := m.SubscribeFriends(ctx, alice.ID, func(refs []models.AccountRef) {
		mu.Lock()
		emissions = append(emissions, refs)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	mu.Lock()
	require.Len(t, emissions, 1) // initial snapshot
	assert.Empty(t, emissions[0])
	mu.Unlock()

	require.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))
	require.NoError(t, m.AddFriend(ctx, alice.ID, "carol@example.com"))

	mu.Lock()
	defer mu.Unlock()
	last := emissions[len(emissions)-1]
	require.Len(t, last, 2)
	assert.Equal(t, "bob@example.com", last[0].Email)
	assert.Equal(t, "carol@example.com", last[1].Email)
}

func TestSubscribeFriendsCancelStopsEmissions(t *testing.T) {
	ctx := context.Background()
	m, dir, _ := setupManager()
	alice := dir.Add("alice@example.com")
	dir.Add("bob@example.com")

	count := 0
	cancel, err := m.SubscribeFriends(ctx, alice.ID, func([]models.AccountRef) { count++ })
	require.NoError(t, err)
	cancel()

	require.NoError(t, m.AddFriend(ctx, alice.ID, "bob@example.com"))
	assert.Equal(t, 1, count)
}
