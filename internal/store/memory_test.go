// internal/store/memory_test.go
package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetAbsent(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Get(context.Background(), "users:nobody")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryStoreMergePreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Merge(ctx, "users:a", Record{FieldEmail: "a@example.com"}))
	require.NoError(t, s.Merge(ctx, "users:a", Record{FieldLatitude: "40.0", FieldLongitude: "-73.0"}))

	rec, err := s.Get(ctx, "users:a")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", rec[FieldEmail])
	assert.Equal(t, "40.0", rec[FieldLatitude])
}

func TestMemoryStoreSetAddIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetAdd(ctx, "friends:a", "b"))
	require.NoError(t, s.SetAdd(ctx, "friends:a", "b"))
	require.NoError(t, s.SetAdd(ctx, "friends:a", "c"))

	members, err := s.SetMembers(ctx, "friends:a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, members)
}

func TestMemoryStoreSubscribeNotifiesOnWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var mu sync.Mutex
	notified := 0
	cancel, err := s.Subscribe(ctx, "users:a", func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Merge(ctx, "users:a", Record{FieldLatitude: "1"}))
	require.NoError(t, s.Merge(ctx, "users:b", Record{FieldLatitude: "2"})) // other key

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, notified)
}

func TestMemoryStoreSubscribeCancelStopsNotifications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	notified := 0
	cancel, err := s.Subscribe(ctx, "friends:a", func() { notified++ })
	require.NoError(t, err)

	require.NoError(t, s.SetAdd(ctx, "friends:a", "b"))
	cancel()
	require.NoError(t, s.SetAdd(ctx, "friends:a", "c"))

	assert.Equal(t, 1, notified)
}

func TestMemoryStoreConcurrentSetAdd(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SetAdd(ctx, "friends:a", "b")
			_ = s.SetAdd(ctx, "friends:b", "a")
		}()
	}
	wg.Wait()

	members, err := s.SetMembers(ctx, "friends:a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}
