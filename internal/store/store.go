// internal/store/store.go

// Package store is the live document store behind the friend graph and
// position state. Records are flat field maps addressed by key; friend
// membership is a server-side set so concurrent writers merge by union
// instead of clobbering each other's additions.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable wraps connectivity failures so callers can surface a
// clear "offline" signal instead of silently queueing writes.
var ErrUnavailable = errors.New("store unavailable")

// Record is a flat field map. A nil Record from Get means the key is
// absent.
type Record map[string]string

// CancelFunc releases a subscription. Safe to call more than once.
type CancelFunc func()

// Store is the document store consumed by the core components.
//
// Per-key change notifications are delivered in write order; there is
// no ordering guarantee across different keys, so subscribers must
// re-read current state rather than apply deltas.
type Store interface {
	// Get returns the record at key, or nil if absent.
	Get(ctx context.Context, key string) (Record, error)

	// Merge writes only the given fields into the record at key,
	// creating it if absent. Fields not named are left untouched.
	Merge(ctx context.Context, key string, fields Record) error

	// SetAdd adds members to the set at key. Adding a present member
	// is a no-op; the operation is additive and idempotent.
	SetAdd(ctx context.Context, key string, members ...string) error

	// SetMembers returns the members of the set at key, possibly empty.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Subscribe registers notify to run after every write to key.
	// The caller must invoke the returned CancelFunc on teardown.
	Subscribe(ctx context.Context, key string, notify func()) (CancelFunc, error)
}

// Key scheme shared by every component.

// UserKey addresses an account's live record (position fields, email).
func UserKey(id uuid.UUID) string { return "users:" + id.String() }

// FriendsKey addresses an account's friend membership set.
func FriendsKey(id uuid.UUID) string { return "friends:" + id.String() }

// ThresholdsKey addresses an owner's per-friend alert distances.
func ThresholdsKey(id uuid.UUID) string { return "thresholds:" + id.String() }

// Field names inside a user record.
const (
	FieldEmail     = "email"
	FieldLatitude  = "lat"
	FieldLongitude = "lon"
	FieldUpdatedAt = "updated_at"
)
