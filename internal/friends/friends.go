// internal/friends/friends.go

// Package friends maintains the symmetric friend relation between
// accounts. An edge is stored as two directed membership records, one
// per side; both writes are additive set unions, so a concurrent add
// of the same pair from both sides converges to the same symmetric
// result without lost updates.
package friends

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dlevitt/radar/internal/models"
	"github.com/dlevitt/radar/internal/store"
)

// ErrNotFound indicates the candidate email resolves to no account.
var ErrNotFound = errors.New("no account with that email")

// ErrSelfReference indicates an attempt to befriend oneself.
var ErrSelfReference = errors.New("cannot add yourself as a friend")

// AccountDirectory resolves accounts by email or id. Absent accounts
// are reported as (nil, nil), not as an error.
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Manager owns friend-edge reads and writes.
type Manager struct {
	store store.Store
	dir   AccountDirectory
	log   *logrus.Logger
}

// New returns a Manager over the given store and directory.
func New(st store.Store, dir AccountDirectory, log *logrus.Logger) *Manager {
	return &Manager{store: st, dir: dir, log: log}
}

// NormalizeEmail lower-cases and trims an email for equality lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddFriend resolves candidateEmail and links both directions of the
// edge. Re-adding an existing friend is a no-op. Returns ErrNotFound,
// ErrSelfReference, or a store error.
func (m *Manager) AddFriend(ctx context.Context, ownerID uuid.UUID, candidateEmail string) error {
	email := NormalizeEmail(candidateEmail)
	acct, err := m.dir.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", email, err)
	}
	if acct == nil {
		return ErrNotFound
	}
	if acct.ID == ownerID {
		return ErrSelfReference
	}

	// Two directed writes, each an additive union. They are not
	// atomic as a pair, but re-running either side converges on the
	// same symmetric edge.
	if err := m.store.SetAdd(ctx, store.FriendsKey(ownerID), acct.ID.String()); err != nil {
		return fmt.Errorf("add %s to owner set: %w", acct.ID, err)
	}
	if err := m.store.SetAdd(ctx, store.FriendsKey(acct.ID), ownerID.String()); err != nil {
		return fmt.Errorf("add owner to %s set: %w", acct.ID, err)
	}

	m.log.WithFields(logrus.Fields{
		"owner":  ownerID,
		"friend": acct.ID,
	}).Info("friend edge added")
	return nil
}

// ListFriends returns the owner's current friends, sorted by email.
// Members whose account can no longer be resolved are skipped.
func (m *Manager) ListFriends(ctx context.Context, ownerID uuid.UUID) ([]models.AccountRef, error) {
	members, err := m.store.SetMembers(ctx, store.FriendsKey(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list friend set: %w", err)
	}

	refs := make([]models.AccountRef, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			m.log.WithField("member", member).Warn("skipping malformed friend id")
			continue
		}
		acct, err := m.dir.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve friend %s: %w", id, err)
		}
		if acct == nil {
			continue
		}
		refs = append(refs, models.AccountRef{ID: acct.ID, Email: acct.Email})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Email < refs[j].Email })
	return refs, nil
}

// SubscribeFriends emits the owner's friend list immediately and again
// after every membership change. Emissions are serialized. The caller
// must run the returned CancelFunc on teardown.
func (m *Manager) SubscribeFriends(ctx context.Context, ownerID uuid.UUID, fn func([]models.AccountRef)) (store.CancelFunc, error) {
	var mu sync.Mutex
	emit := func() {
		mu.Lock()
		defer mu.Unlock()
		refs, err := m.ListFriends(ctx, ownerID)
		if err != nil {
			m.log.WithError(err).WithField("owner", ownerID).Warn("friend list refresh failed")
			return
		}
		fn(refs)
	}

	cancel, err := m.store.Subscribe(ctx, store.FriendsKey(ownerID), emit)
	if err != nil {
		return nil, fmt.Errorf("subscribe friend set: %w", err)
	}
	emit()
	return cancel, nil
}
