// internal/friends/memory_directory.go
package friends

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dlevitt/radar/internal/models"
)

// MemoryDirectory is an in-memory AccountDirectory for tests and
// single-node runs without a database.
type MemoryDirectory struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
}

// NewMemoryDirectory returns an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[uuid.UUID]*models.Account)}
}

// Add registers an account with a fresh id and normalized email.
func (d *MemoryDirectory) Add(email string) *models.Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := &models.Account{ID: uuid.New(), Email: NormalizeEmail(email)}
	d.accounts[acct.ID] = acct
	return acct
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, acct := range d.accounts {
		if acct.Email == email {
			return acct, nil
		}
	}
	return nil, nil
}

func (d *MemoryDirectory) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accounts[id], nil
}
