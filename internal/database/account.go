// internal/database/account.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dlevitt/radar/internal/auth"
	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/models"
)

// ErrEmailTaken indicates a sign-up against an existing email.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials indicates a failed sign-in.
var ErrInvalidCredentials = errors.New("invalid credentials")

const uniqueViolation = "23505"

// CreateAccount hashes the password and inserts the account. The
// email is normalized before storage; ID is assigned if unset.
func (db *DB) CreateAccount(ctx context.Context, acct *models.Account) error {
	if acct.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate account id: %w", err)
		}
		acct.ID = id
	}
	acct.Email = friends.NormalizeEmail(acct.Email)

	hash, err := auth.CreateHash(acct.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	q := `INSERT INTO accounts (id, email, password) VALUES ($1, $2, $3) RETURNING created_at`
	err = db.pool.QueryRow(ctx, q, acct.ID, acct.Email, hash).Scan(&acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	acct.Password = ""
	return nil
}

// FindByEmail resolves an account by normalized email, (nil, nil) if
// absent. Satisfies friends.AccountDirectory.
func (db *DB) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	q := `SELECT id, email, created_at FROM accounts WHERE email=$1`
	return db.scanAccount(db.pool.QueryRow(ctx, q, friends.NormalizeEmail(email)))
}

// FindByID resolves an account by id, (nil, nil) if absent.
func (db *DB) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	q := `SELECT id, email, created_at FROM accounts WHERE id=$1`
	return db.scanAccount(db.pool.QueryRow(ctx, q, id))
}

func (db *DB) scanAccount(row pgx.Row) (*models.Account, error) {
	var acct models.Account
	err := row.Scan(&acct.ID, &acct.Email, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// Authenticate verifies email/password and returns the account.
func (db *DB) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	q := `SELECT id, email, password, created_at FROM accounts WHERE email=$1`
	var acct models.Account
	var hash string
	err := db.pool.QueryRow(ctx, q, friends.NormalizeEmail(email)).Scan(&acct.ID, &acct.Email, &hash, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, hash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return &acct, nil
}

// Directory statically asserts the AccountDirectory contract.
var _ friends.AccountDirectory = (*DB)(nil)
