// internal/repository/postgres/account_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"fieldmapper-service/internal/domain/session"
	xerrors "fieldmapper-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// EnsureSchema creates the accounts table if missing.
func (r *AccountRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			uid           TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT,
			provider      TEXT NOT NULL DEFAULT 'local',
			provider_sub  TEXT,
			display_name  TEXT,
			photo_url     TEXT,
			phone         TEXT,
			last_login    TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure accounts schema: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_idx
		ON accounts (LOWER(email))
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure accounts email index: %w", err)
	}
	return nil
}

const accountColumns = `
	uid, email, password_hash, provider, provider_sub,
	display_name, photo_url, phone, last_login, created_at, updated_at
`

func (r *AccountRepository) scanAccount(row pgx.Row) (*session.Account, error) {
	var a session.Account
	err := row.Scan(
		&a.UID, &a.Email, &a.PasswordHash, &a.Provider, &a.ProviderSub,
		&a.DisplayName, &a.PhotoURL, &a.Phone, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

// FindByEmail retrieves an account by email
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*session.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanAccount(r.db.QueryRow(ctx, query, email))
}

// FindByUID retrieves an account by uid
func (r *AccountRepository) FindByUID(ctx context.Context, uid string) (*session.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`
	return r.scanAccount(r.db.QueryRow(ctx, query, uid))
}

// FindByProviderSub retrieves an account by the provider's subject ID
func (r *AccountRepository) FindByProviderSub(ctx context.Context, provider, sub string) (*session.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider = $1 AND provider_sub = $2`
	return r.scanAccount(r.db.QueryRow(ctx, query, provider, sub))
}

// ExistsByEmail checks whether any account uses the email
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, a *session.Account) error {
	query := `
		INSERT INTO accounts (uid, email, password_hash, provider, provider_sub, display_name, photo_url, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.UID, a.Email, a.PasswordHash, a.Provider, a.ProviderSub,
		a.DisplayName, a.PhotoURL, a.Phone,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the login time
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, uid string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET last_login = now(), updated_at = now() WHERE uid = $1`, uid,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *AccountRepository) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE uid = $1`,
		uid, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// LinkProvider attaches a provider subject to an existing account
func (r *AccountRepository) LinkProvider(ctx context.Context, uid, provider, sub string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET provider = $2, provider_sub = $3, updated_at = now()
		WHERE uid = $1
	`, uid, provider, sub)
	if err != nil {
		return fmt.Errorf("failed to link provider: %w", err)
	}
	return nil
}

// UpdateProfile refreshes the display fields a provider reported
func (r *AccountRepository) UpdateProfile(ctx context.Context, uid string, displayName, photoURL *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET display_name = COALESCE($2, display_name),
		    photo_url    = COALESCE($3, photo_url),
		    updated_at   = now()
		WHERE uid = $1
	`, uid, displayName, photoURL)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
