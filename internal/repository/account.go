package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/accountd/accountd/internal/model"
)

// Common errors for account repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("email already exists")
)

// accountColumns is the column list shared by all account queries.
const accountColumns = "id, email, password_hash, first_name, last_name, created_at, updated_at"

// CreateAccount inserts a new account. Email uniqueness is enforced by the
// accounts_email_key constraint; a violation maps to ErrEmailExists.
func (r *Repository) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := r.scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}

	return account, nil
}

// GetAccountByEmail retrieves an account by its email address.
// Email is unique, so this resolves to at most one row.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := r.scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// ListAccounts returns all accounts, unordered.
func (r *Repository) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return r.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts`)
}

// RecentAccounts returns up to limit accounts, oldest first. Used by the
// bootstrap diagnostic read.
func (r *Repository) RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at LIMIT $1`
	return r.listAccounts(ctx, query, limit)
}

// CountAccounts returns the number of stored accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// UpdateAccount overwrites the mutable fields of the account with the given
// email. Email and created_at are never touched.
func (r *Repository) UpdateAccount(ctx context.Context, email string, account *model.Account) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, first_name = $2, last_name = $3, updated_at = $4
		WHERE email = $5
	`

	tag, err := r.pool.Exec(ctx, query,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.UpdatedAt,
		email,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// DeleteAccount removes the account with the given email. Not exposed over
// the account API, but part of the directory contract.
func (r *Repository) DeleteAccount(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// AccountsTableExists reports whether the accounts table is present.
func (r *Repository) AccountsTableExists(ctx context.Context) (bool, error) {
	var regclass *string
	err := r.pool.QueryRow(ctx, `SELECT to_regclass('accounts')::text`).Scan(&regclass)
	if err != nil {
		return false, fmt.Errorf("failed to check accounts table: %w", err)
	}
	return regclass != nil, nil
}

// CreateAccountsTable creates the accounts table and its unique email
// constraint if they do not already exist.
func (r *Repository) CreateAccountsTable(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			CONSTRAINT accounts_email_key UNIQUE (email)
		)
	`

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

func (r *Repository) listAccounts(ctx context.Context, query string, args ...any) ([]*model.Account, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	return accounts, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account   model.Account
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.CreatedAt = createdAt.UTC()
	account.UpdatedAt = updatedAt.UTC()
	return &account, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "unique"))
}
