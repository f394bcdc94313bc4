// Package bootstrap prepares the database at process start: it waits for the
// store to become reachable, ensures the accounts schema exists, and seeds
// placeholder accounts exactly once.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/repository"
)

const (
	// maxConnectAttempts bounds the startup connection retry loop.
	maxConnectAttempts = 3
	// connectRetryDelay is the fixed wait between attempts. Constant backoff
	// is the intended policy, not exponential.
	connectRetryDelay = 1 * time.Second
	// diagnosticRowLimit caps the sanity read of existing rows.
	diagnosticRowLimit = 5
)

// Pinger is a trivial database round-trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the subset of the account directory the bootstrapper needs.
type Store interface {
	AccountsTableExists(ctx context.Context) (bool, error)
	CreateAccountsTable(ctx context.Context) error
	RecentAccounts(ctx context.Context, limit int) ([]*model.Account, error)
	CountAccounts(ctx context.Context) (int64, error)
	CreateAccount(ctx context.Context, account *model.Account) error
}

// Bootstrapper runs the one-time startup sequence. It must complete (or be
// judged failed) before request serving begins.
type Bootstrapper struct {
	db     Pinger
	store  Store
	hasher auth.PasswordHasher
	logger *slog.Logger

	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Bootstrapper with the fixed retry policy.
func New(db Pinger, store Store, hasher auth.PasswordHasher, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		db:       db,
		store:    store,
		hasher:   hasher,
		logger:   logger,
		attempts: maxConnectAttempts,
		delay:    connectRetryDelay,
		sleep:    sleepContext,
	}
}

// Run executes the startup sequence. It returns false when the database never
// became reachable; schema and seed problems are logged but do not fail the
// sequence.
func (b *Bootstrapper) Run(ctx context.Context) bool {
	if !b.CheckConnection(ctx) {
		b.logger.Error("failed to connect to the database")
		return false
	}
	b.EnsureReady(ctx)
	return true
}

// CheckConnection retries a trivial round-trip up to the attempt bound,
// sleeping the fixed delay between attempts (never after the last). A
// cancellation during the wait aborts the loop immediately.
func (b *Bootstrapper) CheckConnection(ctx context.Context) bool {
	for attempt := 1; attempt <= b.attempts; attempt++ {
		err := b.db.Ping(ctx)
		if err == nil {
			b.logger.Info("database connection successful", slog.Int("attempt", attempt))
			return true
		}

		b.logger.Warn("database connection attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < b.attempts {
			if err := b.sleep(ctx, b.delay); err != nil {
				b.logger.Warn("connection retry aborted", slog.String("error", err.Error()))
				return false
			}
		}
	}
	return false
}

// EnsureReady idempotently ensures the accounts table exists and carries at
// least the seed rows. All failures here leave the process serving; an
// existing but unseeded table is a degraded state, not a fatal one.
func (b *Bootstrapper) EnsureReady(ctx context.Context) {
	exists, err := b.store.AccountsTableExists(ctx)
	if err != nil {
		b.logger.Warn("could not inspect accounts table", slog.String("error", err.Error()))
		return
	}

	if !exists {
		b.logger.Info("accounts table absent, creating")
		if err := b.store.CreateAccountsTable(ctx); err != nil {
			b.logger.Warn("failed to create accounts table", slog.String("error", err.Error()))
			return
		}
		b.seedAccounts(ctx)
		return
	}

	rows, err := b.store.RecentAccounts(ctx, diagnosticRowLimit)
	if err != nil {
		b.logger.Warn("failed to read existing accounts", slog.String("error", err.Error()))
		return
	}

	if len(rows) == 0 {
		b.logger.Info("accounts table is empty")
		b.seedAccounts(ctx)
		return
	}

	b.logger.Info("accounts table already populated", slog.Int("sampled_rows", len(rows)))
	for _, account := range rows {
		b.logger.Debug("existing account",
			slog.String("id", account.ID),
			slog.String("email", account.Email),
		)
	}
}

// seedAccounts inserts the two placeholder accounts. The guard is "seed only
// when the directory currently reports zero accounts", so a concurrent or
// prior seed short-circuits instead of duplicating rows.
func (b *Bootstrapper) seedAccounts(ctx context.Context) {
	count, err := b.store.CountAccounts(ctx)
	if err != nil {
		b.logger.Warn("failed to count accounts before seeding", slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		b.logger.Info("accounts table already contains data, skipping seed")
		return
	}

	seeds := []struct {
		email     string
		password  string
		firstName string
		lastName  string
	}{
		{"user1@example.com", "password1", "FirstName1", "LastName1"},
		{"user2@example.com", "password2", "FirstName2", "LastName2"},
	}

	for _, seed := range seeds {
		hash, err := b.hasher.Hash(seed.password)
		if err != nil {
			b.logger.Warn("failed to hash seed password",
				slog.String("email", seed.email),
				slog.String("error", err.Error()),
			)
			continue
		}

		now := time.Now().UTC()
		account := &model.Account{
			ID:           ulid.Make().String(),
			Email:        seed.email,
			PasswordHash: hash,
			FirstName:    seed.firstName,
			LastName:     seed.lastName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := b.store.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				b.logger.Info("seed account already present", slog.String("email", seed.email))
				continue
			}
			b.logger.Warn("seed insertion failed",
				slog.String("email", seed.email),
				slog.String("error", err.Error()),
			)
			continue
		}

		b.logger.Info("seed account inserted", slog.String("email", seed.email))
	}
}

// sleepContext waits for the duration or until the context is cancelled,
// whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
