// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/accountd/accountd/internal/auth"
	"github.com/accountd/accountd/internal/metrics"
	"github.com/accountd/accountd/internal/model"
	"github.com/accountd/accountd/internal/repository"
	"github.com/accountd/accountd/internal/validation"
)

// Service errors.
var (
	ErrEmailExists     = errors.New("account with this email already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// Directory is the persistence-facing abstraction over the account store.
// Implemented by *repository.Repository; tests substitute an in-memory fake.
type Directory interface {
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, email string, account *model.Account) error
	DeleteAccount(ctx context.Context, email string) error
}

// AccountService orchestrates validation, the directory, and the one-way
// credential hash. Each request loads a fresh copy of the account, mutates
// it, and persists it; no mutable state crosses request boundaries.
type AccountService struct {
	dir      Directory
	hasher   auth.PasswordHasher
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(dir Directory, hasher auth.PasswordHasher, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		dir:      dir,
		hasher:   hasher,
		logger:   logger,
		recorder: recorder,
	}
}

// RegisterInput defines the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateInput carries the mutable fields of a self-update. An empty string
// means "keep the existing value"; it never clears a field.
type UpdateInput struct {
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account after format validation and a duplicate
// check. The password is hashed with a per-call salt before storage.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.Account, error) {
	if err := validation.ValidateCreate(input.Email, input.Password); err != nil {
		s.logger.Warn("registration rejected",
			slog.String("email", input.Email),
			slog.String("reason", err.Error()),
		)
		s.recorder.IncRegistrationRejected()
		return nil, err
	}

	if _, err := s.dir.GetAccountByEmail(ctx, input.Email); err == nil {
		s.logger.Warn("registration rejected", slog.String("reason", "email exists"))
		s.recorder.IncRegistrationRejected()
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &model.Account{
		ID:           ulid.Make().String(),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.dir.CreateAccount(ctx, account); err != nil {
		// Two concurrent registrations can pass the duplicate check; the
		// directory's uniqueness constraint settles it.
		if errors.Is(err, repository.ErrEmailExists) {
			s.recorder.IncRegistrationRejected()
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.recorder.IncAccountCreated()
	s.logger.Info("account created", slog.String("account_id", account.ID))
	return account, nil
}

// FetchSelf resolves the account behind the authenticated identity.
func (s *AccountService) FetchSelf(ctx context.Context, email string) (*model.Account, error) {
	account, err := s.dir.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	return account, nil
}

// ApplyUpdate merges the supplied fields into the identity's existing account
// and persists the result. Fields left empty keep their stored value; email
// and creation time are never altered. The merged record is written in a
// single statement, so persistence is all-or-nothing.
func (s *AccountService) ApplyUpdate(ctx context.Context, email string, input UpdateInput) (*model.Account, error) {
	existing, err := s.dir.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	merged := *existing

	if input.FirstName != "" {
		merged.FirstName = input.FirstName
	}
	if input.LastName != "" {
		merged.LastName = input.LastName
	}
	if input.Password != "" {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		merged.PasswordHash = hash
	}

	merged.UpdatedAt = time.Now().UTC()

	if err := s.dir.UpdateAccount(ctx, email, &merged); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	s.recorder.IncAccountUpdated()
	s.logger.Info("account updated", slog.String("account_id", merged.ID))
	return &merged, nil
}
