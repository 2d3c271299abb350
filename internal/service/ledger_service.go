package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/nanobanana/nanobanana-api/internal/models"
	"github.com/nanobanana/nanobanana-api/internal/repository"
)

var (
	// ErrInsufficientCredits indicates the user's available balance
	// cannot cover the requested amount.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount indicates a non-positive credit amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// LedgerService owns credit account balances and the transaction log.
// Balance mutation and its audit record are one logical unit: the
// repository applies both in a single database transaction.
type LedgerService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(repos *repository.Repositories, logger *slog.Logger) *LedgerService {
	return &LedgerService{repos: repos, logger: logger}
}

// GetBalance returns a user's balances, creating a zero-balance account
// on first access.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*models.CreditAccount, error) {
	account, err := s.repos.Credits.Ensure(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit account: %w", err)
	}
	return account, nil
}

// Consume deducts amount credits from a user's available balance and
// appends a usage transaction. Never over-spends under concurrent
// callers for the same user.
func (s *LedgerService) Consume(ctx context.Context, userID string, amount int64, description string) (*models.CreditAccount, error) {
	account, err := s.repos.Credits.Consume(ctx, userID, amount, ulid.Make().String(), description)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCredits):
			return nil, ErrInsufficientCredits
		case errors.Is(err, repository.ErrInvalidAmount):
			return nil, ErrInvalidAmount
		}
		return nil, fmt.Errorf("failed to consume credits: %w", err)
	}

	s.logger.Info("credits consumed",
		"user_id", userID,
		"amount", amount,
		"available", account.Available(),
	)
	return account, nil
}

// Grant adds amount credits to a user's lifetime total and appends a
// purchase transaction.
func (s *LedgerService) Grant(ctx context.Context, userID string, amount int64, reason string) (*models.CreditAccount, error) {
	account, err := s.repos.Credits.Grant(ctx, userID, amount, ulid.Make().String(), nil, reason)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidAmount) {
			return nil, ErrInvalidAmount
		}
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}

	s.logger.Info("credits granted",
		"user_id", userID,
		"amount", amount,
		"reason", reason,
		"available", account.Available(),
	)
	return account, nil
}

// History returns a user's credit transaction log, newest first.
func (s *LedgerService) History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Credits.ListTransactions(ctx, userID, limit, offset)
}
