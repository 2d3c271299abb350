package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nanobanana/nanobanana-api/internal/repository"
)

// UserService handles account lifecycle events from the identity
// provider.
type UserService struct {
	repos   *repository.Repositories
	storage *StorageService
	logger  *slog.Logger
}

// NewUserService creates a new user service. storage may be nil when
// object storage is not configured.
func NewUserService(repos *repository.Repositories, storage *StorageService, logger *slog.Logger) *UserService {
	return &UserService{repos: repos, storage: storage, logger: logger}
}

// Provision creates a zero-balance credit account for a new user.
// Provisioning is idempotent, a replayed signup event is a no-op.
func (s *UserService) Provision(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if _, err := s.repos.Credits.Ensure(ctx, userID); err != nil {
		return fmt.Errorf("failed to provision credit account: %w", err)
	}

	s.logger.Info("provisioned user account", "user_id", userID)
	return nil
}

// Purge removes all billing state and stored images for a deleted
// user.
func (s *UserService) Purge(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if err := s.repos.Subscription.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if err := s.repos.Credits.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete credit account: %w", err)
	}

	if s.storage != nil && s.storage.IsEnabled() {
		if _, err := s.storage.DeleteUserImages(ctx, userID); err != nil {
			// Orphaned objects are acceptable, billing state is not.
			s.logger.Warn("failed to delete stored images",
				"user_id", userID,
				"error", err,
			)
		}
	}

	s.logger.Info("purged user account", "user_id", userID)
	return nil
}
