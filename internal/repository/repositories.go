package repository

import (
	"database/sql"
	"strings"
)

// Repositories holds all repository instances.
type Repositories struct {
	Credits      CreditsRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
	Reconcile    ReconcileRepository
}

// NewRepositories creates all repositories backed by the given database.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Credits:      NewSQLiteCreditsRepository(db),
		Subscription: NewSQLiteSubscriptionRepository(db),
		WebhookEvent: NewSQLiteWebhookEventRepository(db),
		Reconcile:    NewSQLiteReconcileRepository(db),
	}
}

// isDuplicateKeyError checks if an error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "already exists")
}
