// Package repository contains the data access layer.
package repository

import (
	"context"
	"errors"

	"github.com/nanobanana/nanobanana-api/internal/models"
)

var (
	// ErrInsufficientCredits indicates a consume exceeded the available balance.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrDuplicateEvent indicates a webhook event id was already processed.
	ErrDuplicateEvent = errors.New("webhook event already processed")

	// ErrInvalidAmount indicates a non-positive credit amount.
	ErrInvalidAmount = errors.New("credit amount must be positive")
)

// CreditsRepository manages credit accounts and their transaction log.
// Consume and Grant mutate the balance and append the audit record in a
// single database transaction; partial state is never visible.
type CreditsRepository interface {
	// Get returns the account for a user, or nil if none exists.
	Get(ctx context.Context, userID string) (*models.CreditAccount, error)

	// Ensure returns the account for a user, creating a zero-balance
	// row if absent.
	Ensure(ctx context.Context, userID string) (*models.CreditAccount, error)

	// Consume deducts amount from the available balance and appends a
	// usage transaction. Returns ErrInsufficientCredits when the
	// available balance (or the account itself) cannot cover amount,
	// including under concurrent callers for the same user.
	Consume(ctx context.Context, userID string, amount int64, txID, description string) (*models.CreditAccount, error)

	// Grant adds amount to the lifetime total and appends a purchase
	// transaction. providerEventID, when set, is recorded on the
	// transaction and enforced unique.
	Grant(ctx context.Context, userID string, amount int64, txID string, providerEventID *string, description string) (*models.CreditAccount, error)

	// ListTransactions returns a user's transaction history, newest first.
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error)

	// ListAllAccounts returns every credit account, newest first.
	ListAllAccounts(ctx context.Context) ([]*models.CreditAccount, error)

	// ListAllTransactions returns every transaction, newest first.
	ListAllTransactions(ctx context.Context) ([]*models.CreditTransaction, error)

	// DeleteUser removes a user's account and transaction log.
	DeleteUser(ctx context.Context, userID string) error
}

// SubscriptionRepository manages per-user subscription rows.
type SubscriptionRepository interface {
	// Get returns the subscription for a user, or nil if none exists.
	Get(ctx context.Context, userID string) (*models.Subscription, error)

	// ListAll returns every subscription, newest first.
	ListAll(ctx context.Context) ([]*models.Subscription, error)

	// DeleteUser removes a user's subscription row.
	DeleteUser(ctx context.Context, userID string) error
}

// WebhookEventRepository tracks processed provider event ids.
type WebhookEventRepository interface {
	// Exists reports whether an event id has been processed.
	Exists(ctx context.Context, eventID string) (bool, error)
}

// CheckoutCompleted carries everything needed to apply a completed
// checkout atomically: the subscription upsert and the plan's credit
// grant happen in one database transaction together with the event
// dedupe record.
type CheckoutCompleted struct {
	EventID       string
	EventType     string
	UserID        string
	PlanID        string
	Interval      string
	AmountCents   int64
	Currency      string
	CustomerEmail string

	GrantCredits     int64 // 0 = no grant
	GrantTxID        string
	GrantDescription string
}

// ReconcileRepository applies payment-provider webhook events. Each
// Apply method records the event id and performs the event's mutations
// in a single transaction; a replayed event id returns
// ErrDuplicateEvent with no state change.
type ReconcileRepository interface {
	ApplyCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error

	// ApplyStatusChange transitions a user's subscription status. A
	// missing subscription row is created as a stub with the given
	// status so out-of-order deliveries converge.
	ApplyStatusChange(ctx context.Context, eventID, eventType, userID string, status models.SubscriptionStatus) error
}
