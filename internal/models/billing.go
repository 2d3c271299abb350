// Package models defines the domain models for the application.
package models

import "time"

// ========================================
// Credit Accounts
// ========================================

// CreditAccount tracks per-user credit balances for image generation.
// Available is always derived as TotalCredits - UsedCredits; both
// lifetime counters are monotonically non-decreasing.
type CreditAccount struct {
	UserID       string    `json:"user_id"`
	TotalCredits int64     `json:"total_credits"`
	UsedCredits  int64     `json:"used_credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available returns the spendable credit balance.
func (a *CreditAccount) Available() int64 {
	return a.TotalCredits - a.UsedCredits
}

// ========================================
// Credit Transactions
// ========================================

// CreditTransactionType defines the type of credit transaction.
type CreditTransactionType string

const (
	TxTypeUsage    CreditTransactionType = "usage"    // Generation deduction
	TxTypePurchase CreditTransactionType = "purchase" // Plan allotment or manual grant
)

// CreditTransaction is an append-only audit record of a credit movement.
// Amount is always a positive magnitude; Type carries the direction.
type CreditTransaction struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	Type         CreditTransactionType `json:"type"`
	Amount       int64                 `json:"amount"`
	BalanceAfter int64                 `json:"balance_after"` // Available balance after this transaction

	// ProviderEventID is the payment-provider event that caused a grant.
	// UNIQUE - prevents double-crediting on webhook redelivery.
	ProviderEventID *string `json:"provider_event_id,omitempty"`

	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ========================================
// Subscriptions
// ========================================

// SubscriptionStatus defines the lifecycle states of a subscription.
type SubscriptionStatus string

const (
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusExpired  SubscriptionStatus = "expired"
)

// Valid reports whether s is a known subscription status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubStatusActive, SubStatusCanceled, SubStatusExpired:
		return true
	}
	return false
}

// Subscription is the per-user subscription row, upserted from payment
// provider webhook events. Status is the only field transitioned after
// creation; AmountCents is the charged amount in the smallest currency unit.
type Subscription struct {
	UserID        string             `json:"user_id"`
	PlanID        string             `json:"plan_id"`
	Status        SubscriptionStatus `json:"status"`
	Interval      string             `json:"interval"`
	AmountCents   int64              `json:"amount"`
	Currency      string             `json:"currency"`
	CustomerEmail string             `json:"customer_email"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
