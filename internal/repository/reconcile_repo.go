package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nanobanana/nanobanana-api/internal/models"
)

// SQLiteReconcileRepository implements ReconcileRepository for SQLite.
// Each Apply method runs the event dedupe record and the event's
// mutations in one transaction, so a crash mid-event leaves the event
// unrecorded and safe to redeliver.
type SQLiteReconcileRepository struct {
	db *sql.DB
}

// NewSQLiteReconcileRepository creates a new SQLite reconcile repository.
func NewSQLiteReconcileRepository(db *sql.DB) *SQLiteReconcileRepository {
	return &SQLiteReconcileRepository{db: db}
}

func (r *SQLiteReconcileRepository) ApplyCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordEventInTx(ctx, tx, ev.EventID, ev.EventType); err != nil {
		return err
	}

	sub := &models.Subscription{
		UserID:        ev.UserID,
		PlanID:        ev.PlanID,
		Status:        models.SubStatusActive,
		Interval:      ev.Interval,
		AmountCents:   ev.AmountCents,
		Currency:      ev.Currency,
		CustomerEmail: ev.CustomerEmail,
	}
	if err := upsertSubscriptionInTx(ctx, tx, sub); err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	if ev.GrantCredits > 0 {
		// The grant transaction also carries the provider event id;
		// its unique constraint is a second idempotency gate.
		eventID := ev.EventID
		if _, err := grantInTx(ctx, tx, ev.UserID, ev.GrantCredits, ev.GrantTxID, &eventID, ev.GrantDescription); err != nil {
			if errors.Is(err, ErrDuplicateEvent) {
				return ErrDuplicateEvent
			}
			return fmt.Errorf("failed to grant plan credits: %w", err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteReconcileRepository) ApplyStatusChange(ctx context.Context, eventID, eventType, userID string, status models.SubscriptionStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordEventInTx(ctx, tx, eventID, eventType); err != nil {
		return err
	}

	if err := setStatusInTx(ctx, tx, userID, status); err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}

	return tx.Commit()
}
