package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nanobanana/nanobanana-api/internal/models"
)

// SQLiteSubscriptionRepository implements SubscriptionRepository for SQLite.
type SQLiteSubscriptionRepository struct {
	db *sql.DB
}

// NewSQLiteSubscriptionRepository creates a new SQLite subscription repository.
func NewSQLiteSubscriptionRepository(db *sql.DB) *SQLiteSubscriptionRepository {
	return &SQLiteSubscriptionRepository{db: db}
}

func (r *SQLiteSubscriptionRepository) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, plan_id, status, interval, amount, currency, customer_email, created_at, updated_at
		 FROM user_subscriptions WHERE user_id = ?`, userID)

	var s models.Subscription
	var createdAt, updatedAt string
	err := row.Scan(&s.UserID, &s.PlanID, &s.Status, &s.Interval, &s.AmountCents, &s.Currency, &s.CustomerEmail, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

func (r *SQLiteSubscriptionRepository) ListAll(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, plan_id, status, interval, amount, currency, customer_email, created_at, updated_at
		 FROM user_subscriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subscriptions []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		var createdAt, updatedAt string
		if err := rows.Scan(&s.UserID, &s.PlanID, &s.Status, &s.Interval, &s.AmountCents, &s.Currency, &s.CustomerEmail, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		subscriptions = append(subscriptions, &s)
	}
	return subscriptions, rows.Err()
}

func (r *SQLiteSubscriptionRepository) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_subscriptions WHERE user_id = ?`, userID)
	return err
}

// upsertSubscriptionInTx writes a subscription row inside an existing
// transaction, preserving created_at on conflict.
func upsertSubscriptionInTx(ctx context.Context, tx *sql.Tx, s *models.Subscription) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_subscriptions (user_id, plan_id, status, interval, amount, currency, customer_email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			interval = excluded.interval,
			amount = excluded.amount,
			currency = excluded.currency,
			customer_email = excluded.customer_email,
			updated_at = excluded.updated_at`,
		s.UserID, s.PlanID, s.Status, s.Interval, s.AmountCents, s.Currency, s.CustomerEmail, now, now)
	return err
}

// setStatusInTx transitions a subscription's status inside an existing
// transaction. A missing row is created as a stub with the given
// status so redeliveries and out-of-order events converge on the same
// end state.
func setStatusInTx(ctx context.Context, tx *sql.Tx, userID string, status models.SubscriptionStatus) error {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := tx.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = ?, updated_at = ? WHERE user_id = ?`,
		status, now, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_subscriptions (user_id, plan_id, status, created_at, updated_at)
			 VALUES (?, '', ?, ?, ?)`,
			userID, status, now, now)
	}
	return err
}
