package repository

import (
	"context"
	"database/sql"
	"time"
)

// SQLiteWebhookEventRepository implements WebhookEventRepository for SQLite.
type SQLiteWebhookEventRepository struct {
	db *sql.DB
}

// NewSQLiteWebhookEventRepository creates a new SQLite webhook event repository.
func NewSQLiteWebhookEventRepository(db *sql.DB) *SQLiteWebhookEventRepository {
	return &SQLiteWebhookEventRepository{db: db}
}

func (r *SQLiteWebhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM webhook_events WHERE id = ?`, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// recordEventInTx records an event id inside an existing transaction.
// Returns ErrDuplicateEvent if the id was already processed.
func recordEventInTx(ctx context.Context, tx *sql.Tx, eventID, eventType string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO webhook_events (id, type, processed_at) VALUES (?, ?, ?)`,
		eventID, eventType, time.Now().UTC().Format(time.RFC3339))
	if isDuplicateKeyError(err) {
		return ErrDuplicateEvent
	}
	return err
}
