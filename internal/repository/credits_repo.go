package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nanobanana/nanobanana-api/internal/models"
)

// SQLiteCreditsRepository implements CreditsRepository for SQLite.
type SQLiteCreditsRepository struct {
	db *sql.DB
}

// NewSQLiteCreditsRepository creates a new SQLite credits repository.
func NewSQLiteCreditsRepository(db *sql.DB) *SQLiteCreditsRepository {
	return &SQLiteCreditsRepository{db: db}
}

func (r *SQLiteCreditsRepository) Get(ctx context.Context, userID string) (*models.CreditAccount, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT user_id, total_credits, used_credits, created_at, updated_at
		 FROM user_credits WHERE user_id = ?`, userID))
}

func (r *SQLiteCreditsRepository) Ensure(ctx context.Context, userID string) (*models.CreditAccount, error) {
	account, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	now := time.Now().UTC()
	// A concurrent first request may race us here; the conflict clause
	// keeps the existing row.
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_credits (user_id, total_credits, used_credits, created_at, updated_at)
		 VALUES (?, 0, 0, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, userID)
}

func (r *SQLiteCreditsRepository) Consume(ctx context.Context, userID string, amount int64, txID, description string) (*models.CreditAccount, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	// The balance guard lives in the UPDATE itself: concurrent consumes
	// for the same user serialize on the row, and the one that would
	// overdraw matches zero rows.
	res, err := tx.ExecContext(ctx,
		`UPDATE user_credits
		 SET used_credits = used_credits + ?, updated_at = ?
		 WHERE user_id = ? AND total_credits - used_credits >= ?`,
		amount, now, userID, amount)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInsufficientCredits
	}

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT user_id, total_credits, used_credits, created_at, updated_at
		 FROM user_credits WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, balance_after, provider_event_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, ?)`,
		txID, userID, models.TxTypeUsage, amount, account.Available(), description, now); err != nil {
		return nil, fmt.Errorf("failed to append usage transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *SQLiteCreditsRepository) Grant(ctx context.Context, userID string, amount int64, txID string, providerEventID *string, description string) (*models.CreditAccount, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	account, err := grantInTx(ctx, tx, userID, amount, txID, providerEventID, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// grantInTx performs the balance increment and transaction append
// inside an existing transaction. Shared with the reconcile repository
// so webhook grants ride the same code path.
func grantInTx(ctx context.Context, tx *sql.Tx, userID string, amount int64, txID string, providerEventID *string, description string) (*models.CreditAccount, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_credits (user_id, total_credits, used_credits, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_credits = user_credits.total_credits + excluded.total_credits,
			updated_at = excluded.updated_at`,
		userID, amount, now, now); err != nil {
		return nil, err
	}

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT user_id, total_credits, used_credits, created_at, updated_at
		 FROM user_credits WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, balance_after, provider_event_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txID, userID, models.TxTypePurchase, amount, account.Available(), providerEventID, description, now); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateEvent
		}
		return nil, fmt.Errorf("failed to append purchase transaction: %w", err)
	}

	return account, nil
}

func (r *SQLiteCreditsRepository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, amount, balance_after, provider_event_id, description, created_at
		 FROM credit_transactions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectTransactions(rows)
}

func (r *SQLiteCreditsRepository) ListAllAccounts(ctx context.Context) ([]*models.CreditAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, total_credits, used_credits, created_at, updated_at
		 FROM user_credits ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var accounts []*models.CreditAccount
	for rows.Next() {
		var a models.CreditAccount
		var createdAt, updatedAt string
		if err := rows.Scan(&a.UserID, &a.TotalCredits, &a.UsedCredits, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteCreditsRepository) ListAllTransactions(ctx context.Context) ([]*models.CreditTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, amount, balance_after, provider_event_id, description, created_at
		 FROM credit_transactions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectTransactions(rows)
}

func (r *SQLiteCreditsRepository) DeleteUser(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credit_transactions WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_credits WHERE user_id = ?`, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// scanAccount scans a single account row, returning nil for no rows.
func scanAccount(row *sql.Row) (*models.CreditAccount, error) {
	var a models.CreditAccount
	var createdAt, updatedAt string
	err := row.Scan(&a.UserID, &a.TotalCredits, &a.UsedCredits, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func collectTransactions(rows *sql.Rows) ([]*models.CreditTransaction, error) {
	var transactions []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		var providerEventID sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &providerEventID, &t.Description, &createdAt); err != nil {
			return nil, err
		}
		if providerEventID.Valid {
			t.ProviderEventID = &providerEventID.String
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		transactions = append(transactions, &t)
	}
	return transactions, rows.Err()
}
