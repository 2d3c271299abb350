package repository

import (
	"database/sql"
	"testing"

	"github.com/nanobanana/nanobanana-api/internal/database"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be
// cleaned up when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// An in-memory database exists per connection; keep the pool at one
	// so every query sees the same schema and data.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// insertTestAccount seeds a credit account directly.
func insertTestAccount(t *testing.T, db *sql.DB, userID string, total, used int64) {
	t.Helper()
	query := `
		INSERT INTO user_credits (user_id, total_credits, used_credits, created_at, updated_at)
		VALUES (?, ?, ?, datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, userID, total, used); err != nil {
		t.Fatalf("failed to insert test account: %v", err)
	}
}

// countRows counts rows in a table matching a user id.
func countRows(t *testing.T, db *sql.DB, table, userID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE user_id = ?", userID).Scan(&n); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}
