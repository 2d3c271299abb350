package service

import (
	"database/sql"
	"testing"

	"github.com/nanobanana/nanobanana-api/internal/database"
	"github.com/nanobanana/nanobanana-api/internal/repository"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestRepos creates repositories over an in-memory database with
// migrations applied.
func setupTestRepos(t *testing.T) *repository.Repositories {
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

	return repository.NewRepositories(db)
}
