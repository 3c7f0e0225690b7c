package repository

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jobops/jobops/internal/database/migrations"
	"github.com/jobops/jobops/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
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

// newTestJob builds a minimal valid job row.
func newTestJob(jobKey string) *models.Job {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Job{
		JobKey:       jobKey,
		JobURL:       "https://www.linkedin.com/jobs/view/4242",
		JobURLRaw:    "https://www.linkedin.com/jobs/view/4242?refId=abc",
		SourceDomain: "linkedin.com",
		JDSource:     models.JDSourceNone,
		Status:       models.StatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
