package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jobops/jobops/internal/models"
)

func TestTargetUpsertAndList(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	target := &models.Target{
		ID:             "backend-sde2",
		Name:           "Backend SDE2",
		PrimaryRole:    "Backend Engineer",
		Seniority:      "SDE2",
		MustKeywords:   []string{"go", "postgres"},
		NiceKeywords:   []string{"kafka"},
		RejectKeywords: []string{"unpaid"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repos.Target.Upsert(ctx, target); err != nil {
		t.Fatalf("failed to upsert target: %v", err)
	}

	// Second upsert with same id updates in place.
	target.NiceKeywords = []string{"kafka", "grpc"}
	target.UpdatedAt = now.Add(time.Minute)
	if err := repos.Target.Upsert(ctx, target); err != nil {
		t.Fatalf("failed to re-upsert target: %v", err)
	}

	targets, err := repos.Target.List(ctx)
	if err != nil {
		t.Fatalf("failed to list targets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if len(targets[0].NiceKeywords) != 2 {
		t.Errorf("nice_keywords = %v, want updated list", targets[0].NiceKeywords)
	}

	latest, err := repos.Target.LatestUpdatedAt(ctx)
	if err != nil {
		t.Fatalf("failed to read latest updated_at: %v", err)
	}
	if !latest.Equal(target.UpdatedAt) {
		t.Errorf("latest updated_at = %v, want %v", latest, target.UpdatedAt)
	}
}

func TestTargetLatestUpdatedAtEmpty(t *testing.T) {
	repos := setupTestRepos(t)

	latest, err := repos.Target.LatestUpdatedAt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("expected zero time on empty table, got %v", latest)
	}
}
