package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jobops/jobops/internal/models"
)

func TestJobInsertAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := newTestJob("a1b2c3d4e5f60718a1b2c3d4e5f60718")
	job.RoleTitle = "Backend Engineer"
	job.Company = "Acme"
	job.MustHave = []string{"Go", "SQL"}
	score := 81.5
	job.FinalScore = &score
	expMin := 3
	job.ExperienceYearsMin = &expMin

	if err := repos.Job.Insert(ctx, job); err != nil {
		t.Fatalf("failed to insert job: %v", err)
	}

	got, err := repos.Job.GetByKey(ctx, job.JobKey)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if got == nil {
		t.Fatal("expected job, got nil")
	}
	if got.RoleTitle != "Backend Engineer" {
		t.Errorf("role_title = %q, want %q", got.RoleTitle, "Backend Engineer")
	}
	if len(got.MustHave) != 2 || got.MustHave[0] != "Go" {
		t.Errorf("must_have = %v, want [Go SQL]", got.MustHave)
	}
	if got.FinalScore == nil || *got.FinalScore != 81.5 {
		t.Errorf("final_score = %v, want 81.5", got.FinalScore)
	}
	if got.ExperienceYearsMin == nil || *got.ExperienceYearsMin != 3 {
		t.Errorf("experience_years_min = %v, want 3", got.ExperienceYearsMin)
	}
	if got.Status != models.StatusNew {
		t.Errorf("status = %q, want NEW", got.Status)
	}
}

func TestJobGetMissing(t *testing.T) {
	repos := setupTestRepos(t)

	got, err := repos.Job.GetByKey(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing job, got %+v", got)
	}
}

func TestJobUpdate(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := newTestJob("00112233445566770011223344556677")
	if err := repos.Job.Insert(ctx, job); err != nil {
		t.Fatalf("failed to insert job: %v", err)
	}

	job.Status = models.StatusScored
	job.JDTextClean = "We are hiring a backend engineer with Go experience."
	job.JDSource = models.JDSourceFetched
	job.JDConfidence = models.ConfidenceHigh
	scoredAt := time.Now().UTC().Truncate(time.Second)
	job.LastScoredAt = &scoredAt
	if err := repos.Job.Update(ctx, job); err != nil {
		t.Fatalf("failed to update job: %v", err)
	}

	got, err := repos.Job.GetByKey(ctx, job.JobKey)
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if got.Status != models.StatusScored {
		t.Errorf("status = %q, want SCORED", got.Status)
	}
	if got.JDConfidence != models.ConfidenceHigh {
		t.Errorf("jd_confidence = %q, want high", got.JDConfidence)
	}
	if got.LastScoredAt == nil || !got.LastScoredAt.Equal(scoredAt) {
		t.Errorf("last_scored_at = %v, want %v", got.LastScoredAt, scoredAt)
	}
}

func TestJobUpdateMissing(t *testing.T) {
	repos := setupTestRepos(t)

	job := newTestJob("ffffffffffffffffffffffffffffffff")
	if err := repos.Job.Update(context.Background(), job); err == nil {
		t.Fatal("expected error updating missing job")
	}
}

func TestJobListFilters(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	a := newTestJob("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	a.RoleTitle = "Platform Engineer"
	a.Company = "Initech"
	a.Status = models.StatusShortlisted
	b := newTestJob("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	b.RoleTitle = "Data Scientist"
	b.Company = "Hooli"
	for _, j := range []*models.Job{a, b} {
		if err := repos.Job.Insert(ctx, j); err != nil {
			t.Fatalf("failed to insert job: %v", err)
		}
	}

	jobs, err := repos.Job.List(ctx, JobFilter{Status: models.StatusShortlisted})
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobKey != a.JobKey {
		t.Errorf("status filter returned %d jobs, want 1 (shortlisted)", len(jobs))
	}

	jobs, err = repos.Job.List(ctx, JobFilter{Query: "hooli"})
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Company != "Hooli" {
		t.Errorf("query filter returned %d jobs, want 1 (Hooli)", len(jobs))
	}
}

func TestJobRecoveryScans(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Missing JD, stale.
	missing := newTestJob("11111111111111111111111111111111")
	missing.UpdatedAt = now.Add(-48 * time.Hour)
	// Has JD but never scored.
	unscored := newTestJob("22222222222222222222222222222222")
	unscored.JDTextClean = "Long enough description for scoring purposes."
	unscored.JDSource = models.JDSourceFetched
	unscored.UpdatedAt = now.Add(-48 * time.Hour)
	// Blocked fetch, eligible for retry.
	blocked := newTestJob("33333333333333333333333333333333")
	blocked.FetchStatus = models.FetchBlocked
	// Applied jobs are never recovered.
	applied := newTestJob("44444444444444444444444444444444")
	applied.Status = models.StatusApplied
	applied.FetchStatus = models.FetchFailed
	applied.UpdatedAt = now.Add(-48 * time.Hour)

	for _, j := range []*models.Job{missing, unscored, blocked, applied} {
		if err := repos.Job.Insert(ctx, j); err != nil {
			t.Fatalf("failed to insert job: %v", err)
		}
	}

	got, err := repos.Job.ListMissingJD(ctx, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("failed to list missing JD: %v", err)
	}
	if len(got) != 1 || got[0].JobKey != missing.JobKey {
		t.Errorf("ListMissingJD returned %d jobs, want just %s", len(got), missing.JobKey)
	}

	got, err = repos.Job.ListStaleScored(ctx, now, 10)
	if err != nil {
		t.Fatalf("failed to list stale scored: %v", err)
	}
	if len(got) != 1 || got[0].JobKey != unscored.JobKey {
		t.Errorf("ListStaleScored returned %d jobs, want just %s", len(got), unscored.JobKey)
	}

	got, err = repos.Job.ListFetchRetry(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list fetch retry: %v", err)
	}
	if len(got) != 1 || got[0].JobKey != blocked.JobKey {
		t.Errorf("ListFetchRetry returned %d jobs, want just %s", len(got), blocked.JobKey)
	}
}
