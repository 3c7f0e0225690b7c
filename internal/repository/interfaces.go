// Package repository contains hand-written SQL repositories over database/sql.
package repository

import (
	"context"
	"time"

	"github.com/jobops/jobops/internal/models"
)

// JobFilter narrows job listings.
type JobFilter struct {
	Status string
	Query  string // matches role_title, company, job_url
	Limit  int
	Offset int
}

// JobRepository stores job rows keyed by job_key.
type JobRepository interface {
	GetByKey(ctx context.Context, jobKey string) (*models.Job, error)
	Insert(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	List(ctx context.Context, filter JobFilter) ([]*models.Job, error)

	// Recovery scans
	ListMissingJD(ctx context.Context, updatedBefore time.Time, limit int) ([]*models.Job, error)
	ListStaleScored(ctx context.Context, scoredBefore time.Time, limit int) ([]*models.Job, error)
	ListFetchRetry(ctx context.Context, limit int) ([]*models.Job, error)
}

// TargetRepository stores scoring targets.
type TargetRepository interface {
	Get(ctx context.Context, id string) (*models.Target, error)
	List(ctx context.Context) ([]*models.Target, error)
	Upsert(ctx context.Context, target *models.Target) error
	LatestUpdatedAt(ctx context.Context) (time.Time, error)
}

// ScoringRunRepository stores append-only scoring telemetry.
type ScoringRunRepository interface {
	Create(ctx context.Context, run *models.ScoringRun) error
	ListByJobKey(ctx context.Context, jobKey string, limit int) ([]*models.ScoringRun, error)
}

// EvidenceRepository stores per-requirement evidence rows.
type EvidenceRepository interface {
	Upsert(ctx context.Context, ev *models.JobEvidence) error
	ListByJobKey(ctx context.Context, jobKey string) ([]*models.JobEvidence, error)
	DeleteByJobKey(ctx context.Context, jobKey string) error
}

// ContactRepository stores deduped recruiter contacts and touchpoints.
type ContactRepository interface {
	Upsert(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Get(ctx context.Context, id string) (*models.Contact, error)
	UpsertTouchpoint(ctx context.Context, tp *models.Touchpoint) (*models.Touchpoint, error)
	ListTouchpointsByJob(ctx context.Context, jobKey string) ([]*models.Touchpoint, error)
}

// EventRepository stores append-only audit events.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	ListRecent(ctx context.Context, eventType string, limit int) ([]*models.Event, error)
}

// Repositories bundles all repository implementations.
type Repositories struct {
	Job        JobRepository
	Target     TargetRepository
	ScoringRun ScoringRunRepository
	Evidence   EvidenceRepository
	Contact    ContactRepository
	Event      EventRepository
}
