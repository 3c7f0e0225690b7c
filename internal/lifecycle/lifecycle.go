// Package lifecycle applies job status transitions. Every transition goes
// through Apply so timestamps, updated_at, and the audit event stay
// consistent.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
)

// ErrTerminalState is returned when a transition would auto-overwrite
// APPLIED, REJECTED, or ARCHIVED without force.
var ErrTerminalState = errors.New("job is in a terminal state")

var validStatuses = map[string]bool{
	models.StatusNew:         true,
	models.StatusScored:      true,
	models.StatusShortlisted: true,
	models.StatusApplied:     true,
	models.StatusRejected:    true,
	models.StatusArchived:    true,
	models.StatusLinkOnly:    true,
}

// Transition describes one requested status change.
type Transition struct {
	Status       string
	SystemStatus *string // nil leaves system_status untouched, pointer to "" clears it
	Force        bool    // allow leaving a terminal state
	Actor        string  // "user", "scoring", "ingest", "recovery"
	Reason       string
}

// Machine persists transitions and their audit events.
type Machine struct {
	jobs   repository.JobRepository
	events repository.EventRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewMachine creates a lifecycle machine.
func NewMachine(jobs repository.JobRepository, events repository.EventRepository, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		jobs:   jobs,
		events: events,
		logger: logger.With("component", "lifecycle"),
		now:    time.Now,
	}
}

// Apply mutates job in place per the transition, persists it, and emits a
// STATUS_CHANGE event. Terminal states are protected unless tr.Force.
func (m *Machine) Apply(ctx context.Context, job *models.Job, tr Transition) error {
	if !validStatuses[tr.Status] {
		return fmt.Errorf("unknown status %q", tr.Status)
	}
	if models.TerminalStatuses[job.Status] && job.Status != tr.Status && !tr.Force {
		return fmt.Errorf("%w: %s", ErrTerminalState, job.Status)
	}

	now := m.now().UTC()
	prev := job.Status
	job.Status = tr.Status
	if tr.SystemStatus != nil {
		job.SystemStatus = *tr.SystemStatus
	}
	job.UpdatedAt = now

	switch tr.Status {
	case models.StatusApplied:
		if job.AppliedAt == nil {
			t := now
			job.AppliedAt = &t
		}
	case models.StatusRejected:
		t := now
		job.RejectedAt = &t
	case models.StatusArchived:
		if job.ArchivedAt == nil {
			t := now
			job.ArchivedAt = &t
		}
	}

	if err := m.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"from":          prev,
		"to":            tr.Status,
		"system_status": job.SystemStatus,
		"actor":         tr.Actor,
		"reason":        tr.Reason,
	})
	event := &models.Event{
		ID:          ulid.Make().String(),
		EventType:   models.EventStatusChange,
		JobKey:      job.JobKey,
		PayloadJSON: string(payload),
		TS:          now,
	}
	if err := m.events.Create(ctx, event); err != nil {
		// The transition itself committed; surface but do not roll back.
		m.logger.Warn("failed to write status event", "job_key", job.JobKey, "error", err)
	}

	m.logger.Info("status changed",
		"job_key", job.JobKey,
		"from", prev,
		"to", tr.Status,
		"actor", tr.Actor,
	)
	return nil
}

// SystemStatus returns a pointer for Transition.SystemStatus.
func SystemStatus(s string) *string { return &s }

// ClearSystemStatus is the pointer that clears system_status.
func ClearSystemStatus() *string { s := ""; return &s }
