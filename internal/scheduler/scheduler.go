// Package scheduler runs the periodic triggers: mailbox poll, RSS poll, and
// recovery. Each trigger refuses to overlap itself; a skipped tick is
// recorded as an event.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"

	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
)

// Task is one scheduled operation.
type Task struct {
	Name string
	Spec string // standard 5-field cron expression
	Run  func(ctx context.Context) error
}

// Scheduler owns the cron runner and the overlap guards.
type Scheduler struct {
	cron   *cron.Cron
	events repository.EventRepository
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]bool
}

// New creates a scheduler.
func New(events repository.EventRepository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		events:  events,
		logger:  logger.With("component", "scheduler"),
		running: make(map[string]bool),
	}
}

// Register adds a task. Ticks that land while the previous run of the same
// task is still in flight are skipped with a CRON_SKIPPED_OVERLAP event.
func (s *Scheduler) Register(task Task) error {
	_, err := s.cron.AddFunc(task.Spec, func() {
		s.tick(task)
	})
	if err != nil {
		return err
	}
	s.logger.Info("task registered", "task", task.Name, "spec", task.Spec)
	return nil
}

func (s *Scheduler) tick(task Task) {
	if !s.admit(task.Name) {
		s.skip(task.Name)
		return
	}
	defer s.done(task.Name)

	start := time.Now()
	if err := task.Run(context.Background()); err != nil {
		s.logger.Error("task failed", "task", task.Name, "error", err)
		return
	}
	s.logger.Info("task finished", "task", task.Name, "duration", time.Since(start).String())
}

func (s *Scheduler) admit(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) done(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

func (s *Scheduler) skip(name string) {
	s.logger.Warn("tick skipped, previous run still in flight", "task", name)
	payload, _ := json.Marshal(map[string]string{"task": name})
	event := &models.Event{
		ID:          ulid.Make().String(),
		EventType:   models.EventCronSkippedOverlap,
		PayloadJSON: string(payload),
		TS:          time.Now().UTC(),
	}
	if err := s.events.Create(context.Background(), event); err != nil {
		s.logger.Warn("failed to write overlap event", "task", name, "error", err)
	}
}

// Start begins dispatching ticks.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "tasks", len(s.cron.Entries()))
}

// Stop halts dispatch and waits for running tasks.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
