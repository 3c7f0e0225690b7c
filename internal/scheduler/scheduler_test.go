package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jobops/jobops/internal/models"
)

type memEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (m *memEvents) Create(ctx context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) ListRecent(ctx context.Context, t string, n int) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, nil
}

func TestTickRunsTask(t *testing.T) {
	events := &memEvents{}
	s := New(events, nil)

	ran := false
	s.tick(Task{Name: "t", Run: func(ctx context.Context) error {
		ran = true
		return nil
	}})
	if !ran {
		t.Fatal("task did not run")
	}
	if len(events.events) != 0 {
		t.Errorf("no events expected on clean run, got %d", len(events.events))
	}
}

func TestOverlappingTickSkipped(t *testing.T) {
	events := &memEvents{}
	s := New(events, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	task := Task{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}

	go s.tick(task)
	<-started

	// Second tick while the first is in flight.
	s.tick(task)
	close(release)

	deadline := time.After(time.Second)
	for {
		events.mu.Lock()
		n := len(events.events)
		events.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 1 overlap event, got %d", n)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if events.events[0].EventType != models.EventCronSkippedOverlap {
		t.Errorf("event type = %q, want CRON_SKIPPED_OVERLAP", events.events[0].EventType)
	}
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New(&memEvents{}, nil)
	if err := s.Register(Task{Name: "bad", Spec: "not a cron spec", Run: func(ctx context.Context) error { return nil }}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if err := s.Register(Task{Name: "ok", Spec: "*/15 * * * *", Run: func(ctx context.Context) error { return nil }}); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}
