package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobops/jobops/internal/models"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLite event repository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `INSERT INTO events (id, event_type, job_key, payload_json, ts) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.JobKey),
		nullString(event.PayloadJSON),
		event.TS.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) ListRecent(ctx context.Context, eventType string, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, event_type, job_key, payload_json, ts FROM events`
	var args []any
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	// ULID ids sort by creation time.
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		var jobKey, payload sql.NullString
		var ts string
		if err := rows.Scan(&event.ID, &event.EventType, &jobKey, &payload, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.JobKey = jobKey.String
		event.PayloadJSON = payload.String
		event.TS = parseTime(ts)
		events = append(events, &event)
	}
	return events, rows.Err()
}
