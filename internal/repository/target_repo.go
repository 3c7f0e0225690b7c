package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobops/jobops/internal/models"
)

const targetColumns = `id, name, primary_role, seniority, location,
	must_keywords, nice_keywords, reject_keywords, created_at, updated_at`

// SQLiteTargetRepository implements TargetRepository for SQLite.
type SQLiteTargetRepository struct {
	db *sql.DB
}

// NewSQLiteTargetRepository creates a new SQLite target repository.
func NewSQLiteTargetRepository(db *sql.DB) *SQLiteTargetRepository {
	return &SQLiteTargetRepository{db: db}
}

func (r *SQLiteTargetRepository) Get(ctx context.Context, id string) (*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE id = ?`
	target, err := scanTarget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return target, nil
}

func (r *SQLiteTargetRepository) List(ctx context.Context) ([]*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

func (r *SQLiteTargetRepository) Upsert(ctx context.Context, target *models.Target) error {
	query := `
		INSERT INTO targets (` + targetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			primary_role = excluded.primary_role,
			seniority = excluded.seniority,
			location = excluded.location,
			must_keywords = excluded.must_keywords,
			nice_keywords = excluded.nice_keywords,
			reject_keywords = excluded.reject_keywords,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		target.ID,
		target.Name,
		target.PrimaryRole,
		nullString(target.Seniority),
		nullString(target.Location),
		jsonList(target.MustKeywords),
		jsonList(target.NiceKeywords),
		jsonList(target.RejectKeywords),
		target.CreatedAt.Format(time.RFC3339),
		target.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert target: %w", err)
	}
	return nil
}

func (r *SQLiteTargetRepository) LatestUpdatedAt(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM targets`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read target freshness: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return parseTime(latest.String), nil
}

func scanTarget(row rowScanner) (*models.Target, error) {
	var target models.Target
	var seniority, location sql.NullString
	var mustKw, niceKw, rejectKw sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&target.ID, &target.Name, &target.PrimaryRole, &seniority, &location,
		&mustKw, &niceKw, &rejectKw, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	target.Seniority = seniority.String
	target.Location = location.String
	target.MustKeywords = parseList(mustKw)
	target.NiceKeywords = parseList(niceKw)
	target.RejectKeywords = parseList(rejectKw)
	target.CreatedAt = parseTime(createdAt)
	target.UpdatedAt = parseTime(updatedAt)

	return &target, nil
}
