package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jobops/jobops/internal/models"
)

const evidenceColumns = `id, job_key, requirement_text, requirement_type,
	evidence_text, evidence_source, confidence_score, matched, notes,
	created_at, updated_at`

// SQLiteEvidenceRepository implements EvidenceRepository for SQLite.
type SQLiteEvidenceRepository struct {
	db *sql.DB
}

// NewSQLiteEvidenceRepository creates a new SQLite evidence repository.
func NewSQLiteEvidenceRepository(db *sql.DB) *SQLiteEvidenceRepository {
	return &SQLiteEvidenceRepository{db: db}
}

// Upsert inserts or refreshes an evidence row. The natural key is
// (job_key, requirement_text, requirement_type); the row id survives updates.
func (r *SQLiteEvidenceRepository) Upsert(ctx context.Context, ev *models.JobEvidence) error {
	query := `
		INSERT INTO job_evidence (` + evidenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key, requirement_text, requirement_type) DO UPDATE SET
			evidence_text = excluded.evidence_text,
			evidence_source = excluded.evidence_source,
			confidence_score = excluded.confidence_score,
			matched = excluded.matched,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.JobKey,
		ev.RequirementText,
		ev.RequirementType,
		nullString(ev.EvidenceText),
		nullString(ev.EvidenceSource),
		ev.ConfidenceScore,
		boolInt(ev.Matched),
		nullString(ev.Notes),
		ev.CreatedAt.Format(time.RFC3339),
		ev.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert evidence: %w", err)
	}
	return nil
}

func (r *SQLiteEvidenceRepository) ListByJobKey(ctx context.Context, jobKey string) ([]*models.JobEvidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM job_evidence
		WHERE job_key = ? ORDER BY requirement_type ASC, requirement_text ASC`
	rows, err := r.db.QueryContext(ctx, query, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var items []*models.JobEvidence
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

func (r *SQLiteEvidenceRepository) DeleteByJobKey(ctx context.Context, jobKey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM job_evidence WHERE job_key = ?`, jobKey)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	return nil
}

func scanEvidence(row rowScanner) (*models.JobEvidence, error) {
	var ev models.JobEvidence
	var evidenceText, evidenceSource, notes sql.NullString
	var matched int
	var createdAt, updatedAt string

	err := row.Scan(
		&ev.ID, &ev.JobKey, &ev.RequirementText, &ev.RequirementType,
		&evidenceText, &evidenceSource, &ev.ConfidenceScore, &matched, &notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.EvidenceText = evidenceText.String
	ev.EvidenceSource = evidenceSource.String
	ev.Matched = matched == 1
	ev.Notes = notes.String
	ev.CreatedAt = parseTime(createdAt)
	ev.UpdatedAt = parseTime(updatedAt)

	return &ev, nil
}
