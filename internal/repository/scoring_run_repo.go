package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jobops/jobops/internal/models"
)

const scoringRunColumns = `id, job_key, source, final_status, heuristic_reasons,
	stages, ai_model, total_latency_ms, final_score, reject_triggered, created_at`

// SQLiteScoringRunRepository implements ScoringRunRepository for SQLite.
type SQLiteScoringRunRepository struct {
	db *sql.DB
}

// NewSQLiteScoringRunRepository creates a new SQLite scoring run repository.
func NewSQLiteScoringRunRepository(db *sql.DB) *SQLiteScoringRunRepository {
	return &SQLiteScoringRunRepository{db: db}
}

func (r *SQLiteScoringRunRepository) Create(ctx context.Context, run *models.ScoringRun) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	query := `
		INSERT INTO scoring_runs (` + scoringRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.JobKey,
		run.Source,
		run.FinalStatus,
		jsonList(run.HeuristicReasons),
		string(stagesJSON),
		nullString(run.AIModel),
		run.TotalLatencyMs,
		nullFloat(run.FinalScore),
		boolInt(run.RejectTriggered),
		run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scoring run: %w", err)
	}
	return nil
}

func (r *SQLiteScoringRunRepository) ListByJobKey(ctx context.Context, jobKey string, limit int) ([]*models.ScoringRun, error) {
	if limit <= 0 {
		limit = 20
	}
	// ULID ids sort by creation time, newest first on DESC.
	query := `SELECT ` + scoringRunColumns + ` FROM scoring_runs
		WHERE job_key = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, jobKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScoringRun
	for rows.Next() {
		run, err := scanScoringRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanScoringRun(row rowScanner) (*models.ScoringRun, error) {
	var run models.ScoringRun
	var heuristicReasons, stages, aiModel sql.NullString
	var finalScore sql.NullFloat64
	var rejectTriggered int
	var createdAt string

	err := row.Scan(
		&run.ID, &run.JobKey, &run.Source, &run.FinalStatus, &heuristicReasons,
		&stages, &aiModel, &run.TotalLatencyMs, &finalScore, &rejectTriggered, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.HeuristicReasons = parseList(heuristicReasons)
	if stages.Valid && stages.String != "" {
		if err := json.Unmarshal([]byte(stages.String), &run.Stages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}
	run.AIModel = aiModel.String
	run.FinalScore = parseFloatPtr(finalScore)
	run.RejectTriggered = rejectTriggered == 1
	run.CreatedAt = parseTime(createdAt)

	return &run, nil
}
