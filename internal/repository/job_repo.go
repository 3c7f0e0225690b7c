package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jobops/jobops/internal/models"
)

const jobColumns = `job_key, job_url, job_url_raw, source_domain, external_id,
	role_title, company, location, work_mode, seniority,
	experience_years_min, experience_years_max,
	must_have, nice_to_have, reject_keywords,
	jd_text_clean, jd_source, fetch_status, jd_confidence,
	primary_target_id, score_must, score_nice, final_score,
	reject_triggered, reject_reasons, reason_top_matches,
	status, system_status,
	created_at, updated_at, last_scored_at, applied_at, rejected_at, archived_at,
	last_fetch_attempt_at`

// SQLiteJobRepository implements JobRepository for SQLite.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a new SQLite job repository.
func NewSQLiteJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

func (r *SQLiteJobRepository) GetByKey(ctx context.Context, jobKey string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_key = ?`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, jobKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *SQLiteJobRepository) Insert(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, jobArgs(job)...)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			job_url = ?, job_url_raw = ?, source_domain = ?, external_id = ?,
			role_title = ?, company = ?, location = ?, work_mode = ?, seniority = ?,
			experience_years_min = ?, experience_years_max = ?,
			must_have = ?, nice_to_have = ?, reject_keywords = ?,
			jd_text_clean = ?, jd_source = ?, fetch_status = ?, jd_confidence = ?,
			primary_target_id = ?, score_must = ?, score_nice = ?, final_score = ?,
			reject_triggered = ?, reject_reasons = ?, reason_top_matches = ?,
			status = ?, system_status = ?,
			updated_at = ?, last_scored_at = ?, applied_at = ?, rejected_at = ?, archived_at = ?,
			last_fetch_attempt_at = ?
		WHERE job_key = ?
	`
	args := jobArgs(job)
	// Drop job_key (position 0) and created_at (position 28) from the insert
	// argument list, then append the WHERE key.
	updateArgs := make([]any, 0, len(args))
	for i, a := range args {
		if i == 0 || i == 28 {
			continue
		}
		updateArgs = append(updateArgs, a)
	}
	updateArgs = append(updateArgs, job.JobKey)

	res, err := r.db.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found", job.JobKey)
	}
	return nil
}

func (r *SQLiteJobRepository) List(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		where = append(where, "(role_title LIKE ? OR company LIKE ? OR job_url LIKE ?)")
		args = append(args, like, like, like)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	return r.queryJobs(ctx, query, args...)
}

func (r *SQLiteJobRepository) ListMissingJD(ctx context.Context, updatedBefore time.Time, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE (jd_text_clean IS NULL OR jd_text_clean = '' OR jd_confidence = 'low')
		  AND updated_at < ?
		  AND status NOT IN ('APPLIED', 'REJECTED', 'ARCHIVED')
		ORDER BY updated_at ASC LIMIT ?`
	return r.queryJobs(ctx, query, updatedBefore.Format(time.RFC3339), limit)
}

func (r *SQLiteJobRepository) ListStaleScored(ctx context.Context, scoredBefore time.Time, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE jd_text_clean IS NOT NULL AND jd_text_clean != ''
		  AND (last_scored_at IS NULL OR last_scored_at < ?)
		  AND status NOT IN ('APPLIED', 'REJECTED', 'ARCHIVED')
		ORDER BY updated_at ASC LIMIT ?`
	return r.queryJobs(ctx, query, scoredBefore.Format(time.RFC3339), limit)
}

func (r *SQLiteJobRepository) ListFetchRetry(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE fetch_status IN ('blocked', 'failed')
		  AND status NOT IN ('APPLIED', 'REJECTED', 'ARCHIVED')
		ORDER BY COALESCE(last_fetch_attempt_at, created_at) ASC LIMIT ?`
	return r.queryJobs(ctx, query, limit)
}

func (r *SQLiteJobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// jobArgs binds a job to the column order of jobColumns.
func jobArgs(job *models.Job) []any {
	return []any{
		job.JobKey,
		job.JobURL,
		job.JobURLRaw,
		job.SourceDomain,
		nullString(job.ExternalID),
		nullString(job.RoleTitle),
		nullString(job.Company),
		nullString(job.Location),
		nullString(job.WorkMode),
		nullString(job.Seniority),
		nullInt(job.ExperienceYearsMin),
		nullInt(job.ExperienceYearsMax),
		jsonList(job.MustHave),
		jsonList(job.NiceToHave),
		jsonList(job.RejectKeywords),
		nullString(job.JDTextClean),
		job.JDSource,
		nullString(job.FetchStatus),
		nullString(job.JDConfidence),
		nullString(job.PrimaryTargetID),
		nullFloat(job.ScoreMust),
		nullFloat(job.ScoreNice),
		nullFloat(job.FinalScore),
		boolInt(job.RejectTriggered),
		jsonList(job.RejectReasons),
		nullString(job.ReasonTopMatches),
		nullString(job.Status),
		nullString(job.SystemStatus),
		job.CreatedAt.Format(time.RFC3339),
		job.UpdatedAt.Format(time.RFC3339),
		nullTime(job.LastScoredAt),
		nullTime(job.AppliedAt),
		nullTime(job.RejectedAt),
		nullTime(job.ArchivedAt),
		nullTime(job.LastFetchAttemptAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var externalID, roleTitle, company, location, workMode, seniority sql.NullString
	var expMin, expMax sql.NullInt64
	var mustHave, niceToHave, rejectKeywords sql.NullString
	var jdText, fetchStatus, jdConfidence, primaryTarget sql.NullString
	var scoreMust, scoreNice, finalScore sql.NullFloat64
	var rejectTriggered int
	var rejectReasons, reasonTop, status, systemStatus sql.NullString
	var createdAt, updatedAt string
	var lastScoredAt, appliedAt, rejectedAt, archivedAt, lastFetchAt sql.NullString

	err := row.Scan(
		&job.JobKey, &job.JobURL, &job.JobURLRaw, &job.SourceDomain, &externalID,
		&roleTitle, &company, &location, &workMode, &seniority,
		&expMin, &expMax,
		&mustHave, &niceToHave, &rejectKeywords,
		&jdText, &job.JDSource, &fetchStatus, &jdConfidence,
		&primaryTarget, &scoreMust, &scoreNice, &finalScore,
		&rejectTriggered, &rejectReasons, &reasonTop,
		&status, &systemStatus,
		&createdAt, &updatedAt, &lastScoredAt, &appliedAt, &rejectedAt, &archivedAt,
		&lastFetchAt,
	)
	if err != nil {
		return nil, err
	}

	job.ExternalID = externalID.String
	job.RoleTitle = roleTitle.String
	job.Company = company.String
	job.Location = location.String
	job.WorkMode = workMode.String
	job.Seniority = seniority.String
	job.ExperienceYearsMin = parseIntPtr(expMin)
	job.ExperienceYearsMax = parseIntPtr(expMax)
	job.MustHave = parseList(mustHave)
	job.NiceToHave = parseList(niceToHave)
	job.RejectKeywords = parseList(rejectKeywords)
	job.JDTextClean = jdText.String
	job.FetchStatus = fetchStatus.String
	job.JDConfidence = jdConfidence.String
	job.PrimaryTargetID = primaryTarget.String
	job.ScoreMust = parseFloatPtr(scoreMust)
	job.ScoreNice = parseFloatPtr(scoreNice)
	job.FinalScore = parseFloatPtr(finalScore)
	job.RejectTriggered = rejectTriggered == 1
	job.RejectReasons = parseList(rejectReasons)
	job.ReasonTopMatches = reasonTop.String
	job.Status = status.String
	job.SystemStatus = systemStatus.String
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	job.LastScoredAt = parseTimePtr(lastScoredAt)
	job.AppliedAt = parseTimePtr(appliedAt)
	job.RejectedAt = parseTimePtr(rejectedAt)
	job.ArchivedAt = parseTimePtr(archivedAt)
	job.LastFetchAttemptAt = parseTimePtr(lastFetchAt)

	return &job, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
