package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobops/jobops/internal/models"
)

const contactColumns = `id, name, company, title, linkedin_url, email, created_at, updated_at`

// touchpointRank orders the forward-only status ladder.
var touchpointRank = map[string]int{
	models.TouchpointDraft:   0,
	models.TouchpointSent:    1,
	models.TouchpointReplied: 2,
}

// SQLiteContactRepository implements ContactRepository for SQLite.
// Upserts are serialized: identity resolution is a read-then-write and two
// concurrent upserts of the same person must not create two rows.
type SQLiteContactRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteContactRepository creates a new SQLite contact repository.
func NewSQLiteContactRepository(db *sql.DB) *SQLiteContactRepository {
	return &SQLiteContactRepository{db: db}
}

// Upsert resolves identity by linkedin_url, then email, then
// lower(name)+lower(company), and merges fields preferring existing non-empty
// values. Returns the stored row.
func (r *SQLiteContactRepository) Upsert(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.resolve(ctx, contact)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		created := *contact
		if created.ID == "" {
			created.ID = uuid.NewString()
		}
		created.CreatedAt = now
		created.UpdatedAt = now
		query := `INSERT INTO contacts (` + contactColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query,
			created.ID,
			nullString(created.Name),
			nullString(created.Company),
			nullString(created.Title),
			nullString(created.LinkedInURL),
			nullString(created.Email),
			created.CreatedAt.Format(time.RFC3339),
			created.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert contact: %w", err)
		}
		return &created, nil
	}

	// Merge: keep what we have, fill gaps from the incoming record.
	query := `
		UPDATE contacts SET
			name = COALESCE(NULLIF(name, ''), ?),
			company = COALESCE(NULLIF(company, ''), ?),
			title = COALESCE(NULLIF(title, ''), ?),
			linkedin_url = COALESCE(NULLIF(linkedin_url, ''), ?),
			email = COALESCE(NULLIF(email, ''), ?),
			updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		nullString(contact.Name),
		nullString(contact.Company),
		nullString(contact.Title),
		nullString(contact.LinkedInURL),
		nullString(contact.Email),
		now.Format(time.RFC3339),
		existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to merge contact: %w", err)
	}
	return r.Get(ctx, existing.ID)
}

func (r *SQLiteContactRepository) resolve(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if contact.LinkedInURL != "" {
		found, err := r.findBy(ctx, "LOWER(linkedin_url) = LOWER(?)", contact.LinkedInURL)
		if err != nil || found != nil {
			return found, err
		}
	}
	if contact.Email != "" {
		found, err := r.findBy(ctx, "LOWER(email) = LOWER(?)", contact.Email)
		if err != nil || found != nil {
			return found, err
		}
	}
	if contact.Name != "" && contact.Company != "" {
		return r.findBy(ctx, "LOWER(name) = ? AND LOWER(company) = ?",
			strings.ToLower(contact.Name), strings.ToLower(contact.Company))
	}
	return nil, nil
}

func (r *SQLiteContactRepository) findBy(ctx context.Context, cond string, args ...any) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE ` + cond + ` LIMIT 1`
	contact, err := scanContact(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}
	return contact, nil
}

func (r *SQLiteContactRepository) Get(ctx context.Context, id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`
	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// ErrBackwardTransition is returned when a touchpoint status would move
// backward on the DRAFT -> SENT -> REPLIED ladder.
var ErrBackwardTransition = errors.New("touchpoint status cannot move backward")

// UpsertTouchpoint creates the touchpoint or advances its status. Transitions
// only move forward on the DRAFT -> SENT -> REPLIED ladder; repeating the
// current status is idempotent, moving backward is an error.
func (r *SQLiteContactRepository) UpsertTouchpoint(ctx context.Context, tp *models.Touchpoint) (*models.Touchpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.findTouchpoint(ctx, tp.ContactID, tp.JobKey, tp.Channel)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		created := *tp
		if created.ID == "" {
			created.ID = uuid.NewString()
		}
		if created.Status == "" {
			created.Status = models.TouchpointDraft
		}
		created.CreatedAt = now
		created.UpdatedAt = now
		query := `INSERT INTO contact_touchpoints (id, contact_id, job_key, channel, status, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query,
			created.ID, created.ContactID, created.JobKey, created.Channel,
			created.Status, nullString(created.Content),
			created.CreatedAt.Format(time.RFC3339),
			created.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert touchpoint: %w", err)
		}
		return &created, nil
	}

	if touchpointRank[tp.Status] < touchpointRank[existing.Status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, existing.Status, tp.Status)
	}
	if touchpointRank[tp.Status] == touchpointRank[existing.Status] {
		return existing, nil
	}

	query := `UPDATE contact_touchpoints SET status = ?, content = COALESCE(NULLIF(?, ''), content), updated_at = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, tp.Status, tp.Content, now.Format(time.RFC3339), existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update touchpoint: %w", err)
	}
	return r.findTouchpoint(ctx, tp.ContactID, tp.JobKey, tp.Channel)
}

func (r *SQLiteContactRepository) findTouchpoint(ctx context.Context, contactID, jobKey, channel string) (*models.Touchpoint, error) {
	query := `SELECT id, contact_id, job_key, channel, status, content, created_at, updated_at
		FROM contact_touchpoints WHERE contact_id = ? AND job_key = ? AND channel = ?`
	tp, err := scanTouchpoint(r.db.QueryRowContext(ctx, query, contactID, jobKey, channel))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get touchpoint: %w", err)
	}
	return tp, nil
}

func (r *SQLiteContactRepository) ListTouchpointsByJob(ctx context.Context, jobKey string) ([]*models.Touchpoint, error) {
	query := `SELECT id, contact_id, job_key, channel, status, content, created_at, updated_at
		FROM contact_touchpoints WHERE job_key = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, jobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list touchpoints: %w", err)
	}
	defer rows.Close()

	var tps []*models.Touchpoint
	for rows.Next() {
		tp, err := scanTouchpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan touchpoint: %w", err)
		}
		tps = append(tps, tp)
	}
	return tps, rows.Err()
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var contact models.Contact
	var name, company, title, linkedinURL, email sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&contact.ID, &name, &company, &title, &linkedinURL, &email, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	contact.Name = name.String
	contact.Company = company.String
	contact.Title = title.String
	contact.LinkedInURL = linkedinURL.String
	contact.Email = email.String
	contact.CreatedAt = parseTime(createdAt)
	contact.UpdatedAt = parseTime(updatedAt)

	return &contact, nil
}

func scanTouchpoint(row rowScanner) (*models.Touchpoint, error) {
	var tp models.Touchpoint
	var content sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&tp.ID, &tp.ContactID, &tp.JobKey, &tp.Channel, &tp.Status, &content, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	tp.Content = content.String
	tp.CreatedAt = parseTime(createdAt)
	tp.UpdatedAt = parseTime(updatedAt)

	return &tp, nil
}
