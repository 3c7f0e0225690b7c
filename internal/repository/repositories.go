package repository

import (
	"database/sql"
	"encoding/json"
	"time"
)

// NewRepositories creates all repository instances for a database handle.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Job:        NewSQLiteJobRepository(db),
		Target:     NewSQLiteTargetRepository(db),
		ScoringRun: NewSQLiteScoringRunRepository(db),
		Evidence:   NewSQLiteEvidenceRepository(db),
		Contact:    NewSQLiteContactRepository(db),
		Event:      NewSQLiteEventRepository(db),
	}
}

// Shared scan/bind helpers. Timestamps are stored as RFC3339 text and string
// slices as JSON arrays.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func jsonList(list []string) sql.NullString {
	if len(list) == 0 {
		return sql.NullString{}
	}
	b, _ := json.Marshal(list)
	return sql.NullString{String: string(b), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func parseFloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func parseList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s.String), &list); err != nil {
		return nil
	}
	return list
}
