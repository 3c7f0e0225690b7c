package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250406-000000",
		Description: "recovery bookkeeping: fetch attempt timestamp, event type index",
		Up: []string{
			`ALTER TABLE jobs ADD COLUMN last_fetch_attempt_at TEXT`,
			`CREATE INDEX IF NOT EXISTS idx_events_type_ts ON events(event_type, ts)`,
		},
	})
}
