package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250318-000000",
		Description: "recruiter contacts and touchpoints",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS contacts (
				id TEXT PRIMARY KEY,
				name TEXT,
				company TEXT,
				title TEXT,
				linkedin_url TEXT UNIQUE,
				email TEXT UNIQUE,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS contact_touchpoints (
				id TEXT PRIMARY KEY,
				contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				job_key TEXT NOT NULL,
				channel TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'DRAFT',
				content TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(contact_id, job_key, channel)
			)`,
		},
	})
}
