package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250301-000000",
		Description: "initial schema: jobs, targets, scoring runs, evidence, events",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				job_key TEXT PRIMARY KEY,
				job_url TEXT NOT NULL,
				job_url_raw TEXT NOT NULL,
				source_domain TEXT NOT NULL,
				external_id TEXT,
				role_title TEXT,
				company TEXT,
				location TEXT,
				work_mode TEXT,
				seniority TEXT,
				experience_years_min INTEGER,
				experience_years_max INTEGER,
				must_have TEXT,
				nice_to_have TEXT,
				reject_keywords TEXT,
				jd_text_clean TEXT,
				jd_source TEXT NOT NULL DEFAULT 'none',
				fetch_status TEXT,
				jd_confidence TEXT,
				primary_target_id TEXT,
				score_must REAL,
				score_nice REAL,
				final_score REAL,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				reject_reasons TEXT,
				reason_top_matches TEXT,
				status TEXT,
				system_status TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				last_scored_at TEXT,
				applied_at TEXT,
				rejected_at TEXT,
				archived_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_system_status ON jobs(system_status)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_source_domain ON jobs(source_domain)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at)`,

			`CREATE TABLE IF NOT EXISTS targets (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				primary_role TEXT NOT NULL,
				seniority TEXT,
				location TEXT,
				must_keywords TEXT,
				nice_keywords TEXT,
				reject_keywords TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			`CREATE TABLE IF NOT EXISTS scoring_runs (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL REFERENCES jobs(job_key) ON DELETE CASCADE,
				source TEXT NOT NULL,
				final_status TEXT NOT NULL,
				heuristic_reasons TEXT,
				stages TEXT,
				ai_model TEXT,
				total_latency_ms INTEGER NOT NULL DEFAULT 0,
				final_score REAL,
				reject_triggered INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scoring_runs_job_key ON scoring_runs(job_key)`,

			`CREATE TABLE IF NOT EXISTS job_evidence (
				id TEXT PRIMARY KEY,
				job_key TEXT NOT NULL REFERENCES jobs(job_key) ON DELETE CASCADE,
				requirement_text TEXT NOT NULL,
				requirement_type TEXT NOT NULL,
				evidence_text TEXT,
				evidence_source TEXT,
				confidence_score INTEGER NOT NULL DEFAULT 0,
				matched INTEGER NOT NULL DEFAULT 0,
				notes TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(job_key, requirement_text, requirement_type)
			)`,

			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				event_type TEXT NOT NULL,
				job_key TEXT,
				payload_json TEXT,
				ts TEXT NOT NULL
			)`,
		},
	})
}
