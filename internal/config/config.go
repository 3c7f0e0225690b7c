// Package config handles application configuration.
//
// All values come from process environment variables. Knobs that tune scoring
// and intake behaviour (thresholds, keyword bundles) can change while the
// process runs; those are read through a Snapshot with a short TTL instead of
// being fixed at startup.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port        int    `validate:"min=1,max=65535"`
	BaseURL     string `validate:"required"`
	AllowOrigin string

	// Auth (shared-secret headers)
	UIKey  string // x-ui-key; grants the UI capability set
	APIKey string // x-api-key; grants the admin capability set

	// Database
	DatabaseURL string `validate:"required"`

	// LLM runner
	AnthropicAPIKey string
	AIModel         string
	LLMTimeout      time.Duration `validate:"min=1s"`

	// JD fetching
	FetchTimeout     time.Duration `validate:"min=100ms"`
	FetchUserAgent   string
	FetchMaxRedirect int `validate:"min=0,max=20"`

	// Scoring
	MinJDChars         int     `validate:"min=60,max=2000"`
	MinTargetSignal    int     `validate:"min=0,max=100"`
	ShortlistThreshold int     `validate:"min=0,max=100"`
	ScoreWeightMust    float64 `validate:"gt=0,lte=1"`
	ScoreWeightNice    float64 `validate:"gte=0,lte=1"`

	// Ingest
	LockTimeout    time.Duration `validate:"min=1s"`
	IngestParallel int           `validate:"min=1,max=32"`
	BatchBudget    time.Duration

	// Canonicalizer
	GenericAllowedHosts []string

	// RSS intake
	RSSFeeds         []string
	RSSAllowKeywords []string
	RSSBlockKeywords []string

	// Recovery
	RecoveryEnabled      bool
	RecoverBackfillLimit int `validate:"min=0"`
	RecoverRescoreLimit  int `validate:"min=0"`
	RecoverRetryLimit    int `validate:"min=0"`

	// Scheduler
	SchedulerEnabled bool
	CronEmailPoll    string
	CronRSSPoll      string
	CronRecovery     string

	// IMAP mailbox poll (disabled unless host is set)
	IMAPHost     string
	IMAPUser     string
	IMAPPassword string
	IMAPFolder   string

	// Refresh interval for Snapshot values
	SnapshotTTL time.Duration `validate:"min=1s"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		AllowOrigin: getEnv("ALLOW_ORIGIN", "http://localhost:5173"),

		UIKey:  getEnv("UI_KEY", ""),
		APIKey: getEnv("API_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", "file:jobops.db?_journal=WAL&_timeout=5000"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AIModel:         getEnv("AI_MODEL", "claude-sonnet-4-20250514"),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 30*time.Second),

		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 3500*time.Millisecond),
		FetchUserAgent:   getEnv("FETCH_USER_AGENT", "JobOpsBot/1.0 (+personal job tracker)"),
		FetchMaxRedirect: getEnvInt("FETCH_MAX_REDIRECTS", 5),

		MinJDChars:         getEnvInt("MIN_JD_CHARS", 120),
		MinTargetSignal:    getEnvInt("MIN_TARGET_SIGNAL", 8),
		ShortlistThreshold: getEnvInt("SHORTLIST_THRESHOLD", 75),
		ScoreWeightMust:    getEnvFloat("SCORE_W_MUST", 0.7),
		ScoreWeightNice:    getEnvFloat("SCORE_W_NICE", 0.3),

		LockTimeout:    getEnvDuration("LOCK_TIMEOUT", 10*time.Second),
		IngestParallel: getEnvInt("INGEST_PARALLEL", 4),
		BatchBudget:    getEnvDuration("INGEST_BATCH_BUDGET", 120*time.Second),

		GenericAllowedHosts: getEnvSlice("GENERIC_ALLOWED_HOSTS", []string{"wellfound.com", "instahyre.com"}),

		RSSFeeds:         getEnvSlice("RSS_FEEDS", nil),
		RSSAllowKeywords: getEnvSlice("RSS_ALLOW_KEYWORDS", nil),
		RSSBlockKeywords: getEnvSlice("RSS_BLOCK_KEYWORDS", nil),

		RecoveryEnabled:      getEnvBool("RECOVERY_ENABLED", true),
		RecoverBackfillLimit: getEnvInt("RECOVER_BACKFILL_LIMIT", 25),
		RecoverRescoreLimit:  getEnvInt("RECOVER_RESCORE_LIMIT", 25),
		RecoverRetryLimit:    getEnvInt("RECOVER_RETRY_LIMIT", 25),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		CronEmailPoll:    getEnv("CRON_EMAIL_POLL", "*/15 * * * *"),
		CronRSSPoll:      getEnv("CRON_RSS_POLL", "*/15 * * * *"),
		CronRecovery:     getEnv("CRON_RECOVERY", "*/15 * * * *"),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),

		SnapshotTTL: getEnvDuration("CONFIG_TTL", 60*time.Second),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// AIEnabled reports whether the LLM runner can be constructed.
func (c *Config) AIEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// MailboxEnabled reports whether the IMAP poller is configured.
func (c *Config) MailboxEnabled() bool {
	return c.IMAPHost != "" && c.IMAPUser != ""
}

func getEnv(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := env(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := env(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := env(key); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := env(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvSlice(key string, def []string) []string {
	if v := env(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return def
}
