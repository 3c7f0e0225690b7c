package config

import (
	"sync"
	"time"
)

// Tunables are the configuration values that may change while the process
// runs. They are re-read from the environment at most once per TTL.
type Tunables struct {
	MinJDChars         int
	MinTargetSignal    int
	ShortlistThreshold int
	ScoreWeightMust    float64
	ScoreWeightNice    float64
	RSSAllowKeywords   []string
	RSSBlockKeywords   []string
}

// Store caches Tunables with a TTL. A zero TTL disables caching and every
// Snapshot call re-reads the environment.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	fetched time.Time
	current Tunables
	now     func() time.Time
}

// NewStore creates a tunables store seeded from cfg.
func NewStore(cfg *Config) *Store {
	return &Store{
		ttl: cfg.SnapshotTTL,
		current: Tunables{
			MinJDChars:         cfg.MinJDChars,
			MinTargetSignal:    cfg.MinTargetSignal,
			ShortlistThreshold: cfg.ShortlistThreshold,
			ScoreWeightMust:    cfg.ScoreWeightMust,
			ScoreWeightNice:    cfg.ScoreWeightNice,
			RSSAllowKeywords:   cfg.RSSAllowKeywords,
			RSSBlockKeywords:   cfg.RSSBlockKeywords,
		},
		now: time.Now,
	}
}

// Snapshot returns the current tunables, refreshing from the environment when
// the cached copy is older than the TTL.
func (s *Store) Snapshot() Tunables {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fetched.IsZero() && s.now().Sub(s.fetched) < s.ttl {
		return s.current
	}

	s.current = Tunables{
		MinJDChars:         getEnvInt("MIN_JD_CHARS", s.current.MinJDChars),
		MinTargetSignal:    getEnvInt("MIN_TARGET_SIGNAL", s.current.MinTargetSignal),
		ShortlistThreshold: getEnvInt("SHORTLIST_THRESHOLD", s.current.ShortlistThreshold),
		ScoreWeightMust:    getEnvFloat("SCORE_W_MUST", s.current.ScoreWeightMust),
		ScoreWeightNice:    getEnvFloat("SCORE_W_NICE", s.current.ScoreWeightNice),
		RSSAllowKeywords:   getEnvSlice("RSS_ALLOW_KEYWORDS", s.current.RSSAllowKeywords),
		RSSBlockKeywords:   getEnvSlice("RSS_BLOCK_KEYWORDS", s.current.RSSBlockKeywords),
	}
	s.fetched = s.now()
	return s.current
}
