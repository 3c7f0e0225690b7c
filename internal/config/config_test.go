package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.MinJDChars != 120 {
		t.Errorf("MinJDChars = %d, want 120", cfg.MinJDChars)
	}
	if cfg.MinTargetSignal != 8 {
		t.Errorf("MinTargetSignal = %d, want 8", cfg.MinTargetSignal)
	}
	if cfg.ShortlistThreshold != 75 {
		t.Errorf("ShortlistThreshold = %d, want 75", cfg.ShortlistThreshold)
	}
	if cfg.FetchTimeout != 3500*time.Millisecond {
		t.Errorf("FetchTimeout = %v, want 3.5s", cfg.FetchTimeout)
	}
	if cfg.ScoreWeightMust != 0.7 || cfg.ScoreWeightNice != 0.3 {
		t.Errorf("score weights = %v/%v, want 0.7/0.3", cfg.ScoreWeightMust, cfg.ScoreWeightNice)
	}
	if cfg.AIEnabled() {
		t.Error("AIEnabled() should be false without ANTHROPIC_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MIN_JD_CHARS", "200")
	t.Setenv("RECOVERY_ENABLED", "false")
	t.Setenv("RSS_BLOCK_KEYWORDS", "intern, unpaid ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinJDChars != 200 {
		t.Errorf("MinJDChars = %d, want 200", cfg.MinJDChars)
	}
	if cfg.RecoveryEnabled {
		t.Error("RecoveryEnabled should be false")
	}
	if len(cfg.RSSBlockKeywords) != 2 || cfg.RSSBlockKeywords[0] != "intern" || cfg.RSSBlockKeywords[1] != "unpaid" {
		t.Errorf("RSSBlockKeywords = %v, want [intern unpaid]", cfg.RSSBlockKeywords)
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	t.Setenv("MIN_JD_CHARS", "10")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject MIN_JD_CHARS below 60")
	}
}

func TestSnapshotTTL(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store := NewStore(cfg)

	clock := time.Now()
	store.now = func() time.Time { return clock }

	values := map[string]string{}
	env = func(key string) string { return values[key] }
	t.Cleanup(func() { env = realEnv })

	values["SHORTLIST_THRESHOLD"] = "80"
	if got := store.Snapshot().ShortlistThreshold; got != 80 {
		t.Fatalf("first Snapshot ShortlistThreshold = %d, want 80", got)
	}

	// Within TTL the cached value holds even if the env changes.
	values["SHORTLIST_THRESHOLD"] = "90"
	if got := store.Snapshot().ShortlistThreshold; got != 80 {
		t.Errorf("cached Snapshot ShortlistThreshold = %d, want 80", got)
	}

	// After the TTL the new value is picked up.
	clock = clock.Add(cfg.SnapshotTTL + time.Second)
	if got := store.Snapshot().ShortlistThreshold; got != 90 {
		t.Errorf("refreshed Snapshot ShortlistThreshold = %d, want 90", got)
	}
}
