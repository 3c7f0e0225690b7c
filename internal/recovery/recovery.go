// Package recovery runs maintenance passes over stalled jobs: backfilling
// missing JDs, rescoring stale rows, and retrying blocked fetches.
package recovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/jobops/jobops/internal/ingest"
	"github.com/jobops/jobops/internal/jd"
	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
	"github.com/jobops/jobops/internal/scoring"
)

// Summary is the per-source outcome of one recovery pass.
type Summary struct {
	SourceDomain string `json:"source_domain"`
	Total        int    `json:"total"`
	Recovered    int    `json:"recovered"`
	ManualNeeded int    `json:"manual_needed"`
	NeedsAI      int    `json:"needs_ai"`
	Blocked      int    `json:"blocked"`
	LowQuality   int    `json:"low_quality"`
	LinkOnly     int    `json:"link_only"`
	Ignored      int    `json:"ignored"`
	Inserted     int    `json:"inserted"`
	Updated      int    `json:"updated"`
}

// Config bounds the three loops.
type Config struct {
	BackfillLimit int
	RescoreLimit  int
	RetryLimit    int
	// StaleAfter is how old a row must be before backfill touches it.
	StaleAfter time.Duration
}

// Runner executes recovery passes.
type Runner struct {
	repos    *repository.Repositories
	resolver *jd.Resolver
	pipeline *scoring.Pipeline
	locks    *ingest.KeyLock
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	now     func() time.Time
}

// NewRunner creates a recovery runner.
func NewRunner(repos *repository.Repositories, resolver *jd.Resolver, pipeline *scoring.Pipeline, locks *ingest.KeyLock, cfg Config, logger *slog.Logger) *Runner {
	if cfg.BackfillLimit <= 0 {
		cfg.BackfillLimit = 25
	}
	if cfg.RescoreLimit <= 0 {
		cfg.RescoreLimit = 25
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 25
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		repos:    repos,
		resolver: resolver,
		pipeline: pipeline,
		locks:    locks,
		cfg:      cfg,
		logger:   logger.With("component", "recovery"),
		perHost:  make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// BackfillMissing re-resolves JDs for rows with empty or low-quality text.
func (r *Runner) BackfillMissing(ctx context.Context) ([]Summary, error) {
	jobs, err := r.repos.Job.ListMissingJD(ctx, r.now().Add(-r.cfg.StaleAfter), r.cfg.BackfillLimit)
	if err != nil {
		return nil, err
	}

	agg := newAggregator()
	for _, job := range jobs {
		s := agg.bucket(job.SourceDomain)
		s.Total++
		r.refetchOne(ctx, job, s, false)
	}
	return r.finish(ctx, "backfill_missing", agg)
}

// RescoreStale reruns scoring for jobs whose last score predates the latest
// target change.
func (r *Runner) RescoreStale(ctx context.Context) ([]Summary, error) {
	cutoff, err := r.repos.Target.LatestUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}
	if cutoff.IsZero() {
		return nil, nil
	}
	jobs, err := r.repos.Job.ListStaleScored(ctx, cutoff, r.cfg.RescoreLimit)
	if err != nil {
		return nil, err
	}

	agg := newAggregator()
	for _, job := range jobs {
		s := agg.bucket(job.SourceDomain)
		s.Total++

		if err := r.locks.Acquire(ctx, job.JobKey); err != nil {
			s.Ignored++
			continue
		}
		run, err := r.pipeline.Score(ctx, job, models.RunSourceRescore)
		r.locks.Release(job.JobKey)
		if err != nil {
			r.logger.Warn("rescore failed", "job_key", job.JobKey, "error", err)
			s.Ignored++
			continue
		}
		switch run.FinalStatus {
		case models.RunCompleted, models.RunRejectedHeuristic:
			s.Recovered++
			s.Updated++
		default:
			s.NeedsAI++
		}
	}
	return r.finish(ctx, "rescore_stale", agg)
}

// RetryFetch re-fetches blocked and failed rows, at most once per host per
// hour.
func (r *Runner) RetryFetch(ctx context.Context) ([]Summary, error) {
	jobs, err := r.repos.Job.ListFetchRetry(ctx, r.cfg.RetryLimit)
	if err != nil {
		return nil, err
	}

	agg := newAggregator()
	for _, job := range jobs {
		s := agg.bucket(job.SourceDomain)
		s.Total++

		if !r.hostAllow(job.SourceDomain) {
			s.Ignored++
			continue
		}
		r.refetchOne(ctx, job, s, true)
	}
	return r.finish(ctx, "retry_fetch", agg)
}

// refetchOne resolves the JD again and, on success, rescores. stamp records
// the attempt time for retry bookkeeping.
func (r *Runner) refetchOne(ctx context.Context, job *models.Job, s *Summary, stamp bool) {
	if err := r.locks.Acquire(ctx, job.JobKey); err != nil {
		s.Ignored++
		return
	}
	defer r.locks.Release(job.JobKey)

	res := r.resolver.Resolve(ctx, job.JobURL, nil)
	now := r.now().UTC()
	if stamp {
		job.LastFetchAttemptAt = &now
	}
	job.UpdatedAt = now
	job.FetchStatus = res.FetchStatus

	if res.JDTextClean == "" {
		switch res.FetchStatus {
		case models.FetchBlocked:
			s.Blocked++
			s.LowQuality++
		default:
			s.ManualNeeded++
		}
		if job.Status == models.StatusLinkOnly || job.Status == models.StatusNew {
			job.SystemStatus = models.SystemNeedsManualJD
			s.LinkOnly++
		}
		if err := r.repos.Job.Update(ctx, job); err != nil {
			r.logger.Warn("failed to persist retry outcome", "job_key", job.JobKey, "error", err)
		}
		return
	}

	job.JDTextClean = res.JDTextClean
	job.JDSource = res.JDSource
	job.JDConfidence = res.JDConfidence
	if err := r.repos.Job.Update(ctx, job); err != nil {
		r.logger.Warn("failed to persist recovered JD", "job_key", job.JobKey, "error", err)
		return
	}
	s.Recovered++
	s.Updated++

	run, err := r.pipeline.Score(ctx, job, models.RunSourceRescore)
	if err != nil {
		r.logger.Warn("post-recovery scoring failed", "job_key", job.JobKey, "error", err)
		return
	}
	if run.FinalStatus == models.RunFailed {
		s.NeedsAI++
	}
}

// hostAllow enforces one retry per host per hour.
func (r *Runner) hostAllow(host string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.perHost[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Hour), 1)
		r.perHost[host] = lim
	}
	return lim.Allow()
}

func (r *Runner) finish(ctx context.Context, op string, agg *aggregator) ([]Summary, error) {
	summaries := agg.list()
	payload, _ := json.Marshal(map[string]any{"op": op, "summaries": summaries})
	event := &models.Event{
		ID:          ulid.Make().String(),
		EventType:   models.EventRecovery,
		PayloadJSON: string(payload),
		TS:          r.now().UTC(),
	}
	if err := r.repos.Event.Create(ctx, event); err != nil {
		r.logger.Warn("failed to write recovery event", "op", op, "error", err)
	}
	r.logger.Info("recovery pass finished", "op", op, "sources", len(summaries))
	return summaries, nil
}

type aggregator struct {
	order   []string
	buckets map[string]*Summary
}

func newAggregator() *aggregator {
	return &aggregator{buckets: make(map[string]*Summary)}
}

func (a *aggregator) bucket(domain string) *Summary {
	s, ok := a.buckets[domain]
	if !ok {
		s = &Summary{SourceDomain: domain}
		a.buckets[domain] = s
		a.order = append(a.order, domain)
	}
	return s
}

func (a *aggregator) list() []Summary {
	out := make([]Summary, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, *a.buckets[d])
	}
	return out
}
