package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jobops/jobops/internal/canonical"
	"github.com/jobops/jobops/internal/jd"
	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
	"github.com/jobops/jobops/internal/scoring"
)

// Row actions.
const (
	ActionInserted = "inserted"
	ActionUpdated  = "updated"
	ActionIgnored  = "ignored"
	ActionLinkOnly = "link_only"
)

// Result is the per-envelope outcome, emitted in submission order.
type Result struct {
	RawURL       string `json:"raw_url"`
	JobKey       string `json:"job_key,omitempty"`
	JobURL       string `json:"job_url,omitempty"`
	WasExisting  bool   `json:"was_existing"`
	Action       string `json:"action"`
	Status       string `json:"status,omitempty"`
	SystemStatus string `json:"system_status,omitempty"`
	JDSource     string `json:"jd_source,omitempty"`
	FetchStatus  string `json:"fetch_status,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Counts aggregates a batch; inserted+updated+ignored+link_only == N.
type Counts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Ignored  int `json:"ignored"`
	LinkOnly int `json:"link_only"`
}

// BatchResult is the full ingest response.
type BatchResult struct {
	Counts  Counts       `json:"counts"`
	Results []Result     `json:"results"`
	Health  SourceHealth `json:"health"`
}

// Orchestrator drives envelopes through the pipeline.
type Orchestrator struct {
	canon    *canonical.Canonicalizer
	resolver *jd.Resolver
	pipeline *scoring.Pipeline
	machine  *lifecycle.Machine
	repos    *repository.Repositories
	locks    *KeyLock
	parallel int
	logger   *slog.Logger
	aiUp     func() bool
}

// OrchestratorOptions wires an Orchestrator.
type OrchestratorOptions struct {
	Canonicalizer *canonical.Canonicalizer
	Resolver      *jd.Resolver
	Pipeline      *scoring.Pipeline
	Machine       *lifecycle.Machine
	Repos         *repository.Repositories
	Locks         *KeyLock
	Parallel      int
	Logger        *slog.Logger
	AIAvailable   func() bool
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AIAvailable == nil {
		opts.AIAvailable = func() bool { return false }
	}
	return &Orchestrator{
		canon:    opts.Canonicalizer,
		resolver: opts.Resolver,
		pipeline: opts.Pipeline,
		machine:  opts.Machine,
		repos:    opts.Repos,
		locks:    opts.Locks,
		parallel: opts.Parallel,
		logger:   opts.Logger.With("component", "ingest"),
		aiUp:     opts.AIAvailable,
	}
}

// Ingest processes a batch. Envelopes run concurrently (bounded) but results
// keep submission order and the counts invariant holds.
func (o *Orchestrator) Ingest(ctx context.Context, envelopes []Envelope) (*BatchResult, error) {
	results := make([]Result, len(envelopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)
	for i := range envelopes {
		i := i
		g.Go(func() error {
			results[i] = o.processOne(gctx, envelopes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{Results: results}
	valid := 0
	withURL := 0
	source := SourceManual
	if len(envelopes) > 0 {
		source = envelopes[0].Source
	}
	for _, env := range envelopes {
		if env.Job.JobURL != "" {
			withURL++
		}
	}
	for _, r := range results {
		switch {
		// Rows that stayed LINK_ONLY while AI was available count under
		// link_only; their action still reflects the existence probe.
		case r.Status == models.StatusLinkOnly && r.SystemStatus != models.SystemAIUnavailable:
			batch.Counts.LinkOnly++
		case r.Action == ActionInserted:
			batch.Counts.Inserted++
		case r.Action == ActionUpdated:
			batch.Counts.Updated++
		default:
			batch.Counts.Ignored++
		}
		if r.JobKey != "" {
			valid++
		}
	}
	batch.Health = ComputeHealth(source, len(envelopes), withURL, valid)
	o.emitHealthEvent(ctx, batch.Health)
	return batch, nil
}

func (o *Orchestrator) processOne(ctx context.Context, env Envelope) Result {
	raw := env.Job.JobURL
	canon, ok := o.canon.Canonicalize(raw)
	if !ok {
		return Result{RawURL: raw, Action: ActionIgnored}
	}

	if err := o.locks.Acquire(ctx, canon.JobKey); err != nil {
		return Result{RawURL: raw, JobKey: canon.JobKey, JobURL: canon.JobURL, Action: ActionIgnored, Error: ErrJobKeyBusy.Error()}
	}
	defer o.locks.Release(canon.JobKey)

	existing, err := o.repos.Job.GetByKey(ctx, canon.JobKey)
	if err != nil {
		return Result{RawURL: raw, JobKey: canon.JobKey, Action: ActionIgnored, Error: err.Error()}
	}
	wasExisting := existing != nil

	var emailCtx *jd.EmailContext
	if env.Email != nil {
		emailCtx = &jd.EmailContext{
			Subject: env.Email.Subject,
			From:    env.Email.From,
			Text:    env.Email.Text,
			HTML:    env.Email.HTML,
		}
	}

	var res jd.Resolution
	if env.Media != nil {
		// Media-only chat envelope: no JD until OCR runs elsewhere.
		res = jd.Resolution{JDSource: models.JDSourceNone, FetchStatus: models.FetchFailed, JDConfidence: models.ConfidenceLow}
	} else {
		res = o.resolver.Resolve(ctx, canon.JobURL, emailCtx)
	}

	aiUp := o.aiUp()
	job := existing
	now := time.Now().UTC()
	if job == nil {
		job = &models.Job{
			JobKey:    canon.JobKey,
			JobURLRaw: raw,
			CreatedAt: now,
			JDSource:  models.JDSourceNone,
			Status:    models.StatusNew,
		}
	}
	job.JobURL = canon.JobURL
	job.SourceDomain = canon.SourceDomain
	if job.ExternalID == "" {
		job.ExternalID = canon.ExternalID
	}
	if job.RoleTitle == "" {
		job.RoleTitle = env.Job.Title
	}
	if job.Company == "" {
		job.Company = env.Job.Company
	}
	job.UpdatedAt = now

	// JD merge prefers the freshly resolved text when usable.
	if res.JDTextClean != "" {
		job.JDTextClean = res.JDTextClean
		job.JDSource = res.JDSource
		job.JDConfidence = res.JDConfidence
	}
	job.FetchStatus = res.FetchStatus

	jdUsable := job.JDTextClean != "" && job.JDConfidence != models.ConfidenceLow
	// Statuses past NEW/LINK_ONLY are never downgraded by ingest.
	soft := job.Status == "" || job.Status == models.StatusNew || job.Status == models.StatusLinkOnly
	switch {
	case !aiUp:
		if soft {
			job.Status = models.StatusLinkOnly
		}
		job.SystemStatus = models.SystemAIUnavailable
		job.FetchStatus = models.FetchAIUnavailable
	case !jdUsable:
		if soft {
			job.Status = models.StatusLinkOnly
		}
		job.SystemStatus = models.SystemNeedsManualJD
	case soft:
		job.Status = models.StatusNew
		job.SystemStatus = ""
	}

	if wasExisting {
		err = o.repos.Job.Update(ctx, job)
	} else {
		err = o.repos.Job.Insert(ctx, job)
	}
	if err != nil {
		return Result{RawURL: raw, JobKey: canon.JobKey, Action: ActionIgnored, Error: err.Error()}
	}

	o.emitIngestEvent(ctx, job, env.Source, wasExisting)

	// Score when the row qualifies.
	if jdUsable && aiUp && !models.TerminalStatuses[job.Status] {
		if targets, terr := o.repos.Target.List(ctx); terr == nil && len(targets) > 0 {
			if _, serr := o.pipeline.Score(ctx, job, models.RunSourceIngest); serr != nil {
				o.logger.Warn("scoring failed during ingest", "job_key", job.JobKey, "error", serr)
			}
		}
	}

	action := ActionInserted
	if wasExisting {
		action = ActionUpdated
	}

	return Result{
		RawURL:       raw,
		JobKey:       job.JobKey,
		JobURL:       job.JobURL,
		WasExisting:  wasExisting,
		Action:       action,
		Status:       job.Status,
		SystemStatus: job.SystemStatus,
		JDSource:     job.JDSource,
		FetchStatus:  job.FetchStatus,
	}
}

func (o *Orchestrator) emitIngestEvent(ctx context.Context, job *models.Job, source string, wasExisting bool) {
	payload, _ := json.Marshal(map[string]any{
		"source":       source,
		"was_existing": wasExisting,
		"status":       job.Status,
		"fetch_status": job.FetchStatus,
	})
	event := &models.Event{
		ID:          ulid.Make().String(),
		EventType:   models.EventIngest,
		JobKey:      job.JobKey,
		PayloadJSON: string(payload),
		TS:          time.Now().UTC(),
	}
	if err := o.repos.Event.Create(ctx, event); err != nil {
		o.logger.Warn("failed to write ingest event", "job_key", job.JobKey, "error", err)
	}
}

func (o *Orchestrator) emitHealthEvent(ctx context.Context, health SourceHealth) {
	payload, _ := json.Marshal(health)
	event := &models.Event{
		ID:          ulid.Make().String(),
		EventType:   models.EventSourceHealth,
		PayloadJSON: string(payload),
		TS:          time.Now().UTC(),
	}
	if err := o.repos.Event.Create(ctx, event); err != nil {
		o.logger.Warn("failed to write source health event", "error", err)
	}
}
