// Package scoring runs the staged evaluation of a job: heuristic gate, LLM
// extraction, LLM scoring, evidence upsert. One ScoringRun telemetry row is
// written per invocation.
package scoring

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
)

// Stage names, in execution order.
const (
	StageHeuristic = "heuristic"
	StageAIExtract = "ai_extract"
	StageAIReason  = "ai_reason"
	StageEvidence  = "evidence"
)

// Config holds pipeline tunables.
type Config struct {
	MinJDChars         int
	MinTargetSignal    int
	ShortlistThreshold float64
	WeightMust         float64
	WeightNice         float64
	RejectPenalty      float64
}

// Pipeline scores jobs against targets.
type Pipeline struct {
	runner  llm.Runner
	repos   *repository.Repositories
	machine *lifecycle.Machine
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewPipeline creates a scoring pipeline.
func NewPipeline(runner llm.Runner, repos *repository.Repositories, machine *lifecycle.Machine, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.WeightMust == 0 && cfg.WeightNice == 0 {
		cfg.WeightMust, cfg.WeightNice = 0.7, 0.3
	}
	if cfg.RejectPenalty == 0 {
		cfg.RejectPenalty = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		runner:  runner,
		repos:   repos,
		machine: machine,
		cfg:     cfg,
		logger:  logger.With("component", "scoring"),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Score runs the pipeline for one job. source labels why the run happened
// (ingest, rescore, score_pending, manual_jd). The job row and lifecycle are
// updated; the run row records every stage. The returned error covers
// persistence problems only: AI and heuristic failures are encoded in the
// run itself.
func (p *Pipeline) Score(ctx context.Context, job *models.Job, source string) (*models.ScoringRun, error) {
	start := p.now()
	run := &models.ScoringRun{
		ID:        ulid.Make().String(),
		JobKey:    job.JobKey,
		Source:    source,
		Stages:    map[string]models.StageMetrics{},
		AIModel:   p.runner.Model(),
		CreatedAt: start.UTC(),
	}

	targets, err := p.repos.Target.List(ctx)
	if err != nil {
		return nil, err
	}

	outcome := p.run(ctx, job, targets, run)
	run.TotalLatencyMs = time.Since(start).Milliseconds()

	if err := p.repos.ScoringRun.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := p.applyLifecycle(ctx, job, run, outcome); err != nil {
		return nil, err
	}
	return run, nil
}

type outcome struct {
	rejected      bool
	failed        bool
	aiUnavailable bool
}

func (p *Pipeline) run(ctx context.Context, job *models.Job, targets []*models.Target, run *models.ScoringRun) outcome {
	// Stage 1: heuristic gate.
	hStart := p.now()
	h := runHeuristic(job.JDTextClean, targets, p.cfg.MinJDChars, p.cfg.MinTargetSignal)
	if !h.Passed {
		run.Stages[StageHeuristic] = stageDone(hStart, p.now(), models.StageRejected, llm.Usage{}, "")
		run.Stages[StageAIExtract] = skipped()
		run.Stages[StageAIReason] = skipped()
		run.Stages[StageEvidence] = skipped()
		run.HeuristicReasons = h.Reasons
		run.FinalStatus = models.RunRejectedHeuristic
		run.RejectTriggered = true
		job.RejectTriggered = true
		job.RejectReasons = h.Reasons
		return outcome{rejected: true}
	}
	run.Stages[StageHeuristic] = stageDone(hStart, p.now(), models.StageOK, llm.Usage{}, "")

	if !p.runner.Available() {
		run.Stages[StageAIExtract] = stageFailed(p.now(), p.now(), llm.ErrUnavailable.Error())
		run.Stages[StageAIReason] = skipped()
		run.Stages[StageEvidence] = skipped()
		run.FinalStatus = models.RunFailed
		return outcome{failed: true, aiUnavailable: true}
	}

	// Stage 2: AI extract, skipped when fields are already present.
	if job.RoleTitle != "" && len(job.MustHave) > 0 {
		run.Stages[StageAIExtract] = skipped()
	} else {
		eStart := p.now()
		var extracted ExtractOutput
		usage, err := p.completeJSON(ctx, extractSystemPrompt, buildExtractPrompt(job), &extracted)
		if err != nil {
			run.Stages[StageAIExtract] = stageFailed(eStart, p.now(), err.Error())
			run.Stages[StageAIReason] = skipped()
			run.Stages[StageEvidence] = skipped()
			run.FinalStatus = models.RunFailed
			return outcome{failed: true, aiUnavailable: isUnavailable(err)}
		}
		run.Stages[StageAIExtract] = stageDone(eStart, p.now(), models.StageOK, usage, "")
		applyExtract(job, &extracted)
	}

	// Stage 3: AI reason.
	rStart := p.now()
	var reasoned ReasonOutput
	usage, err := p.completeJSON(ctx, reasonSystemPrompt, buildReasonPrompt(job, targets, p.cfg.WeightMust, p.cfg.WeightNice), &reasoned)
	if err != nil {
		run.Stages[StageAIReason] = stageFailed(rStart, p.now(), err.Error())
		run.Stages[StageEvidence] = skipped()
		run.FinalStatus = models.RunFailed
		return outcome{failed: true, aiUnavailable: isUnavailable(err)}
	}
	run.Stages[StageAIReason] = stageDone(rStart, p.now(), models.StageOK, usage, "")

	final := clip(p.cfg.WeightMust*reasoned.ScoreMust+p.cfg.WeightNice*reasoned.ScoreNice-penalty(reasoned.RejectTriggered == 1, p.cfg.RejectPenalty), 0, 100)
	job.PrimaryTargetID = reasoned.PrimaryTargetID
	job.ScoreMust = &reasoned.ScoreMust
	job.ScoreNice = &reasoned.ScoreNice
	job.FinalScore = &final
	job.RejectTriggered = reasoned.RejectTriggered == 1
	job.ReasonTopMatches = reasoned.ReasonTopMatches
	run.FinalScore = &final
	run.RejectTriggered = job.RejectTriggered

	// Stage 4: evidence upsert.
	vStart := p.now()
	if err := p.upsertEvidence(ctx, job); err != nil {
		run.Stages[StageEvidence] = stageFailed(vStart, p.now(), err.Error())
	} else {
		run.Stages[StageEvidence] = stageDone(vStart, p.now(), models.StageOK, llm.Usage{}, "")
	}

	p.storeContacts(ctx, reasoned.PotentialContacts, job)

	run.FinalStatus = models.RunCompleted
	return outcome{rejected: job.RejectTriggered}
}

// completeJSON calls the runner with one in-band retry (100ms then 400ms
// backoff) and parses the strict-JSON response.
func (p *Pipeline) completeJSON(ctx context.Context, system, user string, out any) (llm.Usage, error) {
	var usage llm.Usage
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			p.sleep(backoff)
			backoff *= 4
		}
		res, err := p.runner.Complete(ctx, system, user)
		if err != nil {
			lastErr = err
			continue
		}
		usage.TokensIn += res.Usage.TokensIn
		usage.TokensOut += res.Usage.TokensOut
		if err := parseJSONBlock(res.Text, out); err != nil {
			lastErr = err
			continue
		}
		return usage, nil
	}
	return usage, lastErr
}

func (p *Pipeline) upsertEvidence(ctx context.Context, job *models.Job) error {
	now := p.now().UTC()
	lower := strings.ToLower(job.JDTextClean)

	upsertOne := func(text, reqType string) error {
		matched := strings.Contains(lower, strings.ToLower(text))
		conf := 40
		if matched {
			conf = 80
		}
		return p.repos.Evidence.Upsert(ctx, &models.JobEvidence{
			ID:              ulid.Make().String(),
			JobKey:          job.JobKey,
			RequirementText: text,
			RequirementType: reqType,
			EvidenceText:    snippetAround(job.JDTextClean, text),
			EvidenceSource:  "jd",
			ConfidenceScore: conf,
			Matched:         matched,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	for _, kw := range job.MustHave {
		if err := upsertOne(kw, models.RequirementMust); err != nil {
			return err
		}
	}
	for _, kw := range job.NiceToHave {
		if err := upsertOne(kw, models.RequirementNice); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) storeContacts(ctx context.Context, contacts []PotentialContact, job *models.Job) {
	for _, c := range contacts {
		if c.Name == "" && c.LinkedInURL == "" && c.Email == "" {
			continue
		}
		if _, err := p.repos.Contact.Upsert(ctx, &models.Contact{
			Name:        c.Name,
			Company:     c.Company,
			Title:       c.Title,
			LinkedInURL: c.LinkedInURL,
			Email:       c.Email,
		}); err != nil {
			p.logger.Warn("failed to store contact", "job_key", job.JobKey, "error", err)
		}
	}
}

func (p *Pipeline) applyLifecycle(ctx context.Context, job *models.Job, run *models.ScoringRun, out outcome) error {
	now := p.now().UTC()
	job.LastScoredAt = &now

	switch {
	case out.rejected && run.FinalStatus == models.RunRejectedHeuristic:
		return p.machine.Apply(ctx, job, lifecycle.Transition{
			Status:       models.StatusRejected,
			SystemStatus: lifecycle.SystemStatus(models.SystemRejectedHeuristic),
			Actor:        "scoring",
			Reason:       strings.Join(run.HeuristicReasons, ","),
		})
	case out.rejected:
		return p.machine.Apply(ctx, job, lifecycle.Transition{
			Status:       models.StatusRejected,
			SystemStatus: lifecycle.ClearSystemStatus(),
			Actor:        "scoring",
			Reason:       "reject_triggered",
		})
	case out.failed:
		// Status stays put; only mark AI unavailability.
		if out.aiUnavailable {
			job.SystemStatus = models.SystemAIUnavailable
		}
		job.UpdatedAt = now
		return p.repos.Job.Update(ctx, job)
	default:
		status := models.StatusScored
		if job.FinalScore != nil && *job.FinalScore >= p.cfg.ShortlistThreshold {
			status = models.StatusShortlisted
		}
		return p.machine.Apply(ctx, job, lifecycle.Transition{
			Status:       status,
			SystemStatus: lifecycle.ClearSystemStatus(),
			Actor:        "scoring",
		})
	}
}

func applyExtract(job *models.Job, ex *ExtractOutput) {
	if job.RoleTitle == "" {
		job.RoleTitle = ex.RoleTitle
	}
	if job.Company == "" {
		job.Company = ex.Company
	}
	if job.Location == "" {
		job.Location = ex.Location
	}
	if job.Seniority == "" {
		job.Seniority = ex.Seniority
	}
	if job.WorkMode == "" {
		job.WorkMode = ex.WorkMode
	}
	if job.ExperienceYearsMin == nil {
		job.ExperienceYearsMin = ex.ExperienceYearsMin.IntPtr()
	}
	if job.ExperienceYearsMax == nil {
		job.ExperienceYearsMax = ex.ExperienceYearsMax.IntPtr()
	}
	if len(job.MustHave) == 0 {
		job.MustHave = ex.MustHaveKeywords
	}
	if len(job.NiceToHave) == 0 {
		job.NiceToHave = ex.NiceToHaveKeywords
	}
	if len(job.RejectKeywords) == 0 {
		job.RejectKeywords = ex.RejectKeywords
	}
}

func stageDone(start, end time.Time, status string, usage llm.Usage, errMsg string) models.StageMetrics {
	return models.StageMetrics{
		Status:      status,
		StartedAt:   start.Unix(),
		FinishedAt:  end.Unix(),
		LatencyMs:   end.Sub(start).Milliseconds(),
		TokensIn:    usage.TokensIn,
		TokensOut:   usage.TokensOut,
		TokensTotal: usage.TokensIn + usage.TokensOut,
		Error:       errMsg,
	}
}

func stageFailed(start, end time.Time, errMsg string) models.StageMetrics {
	m := stageDone(start, end, models.StageFailed, llm.Usage{}, errMsg)
	return m
}

func skipped() models.StageMetrics {
	return models.StageMetrics{Status: models.StageSkipped}
}

func isUnavailable(err error) bool {
	return err != nil && strings.Contains(err.Error(), llm.ErrUnavailable.Error())
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func penalty(triggered bool, amount float64) float64 {
	if triggered {
		return amount
	}
	return 0
}

// TokensTotal sums token usage across all stages of a run.
func TokensTotal(run *models.ScoringRun) int {
	total := 0
	for _, s := range run.Stages {
		total += s.TokensTotal
	}
	return total
}
