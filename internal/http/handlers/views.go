package handlers

import (
	"time"

	"github.com/jobops/jobops/internal/models"
)

// jobView is the JSON shape of a job row.
type jobView struct {
	JobKey       string `json:"job_key"`
	JobURL       string `json:"job_url"`
	JobURLRaw    string `json:"job_url_raw,omitempty"`
	SourceDomain string `json:"source_domain,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`

	RoleTitle          string   `json:"role_title,omitempty"`
	Company            string   `json:"company,omitempty"`
	Location           string   `json:"location,omitempty"`
	WorkMode           string   `json:"work_mode,omitempty"`
	Seniority          string   `json:"seniority,omitempty"`
	ExperienceYearsMin *int     `json:"experience_years_min,omitempty"`
	ExperienceYearsMax *int     `json:"experience_years_max,omitempty"`
	MustHave           []string `json:"must_have,omitempty"`
	NiceToHave         []string `json:"nice_to_have,omitempty"`
	RejectKeywords     []string `json:"reject_keywords,omitempty"`

	JDTextClean  string `json:"jd_text_clean,omitempty"`
	JDSource     string `json:"jd_source,omitempty"`
	FetchStatus  string `json:"fetch_status,omitempty"`
	JDConfidence string `json:"jd_confidence,omitempty"`

	PrimaryTargetID  string   `json:"primary_target_id,omitempty"`
	ScoreMust        *float64 `json:"score_must,omitempty"`
	ScoreNice        *float64 `json:"score_nice,omitempty"`
	FinalScore       *float64 `json:"final_score,omitempty"`
	RejectTriggered  bool     `json:"reject_triggered"`
	RejectReasons    []string `json:"reject_reasons,omitempty"`
	ReasonTopMatches string   `json:"reason_top_matches,omitempty"`

	Status       string `json:"status"`
	SystemStatus string `json:"system_status,omitempty"`

	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
	LastScoredAt       *string `json:"last_scored_at,omitempty"`
	AppliedAt          *string `json:"applied_at,omitempty"`
	RejectedAt         *string `json:"rejected_at,omitempty"`
	ArchivedAt         *string `json:"archived_at,omitempty"`
	LastFetchAttemptAt *string `json:"last_fetch_attempt_at,omitempty"`
}

func toJobView(job *models.Job) jobView {
	return jobView{
		JobKey:       job.JobKey,
		JobURL:       job.JobURL,
		JobURLRaw:    job.JobURLRaw,
		SourceDomain: job.SourceDomain,
		ExternalID:   job.ExternalID,

		RoleTitle:          job.RoleTitle,
		Company:            job.Company,
		Location:           job.Location,
		WorkMode:           job.WorkMode,
		Seniority:          job.Seniority,
		ExperienceYearsMin: job.ExperienceYearsMin,
		ExperienceYearsMax: job.ExperienceYearsMax,
		MustHave:           job.MustHave,
		NiceToHave:         job.NiceToHave,
		RejectKeywords:     job.RejectKeywords,

		JDTextClean:  job.JDTextClean,
		JDSource:     job.JDSource,
		FetchStatus:  job.FetchStatus,
		JDConfidence: job.JDConfidence,

		PrimaryTargetID:  job.PrimaryTargetID,
		ScoreMust:        job.ScoreMust,
		ScoreNice:        job.ScoreNice,
		FinalScore:       job.FinalScore,
		RejectTriggered:  job.RejectTriggered,
		RejectReasons:    job.RejectReasons,
		ReasonTopMatches: job.ReasonTopMatches,

		Status:       job.Status,
		SystemStatus: job.SystemStatus,

		CreatedAt:          job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          job.UpdatedAt.Format(time.RFC3339),
		LastScoredAt:       timePtr(job.LastScoredAt),
		AppliedAt:          timePtr(job.AppliedAt),
		RejectedAt:         timePtr(job.RejectedAt),
		ArchivedAt:         timePtr(job.ArchivedAt),
		LastFetchAttemptAt: timePtr(job.LastFetchAttemptAt),
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// targetView is the JSON shape of a scoring target.
type targetView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PrimaryRole    string   `json:"primary_role,omitempty"`
	Seniority      string   `json:"seniority,omitempty"`
	Location       string   `json:"location,omitempty"`
	MustKeywords   []string `json:"must_keywords,omitempty"`
	NiceKeywords   []string `json:"nice_keywords,omitempty"`
	RejectKeywords []string `json:"reject_keywords,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toTargetView(t *models.Target) targetView {
	return targetView{
		ID:             t.ID,
		Name:           t.Name,
		PrimaryRole:    t.PrimaryRole,
		Seniority:      t.Seniority,
		Location:       t.Location,
		MustKeywords:   t.MustKeywords,
		NiceKeywords:   t.NiceKeywords,
		RejectKeywords: t.RejectKeywords,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
	}
}

// runView summarizes a scoring run for the telemetry readout.
type runView struct {
	ID               string                         `json:"id"`
	JobKey           string                         `json:"job_key"`
	Source           string                         `json:"source"`
	FinalStatus      string                         `json:"final_status"`
	HeuristicReasons []string                       `json:"heuristic_reasons,omitempty"`
	Stages           map[string]models.StageMetrics `json:"stages"`
	AIModel          string                         `json:"ai_model,omitempty"`
	TotalLatencyMs   int64                          `json:"total_latency_ms"`
	TokensTotal      int                            `json:"tokens_total"`
	FinalScore       *float64                       `json:"final_score,omitempty"`
	RejectTriggered  bool                           `json:"reject_triggered"`
	CreatedAt        string                         `json:"created_at"`
}

func toRunView(run *models.ScoringRun, tokensTotal int) runView {
	return runView{
		ID:               run.ID,
		JobKey:           run.JobKey,
		Source:           run.Source,
		FinalStatus:      run.FinalStatus,
		HeuristicReasons: run.HeuristicReasons,
		Stages:           run.Stages,
		AIModel:          run.AIModel,
		TotalLatencyMs:   run.TotalLatencyMs,
		TokensTotal:      tokensTotal,
		FinalScore:       run.FinalScore,
		RejectTriggered:  run.RejectTriggered,
		CreatedAt:        run.CreatedAt.Format(time.RFC3339),
	}
}

// evidenceView is the JSON shape of a requirement evidence row.
type evidenceView struct {
	RequirementText string `json:"requirement_text"`
	RequirementType string `json:"requirement_type"`
	EvidenceText    string `json:"evidence_text,omitempty"`
	EvidenceSource  string `json:"evidence_source,omitempty"`
	ConfidenceScore int    `json:"confidence_score"`
	Matched         bool   `json:"matched"`
	Notes           string `json:"notes,omitempty"`
}

func toEvidenceView(ev *models.JobEvidence) evidenceView {
	return evidenceView{
		RequirementText: ev.RequirementText,
		RequirementType: ev.RequirementType,
		EvidenceText:    ev.EvidenceText,
		EvidenceSource:  ev.EvidenceSource,
		ConfidenceScore: ev.ConfidenceScore,
		Matched:         ev.Matched,
		Notes:           ev.Notes,
	}
}
