// Package models contains the core entities stored by JobOps.
package models

import "time"

// Job statuses (user-visible lifecycle).
const (
	StatusNew         = "NEW"
	StatusScored      = "SCORED"
	StatusShortlisted = "SHORTLISTED"
	StatusApplied     = "APPLIED"
	StatusRejected    = "REJECTED"
	StatusArchived    = "ARCHIVED"
	StatusLinkOnly    = "LINK_ONLY"
)

// System statuses (orthogonal internal markers).
const (
	SystemNeedsManualJD     = "NEEDS_MANUAL_JD"
	SystemAIUnavailable     = "AI_UNAVAILABLE"
	SystemRejectedHeuristic = "REJECTED_HEURISTIC"
)

// JD sources.
const (
	JDSourceFetched = "fetched"
	JDSourceEmail   = "email"
	JDSourceManual  = "manual"
	JDSourceNone    = "none"
)

// Fetch statuses.
const (
	FetchOK            = "ok"
	FetchBlocked       = "blocked"
	FetchFailed        = "failed"
	FetchAIUnavailable = "ai_unavailable"
)

// JD confidence levels.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// TerminalStatuses are never auto-overwritten by scoring.
var TerminalStatuses = map[string]bool{
	StatusApplied:  true,
	StatusRejected: true,
	StatusArchived: true,
}

// Job is the central entity: one row per canonical job URL.
type Job struct {
	JobKey       string
	JobURL       string
	JobURLRaw    string
	SourceDomain string
	ExternalID   string

	// Extracted fields
	RoleTitle          string
	Company            string
	Location           string
	WorkMode           string
	Seniority          string
	ExperienceYearsMin *int
	ExperienceYearsMax *int
	MustHave           []string
	NiceToHave         []string
	RejectKeywords     []string

	// JD snapshot
	JDTextClean  string
	JDSource     string // fetched|email|manual|none
	FetchStatus  string // ok|blocked|failed|ai_unavailable
	JDConfidence string // low|medium|high

	// Scoring
	PrimaryTargetID  string
	ScoreMust        *float64
	ScoreNice        *float64
	FinalScore       *float64
	RejectTriggered  bool
	RejectReasons    []string
	ReasonTopMatches string

	// Lifecycle
	Status       string
	SystemStatus string

	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastScoredAt       *time.Time
	AppliedAt          *time.Time
	RejectedAt         *time.Time
	ArchivedAt         *time.Time
	LastFetchAttemptAt *time.Time
}

// Target is a user-configured scoring rubric.
type Target struct {
	ID             string
	Name           string
	PrimaryRole    string
	Seniority      string
	Location       string
	MustKeywords   []string
	NiceKeywords   []string
	RejectKeywords []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Scoring run sources.
const (
	RunSourceIngest       = "ingest"
	RunSourceRescore      = "rescore"
	RunSourceScorePending = "score_pending"
	RunSourceManualJD     = "manual_jd"
)

// Scoring run final statuses.
const (
	RunCompleted         = "COMPLETED"
	RunRejectedHeuristic = "REJECTED_HEURISTIC"
	RunFailed            = "FAILED"
)

// Stage statuses within a scoring run.
const (
	StageOK       = "ok"
	StageRejected = "rejected"
	StageFailed   = "failed"
	StageSkipped  = "skipped"
)

// StageMetrics records one pipeline stage of a scoring run.
type StageMetrics struct {
	Status      string `json:"status"`
	StartedAt   int64  `json:"started_at"`
	FinishedAt  int64  `json:"finished_at"`
	LatencyMs   int64  `json:"latency_ms"`
	TokensIn    int    `json:"tokens_in"`
	TokensOut   int    `json:"tokens_out"`
	TokensTotal int    `json:"tokens_total"`
	Error       string `json:"error,omitempty"`
}

// ScoringRun is an append-only telemetry row, one per scoring attempt.
type ScoringRun struct {
	ID               string
	JobKey           string
	Source           string // ingest|rescore|score_pending|manual_jd
	FinalStatus      string // COMPLETED|REJECTED_HEURISTIC|FAILED
	HeuristicReasons []string
	Stages           map[string]StageMetrics // heuristic|ai_extract|ai_reason|evidence
	AIModel          string
	TotalLatencyMs   int64
	FinalScore       *float64
	RejectTriggered  bool
	CreatedAt        time.Time
}

// Requirement types for evidence rows.
const (
	RequirementMust = "must"
	RequirementNice = "nice"
)

// JobEvidence links a JD requirement to candidate proof. Unique on
// (job_key, requirement_text, requirement_type).
type JobEvidence struct {
	ID              string
	JobKey          string
	RequirementText string
	RequirementType string
	EvidenceText    string
	EvidenceSource  string
	ConfidenceScore int // 0..100
	Matched         bool
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Contact is a deduped recruiter record. Identity resolves in order:
// linkedin_url, then email, then lower(name)+lower(company).
type Contact struct {
	ID          string
	Name        string
	Company     string
	Title       string
	LinkedInURL string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Touchpoint channels.
const (
	ChannelLinkedIn = "LINKEDIN"
	ChannelEmail    = "EMAIL"
	ChannelOther    = "OTHER"
)

// Touchpoint statuses, forward-only.
const (
	TouchpointDraft   = "DRAFT"
	TouchpointSent    = "SENT"
	TouchpointReplied = "REPLIED"
)

// Touchpoint is one outreach attempt on a contact for a specific job and
// channel. Unique on (contact_id, job_key, channel).
type Touchpoint struct {
	ID        string
	ContactID string
	JobKey    string
	Channel   string
	Status    string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is an append-only audit row.
type Event struct {
	ID          string
	EventType   string
	JobKey      string
	PayloadJSON string
	TS          time.Time
}

// Common event types.
const (
	EventIngest             = "INGEST"
	EventStatusChange       = "STATUS_CHANGE"
	EventScoringRun         = "SCORING_RUN"
	EventSourceHealth       = "SOURCE_HEALTH"
	EventRecovery           = "RECOVERY"
	EventCronSkippedOverlap = "CRON_SKIPPED_OVERLAP"
)
