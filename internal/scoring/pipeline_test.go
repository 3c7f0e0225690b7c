package scoring

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jobops/jobops/internal/database/migrations"
	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
)

// stubRunner returns scripted completions in order.
type stubRunner struct {
	responses []string
	errs      []error
	calls     int
	available bool
}

func (s *stubRunner) Complete(ctx context.Context, system, user string) (*llm.Result, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	text := "{}"
	if i < len(s.responses) {
		text = s.responses[i]
	}
	return &llm.Result{Text: text, Usage: llm.Usage{TokensIn: 100, TokensOut: 50}}, nil
}

func (s *stubRunner) Model() string   { return "stub-model" }
func (s *stubRunner) Available() bool { return s.available }

func setupPipeline(t *testing.T, runner llm.Runner) (*Pipeline, *repository.Repositories) {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repos := repository.NewRepositories(db)
	machine := lifecycle.NewMachine(repos.Job, repos.Event, nil)
	p := NewPipeline(runner, repos, machine, Config{
		MinJDChars:         120,
		MinTargetSignal:    8,
		ShortlistThreshold: 75,
		WeightMust:         0.7,
		WeightNice:         0.3,
	}, nil)
	p.sleep = func(time.Duration) {}
	return p, repos
}

func seedTarget(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	now := time.Now().UTC()
	err := repos.Target.Upsert(context.Background(), &models.Target{
		ID:             "backend-sde2",
		Name:           "Backend SDE2",
		PrimaryRole:    "Backend Engineer",
		MustKeywords:   []string{"go", "sql", "api", "distributed"},
		NiceKeywords:   []string{"kafka", "kubernetes"},
		RejectKeywords: []string{"php"},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("failed to seed target: %v", err)
	}
}

func seedScorableJob(t *testing.T, repos *repository.Repositories) *models.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &models.Job{
		JobKey:       "a1b2c3d4e5f60718a1b2c3d4e5f60718",
		JobURL:       "https://www.linkedin.com/jobs/view/1/",
		JobURLRaw:    "https://www.linkedin.com/jobs/view/1/",
		SourceDomain: "linkedin.com",
		JDTextClean: strings.Repeat("We need Go engineers to build SQL backed API services on distributed infrastructure. ", 4) +
			"Experience with Kafka and Kubernetes is valued.",
		JDSource:     models.JDSourceFetched,
		FetchStatus:  models.FetchOK,
		JDConfidence: models.ConfidenceHigh,
		Status:       models.StatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Job.Insert(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return job
}

const extractResp = `{"role_title":"Backend Engineer","company":"Acme","location":"Remote",
"seniority":"SDE2","work_mode":"remote","experience_years_min":3,"experience_years_max":6,
"must_have_keywords":["Go","SQL"],"nice_to_have_keywords":["Kafka"],"reject_keywords":[]}`

const reasonHighResp = `{"primary_target_id":"backend-sde2","score_must":90,"score_nice":80,
"final_score":87,"reject_triggered":0,"reason_top_matches":"Go, SQL, distributed systems","potential_contacts":[]}`

func TestScoreCompletedShortlists(t *testing.T) {
	runner := &stubRunner{available: true, responses: []string{extractResp, reasonHighResp}}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)
	job := seedScorableJob(t, repos)

	run, err := p.Score(context.Background(), job, models.RunSourceIngest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if run.FinalStatus != models.RunCompleted {
		t.Fatalf("final_status = %q, want COMPLETED", run.FinalStatus)
	}

	// final = 0.7*90 + 0.3*80 = 87, above the 75 threshold.
	if run.FinalScore == nil || *run.FinalScore != 87 {
		t.Errorf("final_score = %v, want 87", run.FinalScore)
	}
	stored, _ := repos.Job.GetByKey(context.Background(), job.JobKey)
	if stored.Status != models.StatusShortlisted {
		t.Errorf("status = %q, want SHORTLISTED", stored.Status)
	}
	if stored.RoleTitle != "Backend Engineer" || stored.Company != "Acme" {
		t.Errorf("extract fields not applied: %q / %q", stored.RoleTitle, stored.Company)
	}
	if stored.LastScoredAt == nil {
		t.Error("last_scored_at not set")
	}

	// Evidence rows exist for extracted requirements.
	evidence, err := repos.Evidence.ListByJobKey(context.Background(), job.JobKey)
	if err != nil {
		t.Fatalf("failed to list evidence: %v", err)
	}
	if len(evidence) != 3 {
		t.Errorf("expected 3 evidence rows (2 must + 1 nice), got %d", len(evidence))
	}
	for _, ev := range evidence {
		if strings.EqualFold(ev.RequirementText, "go") && !ev.Matched {
			t.Errorf("go requirement should match the JD")
		}
	}

	if run.Stages[StageAIExtract].TokensTotal != 150 {
		t.Errorf("ai_extract tokens_total = %d, want 150", run.Stages[StageAIExtract].TokensTotal)
	}
}

func TestScoreHeuristicRejectSkipsAI(t *testing.T) {
	runner := &stubRunner{available: true}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)

	job := seedScorableJob(t, repos)
	job.JDTextClean = "We use only JavaScript and Python here at our agency, building marketing websites with modern tooling and a strong design focus for small business clients worldwide."
	if err := repos.Job.Update(context.Background(), job); err != nil {
		t.Fatalf("failed to update job: %v", err)
	}

	run, err := p.Score(context.Background(), job, models.RunSourceIngest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if run.FinalStatus != models.RunRejectedHeuristic {
		t.Fatalf("final_status = %q, want REJECTED_HEURISTIC", run.FinalStatus)
	}
	if run.Stages[StageHeuristic].Status != models.StageRejected {
		t.Errorf("heuristic status = %q, want rejected", run.Stages[StageHeuristic].Status)
	}
	if run.Stages[StageAIReason].Status != models.StageSkipped {
		t.Errorf("ai_reason status = %q, want skipped", run.Stages[StageAIReason].Status)
	}
	if TokensTotal(run) != 0 {
		t.Errorf("tokens_total = %d, want 0 (no AI calls)", TokensTotal(run))
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times, want 0", runner.calls)
	}

	stored, _ := repos.Job.GetByKey(context.Background(), job.JobKey)
	if stored.Status != models.StatusRejected {
		t.Errorf("status = %q, want REJECTED", stored.Status)
	}
	if stored.SystemStatus != models.SystemRejectedHeuristic {
		t.Errorf("system_status = %q, want REJECTED_HEURISTIC", stored.SystemStatus)
	}
	if stored.RejectedAt == nil {
		t.Error("rejected_at not set")
	}
}

func TestScoreBlockedKeywordReason(t *testing.T) {
	runner := &stubRunner{available: true}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)

	job := seedScorableJob(t, repos)
	job.JDTextClean += " Our stack is primarily PHP on the backend."
	if err := repos.Job.Update(context.Background(), job); err != nil {
		t.Fatalf("failed to update job: %v", err)
	}

	run, err := p.Score(context.Background(), job, models.RunSourceRescore)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	found := false
	for _, reason := range run.HeuristicReasons {
		if reason == "blocked_keyword:php" {
			found = true
		}
	}
	if !found {
		t.Errorf("heuristic_reasons = %v, want blocked_keyword:php", run.HeuristicReasons)
	}
}

func TestScoreAIFailureRetriesOnceThenFails(t *testing.T) {
	boom := errors.New("upstream 529")
	runner := &stubRunner{available: true, errs: []error{boom, boom, boom, boom}}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)
	job := seedScorableJob(t, repos)

	run, err := p.Score(context.Background(), job, models.RunSourceIngest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if run.FinalStatus != models.RunFailed {
		t.Fatalf("final_status = %q, want FAILED", run.FinalStatus)
	}
	// Extract attempted twice (one retry), then the pipeline stopped.
	if runner.calls != 2 {
		t.Errorf("runner calls = %d, want 2", runner.calls)
	}
	if run.Stages[StageAIExtract].Status != models.StageFailed {
		t.Errorf("ai_extract status = %q, want failed", run.Stages[StageAIExtract].Status)
	}

	// Status unchanged on failure.
	stored, _ := repos.Job.GetByKey(context.Background(), job.JobKey)
	if stored.Status != models.StatusNew {
		t.Errorf("status = %q, want NEW preserved", stored.Status)
	}
}

func TestScoreAIUnavailableMarksSystemStatus(t *testing.T) {
	runner := &stubRunner{available: false}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)
	job := seedScorableJob(t, repos)

	run, err := p.Score(context.Background(), job, models.RunSourceIngest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if run.FinalStatus != models.RunFailed {
		t.Fatalf("final_status = %q, want FAILED", run.FinalStatus)
	}
	stored, _ := repos.Job.GetByKey(context.Background(), job.JobKey)
	if stored.SystemStatus != models.SystemAIUnavailable {
		t.Errorf("system_status = %q, want AI_UNAVAILABLE", stored.SystemStatus)
	}
}

func TestScoreRejectTriggeredFromAI(t *testing.T) {
	reasonReject := `{"primary_target_id":"backend-sde2","score_must":40,"score_nice":30,
"final_score":10,"reject_triggered":1,"reason_top_matches":"mostly frontend","potential_contacts":[]}`
	runner := &stubRunner{available: true, responses: []string{extractResp, reasonReject}}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)
	job := seedScorableJob(t, repos)

	run, err := p.Score(context.Background(), job, models.RunSourceIngest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if run.FinalStatus != models.RunCompleted {
		t.Fatalf("final_status = %q, want COMPLETED", run.FinalStatus)
	}
	if !run.RejectTriggered {
		t.Error("reject_triggered not recorded")
	}
	// final = clip(0.7*40 + 0.3*30 - 25, 0, 100) = 12.
	if run.FinalScore == nil || *run.FinalScore != 12 {
		t.Errorf("final_score = %v, want 12", run.FinalScore)
	}
	stored, _ := repos.Job.GetByKey(context.Background(), job.JobKey)
	if stored.Status != models.StatusRejected {
		t.Errorf("status = %q, want REJECTED", stored.Status)
	}
}

func TestHeuristicWordBoundary(t *testing.T) {
	targets := []*models.Target{{
		ID:           "t",
		MustKeywords: []string{"go"},
	}}
	// "go" must not match inside "golang" or "ago".
	res := runHeuristic("We talked ago about golang and categories.", targets, 10, 1)
	if res.Signal != 0 {
		t.Errorf("signal = %d, want 0 (substring matches forbidden)", res.Signal)
	}

	res = runHeuristic(strings.Repeat("We write Go services. ", 10), targets, 10, 1)
	if res.Signal != 10 {
		t.Errorf("signal = %d, want 10", res.Signal)
	}
}

func TestContactsStoredFromReason(t *testing.T) {
	reasonWithContact := `{"primary_target_id":"backend-sde2","score_must":90,"score_nice":80,
"final_score":87,"reject_triggered":0,"reason_top_matches":"Go","potential_contacts":
[{"name":"Priya Sharma","company":"Acme","title":"Recruiter","linkedin_url":"https://www.linkedin.com/in/priya"}]}`
	runner := &stubRunner{available: true, responses: []string{extractResp, reasonWithContact}}
	p, repos := setupPipeline(t, runner)
	seedTarget(t, repos)
	job := seedScorableJob(t, repos)

	if _, err := p.Score(context.Background(), job, models.RunSourceIngest); err != nil {
		t.Fatalf("score failed: %v", err)
	}

	contact, err := repos.Contact.Upsert(context.Background(), &models.Contact{LinkedInURL: "https://www.linkedin.com/in/priya"})
	if err != nil {
		t.Fatalf("failed to resolve contact: %v", err)
	}
	if contact.Name != "Priya Sharma" {
		t.Errorf("contact name = %q, want stored from scoring", contact.Name)
	}
}
