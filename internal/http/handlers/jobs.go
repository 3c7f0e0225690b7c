package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jobops/jobops/internal/ingest"
	"github.com/jobops/jobops/internal/jd"
	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/models"
	"github.com/jobops/jobops/internal/repository"
	"github.com/jobops/jobops/internal/scoring"
)

// manualJDMinChars is the floor for user-pasted JD text.
const manualJDMinChars = 200

// ListJobs handles GET /jobs with status, q, limit, offset filters.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	jobs, err := h.Repos.Job.List(r.Context(), repository.JobFilter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job))
	}
	respond(w, http.StatusOK, map[string]any{"jobs": views, "count": len(views)})
}

// GetJob handles GET /jobs/{job_key}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, toJobView(job))
}

// userStatuses are the transitions a user may request explicitly; the rest
// (NEW, LINK_ONLY, SCORED) are owned by ingest and scoring.
var userStatuses = map[string]bool{
	models.StatusApplied:     true,
	models.StatusShortlisted: true,
	models.StatusRejected:    true,
	models.StatusArchived:    true,
}

// ChangeStatus handles POST /jobs/{job_key}/status.
func (h *Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
		Force  bool   `json:"force"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Status == "" {
		respondErr(w, http.StatusBadRequest, "missing_status")
		return
	}
	if !userStatuses[body.Status] {
		respondErr(w, http.StatusBadRequest, "invalid_status", "status not settable by user: "+body.Status)
		return
	}

	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	err := h.Machine.Apply(r.Context(), job, lifecycle.Transition{
		Status: body.Status,
		Force:  body.Force,
		Actor:  "user",
	})
	switch {
	case errors.Is(err, lifecycle.ErrTerminalState):
		respondErr(w, http.StatusBadRequest, "terminal_state", err.Error())
		return
	case err != nil:
		respondErr(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}
	respond(w, http.StatusOK, toJobView(job))
}

// Rescore handles POST /jobs/{job_key}/rescore.
func (h *Handlers) Rescore(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if !h.acquire(w, r, job.JobKey) {
		return
	}
	defer h.Locks.Release(job.JobKey)

	run, err := h.Pipeline.Score(r.Context(), job, models.RunSourceRescore)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "scoring_failed", err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"job": toJobView(job),
		"run": toRunView(run, scoring.TokensTotal(run)),
	})
}

// ManualJD handles POST /jobs/{job_key}/manual-jd. The pasted text replaces
// the JD snapshot; scoring runs immediately when AI is available, otherwise
// the text is saved and scoring deferred.
func (h *Handlers) ManualJD(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JDTextClean string `json:"jd_text_clean"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	text := strings.TrimSpace(body.JDTextClean)
	if len(text) < manualJDMinChars {
		respondErr(w, http.StatusBadRequest, "jd_too_short")
		return
	}

	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if !h.acquire(w, r, job.JobKey) {
		return
	}
	defer h.Locks.Release(job.JobKey)

	job.JDTextClean = text
	job.JDSource = models.JDSourceManual
	job.JDConfidence = jd.Confidence(text)
	job.FetchStatus = models.FetchOK

	if !h.Runner.Available() {
		if !models.TerminalStatuses[job.Status] {
			job.Status = models.StatusLinkOnly
		}
		job.SystemStatus = models.SystemAIUnavailable
		if err := h.Repos.Job.Update(r.Context(), job); err != nil {
			respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		respond(w, http.StatusOK, map[string]any{
			"status":     job.Status,
			"saved_only": true,
		})
		return
	}

	job.SystemStatus = ""
	if err := h.Repos.Job.Update(r.Context(), job); err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	run, err := h.Pipeline.Score(r.Context(), job, models.RunSourceManualJD)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "scoring_failed", err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"job": toJobView(job),
		"run": toRunView(run, scoring.TokensTotal(run)),
	})
}

// Evidence handles GET /jobs/{job_key}/evidence.
func (h *Handlers) Evidence(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	rows, err := h.Repos.Evidence.ListByJobKey(r.Context(), job.JobKey)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	views := make([]evidenceView, 0, len(rows))
	for _, ev := range rows {
		views = append(views, toEvidenceView(ev))
	}
	respond(w, http.StatusOK, map[string]any{"evidence": views})
}

// Runs handles GET /jobs/{job_key}/runs.
func (h *Handlers) Runs(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Repos.ScoringRun.ListByJobKey(r.Context(), job.JobKey, limit)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, toRunView(run, scoring.TokensTotal(run)))
	}
	respond(w, http.StatusOK, map[string]any{"runs": views})
}

// Checklist handles GET /jobs/{job_key}/checklist. The feature rides on an
// optional schema column; without it the endpoint answers 400, never 500.
func (h *Handlers) Checklist(w http.ResponseWriter, r *http.Request) {
	if !h.ChecklistEnabled {
		respondErr(w, http.StatusBadRequest, "feature_not_enabled_in_schema")
		return
	}
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	var checklist string
	err := h.DB.QueryRowContext(r.Context(),
		`SELECT COALESCE(checklist_json, '[]') FROM jobs WHERE job_key = ?`, job.JobKey).Scan(&checklist)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"data":{"checklist":` + checklist + `}}`))
}

// ScorePending handles POST /score-pending: batch rescore of rows that have
// usable JD text but no fresh score.
func (h *Handlers) ScorePending(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit  int    `json:"limit"`
		Status string `json:"status"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &body) {
		return
	}
	if body.Limit <= 0 {
		body.Limit = 20
	}
	if body.Status == "" {
		body.Status = models.StatusNew
	}

	jobs, err := h.Repos.Job.List(r.Context(), repository.JobFilter{Status: body.Status, Limit: body.Limit})
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	scored, skipped := 0, 0
	for _, job := range jobs {
		if job.JDTextClean == "" || job.JDConfidence == models.ConfidenceLow || models.TerminalStatuses[job.Status] {
			skipped++
			continue
		}
		if err := h.Locks.Acquire(r.Context(), job.JobKey); err != nil {
			skipped++
			continue
		}
		_, err := h.Pipeline.Score(r.Context(), job, models.RunSourceScorePending)
		h.Locks.Release(job.JobKey)
		if err != nil {
			h.logger().Warn("score-pending failed", "job_key", job.JobKey, "error", err)
			skipped++
			continue
		}
		scored++
	}
	respond(w, http.StatusOK, map[string]any{
		"scored":  scored,
		"skipped": skipped,
		"total":   len(jobs),
	})
}

func (h *Handlers) loadJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	jobKey := chi.URLParam(r, "job_key")
	job, err := h.Repos.Job.GetByKey(r.Context(), jobKey)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return nil, false
	}
	if job == nil {
		respondErr(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return job, true
}

func (h *Handlers) acquire(w http.ResponseWriter, r *http.Request, jobKey string) bool {
	if err := h.Locks.Acquire(r.Context(), jobKey); err != nil {
		if errors.Is(err, ingest.ErrJobKeyBusy) {
			respondErr(w, http.StatusConflict, "job_key_busy")
		} else {
			respondErr(w, http.StatusInternalServerError, "lock_error", err.Error())
		}
		return false
	}
	return true
}
