package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/scoring"
)

// NormalizeJob handles POST /normalize-job: canonicalization without any
// database writes.
func (h *Handlers) NormalizeJob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawURL string `json:"raw_url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.RawURL == "" {
		respondErr(w, http.StatusBadRequest, "missing_raw_url")
		return
	}

	result, ok := h.Canon.Canonicalize(body.RawURL)
	if !ok {
		respond(w, http.StatusOK, map[string]any{"ignored": true})
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ignored":       false,
		"job_key":       result.JobKey,
		"job_url":       result.JobURL,
		"source_domain": result.SourceDomain,
		"external_id":   result.ExternalID,
	})
}

// ResolveJD handles POST /resolve-jd: fetch, clean, and classify one URL.
func (h *Handlers) ResolveJD(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.URL == "" {
		respondErr(w, http.StatusBadRequest, "missing_url")
		return
	}

	res := h.Resolver.Resolve(r.Context(), body.URL, nil)
	respond(w, http.StatusOK, map[string]any{
		"jd_text_clean": res.JDTextClean,
		"jd_source":     res.JDSource,
		"fetch_status":  res.FetchStatus,
		"jd_confidence": res.JDConfidence,
		"debug":         res.Debug,
	})
}

// ExtractJD handles POST /extract-jd: the extract stage as a pure function.
func (h *Handlers) ExtractJD(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JDText string `json:"jd_text"`
		JobURL string `json:"job_url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.JDText == "" {
		respondErr(w, http.StatusBadRequest, "missing_jd_text")
		return
	}

	out, usage, err := scoring.ExtractFields(r.Context(), h.Runner, body.JobURL, body.JDText)
	if err != nil {
		h.respondAIErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"extracted": out, "usage": usage})
}

// ScoreJD handles POST /score-jd: heuristic plus reason stages against the
// stored targets, nothing persisted.
func (h *Handlers) ScoreJD(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JDText string `json:"jd_text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.JDText == "" {
		respondErr(w, http.StatusBadRequest, "missing_jd_text")
		return
	}

	targets, err := h.Repos.Target.List(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	eval, err := scoring.EvaluateJD(r.Context(), h.Runner, body.JDText, targets, h.ScoringCfg)
	if err != nil {
		h.respondAIErr(w, err)
		return
	}
	respond(w, http.StatusOK, eval)
}

// Recover handles POST /recover: runs the three recovery loops in order and
// returns their per-domain summaries.
func (h *Handlers) Recover(w http.ResponseWriter, r *http.Request) {
	backfill, err := h.Recovery.BackfillMissing(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "recovery_failed", err.Error())
		return
	}
	rescore, err := h.Recovery.RescoreStale(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "recovery_failed", err.Error())
		return
	}
	retry, err := h.Recovery.RetryFetch(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "recovery_failed", err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"backfill_missing": backfill,
		"rescore_stale":    rescore,
		"retry_fetch":      retry,
	})
}

// Events handles GET /events: recent audit tail, optionally filtered by type.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.Repos.Event.ListRecent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	type eventView struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		JobKey    string `json:"job_key,omitempty"`
		Payload   string `json:"payload"`
		TS        string `json:"ts"`
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:        e.ID,
			EventType: e.EventType,
			JobKey:    e.JobKey,
			Payload:   e.PayloadJSON,
			TS:        e.TS.Format(time.RFC3339),
		})
	}
	respond(w, http.StatusOK, map[string]any{"events": views})
}

// respondAIErr maps runner failures: an unavailable collaborator is a 500 to
// admin callers.
func (h *Handlers) respondAIErr(w http.ResponseWriter, err error) {
	if errors.Is(err, llm.ErrUnavailable) {
		respondErr(w, http.StatusInternalServerError, "ai_unavailable")
		return
	}
	respondErr(w, http.StatusInternalServerError, "ai_error", err.Error())
}
