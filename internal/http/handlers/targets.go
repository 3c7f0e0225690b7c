package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jobops/jobops/internal/models"
)

type targetBody struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PrimaryRole    string   `json:"primary_role"`
	Seniority      string   `json:"seniority"`
	Location       string   `json:"location"`
	MustKeywords   []string `json:"must_keywords"`
	NiceKeywords   []string `json:"nice_keywords"`
	RejectKeywords []string `json:"reject_keywords"`
}

// ListTargets handles GET /targets.
func (h *Handlers) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.Repos.Target.List(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	views := make([]targetView, 0, len(targets))
	for _, t := range targets {
		views = append(views, toTargetView(t))
	}
	respond(w, http.StatusOK, map[string]any{"targets": views})
}

// GetTarget handles GET /targets/{id}.
func (h *Handlers) GetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.Repos.Target.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if target == nil {
		respondErr(w, http.StatusNotFound, "not_found")
		return
	}
	respond(w, http.StatusOK, toTargetView(target))
}

// UpsertTarget handles POST /targets and POST /targets/{id}. Target edits
// move the freshness cutoff that the stale-rescore loop keys on.
func (h *Handlers) UpsertTarget(w http.ResponseWriter, r *http.Request) {
	var body targetBody
	if !decodeBody(w, r, &body) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		body.ID = id
	}
	if body.Name == "" {
		respondErr(w, http.StatusBadRequest, "missing_name")
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	target := &models.Target{
		ID:             body.ID,
		Name:           body.Name,
		PrimaryRole:    body.PrimaryRole,
		Seniority:      body.Seniority,
		Location:       body.Location,
		MustKeywords:   body.MustKeywords,
		NiceKeywords:   body.NiceKeywords,
		RejectKeywords: body.RejectKeywords,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.Repos.Target.Upsert(r.Context(), target); err != nil {
		respondErr(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	stored, err := h.Repos.Target.Get(r.Context(), target.ID)
	if err != nil || stored == nil {
		respondErr(w, http.StatusInternalServerError, "db_error")
		return
	}
	respond(w, http.StatusOK, toTargetView(stored))
}
