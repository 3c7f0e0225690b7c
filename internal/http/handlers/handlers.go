// Package handlers contains the HTTP handlers behind the UI and admin APIs.
// Every response uses the {ok, data, error} envelope; error strings are
// stable short codes the UI can branch on.
package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobops/jobops/internal/canonical"
	"github.com/jobops/jobops/internal/ingest"
	"github.com/jobops/jobops/internal/jd"
	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/recovery"
	"github.com/jobops/jobops/internal/repository"
	"github.com/jobops/jobops/internal/scoring"
)

// Handlers bundles the dependencies of every endpoint.
type Handlers struct {
	DB           *sql.DB
	Repos        *repository.Repositories
	Canon        *canonical.Canonicalizer
	Resolver     *jd.Resolver
	Runner       llm.Runner
	Pipeline     *scoring.Pipeline
	Machine      *lifecycle.Machine
	Orchestrator *ingest.Orchestrator
	Recovery     *recovery.Runner
	Locks        *ingest.KeyLock
	ScoringCfg   scoring.Config

	// ChecklistEnabled is set at startup from schema introspection.
	ChecklistEnabled bool

	Logger *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type envelope struct {
	OK     bool   `json:"ok"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func respondErr(w http.ResponseWriter, status int, code string, detail ...string) {
	env := envelope{OK: false, Error: code}
	if len(detail) > 0 {
		env.Detail = detail[0]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

// Health is the public liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
}
