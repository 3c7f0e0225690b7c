// Package routes assembles the chi router.
package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jobops/jobops/internal/http/handlers"
	"github.com/jobops/jobops/internal/http/mw"
)

// Options carries router-level configuration.
type Options struct {
	AllowOrigin    string
	Keys           mw.Keys
	RequestBudget  time.Duration // default per-request deadline
	ExtendedBudget time.Duration // ingest and scoring endpoints
}

// New builds the router: public health, UI surface, admin surface.
func New(h *handlers.Handlers, opts Options) *chi.Mux {
	if opts.RequestBudget == 0 {
		opts.RequestBudget = 60 * time.Second
	}
	if opts.ExtendedBudget == 0 {
		opts.ExtendedBudget = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.AllowOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "x-ui-key", "x-api-key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestSize(1 * 1024 * 1024))
	r.Use(httprate.LimitByIP(120, time.Minute))
	r.Use(mw.Timeout(mw.TimeoutConfig{
		Default:          opts.RequestBudget,
		Extended:         opts.ExtendedBudget,
		ExtendedPatterns: []string{"/ingest", "/rescore", "/manual-jd", "/score", "/recover"},
	}))

	r.Get("/health", h.Health)

	// UI capability set.
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(opts.Keys, mw.CapabilityUI))

		r.Get("/jobs", h.ListJobs)
		r.Route("/jobs/{job_key}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Post("/status", h.ChangeStatus)
			r.Post("/rescore", h.Rescore)
			r.Post("/manual-jd", h.ManualJD)
			r.Get("/evidence", h.Evidence)
			r.Get("/runs", h.Runs)
			r.Get("/checklist", h.Checklist)
		})

		r.Post("/ingest", h.Ingest)
		r.Post("/score-pending", h.ScorePending)

		r.Get("/targets", h.ListTargets)
		r.Post("/targets", h.UpsertTarget)
		r.Get("/targets/{id}", h.GetTarget)
		r.Post("/targets/{id}", h.UpsertTarget)
	})

	// Admin capability set.
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(opts.Keys, mw.CapabilityAdmin))

		r.Post("/normalize-job", h.NormalizeJob)
		r.Post("/resolve-jd", h.ResolveJD)
		r.Post("/extract-jd", h.ExtractJD)
		r.Post("/score-jd", h.ScoreJD)
		r.Post("/recover", h.Recover)
		r.Get("/events", h.Events)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error":"not_found"}`))
	})

	return r
}
