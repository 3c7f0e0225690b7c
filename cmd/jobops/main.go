// Package main is the entry point for the jobops server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobops/jobops/internal/canonical"
	"github.com/jobops/jobops/internal/config"
	"github.com/jobops/jobops/internal/database"
	"github.com/jobops/jobops/internal/http/handlers"
	"github.com/jobops/jobops/internal/http/mw"
	"github.com/jobops/jobops/internal/http/routes"
	"github.com/jobops/jobops/internal/ingest"
	"github.com/jobops/jobops/internal/jd"
	"github.com/jobops/jobops/internal/lifecycle"
	"github.com/jobops/jobops/internal/llm"
	"github.com/jobops/jobops/internal/logging"
	"github.com/jobops/jobops/internal/mailbox"
	"github.com/jobops/jobops/internal/recovery"
	"github.com/jobops/jobops/internal/repository"
	"github.com/jobops/jobops/internal/scheduler"
	"github.com/jobops/jobops/internal/scoring"
	"github.com/jobops/jobops/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting jobops",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Optional schema features are detected once at startup.
	jobColumns, err := database.TableColumns(db, "jobs")
	if err != nil {
		logger.Warn("failed to introspect jobs table", "error", err)
	}
	checklistEnabled := jobColumns["checklist_json"]

	repos := repository.NewRepositories(db)
	tunables := config.NewStore(cfg)

	runner := llm.NewAnthropicRunner(llm.AnthropicOptions{
		APIKey:  cfg.AnthropicAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.LLMTimeout,
	}, logger)
	if !runner.Available() {
		logger.Warn("AI runner unavailable, ingest will downgrade to LINK_ONLY")
	}

	fetcher := jd.NewHTTPFetcher(jd.HTTPFetcherOptions{
		Timeout:      cfg.FetchTimeout,
		UserAgent:    cfg.FetchUserAgent,
		MaxRedirects: cfg.FetchMaxRedirect,
	})
	resolver := jd.NewResolver(fetcher, cfg.MinJDChars, logger)

	machine := lifecycle.NewMachine(repos.Job, repos.Event, logger)
	scoringCfg := scoring.Config{
		MinJDChars:         cfg.MinJDChars,
		MinTargetSignal:    cfg.MinTargetSignal,
		ShortlistThreshold: float64(cfg.ShortlistThreshold),
		WeightMust:         cfg.ScoreWeightMust,
		WeightNice:         cfg.ScoreWeightNice,
	}
	pipeline := scoring.NewPipeline(runner, repos, machine, scoringCfg, logger)

	locks := ingest.NewKeyLock(cfg.LockTimeout)
	orchestrator := ingest.NewOrchestrator(ingest.OrchestratorOptions{
		Canonicalizer: canonical.New(cfg.GenericAllowedHosts),
		Resolver:      resolver,
		Pipeline:      pipeline,
		Machine:       machine,
		Repos:         repos,
		Locks:         locks,
		Parallel:      cfg.IngestParallel,
		Logger:        logger,
		AIAvailable:   runner.Available,
	})

	recoveryRunner := recovery.NewRunner(repos, resolver, pipeline, locks, recovery.Config{
		BackfillLimit: cfg.RecoverBackfillLimit,
		RescoreLimit:  cfg.RecoverRescoreLimit,
		RetryLimit:    cfg.RecoverRetryLimit,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(repos.Event, logger)
	if cfg.SchedulerEnabled {
		registerTasks(sched, cfg, tunables, orchestrator, recoveryRunner, logger)
		sched.Start()
		defer sched.Stop()
	}

	h := &handlers.Handlers{
		DB:               db,
		Repos:            repos,
		Canon:            canonical.New(cfg.GenericAllowedHosts),
		Resolver:         resolver,
		Runner:           runner,
		Pipeline:         pipeline,
		Machine:          machine,
		Orchestrator:     orchestrator,
		Recovery:         recoveryRunner,
		Locks:            locks,
		ScoringCfg:       scoringCfg,
		ChecklistEnabled: checklistEnabled,
		Logger:           logger,
	}
	router := routes.New(h, routes.Options{
		AllowOrigin:    cfg.AllowOrigin,
		Keys:           mw.Keys{UIKey: cfg.UIKey, APIKey: cfg.APIKey},
		ExtendedBudget: cfg.BatchBudget,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("jobops stopped")
}

// registerTasks wires the periodic triggers: mailbox poll, RSS poll, recovery.
func registerTasks(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	tunables *config.Store,
	orchestrator *ingest.Orchestrator,
	recoveryRunner *recovery.Runner,
	logger *slog.Logger,
) {
	if cfg.MailboxEnabled() {
		poller := mailbox.NewPoller(mailbox.Settings{
			Host:     cfg.IMAPHost,
			Username: cfg.IMAPUser,
			Password: cfg.IMAPPassword,
			Folder:   cfg.IMAPFolder,
		}, orchestrator, logger)
		mustRegister(sched, scheduler.Task{
			Name: "email_poll",
			Spec: cfg.CronEmailPoll,
			Run:  poller.Poll,
		}, logger)
	}

	if len(cfg.RSSFeeds) > 0 {
		feeds := cfg.RSSFeeds
		mustRegister(sched, scheduler.Task{
			Name: "rss_poll",
			Spec: cfg.CronRSSPoll,
			Run: func(ctx context.Context) error {
				// Keyword filters are re-read each tick so edits apply
				// without a restart.
				snap := tunables.Snapshot()
				adapter := ingest.NewRSSAdapter(snap.RSSAllowKeywords, snap.RSSBlockKeywords)
				for _, feed := range feeds {
					envelopes, err := adapter.Poll(ctx, feed)
					if err != nil {
						logger.Warn("rss poll failed", "feed", feed, "error", err)
						continue
					}
					if len(envelopes) == 0 {
						continue
					}
					if _, err := orchestrator.Ingest(ctx, envelopes); err != nil {
						logger.Error("rss ingest failed", "feed", feed, "error", err)
					}
				}
				return nil
			},
		}, logger)
	}

	if cfg.RecoveryEnabled {
		mustRegister(sched, scheduler.Task{
			Name: "recovery",
			Spec: cfg.CronRecovery,
			Run: func(ctx context.Context) error {
				if _, err := recoveryRunner.BackfillMissing(ctx); err != nil {
					return err
				}
				if _, err := recoveryRunner.RescoreStale(ctx); err != nil {
					return err
				}
				_, err := recoveryRunner.RetryFetch(ctx)
				return err
			},
		}, logger)
	}
}

func mustRegister(sched *scheduler.Scheduler, task scheduler.Task, logger *slog.Logger) {
	if err := sched.Register(task); err != nil {
		logger.Error("invalid cron expression", "task", task.Name, "spec", task.Spec, "error", err)
		os.Exit(1)
	}
}
