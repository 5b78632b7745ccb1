package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/inkpipe/internal/api"
	"github.com/phrazzld/inkpipe/internal/api/middleware"
	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/phrazzld/inkpipe/internal/events"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/blob"
	"github.com/phrazzld/inkpipe/internal/platform/gemini"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/platform/metrics"
	"github.com/phrazzld/inkpipe/internal/platform/postgres"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// collaborators are the external services the executors call.
type collaborators struct {
	classifier generation.Classifier
	embedder   generation.Embedder
	captioner  generation.Captioner
	summarizer generation.Summarizer
	images     task.ImageSource
}

// newCollaborators connects to Gemini and the ink image bucket.
func newCollaborators(ctx context.Context, cfg *config.Config, log *slog.Logger) (collaborators, error) {
	client, err := gemini.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return collaborators{}, fmt.Errorf("failed to create gemini client: %w", err)
	}
	images, err := blob.NewS3Store(ctx, cfg.Blob, log)
	if err != nil {
		return collaborators{}, fmt.Errorf("failed to create blob store: %w", err)
	}
	return collaborators{
		classifier: gemini.NewClassifier(client),
		embedder:   gemini.NewEmbedder(client),
		captioner:  gemini.NewCaptioner(client),
		summarizer: gemini.NewSummarizer(client),
		images:     images,
	}, nil
}

// application holds the wired components shared by every subcommand.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	db       *sql.DB
	jobs     *postgres.JobStore
	registry *task.Registry
	runner   *task.Runner
	emitter  *events.InMemoryEventEmitter
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	auth     *middleware.ServiceAuth
}

// newApplication wires stores, executors and the runner around db.
func newApplication(cfg *config.Config, log *slog.Logger, db *sql.DB, deps collaborators) (*application, error) {
	jobs := postgres.NewJobStore(db, postgres.JobStoreConfig{
		StaleAfter:  cfg.Worker.StaleAfter,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, log)
	notes := postgres.NewNoteStore(db, jobs, log)
	categories := postgres.NewCategoryStore(db, log)
	embeddings := postgres.NewEmbeddingStore(db, log)
	packs := postgres.NewPackStore(db, log)

	registry, err := task.NewRegistry(
		task.NewClassifyExecutor(notes, categories, deps.classifier, log),
		task.NewEmbedExecutor(notes, embeddings, deps.embedder, log),
		task.NewCaptionExecutor(notes, deps.images, deps.captioner, log),
		task.NewPackExecutor(notes, packs, deps.summarizer, log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build executor registry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	runner := task.NewRunner(jobs, registry,
		task.RunnerConfig{JobTimeout: cfg.Worker.JobTimeout},
		log,
		task.WithRecorder(m))

	emitter := events.NewInMemoryEventEmitter(log)
	producer := task.NewProducer(jobs, log)
	emitter.RegisterHandler(task.NewNoteSavedHandler(notes, producer, log),
		events.TypeNoteSaved, events.TypePackRequested)

	return &application{
		config:   cfg,
		logger:   log,
		db:       db,
		jobs:     jobs,
		registry: registry,
		runner:   runner,
		emitter:  emitter,
		metrics:  m,
		gatherer: reg,
		auth:     middleware.NewServiceAuth(cfg.Trigger.Secret),
	}, nil
}

// observeQueue refreshes the per-status gauge.
func (app *application) observeQueue(ctx context.Context) error {
	return app.metrics.ObserveQueue(ctx, app.jobs)
}

// runOnce processes a single batch and refreshes the queue gauge.
func (app *application) runOnce(ctx context.Context, batch int) (task.Summary, error) {
	sum, err := app.runner.Run(ctx, batch, app.config.Worker.RunnerID)
	if obsErr := app.observeQueue(ctx); obsErr != nil {
		app.logger.Warn("failed to refresh queue gauge", "error", obsErr)
	}
	return sum, err
}

// router builds the HTTP surface served by `inkpipe serve`.
func (app *application) router() http.Handler {
	jobs := api.NewJobsHandler(app.runner, app.config.Worker.BatchLimit, app.logger,
		api.WithRunnerID(app.config.Worker.RunnerID),
		api.WithAfterRun(app.observeQueue))
	return api.NewRouter(api.RouterDeps{
		DB:      app.db,
		Jobs:    jobs,
		Auth:    app.auth,
		Metrics: metrics.Handler(app.gatherer),
		Logger:  app.logger,
	})
}

// poller returns the in-process ticker, or nil when polling is disabled.
func (app *application) poller() *task.Poller {
	if app.config.Worker.PollInterval <= 0 {
		return nil
	}
	return task.NewPoller(app.runner, app.config.Worker.PollInterval,
		app.config.Worker.BatchLimit, app.config.Worker.RunnerID,
		func(ctx context.Context, _ task.Summary) {
			if err := app.observeQueue(ctx); err != nil {
				app.logger.Warn("failed to refresh queue gauge", "error", err)
			}
		},
		app.logger)
}

// bootstrap loads config, sets up logging and opens the database. The
// caller owns the returned *sql.DB.
func bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

// startApplication runs bootstrap and connects the collaborators.
func startApplication(ctx context.Context) (*application, error) {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	deps, err := newCollaborators(ctx, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app, err := newApplication(cfg, log, db, deps)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}
