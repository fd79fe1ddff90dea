package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/config"
	"github.com/gradeflow/gradeflow-api/internal/grading"
	"github.com/gradeflow/gradeflow-api/internal/grading/gemini"
	"github.com/gradeflow/gradeflow-api/internal/platform/minio"
	"github.com/gradeflow/gradeflow-api/internal/platform/postgres"
	"github.com/gradeflow/gradeflow-api/internal/service"
	"github.com/gradeflow/gradeflow-api/internal/service/auth"
	"github.com/gradeflow/gradeflow-api/internal/store"
	"github.com/gradeflow/gradeflow-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	sheetStore     store.SheetStore
	resultStore    store.ResultStore
	analyticsStore store.AnalyticsStore
	artifactStore  artifact.Store

	// Service interfaces
	jwtService       auth.JWTService
	engine           grading.Engine
	analyticsService service.AnalyticsService
	ingestionService service.IngestionService
	queryService     service.QueryService

	// Background grading
	gradingRunner *task.GradingRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	// Initialize stores
	app.sheetStore = postgres.NewPostgresSheetStore(db, logger)
	app.resultStore = postgres.NewPostgresResultStore(db, logger)
	app.analyticsStore = postgres.NewPostgresAnalyticsStore(db, logger)

	// Initialize artifact storage
	app.artifactStore, err = minio.NewArtifactStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	logger.Info("Artifact store initialized", "bucket", cfg.Storage.Bucket)

	// Create the grading engine
	app.engine, err = gemini.NewGeminiGrader(ctx, cfg.Grading, app.artifactStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize grading engine: %w", err)
	}
	logger.Info("Grading engine initialized", "model", cfg.Grading.ModelName)

	// Initialize analytics service
	txRunner := store.NewTxRunner(db)
	app.analyticsService, err = service.NewAnalyticsService(
		txRunner,
		app.analyticsStore,
		cfg.Pipeline.AnalyticsMaxRetries,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics service: %w", err)
	}

	// Create task factory and start the grading runner
	taskFactory := task.NewSheetGradingTaskFactory(
		txRunner,
		app.sheetStore,
		app.resultStore,
		app.engine,
		app.analyticsService,
		cfg.Pipeline.MaxProcessingTime,
		logger,
	)

	app.gradingRunner, err = setupGradingRunner(app, taskFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to setup grading runner: %w", err)
	}

	// Initialize ingestion service
	app.ingestionService, err = service.NewIngestionService(
		app.sheetStore,
		app.artifactStore,
		app.gradingRunner,
		taskFactory,
		cfg.Ingestion,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion service: %w", err)
	}

	// Initialize query service
	app.queryService, err = service.NewQueryService(
		app.sheetStore,
		app.resultStore,
		app.analyticsStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupGradingRunner initializes and starts the background grading processor.
func setupGradingRunner(app *application, factory task.TaskFactory) (*task.GradingRunner, error) {
	runner := task.NewGradingRunner(app.sheetStore, factory, task.GradingRunnerConfig{
		WorkerCount:       app.config.Pipeline.WorkerCount,
		QueueSize:         app.config.Pipeline.QueueSize,
		MaxProcessingTime: app.config.Pipeline.MaxProcessingTime,
		SweepInterval:     app.config.Pipeline.SweepInterval,
		TrackFailures:     app.config.Pipeline.TrackFailures,
	}, app.logger)

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start grading runner: %w", err)
	}

	return runner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the grading runner first so no worker touches a closing database
	if app.gradingRunner != nil {
		app.gradingRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
