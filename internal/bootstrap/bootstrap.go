package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/doc-classifier/internal/config"
	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
	"github.com/kirillkom/doc-classifier/internal/core/usecase"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/archive"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/extractor"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/model"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/vectorizer"
)

// Telemetry is supplied by the binary: the API and the worker export
// different metric sets.
type Telemetry struct {
	Logger          *slog.Logger
	Classifications ports.ClassificationObserver
	BreakerState    resilience.StateObserver
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue  *nats.Queue
	Models *model.Registry

	DocumentUC  *usecase.DocumentClassificationUseCase
	ArchiveUC   *usecase.ArchiveClassificationUseCase
	JobsUC      *usecase.ArchiveJobUseCase
	RatingUC    *usecase.RatingUseCase
	AnalyticsUC *usecase.AnalyticsUseCase
	OperatorUC  *usecase.OperatorUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, telemetry Telemetry) (*App, error) {
	logger := telemetry.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	records := postgres.NewClassificationRepository(db)
	jobs := postgres.NewArchiveJobRepository(db)
	ratings := postgres.NewRatingRepository(db)
	users := postgres.NewUserRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executorOpts := []resilience.Option{resilience.WithLogger(logger)}
	if telemetry.BreakerState != nil {
		executorOpts = append(executorOpts, resilience.WithStateObserver(telemetry.BreakerState))
	}
	executor := resilience.NewExecutor(cfg.Resilience, executorOpts...)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	features := vectorizer.New(vectorizer.Options{})
	deps := model.Dependencies{Indexer: features}
	if strings.TrimSpace(cfg.OllamaURL) != "" {
		deps.Ollama = ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaModel, executor)
	}
	models, err := model.LoadCatalog(cfg.ModelCatalogPath, deps)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load models: %w", err)
	}

	textExtractor := extractor.NewExtractor()
	codec := archive.NewCodec(int64(cfg.MaxUnpackedMB) << 20)

	documentUC := usecase.NewDocumentClassificationUseCase(records, textExtractor, features, models, cfg.MinTextLength, telemetry.Classifications)
	archiveUC := usecase.NewArchiveClassificationUseCase(jobs, records, codec, textExtractor, features, models, usecase.ArchiveOptions{
		MinTextLength: cfg.MinTextLength,
		ScratchRoot:   cfg.ScratchPath,
		Observer:      telemetry.Classifications,
		Logger:        logger,
	})
	jobsUC := usecase.NewArchiveJobUseCase(archiveUC, jobs, storage, queue, domain.ParseLocale(cfg.DefaultLocale))

	logger.Info("bootstrap complete",
		"document_models", len(models.Models(domain.ModelScopeDocument)),
		"archive_models", len(models.Models(domain.ModelScopeArchive)),
		"ollama", deps.Ollama != nil,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Models: models,

		DocumentUC:  documentUC,
		ArchiveUC:   archiveUC,
		JobsUC:      jobsUC,
		RatingUC:    usecase.NewRatingUseCase(records, ratings),
		AnalyticsUC: usecase.NewAnalyticsUseCase(records),
		OperatorUC:  usecase.NewOperatorUseCase(users),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
