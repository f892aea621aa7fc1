package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/handlers"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/services/analysis"
	"github.com/ternarybob/brandscope/internal/services/company"
	"github.com/ternarybob/brandscope/internal/services/llm"
	"github.com/ternarybob/brandscope/internal/services/retention"
	"github.com/ternarybob/brandscope/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Provider transport and secondary-model generation
	Transport       interfaces.CompletionTransport
	ProviderFactory *llm.ProviderFactory

	// Analysis pipeline
	Tracker      *analysis.Tracker
	Orchestrator *analysis.Orchestrator

	// Supporting services
	CompanyService   *company.Service
	RetentionService *retention.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	AnalysisHandler *handlers.AnalysisHandler
	ProviderHandler *handlers.ProviderHandler
	CompanyHandler  *handlers.CompanyHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if app.RetentionService != nil {
		if err := app.RetentionService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start retention service: %w", err)
		}
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the provider transport, the secondary-model factory,
// and the analysis pipeline
func (a *App) initServices() error {
	kvStorage := a.StorageManager.KeyValueStorage()

	// The OpenRouter key can arrive after startup via the KV store; an
	// empty key only fails the individual provider calls.
	apiKey, err := common.ResolveAPIKey(context.Background(), kvStorage, "openrouter_api_key", a.Config.OpenRouter.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("OpenRouter API key not configured, provider calls will fail until one is set")
		apiKey = ""
	}

	a.Transport = llm.NewOpenRouterClient(apiKey, &a.Config.OpenRouter, llm.WithLogger(a.Logger))

	a.ProviderFactory = llm.NewProviderFactory(
		&a.Config.Gemini,
		&a.Config.Claude,
		&a.Config.LLM,
		kvStorage,
		a.Logger,
	)

	extractor := analysis.NewExtractor(a.Logger)
	executor := analysis.NewExecutor(a.Transport, extractor, a.Logger)
	enhancer := analysis.NewEnhancer(a.ProviderFactory, a.Config.Gemini.FlashModel, a.Config.Analysis.MaxBrandsPerCall, a.Logger)
	aggregator := analysis.NewAggregator(a.ProviderFactory, a.Config.Gemini.Model, a.Config.Gemini.FlashModel, a.Config.Analysis.RankCeiling, a.Logger)

	a.Tracker = analysis.NewTracker(a.StorageManager.AnalysisStorage(), a.Config.Analysis.MatrixProgress, a.Logger)
	a.Orchestrator = analysis.NewOrchestrator(enhancer, executor, a.Tracker, aggregator, a.Config.Analysis.Concurrency, a.Logger)

	a.CompanyService = company.NewService(kvStorage, a.Logger)

	retentionService, err := retention.NewService(a.StorageManager.AnalysisStorage(), &a.Config.Retention, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create retention service: %w", err)
	}
	a.RetentionService = retentionService

	return nil
}

// initHandlers wires the HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.Tracker, a.Orchestrator, a.Logger)
	a.ProviderHandler = handlers.NewProviderHandler(a.Transport, a.Logger)
	a.CompanyHandler = handlers.NewCompanyHandler(a.CompanyService, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	var firstErr error

	if a.RetentionService != nil {
		a.RetentionService.Stop()
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close provider factory")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
