package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"atelier/internal/adapter/repo"
	"atelier/internal/http/handlers"
	httpapi "atelier/internal/http/httpapi"
	"atelier/internal/infra"
	"atelier/internal/infra/credentials"
	"atelier/internal/providers/edit"
	"atelier/internal/providers/tryon"
	"atelier/internal/quality"
	"atelier/internal/storage"
	"atelier/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	creds := credentials.NewStore(runner)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	provider, err := buildProvider(ctx, cfg, creds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure try-on provider")
	}
	editor := buildEditor(ctx, cfg, creds, logger)

	orchestrator := studio.NewOrchestrator(studio.OrchestratorOptions{
		Provider:   provider,
		Repo:       repo.NewJobRepository(dbpool),
		Store:      store,
		Editor:     editor,
		Logger:     logger,
		MaxRetries: uint64(cfg.MaxRetries),
		RetryBase:  cfg.RetryBase,
	})
	controller := studio.NewController(studio.ControllerOptions{
		Orchestrator: orchestrator,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		PollCeiling:  cfg.PollCeiling,
	})

	app := &handlers.App{
		Cfg:    cfg,
		Logger: logger,
		SQL:    runner,
		Analyzer: quality.NewAnalyzer(logger,
			quality.WithBudget(cfg.AnalysisBudget),
			quality.WithCache(quality.NewTTLCache(cfg.AnalysisCacheTTL, cfg.AnalysisCacheSize)),
		),
		Orchestrator: orchestrator,
		Controller:   controller,
		Store:        store,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}

func buildProvider(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) (tryon.Provider, error) {
	if cfg.TryOnProvider == "stub" {
		logger.Warn().Msg("using stub try-on provider, results echo the actor photo")
		return tryon.NewStub(), nil
	}
	apiKey := strings.TrimSpace(cfg.FashnAPIKey)
	if apiKey == "" {
		keyFromStore, err := creds.FashnAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load fashn api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	client := tryon.NewFashn(tryon.FashnOptions{
		APIKey:    apiKey,
		BaseURL:   cfg.FashnBaseURL,
		ModelName: cfg.FashnModel,
		Logger:    logger,
	})
	if !client.HasCredentials() {
		logger.Warn().Msg("fashn api key missing, submissions will fail until one is stored")
	}
	return client, nil
}

func buildEditor(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) edit.Editor {
	if !cfg.TouchUpEnabled {
		return nil
	}
	apiKey := strings.TrimSpace(cfg.EditAPIKey)
	if apiKey == "" {
		keyFromStore, err := creds.EditAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load edit api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("touch-up enabled but no edit api key found, skipping touch-up")
		return nil
	}
	return edit.NewClient(edit.ClientOptions{
		APIKey:  apiKey,
		BaseURL: cfg.EditBaseURL,
		Model:   cfg.EditModel,
		Timeout: 60 * time.Second,
	})
}
