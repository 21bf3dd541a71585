// The sweeper advances asynchronous try-on jobs whose client session
// disappeared before the vendor finished. A poll timeout never cancels
// the vendor job, so completed work would otherwise stay invisible in
// the running state forever.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"atelier/internal/adapter/repo"
	"atelier/internal/domain"
	"atelier/internal/infra"
	"atelier/internal/infra/credentials"
	"atelier/internal/providers/tryon"
	"atelier/internal/storage"
	"atelier/internal/studio"
)

type sweeper struct {
	ctx      context.Context
	repo     domain.JobRepository
	orc      *studio.Orchestrator
	logger   infra.Logger
	interval time.Duration
	batch    int
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "sweeper").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	creds := credentials.NewStore(runner)

	var store storage.ObjectStore
	if cfg.StorageDriver == "s3" {
		store, err = storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
	} else {
		store, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: failed to configure storage")
	}

	var provider tryon.Provider
	if cfg.TryOnProvider == "stub" {
		provider = tryon.NewStub()
	} else {
		apiKey := strings.TrimSpace(cfg.FashnAPIKey)
		if apiKey == "" {
			if keyFromStore, kerr := creds.FashnAPIKey(ctx); kerr != nil {
				logger.Warn().Err(kerr).Msg("sweeper: failed to load fashn api key from store")
			} else {
				apiKey = keyFromStore
			}
		}
		provider = tryon.NewFashn(tryon.FashnOptions{
			APIKey:    apiKey,
			BaseURL:   cfg.FashnBaseURL,
			ModelName: cfg.FashnModel,
			Logger:    logger,
		})
	}

	jobs := repo.NewJobRepository(pool)
	orc := studio.NewOrchestrator(studio.OrchestratorOptions{
		Provider:   provider,
		Repo:       jobs,
		Store:      store,
		Logger:     logger,
		MaxRetries: uint64(cfg.MaxRetries),
		RetryBase:  cfg.RetryBase,
	})

	s := &sweeper{
		ctx:      ctx,
		repo:     jobs,
		orc:      orc,
		logger:   logger,
		interval: cfg.SweepInterval,
		batch:    cfg.SweepBatch,
	}
	if err := s.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sweeper: stopped with error")
	}
	logger.Info().Msg("sweeper: stopped")
}

func (s *sweeper) Run() error {
	s.logger.Info().Msg("sweeper: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *sweeper) sweep() {
	jobs, err := s.repo.ListByStatus(s.ctx, domain.JobStatusRunning, s.batch)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: failed to list running jobs")
		return
	}
	for _, job := range jobs {
		if job.ProviderJobID == "" {
			continue
		}
		polled, err := s.orc.PollTick(s.ctx, job.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("sweeper: poll failed")
			continue
		}
		if polled.Status.Terminal() {
			s.logger.Info().Str("job_id", job.ID).Str("status", string(polled.Status)).Msg("sweeper: job settled")
		}
	}
}
