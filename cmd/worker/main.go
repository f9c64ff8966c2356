package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"imagebot/internal/adapter/repo"
	"imagebot/internal/infra"
	"imagebot/internal/ledger"
	"imagebot/internal/lifecycle"
	"imagebot/internal/notify"
	"imagebot/internal/providers/openai"
	"imagebot/internal/queue"
	"imagebot/internal/ratelimit"
	"imagebot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	tg, err := telegram.NewClient(cfg.BotToken, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to authenticate telegram bot")
	}

	provider, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Logger:  &logger,
		Files:   tg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image provider")
	}

	accounts := repo.NewAccountRepository(pool)
	jobs := repo.NewJobRepository(pool)
	tokens := ledger.New(pool)
	limiter := ratelimit.New(jobs, time.Hour, cfg.RateLimitPerHour)
	sink := notify.NewTelegramSink(tg, logger)
	policy := queue.NewRetryPolicy()

	enqueuer, err := queue.NewEnqueuer(pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create enqueuer")
	}

	life := lifecycle.New(pool, tokens, jobs, accounts, enqueuer, limiter, provider, sink, policy, logger)

	q, err := queue.New(pool, life, policy, cfg.WorkerCount, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create queue")
	}

	if err := q.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start queue")
	}
	logger.Info().Int("workers", cfg.WorkerCount).Msg("worker started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := q.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to stop queue")
	}
	logger.Info().Msg("worker stopped")
}
