package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"imagebot/internal/adapter/repo"
	"imagebot/internal/bot"
	"imagebot/internal/infra"
	"imagebot/internal/ledger"
	"imagebot/internal/lifecycle"
	"imagebot/internal/notify"
	"imagebot/internal/pricing"
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
	logger := infra.NewLogger(cfg.AppEnv, "bot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	enqueuer, err := queue.NewEnqueuer(pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create enqueuer")
	}

	accounts := repo.NewAccountRepository(pool)
	jobs := repo.NewJobRepository(pool)
	templates := repo.NewTemplateRepository(pool)
	stats := repo.NewStatsRepository(pool)
	tokens := ledger.New(pool)
	limiter := ratelimit.New(jobs, time.Hour, cfg.RateLimitPerHour)

	life := lifecycle.New(pool, tokens, jobs, accounts, enqueuer, limiter, provider,
		notify.NewLogSink(logger), queue.NewRetryPolicy(), logger)

	b := bot.New(bot.Options{
		Client:      tg,
		Lifecycle:   life,
		Accounts:    accounts,
		Jobs:        jobs,
		Templates:   templates,
		Stats:       stats,
		Granter:     tokens,
		SignupGrant: pricing.SignupGrant(cfg.InitialImages),
		AdminID:     cfg.AdminTelegramID,
		Logger:      logger,
	})

	logger.Info().Msg("bot started")
	if err := b.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("bot loop failed")
	}
	logger.Info().Msg("bot stopped")
}
