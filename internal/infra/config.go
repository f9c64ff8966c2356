package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBMaxConns       int32
	DBMinConns       int32
	BotToken         string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	InitialImages    int
	RateLimitPerHour int
	WorkerCount      int
	AdminTelegramID  int64
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:       int32(getEnvInt("DB_MIN_CONNS", 1)),
		BotToken:         os.Getenv("BOT_TOKEN"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-image-1"),
		InitialImages:    getEnvInt("INITIAL_IMAGES", 10),
		RateLimitPerHour: getEnvInt("RATE_LIMIT_PER_HOUR", 20),
		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		AdminTelegramID:  getEnvInt64("ADMIN_TELEGRAM_ID", 0),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RateLimitPerHour < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_HOUR must be at least 1")
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	// The worker binary holds cfg.WorkerCount provider calls plus their
	// transactions concurrently; the pool must not be smaller than that.
	if cfg.DBMaxConns < 1 {
		cfg.DBMaxConns = 10
	}
	if cfg.DBMaxConns < int32(cfg.WorkerCount) {
		cfg.DBMaxConns = int32(cfg.WorkerCount)
	}
	if cfg.DBMinConns < 1 || cfg.DBMinConns > cfg.DBMaxConns {
		cfg.DBMinConns = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
