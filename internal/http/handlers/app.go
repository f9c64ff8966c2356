// Package handlers implements the operational HTTP API: health and
// administrative reporting. User-facing traffic goes through the bot, not
// through here.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
)

type App struct {
	Pool   *pgxpool.Pool
	Stats  domain.StatsRepository
	Jobs   domain.JobRepository
	Logger infra.Logger
}

func NewApp(pool *pgxpool.Pool, stats domain.StatsRepository, jobs domain.JobRepository, logger infra.Logger) *App {
	return &App{Pool: pool, Stats: stats, Jobs: jobs, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
