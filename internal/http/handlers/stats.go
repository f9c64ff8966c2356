package handlers

import (
	"net/http"
)

type statsResponse struct {
	Accounts    int64            `json:"accounts"`
	Jobs        int64            `json:"jobs"`
	ByStatus    map[string]int64 `json:"jobs_by_status"`
	TokensSpent int64            `json:"tokens_spent"`
}

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := a.Stats.TotalAccounts(ctx)
	if err != nil {
		a.statsError(w, err)
		return
	}
	jobs, err := a.Stats.TotalJobs(ctx)
	if err != nil {
		a.statsError(w, err)
		return
	}
	byStatus, err := a.Stats.JobsByStatus(ctx)
	if err != nil {
		a.statsError(w, err)
		return
	}
	spent, err := a.Stats.TotalTokensSpent(ctx)
	if err != nil {
		a.statsError(w, err)
		return
	}

	resp := statsResponse{
		Accounts:    accounts,
		Jobs:        jobs,
		ByStatus:    make(map[string]int64, len(byStatus)),
		TokensSpent: spent,
	}
	for status, n := range byStatus {
		resp.ByStatus[string(status)] = n
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) statsError(w http.ResponseWriter, err error) {
	a.Logger.Error().Err(err).Msg("stats query failed")
	a.jsonError(w, http.StatusInternalServerError, "stats unavailable")
}
