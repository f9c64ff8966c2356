package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"imagebot/internal/domain"
)

type jobResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Cost       int    `json:"cost"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	ResultRef  string `json:"result_ref,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id.String()).Msg("job lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}

	a.json(w, http.StatusOK, jobResponse{
		ID:         job.ID.String(),
		Kind:       string(job.Kind),
		Status:     string(job.Status),
		Cost:       job.Cost,
		RetryCount: job.RetryCount,
		LastError:  job.LastError,
		ResultRef:  job.ResultRef,
		CreatedAt:  job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  job.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
