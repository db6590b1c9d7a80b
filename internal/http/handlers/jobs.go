package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"autoreel/internal/domain"
)

// jobResponse is the coarse projection of a generation job. Chain internals
// stay private to the orchestrator.
type jobResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Provider    string     `json:"provider,omitempty"`
	ResultURLs  []string   `json:"result_urls,omitempty"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GetJob returns the coarse status of one generation job.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("handlers: job lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := jobResponse{
		ID:        job.ID,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		Provider:  job.Provider,
		CreatedAt: job.CreatedAt,
	}
	if job.Status == domain.JobStatusReady {
		resp.ResultURLs = job.ResultURLs
		resp.CompletedAt = job.CompletedAt
	}
	if job.Status == domain.JobStatusError {
		resp.Error = job.ErrorMessage
	}
	writeJSON(w, http.StatusOK, resp)
}
