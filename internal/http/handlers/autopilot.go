package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"autoreel/internal/autopilot"
	"autoreel/internal/domain"
)

// ListConfigs returns all autopilot configs.
func (a *App) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := a.Configs.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list configs failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

// GetConfigHistory returns the recent generation attempts for one config.
func (a *App) GetConfigHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.Configs.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "config not found")
			return
		}
		a.Logger.Error().Err(err).Str("config_id", id).Msg("handlers: config lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	records, err := a.History.ListByConfig(r.Context(), id, 50)
	if err != nil {
		a.Logger.Error().Err(err).Str("config_id", id).Msg("handlers: list history failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

// GetPoolStats returns the rotation-pool aggregate for one store.
func (a *App) GetPoolStats(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	products, err := a.Products.ListActive(r.Context(), storeID)
	if err != nil {
		a.Logger.Error().Err(err).Str("store_id", storeID).Msg("handlers: list products failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, autopilot.StatsOf(products))
}
