// Package handlers exposes the read-only ops surface: coarse job status,
// autopilot configs, generation history and pool stats. Mutations happen
// through the worker, never through this API.
package handlers

import (
	"encoding/json"
	"net/http"

	"autoreel/internal/domain"
	"autoreel/internal/infra"
)

// App bundles the repositories the handlers read from.
type App struct {
	Jobs     domain.JobRepository
	Configs  domain.ConfigRepository
	History  domain.HistoryRepository
	Products domain.ProductRepository
	Logger   infra.Logger
}

// NewApp wires the handler container.
func NewApp(jobs domain.JobRepository, configs domain.ConfigRepository, history domain.HistoryRepository, products domain.ProductRepository, logger infra.Logger) *App {
	return &App{Jobs: jobs, Configs: configs, History: history, Products: products, Logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
