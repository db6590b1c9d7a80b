package httpapi

import (
	stdhttp "net/http"

	"autoreel/internal/http/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/{id}", app.GetJob)
	})

	r.Route("/autopilot", func(r chi.Router) {
		r.Get("/configs", app.ListConfigs)
		r.Get("/configs/{id}/history", app.GetConfigHistory)
		r.Get("/stores/{storeID}/pool", app.GetPoolStats)
	})

	return r
}
