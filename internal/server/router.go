package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/singed2905/api/internal/geometry"
	"github.com/singed2905/api/internal/handlers"
	"github.com/singed2905/api/internal/observability"
)

// NewRouter builds the HTTP surface: observability middleware, the liveness
// and metrics endpoints, and the geometry API under /api/v1.
func NewRouter(src geometry.TableSource) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	r.Route("/api/v1", func(r chi.Router) {
		geometry.RegisterRoutes(r, geometry.NewHandler(src))
	})

	return r
}
