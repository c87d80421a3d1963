package geometry

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all geometry endpoints onto the given router
// under the /geometry prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/geometry", func(r chi.Router) {
		r.Post("/calculate", h.Calculate)
		r.Post("/validate", h.ValidateRequest)
		r.Post("/batch", h.Batch)
		r.Get("/shapes", h.Shapes)
		r.Get("/operations/{operation}/shapes", h.CompatibleShapes)
		r.Get("/examples", h.Examples)
		r.Get("/models", h.Models)
		r.Get("/health", h.Health)
	})
}
