package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface. Everything under /v1 requires a
// bearer token resolving to a tenant.
func NewRouter(h *Handlers, resolver TenantResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireTenant(resolver))
		r.Post("/templates", h.CreateTemplate)
		r.Post("/messages", h.DispatchMessage)
	})

	return r
}
