package routes

import (
	"github.com/go-chi/chi/v5"

	"verbindung/mitgliederamt/internal/api"
	"verbindung/mitgliederamt/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers.
// This keeps API route registration separate from the main router setup.
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies) {

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware()) // global: every member route needs the admin role

		v1.Route("/mitglieder", func(m chi.Router) {
			m.Get("/", api.ListMembersHandler(deps))
			m.Post("/", api.CreateMemberHandler(deps))
			m.Post("/sync", api.SyncMembersHandler(deps))
			m.Get("/{id}", api.GetMemberHandler(deps))
			m.Patch("/{id}", api.UpdateMemberHandler(deps))
		})
	})
}
