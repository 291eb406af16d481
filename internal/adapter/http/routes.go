package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all HTTP routes on the router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.handleHealth)
	r.Get("/ws", h.hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.handleListTasks)
			r.Get("/current", h.handleCurrentTask)
			r.Get("/{id}", h.handleGetTask)
		})

		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.handleListIssues)
			r.Post("/", h.handleCreateIssue)
			r.Get("/{id}", h.handleGetIssue)
			r.Put("/{id}", h.handleUpdateIssue)
			r.Delete("/{id}", h.handleDeleteIssue)
		})

		r.Get("/system/stats", h.handleSystemStats)
	})
}
