// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeProject)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.UserRepresentative, models.UserAdmin))

		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/edit-request", h.HandleRequestEdit)
	})

	r.With(sm.RequireRole(models.UserAdmin)).Post("/{id}/edit-decision", h.HandleDecideEdit)

	return r
}
