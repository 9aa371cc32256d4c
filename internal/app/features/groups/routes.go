// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects/{id}/groups.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{sid}", h.ServeGroup)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.UserStudent, models.UserAdmin))

		pr.Post("/", h.HandleCreate)
		pr.Post("/{sid}/members", h.HandleJoin)
	})

	return r
}
