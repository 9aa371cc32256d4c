// internal/app/features/submissions/routes.go
package submissions

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects/{id}/groups/{sid}/submissions.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.With(sm.RequireSignedIn).Get("/", h.ServeSubmissions)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.UserStudent, models.UserAdmin))

		pr.Post("/", h.HandleSubmit)
		pr.Delete("/{subID}", h.HandleRemove)
	})

	return r
}
