// internal/app/features/approvals/routes.go
package approvals

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects/{id}/approvals.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.With(sm.RequireSignedIn).Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.UserTeacher, models.UserAdmin))

		pr.Post("/", h.HandleInsert)
		pr.Put("/{teacherID}", h.HandleDecide)
	})

	return r
}
