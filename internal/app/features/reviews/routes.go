// internal/app/features/reviews/routes.go
package reviews

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects/{id}/groups/{sid}/reviews.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeReviews)
	r.With(sm.RequireRole(models.UserTeacher, models.UserRepresentative, models.UserAdmin)).Post("/", h.HandleSubmit)
	return r
}

// StudentRoutes returns the router mounted under /students.
func StudentRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/{email}/rating", h.ServeStudentRating)
	return r
}
