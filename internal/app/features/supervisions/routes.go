// internal/app/features/supervisions/routes.go
package supervisions

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /projects/{id}/supervisions.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.With(sm.RequireSignedIn).Get("/", h.ServeList)
	r.With(sm.RequireRole(models.UserTeacher)).Post("/", h.HandleRequest)
	r.With(sm.RequireRole(models.UserRepresentative, models.UserAdmin)).Put("/{teacherID}", h.HandleRespond)

	return r
}

// StatusRoutes returns the router mounted under /supervisions.
func StatusRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireRole(models.UserTeacher)).Post("/status", h.HandleBulkStatus)
	return r
}
