// internal/app/features/completion/routes.go
package completion

import (
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted under /selections.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireRole(models.UserTeacher, models.UserRepresentative, models.UserAdmin)).
		Put("/{sid}/completion", h.HandleSet)
	return r
}
