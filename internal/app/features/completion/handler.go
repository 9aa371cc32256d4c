// internal/app/features/completion/handler.go
package completion

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	completionsvc "github.com/dalemusser/collabhub/internal/domain/completion"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the dual sign-off on a group.
type Handler struct {
	Svc  *completionsvc.Service
	Gate authz.GroupGate
	Log  *zap.Logger
}

func NewHandler(svc *completionsvc.Service, gate authz.GroupGate, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Gate: gate, Log: logger}
}

type completionRequest struct {
	Role      string `json:"role,omitempty"`
	Completed bool   `json:"completed"`
}

// HandleSet handles PUT /selections/{sid}/completion. The project's
// representative and its approved supervisors sign off for their own
// side; admins name the role.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req completionRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	sid := chi.URLParam(r, "sid")
	projectID, err := h.Svc.ProjectOf(ctx, sid)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	ok, err := h.Gate.Allow(ctx, r, projectID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if !ok {
		errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "only the project's representative or an approved supervisor may sign off"})
		return
	}

	u, _ := auth.CurrentUser(r)
	role := req.Role
	if !authz.IsAdmin(r) {
		role = u.Role
	}
	res, err := h.Svc.SetRoleStatus(ctx, sid, role, req.Completed)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, res)
}
