// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	groupsvc "github.com/dalemusser/collabhub/internal/domain/groups"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves group formation for a project.
type Handler struct {
	Svc *groupsvc.Service
	Log *zap.Logger
}

func NewHandler(svc *groupsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// ServeList handles GET /projects/{id}/groups?university=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Svc.ListGroups(ctx, chi.URLParam(r, "id"), r.URL.Query().Get("university"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, list)
}

type createRequest struct {
	University string `json:"university,omitempty"`
}

// HandleCreate handles POST /projects/{id}/groups. The caller leads the
// new group; the university defaults to the caller's.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req createRequest
	if r.ContentLength != 0 {
		if err := errorsfeature.Decode(r, &req); err != nil {
			errorsfeature.Write(w, r, h.Log, err)
			return
		}
	}
	u, _ := auth.CurrentUser(r)
	uni := req.University
	if uni == "" {
		uni = u.University
	}
	projectID := chi.URLParam(r, "id")
	id, err := h.Svc.CreateGroup(ctx, projectID, u.Email, uni)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, map[string]string{"project_id": projectID, "selection_id": id})
}

// ServeGroup handles GET /projects/{id}/groups/{sid}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Svc.GetGroup(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, g)
}

type joinRequest struct {
	Email string `json:"email,omitempty"`
}

// HandleJoin handles POST /projects/{id}/groups/{sid}/members. Students
// join themselves; admins may add anyone by email.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req joinRequest
	if r.ContentLength != 0 {
		if err := errorsfeature.Decode(r, &req); err != nil {
			errorsfeature.Write(w, r, h.Log, err)
			return
		}
	}
	u, _ := auth.CurrentUser(r)
	email := u.Email
	if req.Email != "" {
		if !authz.IsSelf(r, req.Email) {
			errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "students may only join for themselves"})
			return
		}
		email = req.Email
	}
	sel, err := h.Svc.JoinGroup(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "sid"), email)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, sel)
}
