// internal/app/features/approvals/handler.go
package approvals

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	approvalsvc "github.com/dalemusser/collabhub/internal/domain/approvals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves a project's approval ledger.
type Handler struct {
	Svc *approvalsvc.Service
	Log *zap.Logger
}

func NewHandler(svc *approvalsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type approvalRequest struct {
	Status     string `json:"status"`
	Comments   string `json:"comments"`
	FullName   string `json:"full_name,omitempty"`
	University string `json:"university,omitempty"`
}

// ServeList handles GET /projects/{id}/approvals?university=&status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	list, err := h.Svc.List(ctx, chi.URLParam(r, "id"), approvalsvc.Filter{
		University: q.Get("university"),
		Status:     q.Get("status"),
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, list)
}

// HandleInsert handles POST /projects/{id}/approvals. The entry is
// recorded for the calling teacher.
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req approvalRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	e, err := h.Svc.Insert(ctx, chi.URLParam(r, "id"), insertFor(u.ID, u, req))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, e)
}

// HandleDecide handles PUT /projects/{id}/approvals/{teacherID}. The
// teacher's entry is created on first use and updated afterwards.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	teacherID := chi.URLParam(r, "teacherID")
	if !authz.IsSelf(r, teacherID) {
		errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "teachers may only decide for themselves"})
		return
	}
	var req approvalRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	e, err := h.Svc.Upsert(ctx, chi.URLParam(r, "id"), insertFor(teacherID, u, req))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, e)
}

// insertFor fills identity fields the body left out from the session.
func insertFor(teacherID string, u *auth.SessionUser, req approvalRequest) approvalsvc.InsertRequest {
	in := approvalsvc.InsertRequest{
		TeacherID:  teacherID,
		FullName:   req.FullName,
		University: req.University,
		Status:     req.Status,
		Comments:   req.Comments,
	}
	if teacherID == u.ID {
		if in.FullName == "" {
			in.FullName = u.Name
		}
		if in.University == "" {
			in.University = u.University
		}
	}
	return in
}
