// internal/app/features/supervisions/handler.go
package supervisions

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	projectsvc "github.com/dalemusser/collabhub/internal/domain/projects"
	"github.com/dalemusser/collabhub/internal/domain/supervision"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves a project's supervision ledger.
type Handler struct {
	Svc      *supervision.Service
	Projects *projectsvc.Service
	Log      *zap.Logger
}

func NewHandler(svc *supervision.Service, projects *projectsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Projects: projects, Log: logger}
}

// ServeList handles GET /projects/{id}/supervisions?university=&status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	list, err := h.Svc.List(ctx, chi.URLParam(r, "id"), supervision.Filter{
		University: q.Get("university"),
		Status:     q.Get("status"),
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, list)
}

// HandleRequest handles POST /projects/{id}/supervisions for the calling
// teacher.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, _ := auth.CurrentUser(r)
	e, err := h.Svc.Request(ctx, chi.URLParam(r, "id"), supervision.RequestInput{
		TeacherID:  u.ID,
		FullName:   u.Name,
		University: u.University,
		Email:      u.Email,
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, e)
}

type responseRequest struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

// HandleRespond handles PUT /projects/{id}/supervisions/{teacherID}.
// Only the project's representative (or an admin) answers.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id := chi.URLParam(r, "id")
	p, err := h.Projects.Get(ctx, id)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if !authz.CanManageProject(r, p) {
		errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "only the project's representative may respond"})
		return
	}
	var req responseRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	e, err := h.Svc.Respond(ctx, id, chi.URLParam(r, "teacherID"), req.Status, u.ID, req.Comments)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, e)
}

type bulkRequest struct {
	ProjectIDs []string `json:"project_ids"`
}

// HandleBulkStatus handles POST /supervisions/status. It reports the
// caller's supervision standing for each listed project.
func (h *Handler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var req bulkRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	out, err := h.Svc.BulkStatus(ctx, req.ProjectIDs, u.Email, u.University)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, out)
}
