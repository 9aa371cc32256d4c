// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/domain/models"
	projectsvc "github.com/dalemusser/collabhub/internal/domain/projects"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the project registry.
type Handler struct {
	Svc *projectsvc.Service
	Log *zap.Logger
}

func NewHandler(svc *projectsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type projectRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Type             string    `json:"type"`
	Skills           []string  `json:"skills"`
	MaxStudents      int       `json:"max_students_per_group"`
	MaxGroups        int       `json:"max_groups"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Attachments      []string  `json:"attachments"`
	RepresentativeID string    `json:"representative_id,omitempty"`
}

func (p projectRequest) spec() projectsvc.Spec {
	return projectsvc.Spec{
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Skills:      p.Skills,
		MaxStudents: p.MaxStudents,
		MaxGroups:   p.MaxGroups,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Attachments: p.Attachments,
	}
}

// HandleCreate handles POST /projects.
// Representatives create for themselves; admins may name the owner.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req projectRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	owner := u.ID
	if authz.IsAdmin(r) && strings.TrimSpace(req.RepresentativeID) != "" {
		owner = req.RepresentativeID
	}

	p, err := h.Svc.Create(ctx, projectsvc.CreateRequest{Spec: req.spec(), RepresentativeID: owner})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, p)
}

// ServeList handles GET /projects?university=.
// Callers without an explicit university see their own.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	uni := r.URL.Query().Get("university")
	if uni == "" {
		if u, ok := auth.CurrentUser(r); ok {
			uni = u.University
		}
	}
	list, err := h.Svc.ListVisible(ctx, uni)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Project{}
	}
	errorsfeature.JSON(w, http.StatusOK, list)
}

// ServeProject handles GET /projects/{id}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, p)
}

// HandleUpdate handles PUT /projects/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id := chi.URLParam(r, "id")
	if !h.owns(ctx, w, r, id) {
		return
	}
	var req projectRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	p, err := h.Svc.Update(ctx, id, req.spec())
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /projects/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	id := chi.URLParam(r, "id")
	if !h.owns(ctx, w, r, id) {
		return
	}
	res, err := h.Svc.Delete(ctx, id)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, res)
}

type editRequest struct {
	Reason string `json:"reason"`
}

// HandleRequestEdit handles POST /projects/{id}/edit-request.
func (h *Handler) HandleRequestEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id := chi.URLParam(r, "id")
	if !h.owns(ctx, w, r, id) {
		return
	}
	var req editRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	p, err := h.Svc.RequestEdit(ctx, id, u.ID, req.Reason)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, p)
}

type editDecision struct {
	Approve       bool      `json:"approve"`
	UnlockedUntil time.Time `json:"unlocked_until"`
}

// HandleDecideEdit handles POST /projects/{id}/edit-decision (admin only).
func (h *Handler) HandleDecideEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req editDecision
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	p, err := h.Svc.DecideEdit(ctx, chi.URLParam(r, "id"), u.ID, req.Approve, req.UnlockedUntil)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, p)
}

// owns loads the project and reports whether the caller may manage it,
// writing the failure response when not.
func (h *Handler) owns(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) bool {
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return false
	}
	if !authz.CanManageProject(r, p) {
		errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "only the project's representative may do that"})
		return false
	}
	return true
}
