// internal/app/features/submissions/handler.go
package submissions

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	submissionsvc "github.com/dalemusser/collabhub/internal/domain/submissions"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves a group's submissions.
type Handler struct {
	Svc *submissionsvc.Service
	Log *zap.Logger
}

func NewHandler(svc *submissionsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type submitRequest struct {
	Comments string   `json:"comments"`
	Files    []string `json:"files"`
}

// HandleSubmit handles POST /projects/{id}/groups/{sid}/submissions.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req submitRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	e, err := h.Svc.Add(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "sid"), submissionsvc.SubmitInput{
		Submitter: u.Email,
		Comments:  req.Comments,
		Files:     req.Files,
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusCreated, e)
}

// ServeSubmissions handles GET /projects/{id}/groups/{sid}/submissions.
func (h *Handler) ServeSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Svc.Get(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, doc)
}

// HandleRemove handles DELETE /projects/{id}/groups/{sid}/submissions/{subID}.
// Only the submitter (or an admin) may remove a submission.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	projectID, selectionID, subID := chi.URLParam(r, "id"), chi.URLParam(r, "sid"), chi.URLParam(r, "subID")
	doc, err := h.Svc.Get(ctx, projectID, selectionID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	for _, e := range doc.Submissions {
		if e.SubmissionID == subID && !authz.IsSelf(r, e.Submitter) {
			errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "only the submitter may remove a submission"})
			return
		}
	}
	if err := h.Svc.Remove(ctx, projectID, selectionID, subID); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
