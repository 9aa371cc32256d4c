// internal/app/features/reviews/handler.go
package reviews

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/authz"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	reviewsvc "github.com/dalemusser/collabhub/internal/domain/reviews"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves group reviews and student ratings.
type Handler struct {
	Svc  *reviewsvc.Service
	Gate authz.GroupGate
	Log  *zap.Logger
}

func NewHandler(svc *reviewsvc.Service, gate authz.GroupGate, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Gate: gate, Log: logger}
}

type reviewRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
	Role     string `json:"role,omitempty"`
}

// HandleSubmit handles POST /projects/{id}/groups/{sid}/reviews. The
// review is recorded under the caller's id and role. Only the project's
// representative, its approved supervisors and admins may review.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var req reviewRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	projectID := chi.URLParam(r, "id")
	ok, err := h.Gate.Allow(ctx, r, projectID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if !ok {
		errorsfeature.JSON(w, http.StatusForbidden, errorsfeature.Response{Error: "forbidden", Message: "only the project's representative or an approved supervisor may review"})
		return
	}

	u, _ := auth.CurrentUser(r)
	role := u.Role
	if authz.IsAdmin(r) && req.Role != "" {
		role = req.Role
	}
	doc, err := h.Svc.Submit(ctx, projectID, chi.URLParam(r, "sid"), reviewsvc.ReviewInput{
		ReviewerID: u.ID,
		Role:       role,
		Rating:     req.Rating,
		Comments:   req.Comments,
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, doc)
}

// ServeReviews handles GET /projects/{id}/groups/{sid}/reviews.
func (h *Handler) ServeReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Svc.Get(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, doc)
}

// ServeStudentRating handles GET /students/{email}/rating.
func (h *Handler) ServeStudentRating(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Svc.StudentRating(ctx, chi.URLParam(r, "email"))
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	errorsfeature.JSON(w, http.StatusOK, st)
}
