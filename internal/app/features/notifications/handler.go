// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/paging"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/notify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the caller's notification inbox.
type Handler struct {
	Svc *notify.Service
	Log *zap.Logger
}

func NewHandler(svc *notify.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// recipientKey is the id notifications are addressed to: students by
// email (group membership is email-keyed), everyone else by user id.
func recipientKey(u *auth.SessionUser) string {
	if u.Role == models.UserStudent {
		return u.Email
	}
	return u.ID
}

// ServeList handles GET /notifications?unread=true&limit=N.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, _ := auth.CurrentUser(r)
	unread := paging.ParseFlag(r, "unread")
	limit := paging.ParseLimit(r, notify.DefaultListLimit)

	list, err := h.Svc.ListForRecipient(ctx, recipientKey(u), unread, limit)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	errorsfeature.JSON(w, http.StatusOK, list)
}

// HandleRead handles POST /notifications/{id}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, _ := auth.CurrentUser(r)
	if err := h.Svc.MarkRead(ctx, chi.URLParam(r, "id"), recipientKey(u)); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type respondRequest struct {
	Response string `json:"response"`
}

// HandleRespond handles POST /notifications/{id}/respond. Only the first
// response is kept.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var req respondRequest
	if err := errorsfeature.Decode(r, &req); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	if err := h.Svc.Respond(ctx, chi.URLParam(r, "id"), recipientKey(u), req.Response); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
