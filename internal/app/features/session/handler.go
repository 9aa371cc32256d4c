// internal/app/features/session/handler.go
package session

import (
	"context"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/collabhub/internal/app/features/errors"
	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"github.com/dalemusser/collabhub/internal/app/system/normalize"
	"github.com/dalemusser/collabhub/internal/app/system/ratelimit"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"go.uber.org/zap"
)

type Handler struct {
	Dir        identity.Directory
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.SignInLimiter
	Log        *zap.Logger
}

func NewHandler(dir identity.Directory, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:        dir,
		SessionMgr: sessionMgr,
		Limiter:    ratelimit.NewSignInLimiter(),
		Log:        logger,
	}
}

type userResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	University      string `json:"university,omitempty"`
}

func responseOf(u *auth.SessionUser) userResponse {
	return userResponse{
		IsAuthenticated: true,
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		University:      u.University,
	}
}

// ServeSession handles GET /session.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.JSON(w, http.StatusOK, userResponse{})
		return
	}
	errorsfeature.JSON(w, http.StatusOK, responseOf(u))
}

// HandleSignIn handles POST /session. The user is resolved by email in
// the directory; there is no password check, so the route is only
// mounted when development sign-in is enabled.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var body struct {
		Email string `json:"email"`
	}
	if err := errorsfeature.Decode(r, &body); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	email := normalize.Email(body.Email)
	if h.Limiter != nil {
		if err := h.Limiter.Check(r, email); err != nil {
			h.Log.Warn("sign-in rate limited", zap.String("ip", ratelimit.ClientIP(r)), zap.String("email", email))
			errorsfeature.Write(w, r, h.Log, err)
			return
		}
	}
	if email == "" || !strings.Contains(email, "@") {
		errorsfeature.Write(w, r, h.Log, apperr.Validation("a valid email is required"))
		return
	}

	user, err := h.Dir.Lookup(ctx, email)
	if err != nil {
		h.Log.Info("sign-in for unknown user", zap.String("email", email))
		errorsfeature.Write(w, r, h.Log, apperr.NotFound("user"))
		return
	}

	su := auth.SessionUser{
		ID:         user.ID.Hex(),
		Name:       user.Username,
		Email:      user.Email,
		Role:       user.Role,
		University: user.University,
	}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.Succeeded(email)
	}
	h.Log.Info("signed in", zap.String("user_id", su.ID), zap.String("role", su.Role))
	errorsfeature.JSON(w, http.StatusOK, responseOf(&su))
}

// HandleSignOut handles DELETE /session.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign-out: save session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
