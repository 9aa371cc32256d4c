// Package auth carries the caller's identity on a signed session cookie.
//
// Sign-in itself belongs to the identity service; this package only reads
// (and, for development, writes) the session and gates routes by role.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	userIDKey     = "user_id"
	userNameKey   = "user_name"
	userEmailKey  = "user_email"
	userRoleKey   = "user_role"
	userUniKey    = "user_university"
	signedInAtKey = "signed_in_at"
)

// SessionUser is the identity injected into the request context.
type SessionUser struct {
	ID         string
	Name       string
	Email      string
	Role       string
	University string
}

type ctxKey struct{}

// SessionManager reads and writes the session cookie.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionManager builds a cookie store signed with key. An empty key is
// only accepted outside secure mode; a random one is generated and sessions
// will not survive a restart.
func NewSessionManager(key, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		return nil, errors.New("session name is empty")
	}
	var keyBytes []byte
	switch {
	case key != "":
		if len(key) < 32 {
			logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
		}
		keyBytes = []byte(key)
	case secure:
		return nil, errors.New("session key is empty; provide at least 32 random chars")
	default:
		logger.Warn("session key is empty; using an ephemeral random key")
		keyBytes = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(keyBytes)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, ttl: ttl, logger: logger}, nil
}

// LoadSessionUser injects the signed-in user, if any, into the context.
// Expired or undecodable sessions are treated as anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logger.Debug("session decode failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		id := getString(sess, userIDKey)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		if at, ok := sess.Values[signedInAtKey].(int64); ok && sm.ttl > 0 {
			if time.Since(time.Unix(at, 0)) > sm.ttl {
				next.ServeHTTP(w, r)
				return
			}
		}
		u := &SessionUser{
			ID:         id,
			Name:       getString(sess, userNameKey),
			Email:      getString(sess, userEmailKey),
			Role:       getString(sess, userRoleKey),
			University: getString(sess, userUniKey),
		}
		next.ServeHTTP(w, WithTestUser(r, u))
	})
}

// SignIn writes u into a fresh session.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = u.ID
	sess.Values[userNameKey] = u.Name
	sess.Values[userEmailKey] = u.Email
	sess.Values[userRoleKey] = strings.ToLower(u.Role)
	sess.Values[userUniKey] = u.University
	sess.Values[signedInAtKey] = time.Now().Unix()
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn rejects anonymous callers with 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous callers with 401 and callers outside
// allowed with 403. Role comparison is case-insensitive.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the user placed in context by LoadSessionUser.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser returns r with u in its context.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
