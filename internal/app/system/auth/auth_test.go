package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKeyRejectedWhenSecure(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, true, nil); err == nil {
		t.Fatal("expected error for empty key in secure mode")
	}
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, nil); err != nil {
		t.Fatalf("expected ephemeral key in insecure mode, got %v", err)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/notifications", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireRole_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireRole("admin")(okHandler()).ServeHTTP(rec, httptest.NewRequest("POST", "/projects/p/edit-decision", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireRole_WrongRole_Returns403(t *testing.T) {
	sm := newTestSessionManager(t)
	req := withTestUser(httptest.NewRequest("POST", "/projects", nil), "student")
	rec := httptest.NewRecorder()
	sm.RequireRole("industry", "admin")(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	sm := newTestSessionManager(t)
	h := sm.RequireRole("teacher", "industry")(okHandler())

	for _, role := range []string{"teacher", "industry"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withTestUser(httptest.NewRequest("PUT", "/selections/x/completion", nil), role))
		if rec.Code != http.StatusOK {
			t.Errorf("role %q: expected %d, got %d", role, http.StatusOK, rec.Code)
		}
	}
}

func TestRequireRole_CaseInsensitive(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireRole("ADMIN")(okHandler()).ServeHTTP(rec, withTestUser(httptest.NewRequest("GET", "/", nil), "Admin"))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for mixed-case role, got %d", http.StatusOK, rec.Code)
	}
}

func TestSignIn_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	err := sm.SignIn(rec, httptest.NewRequest("POST", "/dev/session", nil), auth.SessionUser{
		ID:         "507f1f77bcf86cd799439011",
		Email:      "ada@uni.edu",
		Role:       "Student",
		University: "MIT",
	})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest("GET", "/notifications", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	var got *auth.SessionUser
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected user loaded from session")
	}
	if got.Email != "ada@uni.edu" || got.Role != "student" || got.University != "MIT" {
		t.Errorf("unexpected session user: %+v", got)
	}
}

func TestLoadSessionUser_NoCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	called := false
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := auth.CurrentUser(r); ok {
			t.Error("expected no user without a cookie")
		}
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Fatal("next handler not called")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

func TestCurrentUser_WithUser(t *testing.T) {
	user, ok := auth.CurrentUser(withTestUser(httptest.NewRequest("GET", "/", nil), "admin"))
	if !ok || user == nil {
		t.Fatal("expected user in context")
	}
	if user.Role != "admin" {
		t.Errorf("expected role 'admin', got %q", user.Role)
	}
}

func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    "507f1f77bcf86cd799439011",
		Name:  "Test User",
		Email: "test@example.com",
		Role:  role,
	})
}
