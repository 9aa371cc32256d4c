// internal/app/features/session/routes.go
package session

import "github.com/go-chi/chi/v5"

// Routes serves the session endpoints. Password-less sign-in is only
// registered when devLogin is set.
func Routes(h *Handler, devLogin bool) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSession)
	r.Delete("/", h.HandleSignOut)
	if devLogin {
		r.Post("/", h.HandleSignIn)
	}
	return r
}
