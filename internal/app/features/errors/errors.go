// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
)

// Handler serves the router's fallback responses.
// No DB needed; it only writes JSON.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests that match no route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, Response{Error: "not_found", Message: "no such endpoint"})
}

// MethodNotAllowed answers requests whose path matched but method did not.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, Response{Error: "method_not_allowed", Message: r.Method + " is not supported here"})
}
