// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// maxBody caps request bodies decoded by Decode.
const maxBody = 1 << 20

// Response is the JSON body written for every failed request.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status maps a classified error to its HTTP status. Unclassified errors
// are internal.
func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindInvalidRole:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate, apperr.KindCapacity, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindDeadline:
		return http.StatusUnprocessableEntity
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write renders err as a JSON error. Internal errors are logged and their
// detail is withheld from the client.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := Status(err)
	kind := string(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		kind = "internal"
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
		}
	}
	JSON(w, status, Response{Error: kind, Message: apperr.Message(err)})
}

// Decode reads a JSON request body into v. A malformed body is a
// validation error.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("malformed request body: %v", err)
	}
	return nil
}
