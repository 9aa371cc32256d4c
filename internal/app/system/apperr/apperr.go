// Package apperr defines the error taxonomy surfaced by the project
// lifecycle services. Every error carries a Kind that callers (and the
// HTTP layer) use to decide how to render it, plus a human-readable
// message safe to show to end users.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindDuplicate   Kind = "duplicate"
	KindCapacity    Kind = "capacity"
	KindDeadline    Kind = "deadline"
	KindConflict    Kind = "conflict"
	KindInvalidRole Kind = "invalid_role"
	KindRateLimited Kind = "rate_limited"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrDuplicate   = &Error{Kind: KindDuplicate}
	ErrCapacity    = &Error{Kind: KindCapacity}
	ErrDeadline    = &Error{Kind: KindDeadline}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrInvalidRole = &Error{Kind: KindInvalidRole}
	ErrRateLimited = &Error{Kind: KindRateLimited}
)

// Error is a classified, user-presentable error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrCapacity)
// holds for every capacity error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error  { return newf(KindValidation, format, args...) }
func Duplicate(format string, args ...any) *Error   { return newf(KindDuplicate, format, args...) }
func Capacity(format string, args ...any) *Error    { return newf(KindCapacity, format, args...) }
func Deadline(format string, args ...any) *Error    { return newf(KindDeadline, format, args...) }
func InvalidRole(format string, args ...any) *Error { return newf(KindInvalidRole, format, args...) }
func RateLimited(format string, args ...any) *Error { return newf(KindRateLimited, format, args...) }

// NotFound returns a deliberately generic message so callers cannot probe
// for the existence of unrelated records.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// Conflict reports exhausted optimistic-concurrency retries.
func Conflict(what string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: what + " was modified concurrently; retry the operation", Err: err}
}

// KindOf returns the Kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message for a classified error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}
