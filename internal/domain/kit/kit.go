// Package kit holds the plumbing shared by the domain services: logger,
// clock, metrics and the optimistic-concurrency retry loop.
package kit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/metrics"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds compare-and-swap retries per operation.
const DefaultMaxAttempts = 5

// Base is embedded by every domain service.
type Base struct {
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
	MaxAttempts int
}

// Normalize fills unset fields with defaults.
func (b Base) Normalize() Base {
	if b.Log == nil {
		b.Log = zap.NewNop()
	}
	if b.Now == nil {
		b.Now = time.Now
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultMaxAttempts
	}
	return b
}

// Clock returns the current time in UTC.
func (b Base) Clock() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

// Retry runs fn until it returns something other than
// repository.ErrConflict, at most MaxAttempts times. fn must re-read the
// aggregate on every call. Exhaustion surfaces as apperr.Conflict.
func (b Base) Retry(ctx context.Context, aggregate string, fn func(ctx context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = fn(ctx)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		b.Metrics.CASRetry(aggregate)
		if b.Log != nil {
			b.Log.Debug("cas conflict; retrying", zap.String("aggregate", aggregate), zap.Int("attempt", i+1))
		}
	}
	return apperr.Conflict(aggregate, err)
}

// Observe counts one operation by outcome and returns err unchanged.
func (b Base) Observe(op string, err error) error {
	switch {
	case err == nil:
		b.Metrics.Operation(op, metrics.OutcomeOK)
	case apperr.KindOf(err) != "":
		b.Metrics.Operation(op, string(apperr.KindOf(err)))
	default:
		b.Metrics.Operation(op, metrics.OutcomeError)
	}
	return err
}

// NotFound maps repository.ErrNotFound to a generic apperr.NotFound and
// passes other errors through.
func NotFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}
