package kit

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/metrics"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterConflicts(t *testing.T) {
	m := metrics.New()
	b := Base{Metrics: m}.Normalize()

	calls := 0
	err := b.Retry(context.Background(), "selections", func(context.Context) error {
		calls++
		if calls < 3 {
			return repository.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	out, err := testutil.GatherAndCount(m.Registry(), "collabhub_cas_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestRetry_ExhaustionIsConflict(t *testing.T) {
	b := Base{MaxAttempts: 2}.Normalize()
	calls := 0
	err := b.Retry(context.Background(), "reviews", func(context.Context) error {
		calls++
		return repository.ErrConflict
	})
	assert.Equal(t, 2, calls)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

func TestRetry_OtherErrorsReturnImmediately(t *testing.T) {
	b := Base{}.Normalize()
	calls := 0
	err := b.Retry(context.Background(), "approvals", func(context.Context) error {
		calls++
		return apperr.Duplicate("already exists")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, apperr.ErrDuplicate))
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Base{}.Normalize().Retry(ctx, "x", func(context.Context) error {
		t.Fatal("fn must not run after cancel")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotFound(t *testing.T) {
	err := NotFound(repository.ErrNotFound, "project")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "project not found", apperr.Message(err))

	other := errors.New("boom")
	assert.Equal(t, other, NotFound(other, "project"))
}
