package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Operation("groups.join", OutcomeOK)
	m.Operation("groups.join", OutcomeOK)
	m.Operation("groups.join", "capacity")
	m.CASRetry("selections")
	m.Notification("groupJoin", OutcomeError)
	m.LockExpired(3)
	m.LockExpired(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("groups.join", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("groups.join", "capacity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.casRetries.WithLabelValues("selections")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("groupJoin", OutcomeError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.lockExpiries))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("x", OutcomeOK)
	m.CASRetry("x")
	m.Notification("x", OutcomeOK)
	m.LockExpired(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.CASRetry("approvals")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `collabhub_cas_retries_total{aggregate="approvals"} 1`))
}
