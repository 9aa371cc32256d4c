package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/collabhub/internal/app/features/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func serve(t *testing.T, p health.Pinger) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	health.Routes(health.NewHandler(p, zap.NewNop())).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var got response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return rec, got
}

func TestServe_DatabaseConnected(t *testing.T) {
	rec, got := serve(t, pinger{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "connected", got.Database)
	assert.Empty(t, got.Error)
}

func TestServe_DatabaseDown(t *testing.T) {
	rec, got := serve(t, pinger{err: errors.New("server selection timeout")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, "disconnected", got.Database)
	assert.Equal(t, "Database unavailable", got.Message)
	assert.Equal(t, "server selection timeout", got.Error)
}
