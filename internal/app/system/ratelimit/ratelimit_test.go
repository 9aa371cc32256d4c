package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/ratelimit"
	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLimiter_Window(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := ratelimit.New(2, time.Minute).WithClock(c.now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 0, l.Remaining("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	c.t = c.t.Add(time.Minute)
	assert.Equal(t, 2, l.Remaining("a"))
	assert.True(t, l.Allow("a"))

	l.Reset("b")
	assert.Equal(t, 2, l.Remaining("b"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ratelimit.ClientIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", ratelimit.ClientIP(r))

	r.Header.Set("X-Forwarded-For", " 198.51.100.1 , 10.0.0.1")
	assert.Equal(t, "198.51.100.1", ratelimit.ClientIP(r))
}

func TestSignInLimiter(t *testing.T) {
	s := ratelimit.NewSignInLimiterWith(ratelimit.New(100, time.Minute), ratelimit.New(2, time.Minute))
	r := httptest.NewRequest("POST", "/session", nil)

	assert.NoError(t, s.Check(r, "Ana@uni.edu"))
	assert.NoError(t, s.Check(r, "ana@uni.edu"))
	assert.ErrorIs(t, s.Check(r, " ANA@uni.edu"), apperr.ErrRateLimited)
	assert.NoError(t, s.Check(r, "ben@uni.edu"))

	s.Succeeded("ana@uni.edu")
	assert.NoError(t, s.Check(r, "ana@uni.edu"))

	ipOnly := ratelimit.NewSignInLimiterWith(ratelimit.New(1, time.Minute), ratelimit.New(100, time.Minute))
	assert.NoError(t, ipOnly.Check(r, "a@uni.edu"))
	assert.ErrorIs(t, ipOnly.Check(r, "b@uni.edu"), apperr.ErrRateLimited)
}
