package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
)

// keyLimiter denies the keys in deny and records every key it saw.
type keyLimiter struct {
	deny map[string]bool
	seen []string
}

func (l *keyLimiter) Allow(ctx context.Context, key string) bool {
	return l.AllowN(ctx, key, 1)
}

func (l *keyLimiter) AllowN(_ context.Context, key string, _ int) bool {
	l.seen = append(l.seen, key)
	return !l.deny[key]
}

func rateLimitedEcho(global, perIP out.RateLimiter) *echo.Echo {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	e.Use(RateLimit(global, perIP, zerowrap.Default()))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func remoteRequest(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_Allowed(t *testing.T) {
	global := &keyLimiter{}
	perIP := &keyLimiter{}

	rec := serve(rateLimitedEcho(global, perIP), remoteRequest("10.1.2.3:4567"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"global"}, global.seen)
	assert.Equal(t, []string{"ip:10.1.2.3"}, perIP.seen)
}

func TestRateLimit_GlobalExhausted(t *testing.T) {
	global := &keyLimiter{deny: map[string]bool{"global": true}}
	perIP := &keyLimiter{}

	rec := serve(rateLimitedEcho(global, perIP), remoteRequest("10.1.2.3:4567"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, rec.Body.String())
	assert.Empty(t, perIP.seen)
}

func TestRateLimit_PerIPExhausted(t *testing.T) {
	perIP := &keyLimiter{deny: map[string]bool{"ip:10.1.2.3": true}}
	e := rateLimitedEcho(nil, perIP)

	assert.Equal(t, http.StatusTooManyRequests, serve(e, remoteRequest("10.1.2.3:4567")).Code)
	assert.Equal(t, http.StatusOK, serve(e, remoteRequest("10.9.9.9:4567")).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	rec := serve(rateLimitedEcho(nil, nil), remoteRequest("10.1.2.3:4567"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
