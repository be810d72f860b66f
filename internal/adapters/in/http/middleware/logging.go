// Package middleware provides echo middleware for the HTTP API.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestLogger logs every request with zerowrap and attaches the logger,
// enriched with the request id, to the request context.
func RequestLogger(log zerowrap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = generateRequestID()
			}
			c.Response().Header().Set(HeaderRequestID, requestID)

			ctx := zerowrap.WithCtx(req.Context(), log)
			ctx = zerowrap.CtxWithFields(ctx, map[string]any{"request_id": requestID})
			c.SetRequest(req.WithContext(ctx))

			// Run the error handler now so the logged status is the one sent.
			if err := next(c); err != nil {
				c.Error(err)
			}

			res := c.Response()
			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str("request_id", requestID).
				Str(zerowrap.FieldMethod, req.Method).
				Str(zerowrap.FieldPath, req.URL.Path).
				Str("route", c.Path()).
				Str("query", req.URL.RawQuery).
				Str(zerowrap.FieldClientIP, c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Int(zerowrap.FieldStatus, res.Status).
				Int64("bytes", res.Size).
				Dur(zerowrap.FieldDuration, time.Since(start)).
				Msg("HTTP request")
			return nil
		}
	}
}

// fallbackCounter ensures uniqueness when crypto/rand is unavailable.
var fallbackCounter atomic.Uint64

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x-%x", time.Now().UnixNano(), fallbackCounter.Add(1))
	}
	return hex.EncodeToString(b)
}

// PanicRecovery turns a handler panic into a 500 JSON response.
func PanicRecovery(log zerowrap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str(zerowrap.FieldLayer, "adapter").
						Str(zerowrap.FieldAdapter, "http").
						Interface("panic", r).
						Str(zerowrap.FieldMethod, c.Request().Method).
						Str(zerowrap.FieldPath, c.Request().URL.Path).
						Msg("panic recovered")
					err = c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal Server Error"})
				}
			}()
			return next(c)
		}
	}
}
