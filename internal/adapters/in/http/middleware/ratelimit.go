package middleware

import (
	"net/http"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
)

// RateLimit rejects requests with 429 once the global bucket or the bucket
// of the client IP is empty. Either limiter may be nil to skip that check.
func RateLimit(global, perIP out.RateLimiter, log zerowrap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if global == nil && perIP == nil {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			scope := ""
			if global != nil && !global.Allow(ctx, "global") {
				scope = "global"
			} else if perIP != nil && !perIP.Allow(ctx, "ip:"+c.RealIP()) {
				scope = "ip"
			}
			if scope == "" {
				return next(c)
			}

			log.Warn().
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str(zerowrap.FieldMethod, c.Request().Method).
				Str(zerowrap.FieldPath, c.Request().URL.Path).
				Str(zerowrap.FieldClientIP, c.RealIP()).
				Str("scope", scope).
				Msg("request rate limited")

			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "Too Many Requests"})
		}
	}
}
