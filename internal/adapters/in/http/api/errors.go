package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

// statusFor maps an error kind to its HTTP status code.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidSchedule:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConcurrentOperation:
		return http.StatusConflict
	case domain.KindTimeout, domain.KindExecutionFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders every handler error as a dto.ErrorResponse.
func errorHandler(log zerowrap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   dto.ErrorResponse
		)

		var httpErr *echo.HTTPError
		var domainErr *domain.Error
		switch {
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body.Error = fmt.Sprint(httpErr.Message)
		case errors.As(err, &domainErr):
			status = statusFor(domainErr.Kind)
			body.Error = err.Error()
			body.Kind = string(domainErr.Kind)
			body.Fields = lo.Map(domainErr.Fields, func(f domain.FieldError, _ int) dto.FieldError {
				return dto.FieldError{Field: f.Field, Message: f.Message}
			})
		default:
			status = http.StatusInternalServerError
			body.Error = "Internal Server Error"
		}

		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str(zerowrap.FieldMethod, c.Request().Method).
				Str(zerowrap.FieldPath, c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn().Err(err).Msg("failed to write error response")
		}
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}
