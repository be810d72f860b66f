package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger_RequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zerowrap.Default()))
	e.GET("/", func(c echo.Context) error {
		assert.NotNil(t, zerowrap.FromCtx(c.Request().Context()))
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 32)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec = serve(e, req)
	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))
}

func TestRequestLogger_HandlesErrors(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zerowrap.Default()))
	e.GET("/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	e := echo.New()
	e.Use(PanicRecovery(zerowrap.Default()))
	e.GET("/", func(c echo.Context) error {
		panic("boom")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}
