// Package api implements the JSON HTTP API over the orchestrator, the
// scheduler and their supporting services.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ltuffery/Octopus/internal/adapters/in/http/middleware"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedCIDRs   []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	// WriteTimeout is left at zero by default: lifecycle actions answer
	// once the operation finished, which can take as long as a build.
	WriteTimeout time.Duration
	// GlobalLimiter and IPLimiter are optional request rate limits.
	GlobalLimiter out.RateLimiter
	IPLimiter     out.RateLimiter
}

// Server serves the API with echo.
type Server struct {
	e      *echo.Echo
	config Config
	log    zerowrap.Logger
}

// NewServer builds the echo instance, installs middleware and registers routes.
// When registry is nil HTTP metrics and /metrics are disabled.
func NewServer(config Config, handler *Handler, registry *prometheus.Registry, log zerowrap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = middleware.IPExtractor(middleware.ParseNetworks(config.TrustedProxies))
	e.HTTPErrorHandler = errorHandler(log)
	e.Server.ReadTimeout = config.ReadTimeout
	e.Server.WriteTimeout = config.WriteTimeout

	e.Use(middleware.PanicRecovery(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.SecurityHeaders)
	e.Use(middleware.CIDRAllowlist(middleware.ParseNetworks(config.AllowedCIDRs), log))
	e.Use(middleware.RateLimit(config.GlobalLimiter, config.IPLimiter, log))

	if registry != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "octopus",
			Subsystem:  "http",
			Registerer: registry,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))
	}

	handler.Register(e.Group("/api"))

	return &Server{e: e, config: config, log: log}
}

// ServeHTTP lets the server be mounted or tested as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.config.Addr).Msg("API server listening")
	if err := s.e.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
