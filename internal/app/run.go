package app

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/adapters/in/http/api"
	"github.com/ltuffery/Octopus/internal/usecase/manifest"
)

const shutdownTimeout = 30 * time.Second

var version = "dev"

// SetVersion sets the version reported by the API.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Run starts the orchestrator and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(ctx context.Context, configPath string) error {
	_, cfg, err := initConfig(configPath)
	if err != nil {
		return err
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = zerowrap.WithCtx(ctx, log)
	log.Info().
		Str(zerowrap.FieldLayer, "app").
		Str("version", version).
		Str("data_dir", cfg.Server.DataDir).
		Str("storage", cfg.Storage.Driver).
		Bool("docker", cfg.Docker.Enabled).
		Msg("starting octopus")

	svc, err := createServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.close(log)

	if err := svc.eventBus.Start(); err != nil {
		return log.WrapErr(err, "failed to start event bus")
	}
	defer func() {
		if err := svc.eventBus.Stop(); err != nil {
			log.Warn().Err(err).Msg("failed to stop event bus")
		}
	}()

	if err := svc.siteSvc.Reconcile(ctx); err != nil {
		return err
	}

	if cfg.Sites.Manifest != "" {
		if err := importManifest(ctx, svc, resolvePath(cfg.Server.DataDir, cfg.Sites.Manifest, "")); err != nil {
			log.Warn().Err(err).Str(zerowrap.FieldPath, cfg.Sites.Manifest).Msg("manifest import incomplete")
		}
	}

	if err := svc.scheduler.Start(ctx); err != nil {
		return err
	}
	defer svc.scheduler.Stop()

	monitor := svc.siteSvc.StartMonitor(ctx, cfg.Sites.MonitorInterval)
	defer monitor.Stop()

	globalLimiter, ipLimiter := createRateLimiters(ctx, cfg, log)
	handler := api.NewHandler(svc.siteSvc, svc.scheduler, svc.webhookSvc, svc.logSvc, svc.healthSvc, version)
	server := api.NewServer(api.Config{
		Addr:           cfg.Server.Addr,
		AllowedCIDRs:   cfg.Server.AllowedCIDRs,
		TrustedProxies: cfg.Server.TrustedProxies,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		GlobalLimiter:  globalLimiter,
		IPLimiter:      ipLimiter,
	}, handler, svc.registry, log)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info().Str(zerowrap.FieldLayer, "app").Msg("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			return log.WrapErr(err, "API server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown error")
	}

	// Background builds started by Create hold their own context.
	svc.siteSvc.Wait()

	log.Info().Str(zerowrap.FieldLayer, "app").Msg("octopus stopped")
	return nil
}

// importManifest creates the declared entities that do not exist yet.
func importManifest(ctx context.Context, svc *services, path string) error {
	log := zerowrap.FromCtx(ctx)

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	res, err := manifest.NewImporter(svc.siteSvc, svc.webhookSvc, svc.scheduler).Import(ctx, m)
	log.Info().
		Str(zerowrap.FieldPath, path).
		Int("created", len(res.Created)).
		Int("skipped", len(res.Skipped)).
		Msg("manifest imported")
	return err
}

// initLogger initializes the zerowrap logger.
func initLogger(cfg Config) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:  strings.ToLower(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
			Enabled:    true,
			Path:       resolvePath(cfg.Server.DataDir, cfg.Logging.File.Path, filepath.Join("logs", "octopus.log")),
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		})
		if err != nil {
			return zerowrap.Default(), nil, fmt.Errorf("failed to create logger with file: %w", err)
		}
		return log, cleanup, nil
	}

	return zerowrap.New(logConfig), nil, nil
}
