package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/out/docker"
	"github.com/ltuffery/Octopus/internal/adapters/out/envloader"
	"github.com/ltuffery/Octopus/internal/adapters/out/eventbus"
	"github.com/ltuffery/Octopus/internal/adapters/out/execlog"
	"github.com/ltuffery/Octopus/internal/adapters/out/localproc"
	"github.com/ltuffery/Octopus/internal/adapters/out/logwriter"
	"github.com/ltuffery/Octopus/internal/adapters/out/memstore"
	"github.com/ltuffery/Octopus/internal/adapters/out/notify"
	"github.com/ltuffery/Octopus/internal/adapters/out/process"
	"github.com/ltuffery/Octopus/internal/adapters/out/prober"
	"github.com/ltuffery/Octopus/internal/adapters/out/ratelimit"
	"github.com/ltuffery/Octopus/internal/adapters/out/sqlstore"
	"github.com/ltuffery/Octopus/internal/adapters/out/telemetry"
	"github.com/ltuffery/Octopus/internal/adapters/out/webhook"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
	"github.com/ltuffery/Octopus/internal/usecase/cron"
	"github.com/ltuffery/Octopus/internal/usecase/health"
	"github.com/ltuffery/Octopus/internal/usecase/logs"
	"github.com/ltuffery/Octopus/internal/usecase/site"
	webhookusecase "github.com/ltuffery/Octopus/internal/usecase/webhook"
)

// repositories groups the persistence ports of one storage backend.
type repositories struct {
	sites      out.SiteRepository
	cronJobs   out.CronJobRepository
	executions out.ExecutionRepository
	webhooks   out.WebhookRepository
	close      func() error
}

// services holds every wired component of a running orchestrator.
type services struct {
	repos      repositories
	registry   *prometheus.Registry
	metrics    *telemetry.Metrics
	eventBus   *eventbus.InMemory
	execLog    *execlog.Store
	logWriter  *logwriter.LogWriter
	localProc  *localproc.Driver
	siteSvc    *site.Service
	scheduler  *cron.Scheduler
	webhookSvc *webhookusecase.Service
	logSvc     *logs.Service
	healthSvc  *health.Service
}

// createServices wires adapters and use cases from cfg. Nothing is started.
func createServices(ctx context.Context, cfg Config, log zerowrap.Logger) (*services, error) {
	svc := &services{}

	repos, err := createRepositories(cfg, log)
	if err != nil {
		return nil, err
	}
	svc.repos = repos

	if cfg.Metrics.Enabled {
		svc.registry = prometheus.NewRegistry()
		svc.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc.metrics = telemetry.NewMetrics(svc.registry)
	}

	svc.eventBus = eventbus.NewInMemory(cfg.Events.BufferSize, log)
	if svc.metrics != nil {
		svc.eventBus.SetMetrics(svc.metrics)
	}

	svc.execLog = execlog.New(execlog.Config{
		Capacity: cfg.ExecLog.Capacity,
		File: execlog.FileConfig{
			Enabled:    cfg.ExecLog.File.Enabled,
			Path:       resolvePath(cfg.Server.DataDir, cfg.ExecLog.File.Path, filepath.Join("logs", "executions.jsonl")),
			MaxSize:    cfg.ExecLog.File.MaxSize,
			MaxBackups: cfg.ExecLog.File.MaxBackups,
			MaxAge:     cfg.ExecLog.File.MaxAge,
		},
	})

	svc.logWriter, err = logwriter.New(logwriter.Config{
		Dir:        resolvePath(cfg.Server.DataDir, cfg.Logging.SiteLogs.Dir, filepath.Join("logs", "sites")),
		MaxSize:    cfg.Logging.SiteLogs.MaxSize,
		MaxBackups: cfg.Logging.SiteLogs.MaxBackups,
		MaxAge:     cfg.Logging.SiteLogs.MaxAge,
	})
	if err != nil {
		svc.close(log)
		return nil, log.WrapErr(err, "failed to create site log writer")
	}

	maxOutput, err := cfg.maxOutputBytes()
	if err != nil {
		svc.close(log)
		return nil, err
	}
	runner := process.NewRunner(process.Config{
		MaxOutput: maxOutput,
		KillGrace: cfg.Process.KillGrace,
		Shell:     cfg.Process.Shell,
	})

	drivers, err := svc.createDrivers(ctx, cfg, log)
	if err != nil {
		svc.close(log)
		return nil, err
	}

	dispatcher := webhook.New(webhook.WithTimeout(cfg.Webhook.Timeout))
	if cfg.Notifications.WebhookURL != "" {
		types := lo.Map(cfg.Notifications.Events, func(t string, _ int) domain.EventType { return domain.EventType(t) })
		if err := svc.eventBus.Subscribe(notify.NewHandler(cfg.Notifications.WebhookURL, dispatcher, types...)); err != nil {
			svc.close(log)
			return nil, log.WrapErr(err, "failed to subscribe notification handler")
		}
		log.Info().Str("url", cfg.Notifications.WebhookURL).Int(zerowrap.FieldCount, len(types)).Msg("event notifications enabled")
	}

	svc.siteSvc = site.NewService(
		repos.sites,
		repos.executions,
		runner,
		drivers,
		envloader.NewFileLoader(cfg.Sites.EnvFile),
		svc.execLog,
		svc.eventBus,
		site.Config{
			WorkspaceDir:   resolvePath(cfg.Server.DataDir, cfg.Sites.WorkspaceDir, "sites"),
			BuildTimeout:   cfg.Sites.BuildTimeout,
			StartTimeout:   cfg.Sites.StartTimeout,
			StopTimeout:    cfg.Sites.StopTimeout,
			GitTimeout:     cfg.Sites.GitTimeout,
			AutoBuild:      cfg.Sites.AutoBuild,
			DefaultRuntime: domain.SiteRuntime(cfg.Sites.DefaultRuntime),
			ImagePrefix:    cfg.Docker.ImagePrefix,
		},
	)

	svc.scheduler = cron.NewScheduler(
		repos.cronJobs,
		repos.executions,
		repos.webhooks,
		runner,
		dispatcher,
		svc.siteSvc,
		svc.execLog,
		svc.eventBus,
		cron.Config{
			TickInterval:   cfg.Cron.TickInterval,
			CommandTimeout: cfg.Cron.CommandTimeout,
			Overlap:        domain.OverlapPolicy(cfg.Cron.Overlap),
		},
	)

	if svc.metrics != nil {
		svc.siteSvc.SetMetrics(svc.metrics)
		svc.scheduler.SetMetrics(svc.metrics)
	}

	svc.webhookSvc = webhookusecase.NewService(repos.webhooks, repos.cronJobs)
	svc.logSvc = logs.NewService(svc.execLog, repos.sites, svc.logWriter)
	svc.healthSvc = health.NewService(repos.sites, drivers, prober.New(cfg.Health.ProbeTimeout), cfg.Health.Host)

	return svc, nil
}

// createRepositories opens the configured storage backend.
func createRepositories(cfg Config, log zerowrap.Logger) (repositories, error) {
	if cfg.Storage.Driver == "memory" {
		store := memstore.New()
		log.Warn().Msg("using in-memory storage, state is lost on exit")
		return repositories{
			sites:      store.Sites,
			cronJobs:   store.CronJobs,
			executions: store.Executions,
			webhooks:   store.Webhooks,
			close:      func() error { return nil },
		}, nil
	}

	path := resolvePath(cfg.Server.DataDir, cfg.Storage.Path, "octopus.db")
	db, err := sqlstore.Open(path)
	if err != nil {
		return repositories{}, log.WrapErr(err, "failed to open database")
	}
	store := sqlstore.New(db)
	log.Info().Str(zerowrap.FieldPath, path).Msg("database opened")

	return repositories{
		sites:      store.Sites,
		cronJobs:   store.CronJobs,
		executions: store.Executions,
		webhooks:   store.Webhooks,
		close:      store.Close,
	}, nil
}

// createDrivers builds one ContainerDriver per enabled runtime.
func (svc *services) createDrivers(ctx context.Context, cfg Config, log zerowrap.Logger) (map[domain.SiteRuntime]out.ContainerDriver, error) {
	svc.localProc = localproc.New(localproc.Config{
		StopGrace: cfg.Process.StopGrace,
		Shell:     cfg.Process.Shell,
	}, svc.logWriter)

	drivers := map[domain.SiteRuntime]out.ContainerDriver{
		domain.RuntimeProcess: svc.localProc,
	}

	if !cfg.Docker.Enabled {
		return drivers, nil
	}

	driver, err := docker.NewDriver(docker.Config{
		Network:     cfg.Docker.Network,
		StopTimeout: cfg.Docker.StopTimeout,
	}, svc.logWriter)
	if err != nil {
		return nil, log.WrapErr(err, "failed to create docker driver")
	}
	if err := driver.Ping(ctx); err != nil {
		return nil, log.WrapErr(err, "docker daemon is not reachable")
	}
	drivers[domain.RuntimeDocker] = driver
	log.Info().Str("network", cfg.Docker.Network).Msg("docker runtime enabled")

	return drivers, nil
}

// rateLimitIdle is how long an unused per-IP bucket is kept.
const rateLimitIdle = 10 * time.Minute

// createRateLimiters returns the API limiters, or nils when rate limiting
// is disabled. Per-IP buckets are swept until ctx is done.
func createRateLimiters(ctx context.Context, cfg Config, log zerowrap.Logger) (global, perIP out.RateLimiter) {
	rl := cfg.Server.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	ipStore := ratelimit.NewMemoryStore(rl.PerIPRPS, rl.Burst, log)
	ipStore.StartSweeper(ctx, time.Minute, rateLimitIdle)
	return ratelimit.NewMemoryStore(rl.GlobalRPS, rl.Burst, log), ipStore
}

// close releases resources in reverse creation order.
func (svc *services) close(log zerowrap.Logger) {
	if svc.localProc != nil {
		if err := svc.localProc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to stop local processes")
		}
	}
	if svc.logWriter != nil {
		if err := svc.logWriter.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close site log writer")
		}
	}
	if svc.execLog != nil {
		if err := svc.execLog.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close execution log")
		}
	}
	if svc.repos.close != nil {
		if err := svc.repos.close(); err != nil {
			log.Warn().Err(err).Msg("failed to close storage")
		}
	}
}

