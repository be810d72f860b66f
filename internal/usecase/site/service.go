// Package site implements the site lifecycle orchestrator.
package site

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	DefaultBuildTimeout = 10 * time.Minute
	DefaultStartTimeout = time.Minute
	DefaultStopTimeout  = 30 * time.Second
	DefaultGitTimeout   = 5 * time.Minute
)

// Config holds configuration needed by the site service.
type Config struct {
	WorkspaceDir   string // clone root of remote sites
	BuildTimeout   time.Duration
	StartTimeout   time.Duration
	StopTimeout    time.Duration
	GitTimeout     time.Duration
	AutoBuild      bool
	DefaultRuntime domain.SiteRuntime
	ImagePrefix    string // registry or mirror namespace for default images
}

func (c Config) withDefaults() Config {
	if c.BuildTimeout <= 0 {
		c.BuildTimeout = DefaultBuildTimeout
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.GitTimeout <= 0 {
		c.GitTimeout = DefaultGitTimeout
	}
	if c.DefaultRuntime == "" {
		c.DefaultRuntime = domain.RuntimeProcess
	}
	return c
}

// Service implements the SiteService interface.
type Service struct {
	sites      out.SiteRepository
	executions out.ExecutionRepository
	runner     out.ProcessRunner
	drivers    map[domain.SiteRuntime]out.ContainerDriver
	envLoader  out.EnvLoader
	execLog    out.ExecutionLog
	events     out.EventPublisher
	metrics    out.MetricsRecorder
	config     Config
	locks      *keyedLock
	createMu   sync.Mutex
	wg         sync.WaitGroup
	now        func() time.Time
	newID      func() string
}

// NewService creates a new site service. envLoader and events may be nil.
func NewService(
	sites out.SiteRepository,
	executions out.ExecutionRepository,
	runner out.ProcessRunner,
	drivers map[domain.SiteRuntime]out.ContainerDriver,
	envLoader out.EnvLoader,
	execLog out.ExecutionLog,
	events out.EventPublisher,
	config Config,
) *Service {
	return &Service{
		sites:      sites,
		executions: executions,
		runner:     runner,
		drivers:    drivers,
		envLoader:  envLoader,
		execLog:    execLog,
		events:     events,
		config:     config.withDefaults(),
		locks:      newKeyedLock(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetMetrics attaches a recorder for operation outcomes.
func (s *Service) SetMetrics(metrics out.MetricsRecorder) {
	s.metrics = metrics
}

// Wait blocks until background builds started by Create have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Create validates the spec and stores a pending site.
func (s *Service) Create(ctx context.Context, spec domain.SiteSpec) (*domain.Site, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "CreateSite",
		"site":                spec.Name,
	})
	log := zerowrap.FromCtx(ctx)

	spec = s.normalize(spec)
	if err := s.validate(spec); err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if err := s.ensureUniqueName(ctx, spec.Name, ""); err != nil {
		return nil, err
	}

	site := domain.NewSite(s.newID(), spec, s.now())
	if err := s.sites.Save(ctx, site); err != nil {
		return nil, log.WrapErr(err, "failed to save site")
	}

	log.Info().Str(zerowrap.FieldEntityID, site.ID).Msg("site created")
	s.appendLog(ctx, domain.LogEntry{
		Level:     domain.LogInfo,
		SubjectID: site.ID,
		Action:    "create",
		Message:   "site " + site.Name + " created",
	})
	s.publish(ctx, domain.EventSiteCreated, domain.SiteEventPayload{
		SiteID: site.ID,
		Name:   site.Name,
		Status: site.Status,
	})

	if s.config.AutoBuild {
		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			if _, err := s.Build(context.WithoutCancel(ctx), id); err != nil {
				log.Warn().Err(err).Str(zerowrap.FieldEntityID, id).Msg("automatic build failed")
			}
		}(site.ID)
	}

	return site.Clone(), nil
}

// Update replaces the definition of a site that is not running.
func (s *Service) Update(ctx context.Context, id string, spec domain.SiteSpec) (*domain.Site, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "UpdateSite",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	spec = s.normalize(spec)
	if err := s.validate(spec); err != nil {
		return nil, err
	}

	release, ok := s.locks.TryAcquire(id)
	if !ok {
		return nil, domain.Errorf(domain.KindConcurrentOperation, string(domain.ActionUpdate), "site %s has an operation in progress", id)
	}
	defer release()

	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !site.Status.Allows(domain.ActionUpdate) {
		return nil, invalidTransition(domain.ActionUpdate, site)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if err := s.ensureUniqueName(ctx, spec.Name, id); err != nil {
		return nil, err
	}

	site.Apply(spec)
	site.UpdatedAt = s.now()
	if err := s.sites.Save(ctx, site); err != nil {
		return nil, log.WrapErr(err, "failed to save site")
	}

	log.Info().Msg("site updated")
	s.appendLog(ctx, domain.LogEntry{
		Level:     domain.LogInfo,
		SubjectID: site.ID,
		Action:    string(domain.ActionUpdate),
		Message:   "site " + site.Name + " updated",
	})
	return site.Clone(), nil
}

// Get retrieves a site by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Site, error) {
	return s.sites.Get(ctx, id)
}

// List returns all sites.
func (s *Service) List(ctx context.Context) ([]*domain.Site, error) {
	return s.sites.List(ctx)
}

// Usage samples the resources of a running site.
func (s *Service) Usage(ctx context.Context, id string) (domain.ResourceUsage, error) {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	if site.Status != domain.SiteStatusRunning || site.Handle == "" {
		return domain.ResourceUsage{}, domain.Errorf(domain.KindInvalidTransition, "usage", "site %s is %s, not running", site.Name, site.Status)
	}
	driver, err := s.driver(site)
	if err != nil {
		return domain.ResourceUsage{}, err
	}
	return driver.Usage(ctx, site.Handle)
}

// Executions lists the recorded operations of a site, newest first.
func (s *Service) Executions(ctx context.Context, id string) ([]*domain.Execution, error) {
	if _, err := s.sites.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.executions.ListByParent(ctx, domain.SiteParent(id))
}

func (s *Service) normalize(spec domain.SiteSpec) domain.SiteSpec {
	spec = spec.Normalize()
	if spec.Runtime == "" {
		spec.Runtime = s.config.DefaultRuntime
	}
	return spec
}

func (s *Service) validate(spec domain.SiteSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, ok := s.drivers[spec.Runtime]; !ok {
		return &domain.Error{
			Kind:   domain.KindValidation,
			Op:     "validate site",
			Fields: []domain.FieldError{{Field: "runtime", Message: "runtime " + string(spec.Runtime) + " is not enabled"}},
		}
	}
	return nil
}

func (s *Service) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.sites.GetByName(ctx, name)
	switch {
	case domain.IsKind(err, domain.KindNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	}
	return &domain.Error{
		Kind:   domain.KindValidation,
		Op:     "validate site",
		Fields: []domain.FieldError{{Field: "name", Message: "site " + strings.ToLower(name) + " already exists"}},
	}
}

func (s *Service) driver(site *domain.Site) (out.ContainerDriver, error) {
	runtime := site.Runtime
	if runtime == "" {
		runtime = s.config.DefaultRuntime
	}
	driver, ok := s.drivers[runtime]
	if !ok {
		return nil, domain.Errorf(domain.KindValidation, "driver", "runtime %s is not enabled", runtime)
	}
	return driver, nil
}

func (s *Service) publish(ctx context.Context, eventType domain.EventType, payload domain.SiteEventPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		zerowrap.FromCtx(ctx).Warn().Err(err).Str(zerowrap.FieldEvent, string(eventType)).Msg("failed to publish site event")
	}
}

func (s *Service) appendLog(ctx context.Context, entry domain.LogEntry) {
	if s.execLog == nil {
		return
	}
	entry.Source = domain.LogSourceSite
	if err := s.execLog.Append(ctx, entry); err != nil {
		zerowrap.FromCtx(ctx).Warn().Err(err).Msg("failed to append execution log entry")
	}
}

func (s *Service) observe(action domain.SiteAction, outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSiteOperation(action, outcome, d)
	}
}

func invalidTransition(action domain.SiteAction, site *domain.Site) error {
	return domain.Errorf(domain.KindInvalidTransition, string(action),
		"cannot %s site %s from status %s", action, site.Name, site.Status)
}
