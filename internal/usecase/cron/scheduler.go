// Package cron implements the cron scheduler use case.
package cron

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	robfig "github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/boundaries/in"
	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	DefaultTickInterval   = time.Second
	DefaultCommandTimeout = 5 * time.Minute
)

var parser = robfig.NewParser(robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor)

// Config holds configuration needed by the scheduler.
type Config struct {
	TickInterval   time.Duration
	CommandTimeout time.Duration
	Overlap        domain.OverlapPolicy
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.Overlap == "" {
		c.Overlap = domain.OverlapAllow
	}
	return c
}

// Scheduler fires cron jobs and records one Execution per firing.
type Scheduler struct {
	jobs       out.CronJobRepository
	executions out.ExecutionRepository
	webhooks   out.WebhookRepository
	runner     out.ProcessRunner
	dispatcher out.WebhookDispatcher
	sites      in.SiteService
	execLog    out.ExecutionLog
	events     out.EventPublisher
	metrics    out.MetricsRecorder
	config     Config

	// mu guards entries and is never held across repository calls.
	// writeMu serializes job writes so entries and storage agree.
	entries map[string]*entry
	mu      sync.Mutex
	writeMu sync.Mutex
	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped chan struct{}
	started atomic.Bool
	nowFn   func() time.Time
	newID   func() string
}

type entry struct {
	job      *domain.CronJob
	schedule robfig.Schedule
	nextRun  time.Time
	running  atomic.Int32
}

// NewScheduler creates a scheduler. sites, events and the webhook collaborators may be nil
// when the matching targets are not used.
func NewScheduler(
	jobs out.CronJobRepository,
	executions out.ExecutionRepository,
	webhooks out.WebhookRepository,
	runner out.ProcessRunner,
	dispatcher out.WebhookDispatcher,
	sites in.SiteService,
	execLog out.ExecutionLog,
	events out.EventPublisher,
	config Config,
) *Scheduler {
	return &Scheduler{
		jobs:       jobs,
		executions: executions,
		webhooks:   webhooks,
		runner:     runner,
		dispatcher: dispatcher,
		sites:      sites,
		execLog:    execLog,
		events:     events,
		config:     config.withDefaults(),
		entries:    make(map[string]*entry),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
		nowFn:      time.Now,
		newID:      uuid.NewString,
	}
}

// SetMetrics attaches a recorder for firing outcomes.
func (s *Scheduler) SetMetrics(metrics out.MetricsRecorder) {
	s.metrics = metrics
}

// ParseSchedule parses a 5-field expression or an @descriptor.
func ParseSchedule(expr string) (robfig.Schedule, error) {
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, domain.Errorf(domain.KindInvalidSchedule, "parse schedule", "invalid cron expression %q: %v", expr, err)
	}
	return sched, nil
}

// NextRuns returns the next n occurrences of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []time.Time{}, nil
	}
	runs := make([]time.Time, 0, n)
	next := from
	for range n {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}

// Preview returns the next n occurrences of expr from the scheduler clock.
func (s *Scheduler) Preview(expr string, n int) ([]time.Time, error) {
	return NextRuns(expr, s.nowFn(), n)
}

// Load reads persisted jobs and computes their next run from now.
// Occurrences missed while the process was down are not replayed.
func (s *Scheduler) Load(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "LoadCronJobs",
	})
	log := zerowrap.FromCtx(ctx)

	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return log.WrapErr(err, "failed to list cron jobs")
	}

	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range jobs {
		sched, err := ParseSchedule(job.Schedule)
		if err != nil {
			log.Warn().Err(err).Str(zerowrap.FieldEntityID, job.ID).Msg("skipping cron job with invalid schedule")
			continue
		}
		e := &entry{job: job, schedule: sched}
		if job.Enabled {
			e.nextRun = sched.Next(now)
		}
		s.entries[job.ID] = e
	}

	log.Info().Int(zerowrap.FieldCount, len(s.entries)).Msg("cron jobs loaded")
	return nil
}

// Start loads the jobs and begins the dispatch loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.started.Load() {
		return nil
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	log := zerowrap.FromCtx(ctx)
	log.Info().Dur("interval", s.config.TickInterval).Str("overlap", string(s.config.Overlap)).Msg("cron scheduler started")

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(ctx, s.nowFn())
			}
		}
	}()
	return nil
}

// Stop ends the dispatch loop and waits for in-flight firings.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.started.Load() {
		<-s.stopped
	}
	s.wg.Wait()
}

// Wait blocks until every launched firing has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

type firing struct {
	entry       *entry
	job         *domain.CronJob
	scheduledAt time.Time
}

// Tick launches every enabled job due at now. Each job's next run is moved
// past now before the job starts, so a slow job is never fired twice for the
// same occurrence. It returns the number of launched firings.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []firing
	for _, e := range s.entries {
		if !e.job.Enabled || e.nextRun.IsZero() || now.Before(e.nextRun) {
			continue
		}
		due = append(due, firing{entry: e, job: e.job.Clone(), scheduledAt: e.nextRun})
		e.nextRun = e.schedule.Next(now)
	}
	s.mu.Unlock()

	slices.SortFunc(due, func(a, b firing) int { return a.scheduledAt.Compare(b.scheduledAt) })

	for _, f := range due {
		s.wg.Add(1)
		go func(f firing) {
			defer s.wg.Done()
			_, _ = s.fire(context.WithoutCancel(ctx), f.entry, f.job, domain.TriggerSchedule)
		}(f)
	}
	return len(due)
}

// Schedule parses the expression, stores the job and computes its next run.
func (s *Scheduler) Schedule(ctx context.Context, spec domain.CronJobSpec) (*domain.CronJob, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "ScheduleCronJob",
		"job":                 spec.Name,
	})
	log := zerowrap.FromCtx(ctx)

	sched, err := s.validate(ctx, spec)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	job := &domain.CronJob{
		ID:        s.newID(),
		Name:      strings.TrimSpace(spec.Name),
		Schedule:  strings.TrimSpace(spec.Schedule),
		Command:   spec.Command,
		Target:    normalizeTarget(spec.Target),
		Enabled:   spec.IsEnabled(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, log.WrapErr(err, "failed to save cron job")
	}
	e := &entry{job: job, schedule: sched}
	if job.Enabled {
		e.nextRun = sched.Next(now)
	}

	s.mu.Lock()
	s.entries[job.ID] = e
	snapshot := e.snapshot()
	s.mu.Unlock()

	log.Info().Str(zerowrap.FieldEntityID, job.ID).Time("next_run", snapshot.NextRun).Msg("cron job scheduled")
	return snapshot, nil
}

// Update replaces the job definition and recomputes its next run.
func (s *Scheduler) Update(ctx context.Context, id string, spec domain.CronJobSpec) (*domain.CronJob, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "UpdateCronJob",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	sched, err := s.validate(ctx, spec)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	job, err := s.save(ctx, id, func(job *domain.CronJob) {
		job.Name = strings.TrimSpace(spec.Name)
		job.Schedule = strings.TrimSpace(spec.Schedule)
		job.Command = spec.Command
		job.Target = normalizeTarget(spec.Target)
		if spec.Enabled != nil {
			job.Enabled = *spec.Enabled
		}
		job.UpdatedAt = now
	}, func(e *entry) {
		e.schedule = sched
		e.nextRun = time.Time{}
		if e.job.Enabled {
			e.nextRun = sched.Next(now)
		}
	})
	if err != nil {
		return nil, wrapSaveErr(ctx, err)
	}

	log.Info().Time("next_run", job.NextRun).Msg("cron job updated")
	return job, nil
}

// Get retrieves a job with its next run.
func (s *Scheduler) Get(_ context.Context, id string) (*domain.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

// List returns all jobs with their next run, oldest first.
func (s *Scheduler) List(_ context.Context) ([]*domain.CronJob, error) {
	s.mu.Lock()
	jobs := lo.MapToSlice(s.entries, func(_ string, e *entry) *domain.CronJob { return e.snapshot() })
	s.mu.Unlock()

	slices.SortFunc(jobs, func(a, b *domain.CronJob) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return jobs, nil
}

// Toggle enables or disables future firings. In-flight runs are not cancelled.
func (s *Scheduler) Toggle(ctx context.Context, id string, enabled bool) (*domain.CronJob, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "ToggleCronJob",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	now := s.nowFn()
	job, err := s.save(ctx, id, func(job *domain.CronJob) {
		job.Enabled = enabled
		job.UpdatedAt = now
	}, func(e *entry) {
		e.nextRun = time.Time{}
		if enabled {
			e.nextRun = e.schedule.Next(now)
		}
	})
	if err != nil {
		return nil, wrapSaveErr(ctx, err)
	}

	log.Info().Bool("enabled", enabled).Msg("cron job toggled")
	return job, nil
}

// TriggerNow runs the job immediately and returns the finished Execution.
// The job's next run is left unchanged.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Execution, error) {
	s.mu.Lock()
	e, err := s.entry(id)
	var job *domain.CronJob
	if err == nil {
		job = e.job.Clone()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	defer s.wg.Done()
	return s.fire(context.WithoutCancel(ctx), e, job, domain.TriggerManual)
}

// Delete disables then removes the job. Runs already in flight finish normally.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "DeleteCronJob",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	_, err := s.entry(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.jobs.Delete(ctx, id); err != nil {
		return log.WrapErr(err, "failed to delete cron job")
	}

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		job := e.job.Clone()
		job.Enabled = false
		e.job = job
		e.nextRun = time.Time{}
		delete(s.entries, id)
	}
	s.mu.Unlock()

	log.Info().Msg("cron job deleted")
	return nil
}

// Executions lists the recorded firings of a job, newest first.
func (s *Scheduler) Executions(ctx context.Context, id string) ([]*domain.Execution, error) {
	s.mu.Lock()
	_, err := s.entry(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.executions.ListByParent(ctx, domain.CronParent(id))
}

// save persists a modified copy of the job, then swaps it into the entry and
// lets apply adjust the schedule state. It returns the updated snapshot.
func (s *Scheduler) save(ctx context.Context, id string, change func(*domain.CronJob), apply func(*entry)) (*domain.CronJob, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	e, err := s.entry(id)
	var job *domain.CronJob
	if err == nil {
		job = e.job.Clone()
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	change(job)
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, &saveError{err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.job = job
	if apply != nil {
		apply(e)
	}
	return e.snapshot(), nil
}

type saveError struct{ err error }

func (e *saveError) Error() string { return e.err.Error() }
func (e *saveError) Unwrap() error { return e.err }

// wrapSaveErr logs repository failures and passes lookup errors through.
func wrapSaveErr(ctx context.Context, err error) error {
	var se *saveError
	if errors.As(err, &se) {
		return zerowrap.FromCtx(ctx).WrapErr(se.err, "failed to save cron job")
	}
	return err
}

// entry must be called with s.mu held.
func (s *Scheduler) entry(id string) (*entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "get cron job", "cron job %q not found", id)
	}
	return e, nil
}

func (e *entry) snapshot() *domain.CronJob {
	job := e.job.Clone()
	job.NextRun = e.nextRun
	return job
}

// validate checks the spec, its target references and parses the schedule.
func (s *Scheduler) validate(ctx context.Context, spec domain.CronJobSpec) (robfig.Schedule, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sched, err := ParseSchedule(spec.Schedule)
	if err != nil {
		return nil, err
	}

	target := normalizeTarget(spec.Target)
	var field, msg string
	switch target.Kind {
	case domain.TargetWebhook:
		if s.webhooks == nil || s.dispatcher == nil {
			field, msg = "target", "webhook targets are not enabled"
		} else if _, err := s.webhooks.Get(ctx, target.WebhookID); domain.IsKind(err, domain.KindNotFound) {
			field, msg = "webhookId", "webhook "+target.WebhookID+" does not exist"
		} else if err != nil {
			return nil, err
		}
	case domain.TargetSite:
		if s.sites == nil {
			field, msg = "target", "site targets are not enabled"
		} else if _, err := s.sites.Get(ctx, target.SiteID); domain.IsKind(err, domain.KindNotFound) {
			field, msg = "siteId", "site "+target.SiteID+" does not exist"
		} else if err != nil {
			return nil, err
		}
	}
	if field != "" {
		return nil, &domain.Error{
			Kind:   domain.KindValidation,
			Op:     "validate cron job",
			Fields: []domain.FieldError{{Field: field, Message: msg}},
		}
	}
	return sched, nil
}

func normalizeTarget(t domain.CronTarget) domain.CronTarget {
	if t.Kind == "" {
		t.Kind = domain.TargetCommand
	}
	return t
}
