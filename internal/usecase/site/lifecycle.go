package site

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	outcomeSuccess  = "success"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"

	maxStderrMetadata = 4096
)

// operation carries the state of one accepted lifecycle operation.
type operation struct {
	action  domain.SiteAction
	site    *domain.Site
	exec    *domain.Execution
	result  *domain.ProcessResult
	deleted bool
}

// record keeps the last process result and appends its output to the execution.
func (op *operation) record(res *domain.ProcessResult) {
	if res == nil {
		return
	}
	op.result = res
	op.exec.ExitCode = res.ExitCode
	op.exec.AppendOutput(res.Combined())
}

type step func(ctx context.Context, op *operation) error

// Build runs the build command then starts the site.
func (s *Service) Build(ctx context.Context, id string) (*domain.Site, error) {
	return s.run(ctx, id, domain.ActionBuild, domain.TriggerBuild, s.build)
}

// Rebuild stops a running site, if needed, then builds it again.
func (s *Service) Rebuild(ctx context.Context, id string) (*domain.Site, error) {
	return s.run(ctx, id, domain.ActionRebuild, domain.TriggerRebuild, func(ctx context.Context, op *operation) error {
		if op.site.Handle != "" {
			if err := s.stopUnit(ctx, op); err != nil {
				return err
			}
		}
		return s.build(ctx, op)
	})
}

// Start starts a stopped site.
func (s *Service) Start(ctx context.Context, id string) (*domain.Site, error) {
	return s.run(ctx, id, domain.ActionStart, domain.TriggerStart, func(ctx context.Context, op *operation) error {
		dir, err := s.existingWorkspace(op.site)
		if err != nil {
			return err
		}
		env, err := s.environment(ctx, op.site, dir)
		if err != nil {
			return err
		}
		return s.startUnit(ctx, op, dir, env)
	})
}

// Stop stops a running site.
func (s *Service) Stop(ctx context.Context, id string) (*domain.Site, error) {
	return s.run(ctx, id, domain.ActionStop, domain.TriggerStop, s.stopUnit)
}

// Restart stops then starts a site under a single lock hold.
// From error the stop is only attempted when a unit handle is still known.
func (s *Service) Restart(ctx context.Context, id string) (*domain.Site, error) {
	return s.run(ctx, id, domain.ActionRestart, domain.TriggerRestart, func(ctx context.Context, op *operation) error {
		if op.site.Status == domain.SiteStatusRunning || op.site.Handle != "" {
			if err := s.stopUnit(ctx, op); err != nil {
				return err
			}
		}
		dir, err := s.existingWorkspace(op.site)
		if err != nil {
			return err
		}
		env, err := s.environment(ctx, op.site, dir)
		if err != nil {
			return err
		}
		return s.startUnit(ctx, op, dir, env)
	})
}

// Delete tears down a stopped or failed site and removes it.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.run(ctx, id, domain.ActionDelete, domain.TriggerDelete, s.remove)
	return err
}

// run executes one lifecycle operation: it takes the per-site lock, checks the
// transition, records an Execution and settles the site on success or error.
func (s *Service) run(ctx context.Context, id string, action domain.SiteAction, trigger domain.ExecutionTrigger, fn step) (*domain.Site, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "SiteLifecycle",
		zerowrap.FieldAction:   string(action),
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)
	started := s.now()

	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	release, ok := s.locks.TryAcquire(id)
	if !ok {
		err := domain.Errorf(domain.KindConcurrentOperation, string(action), "site %s has an operation in progress", site.Name)
		s.reject(ctx, site, trigger, err)
		s.observe(action, outcomeRejected, s.now().Sub(started))
		return nil, err
	}
	defer release()

	// Accepted operations run to completion; only their own timeouts bound them.
	ctx = context.WithoutCancel(ctx)

	site, err = s.sites.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !site.Status.Allows(action) {
		err := invalidTransition(action, site)
		s.reject(ctx, site, trigger, err)
		s.observe(action, outcomeRejected, s.now().Sub(started))
		return nil, err
	}

	op := &operation{
		action: action,
		site:   site,
		exec:   domain.NewExecution(s.newID(), domain.SiteParent(id), trigger, started),
	}
	if err := s.executions.Save(ctx, op.exec); err != nil {
		return nil, log.WrapErr(err, "failed to save execution")
	}

	log.Info().Str("site", site.Name).Str(zerowrap.FieldStatus, string(site.Status)).Msg("site operation started")

	if opErr := fn(ctx, op); opErr != nil {
		s.fail(ctx, op, opErr)
		s.observe(action, outcomeFailed, s.now().Sub(started))
		return nil, opErr
	}

	s.succeed(ctx, op)
	s.observe(action, outcomeSuccess, s.now().Sub(started))
	if op.deleted {
		return nil, nil
	}
	return op.site.Clone(), nil
}

// reject records an operation that was refused before touching the site.
func (s *Service) reject(ctx context.Context, site *domain.Site, trigger domain.ExecutionTrigger, err error) {
	log := zerowrap.FromCtx(ctx)
	now := s.now()

	exec := domain.NewExecution(s.newID(), domain.SiteParent(site.ID), trigger, now)
	exec.Fail(now, err)
	if saveErr := s.executions.Save(ctx, exec); saveErr != nil {
		log.WrapErr(saveErr, "failed to save rejected execution")
	}

	log.Warn().Err(err).Str("site", site.Name).Msg("site operation rejected")
	s.appendLog(ctx, domain.LogEntry{
		Level:       domain.LogWarning,
		SubjectID:   site.ID,
		ExecutionID: exec.ID,
		Action:      string(trigger),
		Kind:        domain.KindOf(err),
		Message:     err.Error(),
	})
}

func (s *Service) succeed(ctx context.Context, op *operation) {
	log := zerowrap.FromCtx(ctx)
	now := s.now()

	op.exec.Succeed(now)
	if err := s.executions.Save(ctx, op.exec); err != nil {
		log.WrapErr(err, "failed to save execution")
	}

	if !op.deleted && op.site.LastError != "" {
		op.site.LastError = ""
		op.site.UpdatedAt = now
		if err := s.sites.Save(ctx, op.site); err != nil {
			log.WrapErr(err, "failed to clear last error")
		}
	}

	log.Info().Str("site", op.site.Name).
		Str(zerowrap.FieldStatus, string(op.site.Status)).
		Dur(zerowrap.FieldDuration, op.exec.Duration()).
		Msg("site operation succeeded")
	s.appendLog(ctx, domain.LogEntry{
		Level:       domain.LogInfo,
		SubjectID:   op.site.ID,
		ExecutionID: op.exec.ID,
		Action:      string(op.action),
		Message:     "site " + op.site.Name + " " + string(op.action) + " succeeded",
		Duration:    op.exec.Duration(),
	})
}

// fail moves the site to error and records the failure with its kind.
func (s *Service) fail(ctx context.Context, op *operation, opErr error) {
	log := zerowrap.FromCtx(ctx)
	now := s.now()
	previous := op.site.Status

	op.site.Status = domain.SiteStatusError
	op.site.LastError = opErr.Error()
	op.site.UpdatedAt = now
	if err := s.sites.Save(ctx, op.site); err != nil {
		log.WrapErr(err, "failed to save failed site")
	}

	op.exec.Fail(now, opErr)
	if err := s.executions.Save(ctx, op.exec); err != nil {
		log.WrapErr(err, "failed to save execution")
	}

	kind := op.exec.FailureKind
	metadata := map[string]string{"previous_status": string(previous)}
	if op.result != nil {
		metadata["exit_code"] = strconv.Itoa(op.result.ExitCode)
		metadata["timed_out"] = strconv.FormatBool(op.result.TimedOut)
		if stderr := strings.TrimSpace(op.result.Stderr); stderr != "" {
			metadata["stderr"] = domain.TruncateOutput(stderr, maxStderrMetadata)
		}
	}

	log.Error().Err(opErr).Str("site", op.site.Name).Str("kind", string(kind)).Msg("site operation failed")
	s.appendLog(ctx, domain.LogEntry{
		Level:       domain.LogError,
		SubjectID:   op.site.ID,
		ExecutionID: op.exec.ID,
		Action:      string(op.action),
		Kind:        kind,
		Message:     opErr.Error(),
		Metadata:    metadata,
		Duration:    op.exec.Duration(),
	})

	payload := domain.SiteEventPayload{
		SiteID:   op.site.ID,
		Name:     op.site.Name,
		Action:   op.action,
		Previous: previous,
		Status:   domain.SiteStatusError,
		Kind:     kind,
		Error:    opErr.Error(),
	}
	s.publish(ctx, domain.EventSiteStatusChanged, payload)
	s.publish(ctx, domain.EventSiteFailed, payload)
}

// transition persists a new status and announces it.
func (s *Service) transition(ctx context.Context, op *operation, status domain.SiteStatus) error {
	previous := op.site.Status
	op.site.Status = status
	op.site.UpdatedAt = s.now()
	if err := s.sites.Save(ctx, op.site); err != nil {
		return zerowrap.FromCtx(ctx).WrapErr(err, "failed to save site status")
	}
	zerowrap.FromCtx(ctx).Debug().
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("site status changed")
	s.publish(ctx, domain.EventSiteStatusChanged, domain.SiteEventPayload{
		SiteID:   op.site.ID,
		Name:     op.site.Name,
		Action:   op.action,
		Previous: previous,
		Status:   status,
	})
	return nil
}

func (s *Service) build(ctx context.Context, op *operation) error {
	if err := s.transition(ctx, op, domain.SiteStatusBuilding); err != nil {
		return err
	}
	dir, err := s.prepareWorkspace(ctx, op)
	if err != nil {
		return err
	}
	env, err := s.environment(ctx, op.site, dir)
	if err != nil {
		return err
	}
	if err := s.runBuild(ctx, op, dir, env); err != nil {
		return err
	}
	return s.startUnit(ctx, op, dir, env)
}

func (s *Service) runBuild(ctx context.Context, op *operation, dir string, env []string) error {
	command := strings.TrimSpace(op.site.BuildCommand)
	if command == "" {
		op.exec.AppendOutput("no build command, build skipped")
		return nil
	}

	res, err := s.runner.Run(ctx, domain.Command{
		Line:    command,
		Dir:     dir,
		Env:     env,
		Timeout: s.config.BuildTimeout,
	})
	op.record(res)
	if err != nil {
		return domain.WrapError(domain.KindExecutionFailure, "build", err)
	}
	return nil
}

func (s *Service) startUnit(ctx context.Context, op *operation, dir string, env []string) error {
	if err := s.transition(ctx, op, domain.SiteStatusStarting); err != nil {
		return err
	}
	driver, err := s.driver(op.site)
	if err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, s.config.StartTimeout)
	defer cancel()

	handle, err := driver.Start(startCtx, s.runtimeSpec(op.site, dir, env))
	if err != nil {
		return boundedError(startCtx, "start", s.config.StartTimeout, err)
	}

	op.site.Handle = handle
	op.exec.AppendOutput("unit started: " + handle)
	return s.transition(ctx, op, domain.SiteStatusRunning)
}

func (s *Service) stopUnit(ctx context.Context, op *operation) error {
	if err := s.transition(ctx, op, domain.SiteStatusStopping); err != nil {
		return err
	}
	if op.site.Handle != "" {
		driver, err := s.driver(op.site)
		if err != nil {
			return err
		}
		stopCtx, cancel := context.WithTimeout(ctx, s.config.StopTimeout)
		defer cancel()
		if err := driver.Stop(stopCtx, op.site.Handle); err != nil {
			return boundedError(stopCtx, "stop", s.config.StopTimeout, err)
		}
		op.exec.AppendOutput("unit stopped: " + op.site.Handle)
	}
	op.site.Handle = ""
	return s.transition(ctx, op, domain.SiteStatusStopped)
}

func (s *Service) remove(ctx context.Context, op *operation) error {
	log := zerowrap.FromCtx(ctx)
	driver, err := s.driver(op.site)
	if err != nil {
		return err
	}

	spec := s.runtimeSpec(op.site, s.workspaceDir(op.site), nil)
	stopCtx, cancel := context.WithTimeout(ctx, s.config.StopTimeout)
	defer cancel()
	if err := driver.Remove(stopCtx, op.site.Handle, spec); err != nil {
		return boundedError(stopCtx, "delete", s.config.StopTimeout, err)
	}

	if op.site.Source.IsRemote() {
		if err := s.removeWorkspace(op.site); err != nil {
			log.Warn().Err(err).Msg("failed to remove site workspace")
		}
	}

	if err := s.sites.Delete(ctx, op.site.ID); err != nil {
		return log.WrapErr(err, "failed to delete site")
	}
	op.deleted = true

	s.publish(ctx, domain.EventSiteDeleted, domain.SiteEventPayload{
		SiteID:   op.site.ID,
		Name:     op.site.Name,
		Action:   domain.ActionDelete,
		Previous: op.site.Status,
	})
	return nil
}

// defaultImage returns the framework image, pulled through prefix when one
// is set (e.g. "registry.local/mirror" gives "registry.local/mirror/node:20-alpine").
func defaultImage(prefix, framework string) string {
	image := domain.DefaultImage(framework)
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return image
	}
	return prefix + "/" + image
}

func (s *Service) runtimeSpec(site *domain.Site, dir string, env []string) domain.RuntimeSpec {
	image := site.Image
	if image == "" {
		image = defaultImage(s.config.ImagePrefix, site.Framework)
	}
	return domain.RuntimeSpec{
		SiteID:  site.ID,
		Name:    site.Name,
		Workdir: dir,
		Command: site.StartCommand,
		Env:     env,
		Port:    site.Port,
		Image:   image,
	}
}

// boundedError turns a driver failure into a typed error, reporting Timeout
// when the bounded context expired.
func boundedError(ctx context.Context, op string, limit time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !domain.IsKind(err, domain.KindTimeout) {
		return domain.Errorf(domain.KindTimeout, op, "runtime did not answer within %s: %v", limit, err)
	}
	return domain.WrapError(domain.KindExecutionFailure, op, err)
}
