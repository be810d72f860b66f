package cron

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/domain"
)

// fire runs one firing of job and records its Execution, running to success or failed.
func (s *Scheduler) fire(ctx context.Context, e *entry, job *domain.CronJob, trigger domain.ExecutionTrigger) (*domain.Execution, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "FireCronJob",
		zerowrap.FieldAction:   string(trigger),
		zerowrap.FieldEntityID: job.ID,
	})
	log := zerowrap.FromCtx(ctx)
	started := s.nowFn()

	exec := domain.NewExecution(s.newID(), domain.CronParent(job.ID), trigger, started)

	if s.config.Overlap == domain.OverlapSkip {
		if !e.running.CompareAndSwap(0, 1) {
			err := domain.Errorf(domain.KindConcurrentOperation, "fire", "previous run of %s is still in progress", job.Name)
			exec.Fail(started, err)
			if saveErr := s.executions.Save(ctx, exec); saveErr != nil {
				log.WrapErr(saveErr, "failed to save skipped execution")
			}
			s.finish(ctx, job, exec, err)
			return exec, err
		}
	} else {
		e.running.Add(1)
	}
	defer e.running.Add(-1)

	if err := s.executions.Save(ctx, exec); err != nil {
		return nil, log.WrapErr(err, "failed to save execution")
	}

	s.markLastRun(ctx, job.ID, started)

	err := s.dispatch(ctx, job, exec)
	if err != nil {
		exec.Fail(s.nowFn(), err)
	} else {
		exec.Succeed(s.nowFn())
	}
	if saveErr := s.executions.Save(ctx, exec); saveErr != nil {
		log.WrapErr(saveErr, "failed to save execution")
	}

	s.finish(ctx, job, exec, err)
	return exec.Clone(), err
}

// dispatch executes the job target. Panics are turned into failures.
func (s *Scheduler) dispatch(ctx context.Context, job *domain.CronJob, exec *domain.Execution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Errorf(domain.KindExecutionFailure, "fire", "job panicked: %v", r)
		}
	}()

	switch job.Target.Kind {
	case domain.TargetWebhook:
		return s.dispatchWebhook(ctx, job, exec)
	case domain.TargetSite:
		return s.dispatchSite(ctx, job, exec)
	default:
		return s.dispatchCommand(ctx, job, exec)
	}
}

func (s *Scheduler) dispatchCommand(ctx context.Context, job *domain.CronJob, exec *domain.Execution) error {
	res, err := s.runner.Run(ctx, domain.Command{
		Line:    job.Command,
		Timeout: s.config.CommandTimeout,
	})
	if res != nil {
		exec.ExitCode = res.ExitCode
		exec.AppendOutput(res.Combined())
	}
	return err
}

func (s *Scheduler) dispatchWebhook(ctx context.Context, job *domain.CronJob, exec *domain.Execution) error {
	hook, err := s.webhooks.Get(ctx, job.Target.WebhookID)
	if err != nil {
		return err
	}
	if !hook.IsActive {
		return domain.Errorf(domain.KindValidation, "webhook", "webhook %s is inactive", hook.Name)
	}

	resp, err := s.dispatcher.Dispatch(ctx, hook)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveWebhook(resp.StatusCode)
	}

	exec.AppendOutput(fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	exec.AppendOutput(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Errorf(domain.KindExecutionFailure, "webhook", "%s %s returned HTTP %d", hook.Method, hook.URL, resp.StatusCode)
	}
	return nil
}

func (s *Scheduler) dispatchSite(ctx context.Context, job *domain.CronJob, exec *domain.Execution) error {
	var (
		site *domain.Site
		err  error
	)
	switch job.Target.SiteAction {
	case domain.ActionBuild:
		site, err = s.sites.Build(ctx, job.Target.SiteID)
	case domain.ActionRebuild:
		site, err = s.sites.Rebuild(ctx, job.Target.SiteID)
	case domain.ActionStart:
		site, err = s.sites.Start(ctx, job.Target.SiteID)
	case domain.ActionStop:
		site, err = s.sites.Stop(ctx, job.Target.SiteID)
	case domain.ActionRestart:
		site, err = s.sites.Restart(ctx, job.Target.SiteID)
	default:
		return domain.Errorf(domain.KindValidation, "site", "unsupported site action %q", job.Target.SiteAction)
	}
	if err != nil {
		return err
	}
	exec.AppendOutput(fmt.Sprintf("site %s %s: %s", site.Name, job.Target.SiteAction, site.Status))
	return nil
}

// markLastRun stores the start of the latest firing on the job.
func (s *Scheduler) markLastRun(ctx context.Context, id string, at time.Time) {
	_, err := s.save(ctx, id, func(job *domain.CronJob) {
		t := at
		job.LastRun = &t
	}, nil)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		zerowrap.FromCtx(ctx).WrapErr(err, "failed to save last run")
	}
}

// finish logs, publishes and measures a completed firing.
func (s *Scheduler) finish(ctx context.Context, job *domain.CronJob, exec *domain.Execution, err error) {
	log := zerowrap.FromCtx(ctx)
	outcome := "success"
	entry := domain.LogEntry{
		Level:       domain.LogInfo,
		Source:      domain.LogSourceCron,
		SubjectID:   job.ID,
		ExecutionID: exec.ID,
		Action:      string(exec.Trigger),
		Message:     "cron job " + job.Name + " succeeded",
		Duration:    exec.Duration(),
		Metadata: map[string]string{
			"target":    string(job.Target.Kind),
			"exit_code": strconv.Itoa(exec.ExitCode),
		},
	}
	payload := domain.CronEventPayload{
		JobID:       job.ID,
		Name:        job.Name,
		ExecutionID: exec.ID,
		Status:      exec.Status,
	}
	eventType := domain.EventCronFired

	if err != nil {
		outcome = "failed"
		if exec.FailureKind == domain.KindConcurrentOperation {
			outcome = "skipped"
		}
		entry.Level = domain.LogError
		entry.Kind = exec.FailureKind
		entry.Message = err.Error()
		if out := strings.TrimSpace(exec.Output); out != "" {
			entry.Metadata["output"] = domain.TruncateOutput(out, 4096)
		}
		payload.Kind = exec.FailureKind
		payload.Error = err.Error()
		eventType = domain.EventCronFailed
		log.Warn().Err(err).Str("job", job.Name).Str("kind", string(exec.FailureKind)).Msg("cron job failed")
	} else {
		log.Info().Str("job", job.Name).Dur(zerowrap.FieldDuration, exec.Duration()).Msg("cron job succeeded")
	}

	if s.execLog != nil {
		if appendErr := s.execLog.Append(ctx, entry); appendErr != nil {
			log.Warn().Err(appendErr).Msg("failed to append execution log entry")
		}
	}
	if s.events != nil {
		if pubErr := s.events.Publish(eventType, payload); pubErr != nil {
			log.Warn().Err(pubErr).Str(zerowrap.FieldEvent, string(eventType)).Msg("failed to publish cron event")
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveCronFiring(job.Target.Kind, outcome, exec.Duration())
	}
}
