package api

import (
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
	"github.com/ltuffery/Octopus/internal/domain"
)

func siteSpecFromRequest(req dto.SiteRequest) domain.SiteSpec {
	return domain.SiteSpec{
		Name:         req.Name,
		Source:       domain.SiteSource(req.Source),
		SourceURL:    req.SourceURL,
		LocalPath:    req.LocalPath,
		Framework:    req.Framework,
		Branch:       req.Branch,
		BuildCommand: req.BuildCommand,
		StartCommand: req.StartCommand,
		EnvVars:      req.EnvVars,
		Domain:       req.Domain,
		Port:         req.Port,
		Runtime:      domain.SiteRuntime(req.Runtime),
		Image:        req.Image,
	}
}

func toSite(s *domain.Site) dto.Site {
	return dto.Site{
		ID:           s.ID,
		Name:         s.Name,
		Source:       string(s.Source),
		SourceURL:    s.SourceURL,
		LocalPath:    s.LocalPath,
		Framework:    s.Framework,
		Branch:       s.Branch,
		BuildCommand: s.BuildCommand,
		StartCommand: s.StartCommand,
		EnvVars:      s.EnvVars,
		Domain:       s.Domain,
		Port:         s.Port,
		Runtime:      string(s.Runtime),
		Image:        s.Image,
		Status:       string(s.Status),
		Handle:       s.Handle,
		LastError:    s.LastError,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func cronSpecFromRequest(req dto.CronJobRequest) domain.CronJobSpec {
	return domain.CronJobSpec{
		Name:     req.Name,
		Schedule: req.Schedule,
		Command:  req.Command,
		Target: domain.CronTarget{
			Kind:       domain.CronTargetKind(req.Target.Kind),
			WebhookID:  req.Target.WebhookID,
			SiteID:     req.Target.SiteID,
			SiteAction: domain.SiteAction(req.Target.SiteAction),
		},
		Enabled: req.Enabled,
	}
}

func toCronJob(j *domain.CronJob) dto.CronJob {
	job := dto.CronJob{
		ID:       j.ID,
		Name:     j.Name,
		Schedule: j.Schedule,
		Command:  j.Command,
		Target: dto.CronTarget{
			Kind:       string(j.Target.Kind),
			WebhookID:  j.Target.WebhookID,
			SiteID:     j.Target.SiteID,
			SiteAction: string(j.Target.SiteAction),
		},
		Enabled:   j.Enabled,
		LastRun:   j.LastRun,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if !j.NextRun.IsZero() {
		next := j.NextRun
		job.NextRun = &next
	}
	return job
}

func webhookSpecFromRequest(req dto.WebhookRequest) domain.WebhookSpec {
	return domain.WebhookSpec{
		Name:     req.Name,
		URL:      req.URL,
		Method:   req.Method,
		Headers:  req.Headers,
		Body:     req.Body,
		IsActive: req.IsActive,
	}
}

func toWebhook(w *domain.Webhook) dto.Webhook {
	return dto.Webhook{
		ID:        w.ID,
		Name:      w.Name,
		URL:       w.URL,
		Method:    w.Method,
		Headers:   w.Headers,
		Body:      w.Body,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
	}
}

func toExecution(e *domain.Execution) dto.Execution {
	return dto.Execution{
		ID:          e.ID,
		ParentKind:  string(e.Parent.Kind),
		ParentID:    e.Parent.ID,
		Trigger:     string(e.Trigger),
		Status:      string(e.Status),
		StartedAt:   e.StartedAt,
		FinishedAt:  e.FinishedAt,
		DurationMs:  e.Duration().Milliseconds(),
		ExitCode:    e.ExitCode,
		Output:      e.Output,
		Error:       e.Error,
		FailureKind: string(e.FailureKind),
	}
}

func toExecutions(execs []*domain.Execution) dto.ExecutionsResponse {
	return dto.ExecutionsResponse{
		Executions: lo.Map(execs, func(e *domain.Execution, _ int) dto.Execution { return toExecution(e) }),
	}
}

func toLogEntry(e domain.LogEntry) dto.LogEntry {
	return dto.LogEntry{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Level:       string(e.Level),
		Source:      string(e.Source),
		SubjectID:   e.SubjectID,
		ExecutionID: e.ExecutionID,
		Action:      e.Action,
		Kind:        string(e.Kind),
		Message:     e.Message,
		Metadata:    e.Metadata,
		DurationMs:  e.Duration.Milliseconds(),
	}
}

func toSiteHealth(h *domain.SiteHealth) dto.SiteHealth {
	return dto.SiteHealth{
		SiteID:         h.SiteID,
		Name:           h.Name,
		Status:         string(h.Status),
		UnitState:      string(h.UnitState),
		URL:            h.URL,
		HTTPStatus:     h.HTTPStatus,
		ResponseTimeMs: h.ResponseTime.Milliseconds(),
		Healthy:        h.Healthy,
		Error:          h.Error,
		CheckedAt:      h.CheckedAt,
	}
}
