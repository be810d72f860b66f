package sqlstore

import (
	"time"

	"github.com/ltuffery/Octopus/internal/domain"
)

// Timestamps are owned by the domain, so gorm's auto timestamps are disabled.

type siteModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex"`
	Source       string
	SourceURL    string
	LocalPath    string
	Framework    string
	Branch       string
	BuildCommand string
	StartCommand string
	EnvVars      []string `gorm:"serializer:json"`
	Domain       string
	Port         int
	Runtime      string
	Image        string
	Status       string
	Handle       string
	LastError    string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (siteModel) TableName() string { return "sites" }

func (m *siteModel) toDomain() *domain.Site {
	return &domain.Site{
		ID:           m.ID,
		Name:         m.Name,
		Source:       domain.SiteSource(m.Source),
		SourceURL:    m.SourceURL,
		LocalPath:    m.LocalPath,
		Framework:    m.Framework,
		Branch:       m.Branch,
		BuildCommand: m.BuildCommand,
		StartCommand: m.StartCommand,
		EnvVars:      m.EnvVars,
		Domain:       m.Domain,
		Port:         m.Port,
		Runtime:      domain.SiteRuntime(m.Runtime),
		Image:        m.Image,
		Status:       domain.SiteStatus(m.Status),
		Handle:       m.Handle,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func siteFromDomain(s *domain.Site) *siteModel {
	return &siteModel{
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

type cronJobModel struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	Schedule   string
	Command    string
	TargetKind string
	WebhookID  string
	SiteID     string
	SiteAction string
	Enabled    bool
	LastRun    *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false"`
}

func (cronJobModel) TableName() string { return "cron_jobs" }

func (m *cronJobModel) toDomain() *domain.CronJob {
	return &domain.CronJob{
		ID:       m.ID,
		Name:     m.Name,
		Schedule: m.Schedule,
		Command:  m.Command,
		Target: domain.CronTarget{
			Kind:       domain.CronTargetKind(m.TargetKind),
			WebhookID:  m.WebhookID,
			SiteID:     m.SiteID,
			SiteAction: domain.SiteAction(m.SiteAction),
		},
		Enabled:   m.Enabled,
		LastRun:   m.LastRun,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func cronJobFromDomain(j *domain.CronJob) *cronJobModel {
	return &cronJobModel{
		ID:         j.ID,
		Name:       j.Name,
		Schedule:   j.Schedule,
		Command:    j.Command,
		TargetKind: string(j.Target.Kind),
		WebhookID:  j.Target.WebhookID,
		SiteID:     j.Target.SiteID,
		SiteAction: string(j.Target.SiteAction),
		Enabled:    j.Enabled,
		LastRun:    j.LastRun,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

type executionModel struct {
	ID          string `gorm:"primaryKey"`
	ParentKind  string `gorm:"index:idx_execution_parent"`
	ParentID    string `gorm:"index:idx_execution_parent"`
	TriggerKind string
	StartedAt   time.Time `gorm:"index"`
	FinishedAt  *time.Time
	Status      string
	Output      string
	Error       string
	FailureKind string
	ExitCode    int
}

func (executionModel) TableName() string { return "executions" }

func (m *executionModel) toDomain() *domain.Execution {
	return &domain.Execution{
		ID:          m.ID,
		Parent:      domain.ParentRef{Kind: domain.ParentKind(m.ParentKind), ID: m.ParentID},
		Trigger:     domain.ExecutionTrigger(m.TriggerKind),
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		Status:      domain.ExecutionStatus(m.Status),
		Output:      m.Output,
		Error:       m.Error,
		FailureKind: domain.ErrorKind(m.FailureKind),
		ExitCode:    m.ExitCode,
	}
}

func executionFromDomain(e *domain.Execution) *executionModel {
	return &executionModel{
		ID:          e.ID,
		ParentKind:  string(e.Parent.Kind),
		ParentID:    e.Parent.ID,
		TriggerKind: string(e.Trigger),
		StartedAt:   e.StartedAt,
		FinishedAt:  e.FinishedAt,
		Status:      string(e.Status),
		Output:      e.Output,
		Error:       e.Error,
		FailureKind: string(e.FailureKind),
		ExitCode:    e.ExitCode,
	}
}

type webhookModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	URL       string
	Method    string
	Headers   map[string]string `gorm:"serializer:json"`
	Body      string
	IsActive  bool
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (webhookModel) TableName() string { return "webhooks" }

func (m *webhookModel) toDomain() *domain.Webhook {
	return &domain.Webhook{
		ID:        m.ID,
		Name:      m.Name,
		URL:       m.URL,
		Method:    m.Method,
		Headers:   m.Headers,
		Body:      m.Body,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

func webhookFromDomain(w *domain.Webhook) *webhookModel {
	return &webhookModel{
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
