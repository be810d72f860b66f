package out

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// SiteRepository persists sites. Missing records return domain.ErrNotFound.
type SiteRepository interface {
	Get(ctx context.Context, id string) (*domain.Site, error)
	GetByName(ctx context.Context, name string) (*domain.Site, error)
	List(ctx context.Context) ([]*domain.Site, error)
	Save(ctx context.Context, site *domain.Site) error
	Delete(ctx context.Context, id string) error
}

// CronJobRepository persists cron jobs. NextRun is never stored.
type CronJobRepository interface {
	Get(ctx context.Context, id string) (*domain.CronJob, error)
	List(ctx context.Context) ([]*domain.CronJob, error)
	Save(ctx context.Context, job *domain.CronJob) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository persists execution records.
type ExecutionRepository interface {
	Get(ctx context.Context, id string) (*domain.Execution, error)
	List(ctx context.Context) ([]*domain.Execution, error)
	// ListByParent returns the executions of one site or job, newest first.
	ListByParent(ctx context.Context, parent domain.ParentRef) ([]*domain.Execution, error)
	Save(ctx context.Context, exec *domain.Execution) error
	Delete(ctx context.Context, id string) error
}

// WebhookRepository persists webhooks.
type WebhookRepository interface {
	Get(ctx context.Context, id string) (*domain.Webhook, error)
	List(ctx context.Context) ([]*domain.Webhook, error)
	Save(ctx context.Context, hook *domain.Webhook) error
	Delete(ctx context.Context, id string) error
}
