package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ltuffery/Octopus/internal/domain"
)

// SiteRepository implements out.SiteRepository.
type SiteRepository struct {
	db *gorm.DB
}

func (r *SiteRepository) Get(ctx context.Context, id string) (*domain.Site, error) {
	found, err := gorm.G[siteModel](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, notFound("get site", id, err)
	}
	return found.toDomain(), nil
}

// GetByName matches names case-insensitively.
func (r *SiteRepository) GetByName(ctx context.Context, name string) (*domain.Site, error) {
	found, err := gorm.G[siteModel](r.db).Where("LOWER(name) = LOWER(?)", name).First(ctx)
	if err != nil {
		return nil, notFound("get site", name, err)
	}
	return found.toDomain(), nil
}

func (r *SiteRepository) List(ctx context.Context) ([]*domain.Site, error) {
	founds, err := gorm.G[siteModel](r.db).Order("created_at, name").Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	res := make([]*domain.Site, len(founds))
	for i := range founds {
		res[i] = founds[i].toDomain()
	}
	return res, nil
}

func (r *SiteRepository) Save(ctx context.Context, site *domain.Site) error {
	if err := r.db.WithContext(ctx).Save(siteFromDomain(site)).Error; err != nil {
		return fmt.Errorf("save site %s: %w", site.ID, err)
	}
	return nil
}

func (r *SiteRepository) Delete(ctx context.Context, id string) error {
	rows, err := gorm.G[siteModel](r.db).Where("id = ?", id).Delete(ctx)
	return deleted("delete site", id, rows, err)
}

// CronJobRepository implements out.CronJobRepository.
type CronJobRepository struct {
	db *gorm.DB
}

func (r *CronJobRepository) Get(ctx context.Context, id string) (*domain.CronJob, error) {
	found, err := gorm.G[cronJobModel](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, notFound("get cron job", id, err)
	}
	return found.toDomain(), nil
}

func (r *CronJobRepository) List(ctx context.Context) ([]*domain.CronJob, error) {
	founds, err := gorm.G[cronJobModel](r.db).Order("created_at, id").Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cron jobs: %w", err)
	}
	res := make([]*domain.CronJob, len(founds))
	for i := range founds {
		res[i] = founds[i].toDomain()
	}
	return res, nil
}

func (r *CronJobRepository) Save(ctx context.Context, job *domain.CronJob) error {
	if err := r.db.WithContext(ctx).Save(cronJobFromDomain(job)).Error; err != nil {
		return fmt.Errorf("save cron job %s: %w", job.ID, err)
	}
	return nil
}

func (r *CronJobRepository) Delete(ctx context.Context, id string) error {
	rows, err := gorm.G[cronJobModel](r.db).Where("id = ?", id).Delete(ctx)
	return deleted("delete cron job", id, rows, err)
}

// ExecutionRepository implements out.ExecutionRepository.
type ExecutionRepository struct {
	db *gorm.DB
}

func (r *ExecutionRepository) Get(ctx context.Context, id string) (*domain.Execution, error) {
	found, err := gorm.G[executionModel](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, notFound("get execution", id, err)
	}
	return found.toDomain(), nil
}

func (r *ExecutionRepository) List(ctx context.Context) ([]*domain.Execution, error) {
	founds, err := gorm.G[executionModel](r.db).Order("started_at DESC, id DESC").Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return executionsToDomain(founds), nil
}

func (r *ExecutionRepository) ListByParent(ctx context.Context, parent domain.ParentRef) ([]*domain.Execution, error) {
	founds, err := gorm.G[executionModel](r.db).
		Where("parent_kind = ? AND parent_id = ?", string(parent.Kind), parent.ID).
		Order("started_at DESC, id DESC").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list executions of %s %s: %w", parent.Kind, parent.ID, err)
	}
	return executionsToDomain(founds), nil
}

func (r *ExecutionRepository) Save(ctx context.Context, exec *domain.Execution) error {
	if err := r.db.WithContext(ctx).Save(executionFromDomain(exec)).Error; err != nil {
		return fmt.Errorf("save execution %s: %w", exec.ID, err)
	}
	return nil
}

func (r *ExecutionRepository) Delete(ctx context.Context, id string) error {
	rows, err := gorm.G[executionModel](r.db).Where("id = ?", id).Delete(ctx)
	return deleted("delete execution", id, rows, err)
}

func executionsToDomain(founds []executionModel) []*domain.Execution {
	res := make([]*domain.Execution, len(founds))
	for i := range founds {
		res[i] = founds[i].toDomain()
	}
	return res
}

// WebhookRepository implements out.WebhookRepository.
type WebhookRepository struct {
	db *gorm.DB
}

func (r *WebhookRepository) Get(ctx context.Context, id string) (*domain.Webhook, error) {
	found, err := gorm.G[webhookModel](r.db).Where("id = ?", id).First(ctx)
	if err != nil {
		return nil, notFound("get webhook", id, err)
	}
	return found.toDomain(), nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]*domain.Webhook, error) {
	founds, err := gorm.G[webhookModel](r.db).Order("created_at, id").Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	res := make([]*domain.Webhook, len(founds))
	for i := range founds {
		res[i] = founds[i].toDomain()
	}
	return res, nil
}

func (r *WebhookRepository) Save(ctx context.Context, hook *domain.Webhook) error {
	if err := r.db.WithContext(ctx).Save(webhookFromDomain(hook)).Error; err != nil {
		return fmt.Errorf("save webhook %s: %w", hook.ID, err)
	}
	return nil
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	rows, err := gorm.G[webhookModel](r.db).Where("id = ?", id).Delete(ctx)
	return deleted("delete webhook", id, rows, err)
}
