package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/ltuffery/Octopus/internal/domain"
)

// Store holds every in-memory repository.
type Store struct {
	Sites      *SiteRepository
	CronJobs   *CronJobRepository
	Executions *ExecutionRepository
	Webhooks   *WebhookRepository
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		Sites:      NewSiteRepository(),
		CronJobs:   NewCronJobRepository(),
		Executions: NewExecutionRepository(),
		Webhooks:   NewWebhookRepository(),
	}
}

// SiteRepository implements out.SiteRepository.
type SiteRepository struct{ t *table[domain.Site] }

func NewSiteRepository() *SiteRepository {
	return &SiteRepository{t: newTable((*domain.Site).Clone, byCreated(
		func(s *domain.Site) int64 { return s.CreatedAt.UnixNano() },
		func(s *domain.Site) string { return s.Name },
	))}
}

func (r *SiteRepository) Get(_ context.Context, id string) (*domain.Site, error) {
	return r.t.get("get site", id)
}

// GetByName matches names case-insensitively.
func (r *SiteRepository) GetByName(_ context.Context, name string) (*domain.Site, error) {
	site, ok := r.t.find(func(s *domain.Site) bool { return strings.EqualFold(s.Name, name) })
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "get site", "site %q not found", name)
	}
	return site, nil
}

func (r *SiteRepository) List(_ context.Context) ([]*domain.Site, error) {
	return r.t.list(nil), nil
}

func (r *SiteRepository) Save(_ context.Context, site *domain.Site) error {
	r.t.put(site.ID, site)
	return nil
}

func (r *SiteRepository) Delete(_ context.Context, id string) error {
	return r.t.remove("delete site", id)
}

// CronJobRepository implements out.CronJobRepository.
type CronJobRepository struct{ t *table[domain.CronJob] }

func NewCronJobRepository() *CronJobRepository {
	return &CronJobRepository{t: newTable(cloneJob, byCreated(
		func(j *domain.CronJob) int64 { return j.CreatedAt.UnixNano() },
		func(j *domain.CronJob) string { return j.ID },
	))}
}

// cloneJob drops NextRun, which is derived and never persisted.
func cloneJob(j *domain.CronJob) *domain.CronJob {
	c := j.Clone()
	c.NextRun = time.Time{}
	return c
}

func (r *CronJobRepository) Get(_ context.Context, id string) (*domain.CronJob, error) {
	return r.t.get("get cron job", id)
}

func (r *CronJobRepository) List(_ context.Context) ([]*domain.CronJob, error) {
	return r.t.list(nil), nil
}

func (r *CronJobRepository) Save(_ context.Context, job *domain.CronJob) error {
	r.t.put(job.ID, job)
	return nil
}

func (r *CronJobRepository) Delete(_ context.Context, id string) error {
	return r.t.remove("delete cron job", id)
}

// ExecutionRepository implements out.ExecutionRepository.
type ExecutionRepository struct{ t *table[domain.Execution] }

func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{t: newTable((*domain.Execution).Clone, newestFirst)}
}

func newestFirst(a, b *domain.Execution) int {
	if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

func (r *ExecutionRepository) Get(_ context.Context, id string) (*domain.Execution, error) {
	return r.t.get("get execution", id)
}

func (r *ExecutionRepository) List(_ context.Context) ([]*domain.Execution, error) {
	return r.t.list(nil), nil
}

func (r *ExecutionRepository) ListByParent(_ context.Context, parent domain.ParentRef) ([]*domain.Execution, error) {
	return r.t.list(func(e *domain.Execution) bool { return e.Parent == parent }), nil
}

func (r *ExecutionRepository) Save(_ context.Context, exec *domain.Execution) error {
	r.t.put(exec.ID, exec)
	return nil
}

func (r *ExecutionRepository) Delete(_ context.Context, id string) error {
	return r.t.remove("delete execution", id)
}

// WebhookRepository implements out.WebhookRepository.
type WebhookRepository struct{ t *table[domain.Webhook] }

func NewWebhookRepository() *WebhookRepository {
	return &WebhookRepository{t: newTable((*domain.Webhook).Clone, byCreated(
		func(w *domain.Webhook) int64 { return w.CreatedAt.UnixNano() },
		func(w *domain.Webhook) string { return w.ID },
	))}
}

func (r *WebhookRepository) Get(_ context.Context, id string) (*domain.Webhook, error) {
	return r.t.get("get webhook", id)
}

func (r *WebhookRepository) List(_ context.Context) ([]*domain.Webhook, error) {
	return r.t.list(nil), nil
}

func (r *WebhookRepository) Save(_ context.Context, hook *domain.Webhook) error {
	r.t.put(hook.ID, hook)
	return nil
}

func (r *WebhookRepository) Delete(_ context.Context, id string) error {
	return r.t.remove("delete webhook", id)
}
