// Package webhook implements management of the webhook targets cron jobs call.
package webhook

import (
	"context"
	"maps"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

// Service implements the WebhookService interface.
type Service struct {
	hooks out.WebhookRepository
	jobs  out.CronJobRepository
	now   func() time.Time
	newID func() string
}

// NewService creates a webhook service. jobs is used to refuse deleting a
// webhook that a cron job still targets and may be nil.
func NewService(hooks out.WebhookRepository, jobs out.CronJobRepository) *Service {
	return &Service{
		hooks: hooks,
		jobs:  jobs,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create validates and stores a webhook. Webhooks are active unless the spec says otherwise.
func (s *Service) Create(ctx context.Context, spec domain.WebhookSpec) (*domain.Webhook, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "CreateWebhook",
	})
	log := zerowrap.FromCtx(ctx)

	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	hook := &domain.Webhook{
		ID:        s.newID(),
		CreatedAt: s.now(),
		IsActive:  true,
	}
	apply(hook, spec)

	if err := s.hooks.Save(ctx, hook); err != nil {
		return nil, log.WrapErr(err, "failed to save webhook")
	}
	log.Info().Str(zerowrap.FieldEntityID, hook.ID).Str("url", hook.URL).Msg("webhook created")
	return hook.Clone(), nil
}

// Update replaces the webhook definition.
func (s *Service) Update(ctx context.Context, id string, spec domain.WebhookSpec) (*domain.Webhook, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "UpdateWebhook",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	hook, err := s.hooks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(hook, spec)

	if err := s.hooks.Save(ctx, hook); err != nil {
		return nil, log.WrapErr(err, "failed to save webhook")
	}
	log.Info().Msg("webhook updated")
	return hook.Clone(), nil
}

// Get retrieves a webhook.
func (s *Service) Get(ctx context.Context, id string) (*domain.Webhook, error) {
	return s.hooks.Get(ctx, id)
}

// List returns all webhooks.
func (s *Service) List(ctx context.Context) ([]*domain.Webhook, error) {
	return s.hooks.List(ctx)
}

// Delete removes a webhook no cron job targets.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "usecase",
		zerowrap.FieldUseCase:  "DeleteWebhook",
		zerowrap.FieldEntityID: id,
	})
	log := zerowrap.FromCtx(ctx)

	if _, err := s.hooks.Get(ctx, id); err != nil {
		return err
	}

	if s.jobs != nil {
		jobs, err := s.jobs.List(ctx)
		if err != nil {
			return log.WrapErr(err, "failed to list cron jobs")
		}
		if job, used := lo.Find(jobs, func(j *domain.CronJob) bool {
			return j.Target.Kind == domain.TargetWebhook && j.Target.WebhookID == id
		}); used {
			return domain.Errorf(domain.KindInvalidTransition, "delete webhook", "webhook is used by cron job %s", job.Name)
		}
	}

	if err := s.hooks.Delete(ctx, id); err != nil {
		return log.WrapErr(err, "failed to delete webhook")
	}
	log.Info().Msg("webhook deleted")
	return nil
}

func apply(hook *domain.Webhook, spec domain.WebhookSpec) {
	hook.Name = spec.Name
	hook.URL = spec.URL
	hook.Method = spec.Method
	hook.Headers = maps.Clone(spec.Headers)
	hook.Body = spec.Body
	if spec.IsActive != nil {
		hook.IsActive = *spec.IsActive
	}
}
