package in

import (
	"context"

	"github.com/ltuffery/Octopus/internal/domain"
)

// WebhookService defines the contract for managing webhook targets.
type WebhookService interface {
	Create(ctx context.Context, spec domain.WebhookSpec) (*domain.Webhook, error)
	Update(ctx context.Context, id string, spec domain.WebhookSpec) (*domain.Webhook, error)
	Get(ctx context.Context, id string) (*domain.Webhook, error)
	List(ctx context.Context) ([]*domain.Webhook, error)
	Delete(ctx context.Context, id string) error
}
