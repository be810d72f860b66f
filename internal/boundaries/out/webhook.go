package out

import (
	"context"
	"time"

	"github.com/ltuffery/Octopus/internal/domain"
)

// WebhookDispatcher delivers a webhook with a single HTTP request.
// Any HTTP response is returned without error; only transport failures error.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, hook *domain.Webhook) (*domain.WebhookResponse, error)
}

// MetricsRecorder receives operation outcomes for monitoring.
type MetricsRecorder interface {
	ObserveSiteOperation(action domain.SiteAction, outcome string, d time.Duration)
	ObserveCronFiring(target domain.CronTargetKind, outcome string, d time.Duration)
	ObserveWebhook(statusCode int)
}
