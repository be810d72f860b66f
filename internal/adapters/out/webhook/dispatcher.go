// Package webhook delivers webhook calls over HTTP.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/ltuffery/Octopus/internal/domain"
)

const (
	// DefaultTimeout bounds a single delivery.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBody bounds the response body kept for the execution output.
	DefaultMaxBody = 64 * 1024

	userAgent = "Octopus-Webhook/1.0"
)

// Dispatcher implements the WebhookDispatcher interface. Every call is a
// single request: no retry, no backoff.
type Dispatcher struct {
	client  *http.Client
	timeout time.Duration
	maxBody int64
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the request timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithMaxBody sets how many response bytes are kept.
func WithMaxBody(n int64) Option {
	return func(d *Dispatcher) {
		d.maxBody = n
	}
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	return d
}

// Dispatch sends the webhook request. Any HTTP response, including 4xx and
// 5xx, is returned without error; callers decide what counts as failure.
func (d *Dispatcher) Dispatch(ctx context.Context, hook *domain.Webhook) (*domain.WebhookResponse, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "webhook",
		zerowrap.FieldAction:   "Dispatch",
		zerowrap.FieldEntityID: hook.ID,
		zerowrap.FieldMethod:   hook.Method,
	})
	log := zerowrap.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	method := hook.Method
	if method == "" {
		method = http.MethodPost
	}
	var body io.Reader
	if hook.Body != "" {
		body = strings.NewReader(hook.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, hook.URL, body)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, "dispatch webhook", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	if hook.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.Errorf(domain.KindTimeout, "dispatch webhook", "no response after %s", d.timeout)
		}
		return nil, domain.WrapError(domain.KindExecutionFailure, "dispatch webhook", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return nil, domain.WrapError(domain.KindExecutionFailure, "dispatch webhook", fmt.Errorf("read response: %w", err))
	}
	text := string(data)
	if int64(len(data)) > d.maxBody {
		text = string(data[:d.maxBody]) + "\n...[truncated]"
	}

	result := &domain.WebhookResponse{
		StatusCode: resp.StatusCode,
		Body:       text,
		Duration:   time.Since(start),
	}
	log.Debug().Int(zerowrap.FieldStatus, resp.StatusCode).Dur(zerowrap.FieldDuration, result.Duration).Msg("webhook delivered")
	return result, nil
}
