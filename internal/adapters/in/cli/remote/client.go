// Package remote provides an HTTP client for a running Octopus instance.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
)

// Retries only apply to GET requests; lifecycle actions are never replayed.
var (
	retryMaxAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// Client is an HTTP client for the Octopus API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// NewClient creates a new Octopus client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		// Builds can take minutes and the API answers when they are done.
		httpClient: &http.Client{Timeout: 30 * time.Minute},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// BaseURL returns the API address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
	Fields     []dto.FieldError
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	for _, f := range e.Fields {
		msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
	}
	return msg
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// request performs an HTTP request against the /api prefix.
func (c *Client) request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = retryMaxAttempts
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err = c.do(ctx, method, path, payload)
		if !shouldRetry(resp, err) || attempt == attempts {
			break
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBaseDelay * time.Duration(attempt)):
		}
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseResponse parses a JSON response into the given target.
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var errResp dto.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    errResp.Error,
				Kind:       errResp.Kind,
				Fields:     errResp.Fields,
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	return parseResponse(resp, target)
}

// Health API

// Health returns the liveness answer of the orchestrator.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var result dto.HealthResponse
	if err := c.call(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SitesHealth probes every site.
func (c *Client) SitesHealth(ctx context.Context) (map[string]dto.SiteHealth, error) {
	var result dto.SitesHealthResponse
	if err := c.call(ctx, http.MethodGet, "/health/sites", nil, &result); err != nil {
		return nil, err
	}
	return result.Sites, nil
}

// Sites API

// ListSites returns all sites.
func (c *Client) ListSites(ctx context.Context) ([]dto.Site, error) {
	var result dto.SitesResponse
	if err := c.call(ctx, http.MethodGet, "/sites", nil, &result); err != nil {
		return nil, err
	}
	return result.Sites, nil
}

// GetSite returns a site by id.
func (c *Client) GetSite(ctx context.Context, id string) (*dto.Site, error) {
	var site dto.Site
	if err := c.call(ctx, http.MethodGet, "/sites/"+url.PathEscape(id), nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateSite registers a new site.
func (c *Client) CreateSite(ctx context.Context, req dto.SiteRequest) (*dto.Site, error) {
	var site dto.Site
	if err := c.call(ctx, http.MethodPost, "/sites", req, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// DeleteSite removes a stopped site.
func (c *Client) DeleteSite(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/sites/"+url.PathEscape(id), nil, nil)
}

// SiteAction runs a lifecycle action (build, rebuild, start, stop, restart).
func (c *Client) SiteAction(ctx context.Context, id, action string) (*dto.Site, error) {
	var site dto.Site
	path := "/sites/" + url.PathEscape(id) + "/" + action
	if err := c.call(ctx, http.MethodPost, path, nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// SiteExecutions returns the recorded runs of a site, newest first.
func (c *Client) SiteExecutions(ctx context.Context, id string) ([]dto.Execution, error) {
	var result dto.ExecutionsResponse
	if err := c.call(ctx, http.MethodGet, "/sites/"+url.PathEscape(id)+"/executions", nil, &result); err != nil {
		return nil, err
	}
	return result.Executions, nil
}

// SiteOutput returns the last lines written by a site's unit.
func (c *Client) SiteOutput(ctx context.Context, id string, lines int) ([]string, error) {
	path := "/sites/" + url.PathEscape(id) + "/output"
	if lines > 0 {
		path += "?lines=" + strconv.Itoa(lines)
	}
	var result dto.SiteOutputResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Lines, nil
}

// Cron API

// ListCronJobs returns all cron jobs.
func (c *Client) ListCronJobs(ctx context.Context) ([]dto.CronJob, error) {
	var result dto.CronJobsResponse
	if err := c.call(ctx, http.MethodGet, "/cron", nil, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// ToggleCronJob enables or disables a job.
func (c *Client) ToggleCronJob(ctx context.Context, id string, enabled bool) (*dto.CronJob, error) {
	var job dto.CronJob
	path := "/cron/" + url.PathEscape(id) + "/toggle"
	if err := c.call(ctx, http.MethodPost, path, dto.ToggleRequest{Enabled: enabled}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// TriggerCronJob fires a job immediately and returns its Execution.
// A failed run is still answered with 200 and a failed Execution.
func (c *Client) TriggerCronJob(ctx context.Context, id string) (*dto.Execution, error) {
	var exec dto.Execution
	if err := c.call(ctx, http.MethodPost, "/cron/"+url.PathEscape(id)+"/trigger", nil, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// CronExecutions returns the recorded runs of a job, newest first.
func (c *Client) CronExecutions(ctx context.Context, id string) ([]dto.Execution, error) {
	var result dto.ExecutionsResponse
	if err := c.call(ctx, http.MethodGet, "/cron/"+url.PathEscape(id)+"/executions", nil, &result); err != nil {
		return nil, err
	}
	return result.Executions, nil
}

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}
