package dto

import "time"

// WebhookRequest is the body of webhook create and update requests.
type WebhookRequest struct {
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	Method   string            `json:"method,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"`
	IsActive *bool             `json:"is_active,omitempty"`
}

// Webhook is the API view of a webhook.
type Webhook struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
}

// WebhooksResponse lists webhooks.
type WebhooksResponse struct {
	Webhooks []Webhook `json:"webhooks"`
}
