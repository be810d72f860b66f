package domain

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Webhook is an HTTP call a cron job can dispatch.
type Webhook struct {
	ID        string
	Name      string
	URL       string
	Method    string
	Headers   map[string]string
	Body      string
	IsActive  bool
	CreatedAt time.Time
}

// Clone returns a deep copy.
func (w *Webhook) Clone() *Webhook {
	if w == nil {
		return nil
	}
	c := *w
	c.Headers = maps.Clone(w.Headers)
	return &c
}

// WebhookResponse is what a single delivery returned.
type WebhookResponse struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// WebhookSpec is the input used to create or update a webhook.
type WebhookSpec struct {
	Name     string
	URL      string
	Method   string
	Headers  map[string]string
	Body     string
	IsActive *bool
}

var webhookMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Normalize uppercases the method and defaults it to POST.
func (s WebhookSpec) Normalize() WebhookSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Method = strings.ToUpper(strings.TrimSpace(s.Method))
	if s.Method == "" {
		s.Method = http.MethodPost
	}
	return s
}

// Validate checks the webhook fields.
func (s WebhookSpec) Validate() error {
	var fields []FieldError
	if s.Name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "is required"})
	}
	if u, err := url.Parse(s.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fields = append(fields, FieldError{Field: "url", Message: "must be an http(s) URL"})
	}
	if !webhookMethods[s.Method] {
		fields = append(fields, FieldError{Field: "method", Message: fmt.Sprintf("unsupported method %q", s.Method)})
	}
	if len(fields) > 0 {
		return &Error{Kind: KindValidation, Op: "validate webhook", Fields: fields}
	}
	return nil
}
