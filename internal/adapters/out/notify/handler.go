// Package notify forwards domain events to an external HTTP endpoint.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ltuffery/Octopus/internal/boundaries/out"
	"github.com/ltuffery/Octopus/internal/domain"
)

// Handler POSTs every handled event as JSON to a fixed URL.
type Handler struct {
	url        string
	dispatcher out.WebhookDispatcher
	types      map[domain.EventType]bool
}

// NewHandler creates a handler. With no types, every event is forwarded.
func NewHandler(url string, dispatcher out.WebhookDispatcher, types ...domain.EventType) *Handler {
	h := &Handler{url: url, dispatcher: dispatcher}
	if len(types) > 0 {
		h.types = make(map[domain.EventType]bool, len(types))
		for _, t := range types {
			h.types[t] = true
		}
	}
	return h
}

// CanHandle implements out.EventHandler.
func (h *Handler) CanHandle(t domain.EventType) bool {
	return h.types == nil || h.types[t]
}

type notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SubjectID string    `json:"subject_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

type siteData struct {
	SiteID   string `json:"site_id"`
	Name     string `json:"name,omitempty"`
	Action   string `json:"action,omitempty"`
	Previous string `json:"previous,omitempty"`
	Status   string `json:"status"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

type cronData struct {
	JobID       string `json:"job_id"`
	Name        string `json:"name,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
	Status      string `json:"status"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Handle implements out.EventHandler.
func (h *Handler) Handle(ctx context.Context, event domain.Event) error {
	n := notification{
		ID:        event.ID,
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		SubjectID: event.SubjectID,
	}
	switch p := event.Data.(type) {
	case domain.SiteEventPayload:
		n.Data = siteData{
			SiteID:   p.SiteID,
			Name:     p.Name,
			Action:   string(p.Action),
			Previous: string(p.Previous),
			Status:   string(p.Status),
			Kind:     string(p.Kind),
			Error:    p.Error,
		}
	case domain.CronEventPayload:
		n.Data = cronData{
			JobID:       p.JobID,
			Name:        p.Name,
			ExecutionID: p.ExecutionID,
			Status:      string(p.Status),
			Kind:        string(p.Kind),
			Error:       p.Error,
		}
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	resp, err := h.dispatcher.Dispatch(ctx, &domain.Webhook{
		ID:       "notify",
		Name:     "notifications",
		URL:      h.url,
		Method:   "POST",
		Body:     string(body),
		IsActive: true,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification endpoint answered %d", resp.StatusCode)
	}
	return nil
}
