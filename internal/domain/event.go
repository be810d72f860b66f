package domain

import "time"

// EventType defines the type of event that occurred.
type EventType string

const (
	EventSiteCreated       EventType = "site.created"
	EventSiteStatusChanged EventType = "site.status_changed"
	EventSiteFailed        EventType = "site.failed"
	EventSiteDeleted       EventType = "site.deleted"
	EventCronFired         EventType = "cron.fired"
	EventCronFailed        EventType = "cron.failed"
)

var knownEventTypes = []EventType{
	EventSiteCreated,
	EventSiteStatusChanged,
	EventSiteFailed,
	EventSiteDeleted,
	EventCronFired,
	EventCronFailed,
}

// IsKnown reports whether t is one of the published event types.
func (t EventType) IsKnown() bool {
	for _, known := range knownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SubjectOf returns the id of the site or job a payload is about.
func SubjectOf(payload any) string {
	switch p := payload.(type) {
	case SiteEventPayload:
		return p.SiteID
	case *SiteEventPayload:
		if p != nil {
			return p.SiteID
		}
	case CronEventPayload:
		return p.JobID
	case *CronEventPayload:
		if p != nil {
			return p.JobID
		}
	}
	return ""
}

// Event represents a domain event that occurred in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	SubjectID string
	Data      any
}

// SiteEventPayload contains data for site events.
type SiteEventPayload struct {
	SiteID   string
	Name     string
	Action   SiteAction
	Previous SiteStatus
	Status   SiteStatus
	Kind     ErrorKind
	Error    string
}

// CronEventPayload contains data for cron events.
type CronEventPayload struct {
	JobID       string
	Name        string
	ExecutionID string
	Status      ExecutionStatus
	Kind        ErrorKind
	Error       string
}
