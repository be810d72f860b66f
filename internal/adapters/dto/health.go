package dto

import "time"

// HealthResponse is the liveness answer of the orchestrator.
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  string         `json:"uptime"`
	Sites   map[string]int `json:"sites"`
}

// SiteHealth is the API view of a site probe.
type SiteHealth struct {
	SiteID         string    `json:"site_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	UnitState      string    `json:"unit_state,omitempty"`
	URL            string    `json:"url,omitempty"`
	HTTPStatus     int       `json:"http_status,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Healthy        bool      `json:"healthy"`
	Error          string    `json:"error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// SitesHealthResponse holds probes keyed by site id.
type SitesHealthResponse struct {
	Sites map[string]SiteHealth `json:"sites"`
}
