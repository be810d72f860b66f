package dto

import "time"

// SiteRequest is the body of site create and update requests.
type SiteRequest struct {
	Name         string   `json:"name"`
	Source       string   `json:"source"`
	SourceURL    string   `json:"source_url,omitempty"`
	LocalPath    string   `json:"local_path,omitempty"`
	Framework    string   `json:"framework,omitempty"`
	Branch       string   `json:"branch,omitempty"`
	BuildCommand string   `json:"build_command,omitempty"`
	StartCommand string   `json:"start_command,omitempty"`
	EnvVars      []string `json:"env_vars,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	Port         int      `json:"port"`
	Runtime      string   `json:"runtime,omitempty"`
	Image        string   `json:"image,omitempty"`
}

// Site is the API view of a site.
type Site struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url,omitempty"`
	LocalPath    string    `json:"local_path,omitempty"`
	Framework    string    `json:"framework,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	BuildCommand string    `json:"build_command,omitempty"`
	StartCommand string    `json:"start_command,omitempty"`
	EnvVars      []string  `json:"env_vars,omitempty"`
	Domain       string    `json:"domain,omitempty"`
	Port         int       `json:"port"`
	Runtime      string    `json:"runtime"`
	Image        string    `json:"image,omitempty"`
	Status       string    `json:"status"`
	Handle       string    `json:"handle,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SitesResponse lists sites.
type SitesResponse struct {
	Sites []Site `json:"sites"`
}

// UsageResponse is a resource sample of a running site.
type UsageResponse struct {
	SiteID      string  `json:"site_id"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
}

// SiteOutputResponse holds the last lines written by a site's unit.
type SiteOutputResponse struct {
	SiteID string   `json:"site_id"`
	Lines  []string `json:"lines"`
}
