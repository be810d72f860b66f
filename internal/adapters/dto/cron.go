package dto

import "time"

// CronTarget is what a cron job dispatches to.
type CronTarget struct {
	Kind       string `json:"kind"`
	WebhookID  string `json:"webhook_id,omitempty"`
	SiteID     string `json:"site_id,omitempty"`
	SiteAction string `json:"site_action,omitempty"`
}

// CronJobRequest is the body of cron job create and update requests.
type CronJobRequest struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Command  string     `json:"command,omitempty"`
	Target   CronTarget `json:"target"`
	Enabled  *bool      `json:"enabled,omitempty"`
}

// CronJob is the API view of a cron job.
type CronJob struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Command   string     `json:"command,omitempty"`
	Target    CronTarget `json:"target"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CronJobsResponse lists cron jobs.
type CronJobsResponse struct {
	Jobs []CronJob `json:"jobs"`
}

// ToggleRequest enables or disables a cron job.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// NextRunsResponse lists the upcoming firing times of an expression.
type NextRunsResponse struct {
	Expression string      `json:"expression"`
	Runs       []time.Time `json:"runs"`
}
