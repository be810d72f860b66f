package domain

import (
	"fmt"
	"strings"
	"time"
)

// CronTargetKind selects what a cron job does when it fires.
type CronTargetKind string

const (
	TargetCommand CronTargetKind = "command"
	TargetWebhook CronTargetKind = "webhook"
	TargetSite    CronTargetKind = "site"
)

// CronTarget is the tagged union of dispatch targets.
type CronTarget struct {
	Kind       CronTargetKind
	WebhookID  string
	SiteID     string
	SiteAction SiteAction
}

// OverlapPolicy decides what happens when a job fires while its previous run is still going.
type OverlapPolicy string

const (
	OverlapAllow OverlapPolicy = "allow"
	OverlapSkip  OverlapPolicy = "skip"
)

// CronJob is a schedule-triggered command, webhook call or site action.
type CronJob struct {
	ID        string
	Name      string
	Schedule  string
	Command   string
	Target    CronTarget
	Enabled   bool
	LastRun   *time.Time
	NextRun   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy.
func (j *CronJob) Clone() *CronJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.LastRun != nil {
		t := *j.LastRun
		c.LastRun = &t
	}
	return &c
}

// CronJobSpec is the input used to schedule or update a job.
type CronJobSpec struct {
	Name     string
	Schedule string
	Command  string
	Target   CronTarget
	Enabled  *bool
}

var siteTargetActions = []SiteAction{ActionBuild, ActionRebuild, ActionStart, ActionStop, ActionRestart}

// Validate checks everything except the schedule expression, which the scheduler parses.
func (s CronJobSpec) Validate() error {
	var fields []FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(s.Name) == "" {
		add("name", "is required")
	}
	if strings.TrimSpace(s.Schedule) == "" {
		add("schedule", "is required")
	}

	switch s.Target.Kind {
	case "", TargetCommand:
		if strings.TrimSpace(s.Command) == "" {
			add("command", "is required for command jobs")
		}
	case TargetWebhook:
		if s.Target.WebhookID == "" {
			add("webhookId", "is required for webhook jobs")
		}
	case TargetSite:
		if s.Target.SiteID == "" {
			add("siteId", "is required for site jobs")
		}
		valid := false
		for _, a := range siteTargetActions {
			if a == s.Target.SiteAction {
				valid = true
			}
		}
		if !valid {
			add("siteAction", "must be one of build, rebuild, start, stop, restart")
		}
	default:
		add("target", "must be one of command, webhook, site")
	}

	if len(fields) > 0 {
		return &Error{Kind: KindValidation, Op: "validate cron job", Fields: fields}
	}
	return nil
}

// IsEnabled returns the requested enabled flag, defaulting to true.
func (s CronJobSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}
