package domain

import "time"

// SiteHealth is the result of probing a site.
type SiteHealth struct {
	SiteID       string
	Name         string
	Status       SiteStatus
	UnitState    UnitState
	URL          string
	HTTPStatus   int
	ResponseTime time.Duration
	Healthy      bool
	Error        string
	CheckedAt    time.Time
}
