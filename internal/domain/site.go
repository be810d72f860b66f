package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// SiteSource defines where a site's code comes from.
type SiteSource string

const (
	SourceLocal  SiteSource = "local"
	SourceGitHub SiteSource = "github"
	SourceGitLab SiteSource = "gitlab"
)

// IsRemote reports whether the source is cloned from a git host.
func (s SiteSource) IsRemote() bool {
	return s == SourceGitHub || s == SourceGitLab
}

// SiteStatus is the lifecycle state of a site.
type SiteStatus string

const (
	SiteStatusPending  SiteStatus = "pending"
	SiteStatusBuilding SiteStatus = "building"
	SiteStatusStarting SiteStatus = "starting"
	SiteStatusRunning  SiteStatus = "running"
	SiteStatusStopping SiteStatus = "stopping"
	SiteStatusStopped  SiteStatus = "stopped"
	SiteStatusError    SiteStatus = "error"
)

// IsTransient reports whether the status only exists while an operation is in flight.
func (s SiteStatus) IsTransient() bool {
	return s == SiteStatusBuilding || s == SiteStatusStarting || s == SiteStatusStopping
}

// SiteRuntime selects the ContainerDriver variant hosting a site.
type SiteRuntime string

const (
	RuntimeProcess SiteRuntime = "process"
	RuntimeDocker  SiteRuntime = "docker"
)

// SiteAction is a lifecycle operation requested on a site.
type SiteAction string

const (
	ActionBuild   SiteAction = "build"
	ActionRebuild SiteAction = "rebuild"
	ActionStart   SiteAction = "start"
	ActionStop    SiteAction = "stop"
	ActionRestart SiteAction = "restart"
	ActionDelete  SiteAction = "delete"
	ActionUpdate  SiteAction = "update"
)

var allowedFrom = map[SiteAction][]SiteStatus{
	ActionBuild:   {SiteStatusPending, SiteStatusStopped, SiteStatusError},
	ActionRebuild: {SiteStatusRunning, SiteStatusStopped, SiteStatusError},
	ActionStart:   {SiteStatusStopped},
	ActionStop:    {SiteStatusRunning},
	ActionRestart: {SiteStatusRunning, SiteStatusError},
	ActionDelete:  {SiteStatusStopped, SiteStatusError},
	ActionUpdate:  {SiteStatusPending, SiteStatusStopped, SiteStatusError},
}

// Allows reports whether action may start from status s.
func (s SiteStatus) Allows(action SiteAction) bool {
	return slices.Contains(allowedFrom[action], s)
}

// AllowedFrom lists the statuses an action may start from.
func AllowedFrom(action SiteAction) []SiteStatus {
	return slices.Clone(allowedFrom[action])
}

// Site is a managed web application with a build/run lifecycle.
type Site struct {
	ID           string
	Name         string
	Source       SiteSource
	SourceURL    string
	LocalPath    string
	Framework    string
	Branch       string
	BuildCommand string
	StartCommand string
	EnvVars      []string
	Domain       string
	Port         int
	Runtime      SiteRuntime
	Image        string
	Status       SiteStatus
	Handle       string
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy of the site.
func (s *Site) Clone() *Site {
	if s == nil {
		return nil
	}
	c := *s
	c.EnvVars = slices.Clone(s.EnvVars)
	return &c
}

// SiteSpec is the input used to create or update a site.
type SiteSpec struct {
	Name         string
	Source       SiteSource
	SourceURL    string
	LocalPath    string
	Framework    string
	Branch       string
	BuildCommand string
	StartCommand string
	EnvVars      []string
	Domain       string
	Port         int
	Runtime      SiteRuntime
	Image        string
}

const (
	defaultBranch   = "main"
	maxNameLength   = 100
	minNameLength   = 3
	maxBranchLength = 100
	maxCommandLen   = 500
	maxDomainLength = 255
)

var (
	siteNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	envKeyPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	domainPattern   = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z0-9][a-z0-9-]{0,61}[a-z0-9]$`)
)

// Normalize trims the spec and fills defaults that do not depend on configuration.
func (s SiteSpec) Normalize() SiteSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.SourceURL = strings.TrimSpace(s.SourceURL)
	s.LocalPath = strings.TrimSpace(s.LocalPath)
	s.Branch = strings.TrimSpace(s.Branch)
	s.Domain = strings.ToLower(strings.TrimSpace(s.Domain))
	s.Framework = strings.TrimSpace(s.Framework)
	if s.Source.IsRemote() && s.Branch == "" {
		s.Branch = defaultBranch
	}
	return s
}

// Validate checks the spec invariants and returns a ValidationError listing every bad field.
func (s SiteSpec) Validate() error {
	var fields []FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case len(s.Name) < minNameLength || len(s.Name) > maxNameLength:
		add("name", "must be between %d and %d characters", minNameLength, maxNameLength)
	case !siteNamePattern.MatchString(s.Name):
		add("name", "must contain only letters, numbers, hyphens and underscores")
	}

	switch s.Source {
	case SourceLocal:
		if s.LocalPath == "" {
			add("localPath", "is required when source is local")
		} else if !filepath.IsAbs(s.LocalPath) {
			add("localPath", "must be an absolute path")
		}
		if s.SourceURL != "" {
			add("sourceUrl", "must be empty when source is local")
		}
	case SourceGitHub, SourceGitLab:
		if s.SourceURL == "" {
			add("sourceUrl", "is required when source is %s", s.Source)
		} else if u, err := url.Parse(s.SourceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("sourceUrl", "must be an http(s) URL")
		}
		if s.LocalPath != "" {
			add("localPath", "must be empty when source is %s", s.Source)
		}
	default:
		add("source", "must be one of local, github, gitlab")
	}

	if s.Port < 1 || s.Port > 65535 {
		add("port", "must be between 1 and 65535")
	}
	if len(s.Branch) > maxBranchLength {
		add("branch", "must not exceed %d characters", maxBranchLength)
	}
	if len(s.BuildCommand) > maxCommandLen {
		add("buildCommand", "must not exceed %d characters", maxCommandLen)
	}
	if len(s.StartCommand) > maxCommandLen {
		add("startCommand", "must not exceed %d characters", maxCommandLen)
	}
	if s.Domain != "" && (len(s.Domain) > maxDomainLength || !domainPattern.MatchString(s.Domain)) {
		add("domain", "is not a valid domain name")
	}
	switch s.Runtime {
	case "", RuntimeProcess, RuntimeDocker:
	default:
		add("runtime", "must be one of process, docker")
	}

	seen := make(map[string]bool, len(s.EnvVars))
	for _, kv := range s.EnvVars {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || !envKeyPattern.MatchString(key) {
			add("envVars", "entry %q must be KEY=value", kv)
			continue
		}
		if seen[key] {
			add("envVars", "duplicate key %q", key)
		}
		seen[key] = true
	}

	if len(fields) > 0 {
		return &Error{Kind: KindValidation, Op: "validate site", Fields: fields}
	}
	return nil
}

// NewSite builds a pending site from a validated spec.
// Exactly one of SourceURL and LocalPath is kept, chosen by Source.
func NewSite(id string, spec SiteSpec, now time.Time) *Site {
	site := &Site{
		ID:        id,
		Status:    SiteStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	site.Apply(spec)
	return site
}

// Apply copies the spec onto the site, enforcing source/path exclusivity.
func (s *Site) Apply(spec SiteSpec) {
	s.Name = spec.Name
	s.Source = spec.Source
	s.Framework = spec.Framework
	s.Branch = spec.Branch
	s.BuildCommand = spec.BuildCommand
	s.StartCommand = spec.StartCommand
	s.EnvVars = slices.Clone(spec.EnvVars)
	s.Domain = spec.Domain
	s.Port = spec.Port
	s.Runtime = spec.Runtime
	s.Image = spec.Image
	if spec.Source == SourceLocal {
		s.LocalPath = spec.LocalPath
		s.SourceURL = ""
	} else {
		s.SourceURL = spec.SourceURL
		s.LocalPath = ""
	}
}

var frameworkImages = map[string]string{
	"node":    "node:20-alpine",
	"next":    "node:20-alpine",
	"nextjs":  "node:20-alpine",
	"nuxt":    "node:20-alpine",
	"react":   "node:20-alpine",
	"vue":     "node:20-alpine",
	"svelte":  "node:20-alpine",
	"astro":   "node:20-alpine",
	"python":  "python:3.12-slim",
	"django":  "python:3.12-slim",
	"flask":   "python:3.12-slim",
	"php":     "php:8.3-cli",
	"laravel": "php:8.3-cli",
	"ruby":    "ruby:3.3-slim",
	"rails":   "ruby:3.3-slim",
	"go":      "golang:1.24-alpine",
}

// DefaultImage returns the container image used for a framework when the site
// does not set one.
func DefaultImage(framework string) string {
	if image, ok := frameworkImages[strings.ToLower(strings.TrimSpace(framework))]; ok {
		return image
	}
	return "alpine:3.20"
}
