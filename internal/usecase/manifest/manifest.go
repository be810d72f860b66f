// Package manifest imports declared sites, webhooks and cron jobs from a YAML file.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the declarative file format.
type Manifest struct {
	Webhooks []WebhookDecl `yaml:"webhooks"`
	Sites    []SiteDecl    `yaml:"sites"`
	Cron     []CronDecl    `yaml:"cron"`
}

// WebhookDecl declares a webhook.
type WebhookDecl struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Active  *bool             `yaml:"active"`
}

// SiteDecl declares a site.
type SiteDecl struct {
	Name         string   `yaml:"name"`
	Source       string   `yaml:"source"`
	URL          string   `yaml:"url"`
	Path         string   `yaml:"path"`
	Framework    string   `yaml:"framework"`
	Branch       string   `yaml:"branch"`
	BuildCommand string   `yaml:"build"`
	StartCommand string   `yaml:"start"`
	Env          []string `yaml:"env"`
	Domain       string   `yaml:"domain"`
	Port         int      `yaml:"port"`
	Runtime      string   `yaml:"runtime"`
	Image        string   `yaml:"image"`
	Build        bool     `yaml:"build_on_import"`
}

// CronDecl declares a cron job. Site and webhook targets are referenced by name.
type CronDecl struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Command  string `yaml:"command"`
	Webhook  string `yaml:"webhook"`
	Site     string `yaml:"site"`
	Action   string `yaml:"action"`
	Enabled  *bool  `yaml:"enabled"`
}

// Parse decodes a manifest, rejecting unknown keys.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return &m, nil
		}
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}
