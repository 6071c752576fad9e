// Package config defines the configuration of an ingestion run: where pages
// come from, how politely they are fetched, how the pipeline is sized, which
// store receives the data and how the run is observed.
//
// A config file is YAML (JSON is accepted too, being a YAML subset). Every
// field has a default, so an empty file plus STATESDB_* environment
// overrides is a valid configuration.
//
// Example (trimmed):
//
//	job: statesdb-ingest
//	source:
//	  base_url: https://en.wikipedia.org
//	  list_page: /wiki/List_of_sovereign_states
//	  borders_page: /wiki/List_of_countries_and_territories_by_land_borders
//	fetch:
//	  per_host_delay: 500ms
//	  max_retries: 3
//	runtime:
//	  workers: 4
//	storage:
//	  kind: sqlite
//	  dsn: states.db
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"statesdb/internal/logging"
	"statesdb/internal/storage"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job" yaml:"job"`

	Source  Source         `json:"source" yaml:"source"`
	Fetch   Fetch          `json:"fetch" yaml:"fetch"`
	Runtime Runtime        `json:"runtime" yaml:"runtime"`
	Storage storage.Config `json:"storage" yaml:"storage"`
	Logging logging.Config `json:"logging" yaml:"logging"`
	Metrics Metrics        `json:"metrics" yaml:"metrics"`
}

// Source says which pages make up a run.
type Source struct {
	// BaseURL resolves relative locators such as "/wiki/France".
	BaseURL string `json:"base_url" yaml:"base_url"`
	// ListPage is the sovereign-state list the country locators are
	// discovered from.
	ListPage string `json:"list_page" yaml:"list_page"`
	// BordersPage is the land-border table. Empty means neighbours are not
	// collected.
	BordersPage string `json:"borders_page" yaml:"borders_page"`
	// Locators, when set, replace discovery through ListPage.
	Locators []string `json:"locators,omitempty" yaml:"locators,omitempty"`
	// LocatorsFile is a file with one locator per line; it also replaces
	// discovery.
	LocatorsFile string `json:"locators_file,omitempty" yaml:"locators_file,omitempty"`
	// MirrorDir replays a run from saved pages instead of the network.
	MirrorDir string `json:"mirror_dir,omitempty" yaml:"mirror_dir,omitempty"`
	// SaveDir records every fetched page so the run can be replayed later.
	SaveDir string `json:"save_dir,omitempty" yaml:"save_dir,omitempty"`
}

// Fetch tunes the HTTP fetcher.
type Fetch struct {
	UserAgent             string        `json:"user_agent" yaml:"user_agent"`
	Timeout               time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries            int           `json:"max_retries" yaml:"max_retries"`
	InitialBackoff        time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff            time.Duration `json:"max_backoff" yaml:"max_backoff"`
	PerHostDelay          time.Duration `json:"per_host_delay" yaml:"per_host_delay"`
	MaxConcurrentRequests int           `json:"max_concurrent_requests" yaml:"max_concurrent_requests"`
	MaxBodyBytes          int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// Runtime sizes the pipeline.
type Runtime struct {
	// Workers run fetch, extract and normalize concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// QueueSize bounds the channel between the workers and the loader.
	QueueSize int `json:"queue_size" yaml:"queue_size"`
	// LoadTimeout bounds one country's load transaction.
	LoadTimeout time.Duration `json:"load_timeout" yaml:"load_timeout"`
	// ResumeAfter (RFC3339) skips countries last scraped at or after it.
	ResumeAfter string `json:"resume_after,omitempty" yaml:"resume_after,omitempty"`
}

// ResumeTime parses ResumeAfter. The zero time means no resume cursor.
func (r Runtime) ResumeTime() (time.Time, error) {
	if r.ResumeAfter == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, r.ResumeAfter)
	if err != nil {
		return time.Time{}, fmt.Errorf("runtime.resume_after: %w", err)
	}
	return t.UTC(), nil
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is none, prometheus or datadog.
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url,omitempty" yaml:"pushgateway_url,omitempty"`
	DatadogAddr    string   `json:"datadog_addr,omitempty" yaml:"datadog_addr,omitempty"`
	Namespace      string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Job: "statesdb-ingest",
		Source: Source{
			BaseURL:     "https://en.wikipedia.org",
			ListPage:    "/wiki/List_of_sovereign_states",
			BordersPage: "/wiki/List_of_countries_and_territories_by_land_borders",
		},
		Fetch: Fetch{
			UserAgent:             "StatesOfTheWorldAgent/1.0",
			Timeout:               20 * time.Second,
			MaxRetries:            3,
			InitialBackoff:        500 * time.Millisecond,
			MaxBackoff:            10 * time.Second,
			PerHostDelay:          250 * time.Millisecond,
			MaxConcurrentRequests: 4,
			MaxBodyBytes:          8 << 20,
		},
		Runtime: Runtime{
			Workers:     4,
			QueueSize:   16,
			LoadTimeout: 30 * time.Second,
		},
		Storage: storage.Config{Kind: "sqlite", DSN: "states.db"},
		Logging: logging.Config{Level: "info", Format: "json"},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Decode(bytes.NewReader(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes YAML or JSON from r into cfg, keeping fields r does not set.
// Unknown keys are an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
