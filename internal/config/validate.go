package config

import (
	"fmt"
	"net/url"
	"strings"

	"statesdb/internal/logging"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block a run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "fetch.max_retries"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownStorageKinds = map[string]bool{"sqlite": true, "postgres": true, "mssql": true}

// Validate performs static validation of c. It does not mutate c; callers
// decide whether warnings are fatal.
func (c Config) Validate() []Issue {
	var issues []Issue
	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(c.Source)...)
	issues = append(issues, validateFetch(c.Fetch, c.Source.MirrorDir != "")...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	issues = append(issues, validateStorage(c)...)
	issues = append(issues, validateLogging(c.Logging)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	explicit := len(s.Locators) > 0 || s.LocatorsFile != ""
	if !explicit && strings.TrimSpace(s.ListPage) == "" {
		errorf("source.list_page", "list_page must be set unless locators or locators_file are given")
	}

	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errorf("source.base_url", "base_url %q must be an absolute http(s) URL", s.BaseURL)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errorf("source.base_url", "base_url scheme %q is not http or https", u.Scheme)
		}
	} else if s.MirrorDir == "" {
		for _, p := range append([]string{s.ListPage, s.BordersPage}, s.Locators...) {
			if strings.HasPrefix(p, "/") {
				errorf("source.base_url", "relative locator %q needs base_url", p)
				break
			}
		}
	}

	if s.MirrorDir != "" && s.SaveDir != "" {
		errorf("source.save_dir", "save_dir and mirror_dir are mutually exclusive")
	}
	if s.BordersPage == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.borders_page",
			Message:  "borders_page is empty; no border edges will be loaded",
		})
	}
	return issues
}

func validateFetch(f Fetch, offline bool) []Issue {
	var issues []Issue
	negative := func(path string, v int64) {
		if v < 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf("%s must not be negative", path)})
		}
	}
	negative("fetch.timeout", int64(f.Timeout))
	negative("fetch.max_retries", int64(f.MaxRetries))
	negative("fetch.initial_backoff", int64(f.InitialBackoff))
	negative("fetch.max_backoff", int64(f.MaxBackoff))
	negative("fetch.per_host_delay", int64(f.PerHostDelay))
	negative("fetch.max_concurrent_requests", int64(f.MaxConcurrentRequests))
	negative("fetch.max_body_bytes", f.MaxBodyBytes)

	if f.MaxBackoff > 0 && f.InitialBackoff > f.MaxBackoff {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "fetch.initial_backoff",
			Message:  fmt.Sprintf("initial_backoff %s exceeds max_backoff %s", f.InitialBackoff, f.MaxBackoff),
		})
	}
	if f.MaxRetries > 10 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "fetch.max_retries",
			Message:  fmt.Sprintf("max_retries=%d; a failing page will hold a worker for a long time", f.MaxRetries),
		})
	}
	if !offline && f.PerHostDelay == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "fetch.per_host_delay",
			Message:  "per_host_delay is 0; requests to the source are not spaced",
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.Workers <= 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.workers", Message: "workers must be positive"})
	} else if r.Workers > 32 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.workers",
			Message:  fmt.Sprintf("workers=%d; fetches are still capped by fetch.max_concurrent_requests", r.Workers),
		})
	}
	if r.QueueSize < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.queue_size", Message: "queue_size must not be negative"})
	}
	if r.LoadTimeout <= 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.load_timeout", Message: "load_timeout must be positive"})
	}
	if _, err := r.ResumeTime(); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.resume_after",
			Message:  fmt.Sprintf("resume_after %q is not an RFC3339 timestamp", r.ResumeAfter),
		})
	}
	return issues
}

func validateStorage(c Config) []Issue {
	var issues []Issue
	s := c.Storage
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{Severity: SeverityError, Path: "storage.kind", Message: "storage.kind must not be empty"})
	}
	if !knownStorageKinds[s.Kind] {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.dsn", Message: "storage.dsn must not be empty"})
	}
	if s.MaxOpenConns < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.max_open_conns", Message: "max_open_conns must not be negative"})
	}
	if s.Kind == "sqlite" && c.Runtime.ResumeAfter != "" && s.DSN == ":memory:" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.resume_after",
			Message:  "resume_after has no effect on an in-memory sqlite store",
		})
	}
	return issues
}

func validateLogging(l logging.Config) []Issue {
	var issues []Issue
	if _, err := logging.ParseLevel(l.Level); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "logging.level", Message: err.Error()})
	}
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "json", "console":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "logging.format",
			Message:  fmt.Sprintf("unknown format %q; use json or console", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
	case "prometheus":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway_url is required for the prometheus backend",
			})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is required for the datadog backend",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; use none, prometheus or datadog", m.Backend),
		})
	}
	return issues
}
