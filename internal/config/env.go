package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STATESDB_"

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a LookupFunc over the process environment backed by the
// given .env files. Process variables win over files; earlier files win over
// later ones. Missing files are skipped.
func EnvLookup(dotenv ...string) (LookupFunc, error) {
	fileVars := map[string]string{}
	for i := len(dotenv) - 1; i >= 0; i-- {
		path := dotenv[i]
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		for k, v := range vars {
			fileVars[k] = v
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays STATESDB_* variables onto c. Unparseable numbers and
// durations are reported, not ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := envReader{lookup: lookup}

	e.str("JOB", &c.Job)
	e.str("BASE_URL", &c.Source.BaseURL)
	e.str("LIST_PAGE", &c.Source.ListPage)
	e.str("BORDERS_PAGE", &c.Source.BordersPage)
	e.str("LOCATORS_FILE", &c.Source.LocatorsFile)
	e.str("MIRROR_DIR", &c.Source.MirrorDir)
	e.str("SAVE_DIR", &c.Source.SaveDir)
	if v, ok := e.get("LOCATORS"); ok {
		c.Source.Locators = splitCSV(v)
	}

	e.str("USER_AGENT", &c.Fetch.UserAgent)
	e.duration("FETCH_TIMEOUT", &c.Fetch.Timeout)
	e.integer("MAX_RETRIES", &c.Fetch.MaxRetries)
	e.duration("PER_HOST_DELAY", &c.Fetch.PerHostDelay)
	e.integer("MAX_CONCURRENT_REQUESTS", &c.Fetch.MaxConcurrentRequests)

	e.integer("WORKERS", &c.Runtime.Workers)
	e.integer("QUEUE_SIZE", &c.Runtime.QueueSize)
	e.duration("LOAD_TIMEOUT", &c.Runtime.LoadTimeout)
	e.str("RESUME_AFTER", &c.Runtime.ResumeAfter)

	e.str("STORAGE_KIND", &c.Storage.Kind)
	e.str("STORAGE_DSN", &c.Storage.DSN)
	e.integer("STORAGE_MAX_OPEN_CONNS", &c.Storage.MaxOpenConns)

	e.str("LOG_LEVEL", &c.Logging.Level)
	e.str("LOG_FORMAT", &c.Logging.Format)

	e.str("METRICS_BACKEND", &c.Metrics.Backend)
	e.str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	e.str("DATADOG_ADDR", &c.Metrics.DatadogAddr)

	return e.err
}

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s%s=%q: not an integer", EnvPrefix, name, v)
		return
	}
	*dst = n
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("config: %s%s=%q: not a duration", EnvPrefix, name, v)
		return
	}
	*dst = d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
