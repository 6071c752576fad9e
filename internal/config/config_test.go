package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, cfg.Validate(), "defaults must validate cleanly")
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "statesdb.yaml", `
job: nightly
source:
  locators: [/wiki/France, /wiki/Spain]
fetch:
  per_host_delay: 1s
  max_retries: 5
runtime:
  workers: 2
  load_timeout: 45s
  resume_after: 2025-01-01T00:00:00Z
storage:
  kind: postgres
  dsn: postgres://u@localhost/states
  max_open_conns: 8
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Job)
	assert.Equal(t, []string{"/wiki/France", "/wiki/Spain"}, cfg.Source.Locators)
	assert.Equal(t, "https://en.wikipedia.org", cfg.Source.BaseURL, "unset fields keep defaults")
	assert.Equal(t, time.Second, cfg.Fetch.PerHostDelay)
	assert.Equal(t, 5, cfg.Fetch.MaxRetries)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Runtime.Workers)
	assert.Equal(t, 45*time.Second, cfg.Runtime.LoadTimeout)
	assert.Equal(t, "postgres", cfg.Storage.Kind)
	assert.Equal(t, 8, cfg.Storage.MaxOpenConns)
	assert.Equal(t, "debug", cfg.Logging.Level)

	resume, err := cfg.Runtime.ResumeTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), resume)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "statesdb.json", `{"job": "j", "storage": {"kind": "sqlite", "dsn": ":memory:"}, "runtime": {"workers": 3}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "j", cfg.Job)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, 3, cfg.Runtime.Workers)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "typo.yaml", "runtime:\n  wrokers: 3\n")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrokers")
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	want := Defaults()
	want.Source.Locators = []string{"/wiki/Chad"}
	raw, err := Marshal(want)
	require.NoError(t, err)

	got := Config{}
	require.NoError(t, Decode(strings.NewReader(string(raw)), &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"STATESDB_STORAGE_KIND":   "mssql",
		"STATESDB_STORAGE_DSN":    "sqlserver://sa@localhost?database=states",
		"STATESDB_WORKERS":        "8",
		"STATESDB_PER_HOST_DELAY": "2s",
		"STATESDB_LOCATORS":       "/wiki/Peru, ,/wiki/Chile",
		"STATESDB_LOG_LEVEL":      "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "mssql", cfg.Storage.Kind)
	assert.Equal(t, "sqlserver://sa@localhost?database=states", cfg.Storage.DSN)
	assert.Equal(t, 8, cfg.Runtime.Workers)
	assert.Equal(t, 2*time.Second, cfg.Fetch.PerHostDelay)
	assert.Equal(t, []string{"/wiki/Peru", "/wiki/Chile"}, cfg.Source.Locators)
	assert.Equal(t, "info", cfg.Logging.Level, "blank values do not override")

	tests := []struct {
		key, value string
	}{
		{"STATESDB_WORKERS", "many"},
		{"STATESDB_LOAD_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		cfg := Defaults()
		err := cfg.ApplyEnv(func(k string) (string, bool) {
			if k == tt.key {
				return tt.value, true
			}
			return "", false
		})
		if err == nil || !strings.Contains(err.Error(), tt.key) {
			t.Fatalf("ApplyEnv(%s=%q) err=%v, want error naming the variable", tt.key, tt.value, err)
		}
	}
}

func TestEnvLookup_DotEnvFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env.local")
	second := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(first, []byte("STATESDB_JOB=local\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("STATESDB_JOB=shared\nSTATESDB_WORKERS=6\nSTATESDB_STORAGE_DSN=file.db\n"), 0o644))
	t.Setenv("STATESDB_STORAGE_DSN", "process.db")

	lookup, err := EnvLookup(first, second, filepath.Join(dir, "absent.env"))
	require.NoError(t, err)

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "local", cfg.Job, "earlier files win")
	assert.Equal(t, 6, cfg.Runtime.Workers)
	assert.Equal(t, "process.db", cfg.Storage.DSN, "process environment wins")
}
