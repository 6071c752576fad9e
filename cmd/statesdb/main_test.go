package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statesdb/internal/audit"
	"statesdb/internal/datasource/file"
	"statesdb/internal/model"
	"statesdb/internal/pipeline"
)

const infobox = `<html><body><h1 id="firstHeading">%s</h1>
<table class="infobox"><tbody>
<tr><th>Capital</th><td><a href="/wiki/%s">%s</a></td></tr>
<tr><th>Official languages</th><td>%s</td></tr>
<tr><th>Government</th><td>Unitary semi-presidential republic</td></tr>
<tr><th>• Total area</th><td>%s km<sup>2</sup></td></tr>
<tr><th>• 2024 estimate</th><td>%s</td></tr>
<tr><th>Time zone</th><td>UTC+1</td></tr>
</tbody></table></body></html>`

const listHTML = `<html><body><table class="wikitable">
<tr><th>Common and formal names</th><th>Membership within the UN System</th></tr>
<tr><td><a href="/wiki/France">France</a></td><td>UN member</td></tr>
<tr><td><a href="/wiki/Spain">Spain</a></td><td>UN member</td></tr>
</table></body></html>`

const bordersHTML = `<html><body><table class="wikitable">
<tr><th>Country</th><th>Length</th><th>No.</th><th>Neighbours</th></tr>
<tr><td><a href="/wiki/France">France</a></td><td>1</td><td>1</td><td><a href="/wiki/Spain">Spain</a></td></tr>
<tr><td><a href="/wiki/Spain">Spain</a></td><td>1</td><td>1</td><td><a href="/wiki/France">France</a></td></tr>
</table></body></html>`

// workspace writes a mirror of a two-country wiki and a config pointing at
// it, returning the config path.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mirror := filepath.Join(dir, "mirror")
	require.NoError(t, os.MkdirAll(mirror, 0o755))

	pages := map[string]string{
		"/wiki/List":    listHTML,
		"/wiki/Borders": bordersHTML,
		"/wiki/France":  fmt.Sprintf(infobox, "France", "Paris", "Paris", "French", "643,801", "68 million"),
		"/wiki/Spain":   fmt.Sprintf(infobox, "Spain", "Madrid", "Madrid", "Spanish", "505,990", "48,000,000"),
	}
	for locator, body := range pages {
		require.NoError(t, os.WriteFile(file.PagePath(mirror, locator), []byte(body), 0o644))
	}

	cfg := fmt.Sprintf(`job: cli-test
source:
  list_page: /wiki/List
  borders_page: /wiki/Borders
  mirror_dir: %q
runtime:
  workers: 2
storage:
  kind: sqlite
  dsn: %q
logging:
  level: error
`, mirror, filepath.Join(dir, "states.db"))
	path := filepath.Join(dir, "statesdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestThenQuery(t *testing.T) {
	cfg := workspace(t)
	reportPath := filepath.Join(filepath.Dir(cfg), "report.json")

	out, err := execute(t, "--config", cfg, "ingest", "--report", reportPath)
	require.NoError(t, err)
	var rep pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.Listed)
	assert.Equal(t, 2, rep.Loaded)
	assert.Empty(t, rep.Failed)
	assert.FileExists(t, reportPath)

	out, err = execute(t, "--config", cfg, "country", "France")
	require.NoError(t, err)
	var c countryView
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, "France", c.Name)
	require.NotNil(t, c.Population)
	assert.Equal(t, int64(68_000_000), *c.Population)
	assert.Equal(t, []string{"French"}, c.Languages)
	require.Len(t, c.Neighbors, 1)
	assert.Equal(t, "Spain", c.Neighbors[0].Name)

	out, err = execute(t, "--config", cfg, "list", "--sort", "population", "--desc", "--limit", "1")
	require.NoError(t, err)
	var list []model.Country
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "France", list[0].Name)

	out, err = execute(t, "--config", cfg, "list", "--max-population", "50000000")
	require.NoError(t, err)
	list = nil
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Spain", list[0].Name)

	exportPath := filepath.Join(filepath.Dir(cfg), "states.json")
	_, err = execute(t, "--config", cfg, "export", "--out", exportPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var snapshot []model.CountryDetail
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	require.Len(t, snapshot, 2)
	assert.Equal(t, []string{"Spain"}, snapshot[0].Neighbors)

	out, err = execute(t, "--config", cfg, "audit", "--report", reportPath, "--json", "--strict")
	require.NoError(t, err)
	var ar audit.Report
	require.NoError(t, json.Unmarshal([]byte(out), &ar))
	assert.Equal(t, 2, ar.World.Countries)
	assert.Empty(t, ar.AsymmetricBorders)
}

func TestCountryNotFound(t *testing.T) {
	cfg := workspace(t)
	_, err := execute(t, "--config", cfg, "country", "Atlantis")
	require.Error(t, err)
}

func TestListRejectsUnknownSortKey(t *testing.T) {
	cfg := workspace(t)
	_, err := execute(t, "--config", cfg, "list", "--sort", "capital")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := workspace(t)
	out, err := execute(t, "--config", cfg, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("storage:\n  kind: sqlite\n  dsn: \"\"\nlogging:\n  level: loud\n"), 0o644))
	out, err = execute(t, "--config", bad, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "error: storage.dsn:")
	assert.True(t, strings.Contains(out, "error: logging"), out)
}

func TestIngestRejectsInvalidConfig(t *testing.T) {
	cfg := workspace(t)
	_, err := execute(t, "--config", cfg, "ingest", "--workers=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime.workers")
}
