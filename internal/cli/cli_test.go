package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/grant-triage/internal/export"
	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/table"
)

const masterCSV = `Grant Name,Sponsor,Link,Deadline,Relevance,EQORE Fit,Ease of Use,Match %
Solar Grant,DOE,https://x/1,2099-01-01,4,3,5,10
Expired Grant,DOE,https://x/2,2000-01-01,4,3,5,10
Irrelevant Grant,DOE,https://x/3,2099-01-01,0,3,5,10
`

// run executes the root command with a config that keeps all state under dir.
func run(t *testing.T, dir, baseURL string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, "grant-triage.yml")
	body := fmt.Sprintf("paths:\n  output_dir: %s\n  data_dir: %s\nfetch:\n  requests_per_second: 100\n",
		filepath.Join(dir, "outputs"), filepath.Join(dir, "data"))
	if baseURL != "" {
		body += fmt.Sprintf("  base_url: %s\n", baseURL)
	}
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"missing input", fmt.Errorf("loading master: %w", table.ErrInputNotFound), ExitInput},
		{"malformed", fmt.Errorf("loading master: %w", table.ErrMalformed), ExitInput},
		{"missing column", fmt.Errorf("loading master: %w", opportunity.ErrMissingColumn), ExitInput},
		{"other", fmt.Errorf("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestScoreCommand_Text(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "master.csv")
	require.NoError(t, os.WriteFile(input, []byte(masterCSV), 0o644))

	out, err := run(t, dir, "", "score", "--input", input, "--today", "2024-06-01")
	require.NoError(t, err)

	assert.Contains(t, out, "Scored 3 opportunities")
	assert.Contains(t, out, "Clean:      1")
	assert.Contains(t, out, "Dirty:      1")
	assert.Contains(t, out, "OutOfScope: 1")
	assert.Contains(t, out, "1. Solar Grant (DOE) score 12")
	assert.FileExists(t, filepath.Join(dir, "outputs", export.FileClean))
	assert.FileExists(t, filepath.Join(dir, "outputs", export.FileWorkbook))
}

func TestScoreCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "master.csv")
	require.NoError(t, os.WriteFile(input, []byte(masterCSV), 0o644))

	out, err := run(t, dir, "", "run", "--input", input, "--today", "2024-06-01", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Total int `json:"total"`
		Clean int `json:"clean"`
		Top   []struct {
			GrantName string `json:"grant_name"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Clean)
	require.Len(t, got.Top, 1)
	assert.Equal(t, "Solar Grant", got.Top[0].GrantName)
}

func TestScoreCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "score", "--input", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, ExitInput, ExitCode(err))
	assert.NoDirExists(t, filepath.Join(dir, "outputs"))

	_, err = run(t, dir, "", "score", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitError, ExitCode(err))

	_, err = run(t, dir, "", "score", "--today", "June 1st")
	require.Error(t, err)
}

func TestTemplateCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "grants_raw_solar.csv")
	require.NoError(t, os.WriteFile(input, []byte("Grant name,Sponsor org,Link,App deadline\nSolar,DOE,https://x/1,2099-01-01\n"), 0o644))
	outfile := filepath.Join(dir, "master.csv")

	out, err := run(t, dir, "", "template", input, "--outfile", outfile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote scoring template with 1 rows")

	got, err := table.Read(outfile)
	require.NoError(t, err)
	for _, col := range append(opportunity.IdentityColumns, opportunity.ScoringColumns...) {
		assert.GreaterOrEqual(t, got.Index(col), 0, col)
	}
	assert.Equal(t, "Solar", got.Get(0, "Grant Name"))
}

func fakeSearch(t *testing.T, failing bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/search2" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"errorcode":0,"msg":"ok","data":{"hitCount":2,"oppHits":[
			{"id":"101","number":"DE-FOA-1","title":"Solar Grant","agency":"Department of Energy","openDate":"01/15/2024","closeDate":"03/01/2099","oppStatus":"posted"},
			{"id":"102","number":"NSF-2","title":"Wind Grant","agencyCode":"NSF","openDate":"02/01/2024","closeDate":"","oppStatus":"forecasted"}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCommand(t *testing.T) {
	dir := t.TempDir()
	srv := fakeSearch(t, false)
	path := filepath.Join(dir, "raw.csv")

	out, err := run(t, dir, srv.URL, "fetch", "solar", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote raw fetch with 2 rows to "+path)

	got, err := table.Read(path)
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Solar Grant", got.Get(0, "Grant Name"))
	assert.Equal(t, "NSF", got.Get(1, "Sponsor"))
	assert.FileExists(t, filepath.Join(dir, "data", "cache.db"))
}

func TestFetchCommand_CacheFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.csv")

	_, err := run(t, dir, fakeSearch(t, false).URL, "fetch", "solar", "--out", path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	out, err := run(t, dir, fakeSearch(t, true).URL, "fetch", "solar", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "using cached results")
	assert.FileExists(t, path)
}

func TestFetchCommand_NoCache(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, fakeSearch(t, true).URL, "fetch", "solar", "--out", filepath.Join(dir, "raw.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached snapshot")
}

func TestPrepareCommand(t *testing.T) {
	dir := t.TempDir()
	srv := fakeSearch(t, false)
	raw := filepath.Join(dir, "raw.csv")
	masterPath := filepath.Join(dir, "master.csv")

	out, err := run(t, dir, srv.URL, "prepare", "solar", "--raw-out", raw, "--master-out", masterPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote scoring master with 2 rows")

	got, err := table.Read(masterPath)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Index("Relevance"), 0)
	assert.Equal(t, "", got.Get(0, "Relevance"))
}

func TestFetchCommand_EmptyQuery(t *testing.T) {
	dir := t.TempDir()
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unexpected", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	path := filepath.Join(dir, "raw.csv")

	_, err := run(t, dir, srv.URL, "fetch", "  ", "--out", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty query")
	assert.Zero(t, hits)
	assert.NoFileExists(t, path)

	_, err = run(t, dir, fakeSearch(t, false).URL, "fetch", "", "--agency", "doe", "--out", path)
	require.NoError(t, err, "a filter alone is enough")
}
