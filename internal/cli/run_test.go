package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/report"
	"github.com/roach88/apiparity/internal/testutil"
)

func decodeDocument(t *testing.T, out string) report.Document {
	t.Helper()
	doc, err := report.ReadJSON(strings.NewReader(out))
	require.NoError(t, err, out)
	return doc
}

func TestRun_Behavioral(t *testing.T) {
	api := testutil.NewFakeAPI(t)

	out, _, err := execute(t, "run", "--base-url", api.URL, "--suite", "behavioral", "--retries", "0", "--format", "json")
	require.NoError(t, err)

	doc := decodeDocument(t, out)
	require.Len(t, doc.Suites, 1)
	assert.Equal(t, ir.SuiteBehavioral, doc.Suites[0].Suite)
	assert.Equal(t, "pass", doc.Suites[0].Verdict)
	assert.Equal(t, ir.Summary{Passed: 24}, doc.Summary)
}

func TestRun_AllSuites(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	specPath := testutil.WriteSpec(t, "wds.yaml")

	out, _, err := execute(t, "run", "--base-url", api.URL, "--spec", specPath, "--retries", "0", "--format", "json")
	require.NoError(t, err)

	doc := decodeDocument(t, out)
	require.Len(t, doc.Suites, 2)
	assert.Equal(t, ir.SuiteBehavioral, doc.Suites[0].Suite)
	assert.Equal(t, ir.SuiteOpenAPI, doc.Suites[1].Suite)
	assert.Equal(t, specPath, doc.Suites[1].Source)
	assert.Equal(t, ir.Summary{Passed: 24}, doc.Suites[0].Summary)
	assert.Equal(t, ir.Summary{Passed: 22}, doc.Suites[1].Summary)
	assert.Equal(t, ir.Summary{Passed: 46}, doc.Summary)
}

func TestRun_TextOutput(t *testing.T) {
	api := testutil.NewFakeAPI(t)

	out, _, err := execute(t, "run", "--base-url", api.URL, "--suite", "behavioral", "--category", "health,basic", "--retries", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "behavioral suite")
	assert.Contains(t, out, "health")
	assert.NotContains(t, out, "data_quality")
	assert.Contains(t, out, "5 passed, 0 failed, 0 errored, 0 skipped")
	assert.True(t, strings.HasSuffix(out, "PASS\n"))
}

func TestRun_FailuresExitOne(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.WithLenientErrors())
	specPath := testutil.WriteSpec(t, "wds.yaml")

	out, _, err := execute(t, "run", "--base-url", api.URL, "--spec", specPath, "--suite", "openapi",
		"--strategy", "invalid", "--retries", "0", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed")

	doc := decodeDocument(t, out)
	assert.Positive(t, doc.Summary.Failed)
	assert.Equal(t, "fail", doc.Suites[0].Verdict)
}

func TestRun_SpecLoadErrorExitThree(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	out, _, err := execute(t, "run", "--base-url", api.URL, "--spec", missing, "--suite", "openapi", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitSpecLoad, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSpecLoad, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "UNREACHABLE")
	assert.Zero(t, api.Hits("/wds"), "no probe runs after a load failure")
}

func TestRun_InvalidConfigExitTwo(t *testing.T) {
	out, _, err := execute(t, "run", "--suite", "behavioral")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Contains(t, out, "base_url is required")

	_, _, err = execute(t, "run", "--base-url", "http://localhost:1", "--suite", "everything")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_ConfigFileWithFlagOverrides(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	cfgPath := filepath.Join(t.TempDir(), "apiparity.yaml")
	cfgYAML := "base_url: " + api.URL + "\nsuite: behavioral\nretries: 0\ncategories: [data_quality]\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	out, _, err := execute(t, "run", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	doc := decodeDocument(t, out)
	assert.Equal(t, 2, doc.Summary.Total())

	out, _, err = execute(t, "run", "--config", cfgPath, "--category", "health", "--format", "json")
	require.NoError(t, err)
	doc = decodeDocument(t, out)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "health", doc.Results[0].Category)
}

func TestRun_WritesReportFiles(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	xlsxPath := filepath.Join(dir, "report.xlsx")

	_, _, err := execute(t, "run", "--base-url", api.URL, "--suite", "behavioral", "--retries", "0",
		"--json-out", jsonPath, "--xlsx-out", xlsxPath)
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	doc := decodeDocument(t, string(data))
	assert.Equal(t, 24, doc.Summary.Passed)

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "behavioral"}, f.GetSheetList())
}

func TestRun_UnwritableReportFile(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	bad := filepath.Join(t.TempDir(), "missing", "report.json")

	_, _, err := execute(t, "run", "--base-url", api.URL, "--suite", "behavioral", "--category", "health",
		"--retries", "0", "--json-out", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
