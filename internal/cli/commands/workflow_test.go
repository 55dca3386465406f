package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dashgen/internal/cli/testutil"
	fstest "github.com/leapstack-labs/dashgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportedDashboard = `{
  "title": "My Board",
  "panels": [
    {"id": 7, "type": "graph", "targets": [{"expr": "up", "refId": "A"}]}
  ]
}`

func projectFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fstest.WriteFiles(t, dir, map[string]string{
		"config.yml": `datasource: [prometheus, influxdb]
labels: [job]
output_format: [json, yaml]
target: [panels]
`,
		"templates/01_targets/up.yml.j2":   "expr: up\n",
		"templates/02_panels/_base.yml.j2": "type: graph\n",
		"templates/02_panels/cpu.yml.j2":   "title: cpu @{ datasource }@\ntargets:\n- @{ targets[\"up\"] | to_nice_yaml | indent(2) }@\n",
		"templates/03_rows/":               "",
	})
	return dir
}

func projectArgs(dir string) []string {
	return []string{
		"--config", filepath.Join(dir, "config.yml"),
		"--templates", filepath.Join(dir, "templates"),
	}
}

func TestBuild_Text(t *testing.T) {
	dir := projectFixture(t)

	res := testutil.RunCommand(t, NewBuildCommand(),
		append(projectArgs(dir), "--output", filepath.Join(dir, "out"))...)
	require.NoError(t, res.Err, res.Stderr)

	testutil.AssertNoANSI(t, res.Stdout)
	assert.Contains(t, res.Stdout, "Processing datasource: prometheus")
	assert.Contains(t, res.Stdout, "Processing datasource: influxdb")
	assert.Contains(t, res.Stdout, "Processing template: 02_panels/cpu.yml.j2")
	assert.Contains(t, res.Stdout, "✓ Build completed successfully!")

	tree := fstest.ReadTree(t, filepath.Join(dir, "out"))
	assert.Equal(t, []string{
		"json/influxdb/panels/cpu.json",
		"json/prometheus/panels/cpu.json",
		"yaml/influxdb/panels/cpu.yaml",
		"yaml/prometheus/panels/cpu.yaml",
	}, fstest.SortedKeys(tree))
	assert.Equal(t, "title: cpu influxdb\ntargets:\n- expr: up\n", tree["yaml/influxdb/panels/cpu.yaml"])
}

func TestBuild_JSONSummary(t *testing.T) {
	dir := projectFixture(t)

	res := testutil.RunCommand(t, NewBuildCommand(),
		append(projectArgs(dir), "--output", filepath.Join(dir, "out"), "--format", "json")...)
	require.NoError(t, res.Err, res.Stderr)

	var summary buildSummary
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &summary), "stdout holds only the summary")
	assert.Equal(t, 2, summary.Datasources)
	assert.Equal(t, 6, summary.Rendered)
	assert.Len(t, summary.Written, 4)
}

func TestBuild_Errors(t *testing.T) {
	dir := projectFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing config",
			args:    []string{"--config", filepath.Join(dir, "nope.yml")},
			wantErr: "config file not found",
		},
		{
			name:    "missing templates",
			args:    []string{"--config", filepath.Join(dir, "config.yml"), "--templates", filepath.Join(dir, "nope")},
			wantErr: "templates directory",
		},
		{
			name:    "unknown format",
			args:    append(projectArgs(dir), "--format", "xml"),
			wantErr: "xml",
		},
		{
			name:    "positional args",
			args:    []string{"extra"},
			wantErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testutil.RunCommand(t, NewBuildCommand(), tt.args...)
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tt.wantErr)
		})
	}
}

func TestList(t *testing.T) {
	dir := projectFixture(t)

	t.Run("markdown", func(t *testing.T) {
		res := testutil.RunCommand(t, NewListCommand(), projectArgs(dir)...)
		require.NoError(t, res.Err)

		testutil.AssertNoANSI(t, res.Stdout)
		testutil.AssertValidMarkdown(t, res.Stdout)
		assert.Contains(t, res.Stdout, "# Categories (3 total)")
		assert.Contains(t, res.Stdout, "| # | Directory | Category | Count | Templates |")
		assert.Contains(t, res.Stdout, "| 02_panels | panels |")
		assert.Contains(t, res.Stdout, "_base, cpu")
	})

	t.Run("json", func(t *testing.T) {
		res := testutil.RunCommand(t, NewListCommand(), append(projectArgs(dir), "--format", "json")...)
		require.NoError(t, res.Err)

		var infos []categoryInfo
		require.NoError(t, json.Unmarshal([]byte(res.Stdout), &infos))
		assert.Equal(t, []categoryInfo{
			{Order: 1, Dir: "01_targets", Category: "targets", Templates: []string{"up"}},
			{Order: 2, Dir: "02_panels", Category: "panels", Templates: []string{"_base", "cpu"}},
			{Order: 3, Dir: "03_rows", Category: "rows", Templates: []string{}},
		}, infos)
	})

	t.Run("without config", func(t *testing.T) {
		res := testutil.RunCommand(t, NewListCommand(), "--config", filepath.Join(dir, "nope.yml"),
			"--templates", filepath.Join(dir, "templates"), "--format", "json")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, `"category": "targets"`)
	})
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	fstest.WriteFiles(t, dir, map[string]string{"dashboard.json": exportedDashboard})
	templates := filepath.Join(dir, "templates")

	res := testutil.RunCommand(t, NewConvertCommand(),
		"--input", filepath.Join(dir, "dashboard.json"), "--templates", templates)
	require.NoError(t, res.Err, res.Stderr)

	assert.Contains(t, res.Stdout, "(0 variables, 0 inputs, 1 targets, 1 panels, 0 rows)")
	assert.Contains(t, res.Stdout, "✓ Conversion completed successfully!")

	tree := fstest.ReadTree(t, templates)
	assert.Equal(t, []string{
		"01_targets/7_t0.yml.j2",
		"02_panels/7.yml.j2",
		"04_dashboards/my_board.yml.j2",
	}, fstest.SortedKeys(tree))
}

func TestConvert_JSONSummary(t *testing.T) {
	dir := t.TempDir()
	fstest.WriteFiles(t, dir, map[string]string{"dashboard.json": exportedDashboard})

	res := testutil.RunCommand(t, NewConvertCommand(),
		"-i", filepath.Join(dir, "dashboard.json"), "--templates", filepath.Join(dir, "templates"), "--format", "json")
	require.NoError(t, res.Err, res.Stderr)

	var summary convertSummary
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &summary))
	assert.Equal(t, 1, summary.Panels)
	assert.Equal(t, 1, summary.Targets)
	assert.Len(t, summary.Written, 3)
	assert.Equal(t, filepath.Join(dir, "templates", "04_dashboards", "my_board.yml.j2"), summary.Dashboard)
}

func TestConvert_MissingInput(t *testing.T) {
	res := testutil.RunCommand(t, NewConvertCommand(),
		"--input", filepath.Join(t.TempDir(), "nope.json"), "--templates", t.TempDir())
	require.Error(t, res.Err)
}
