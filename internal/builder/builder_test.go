package builder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dashgen/internal/document"
	"github.com/leapstack-labs/dashgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, templates map[string]string, cfg Config) (*Builder, string) {
	t.Helper()

	root := t.TempDir()
	cfg.TemplatesDir = filepath.Join(root, "templates")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.Logger = testutil.NewTestLogger(t)
	testutil.WriteFiles(t, cfg.TemplatesDir, templates)

	b, err := New(cfg)
	require.NoError(t, err)
	return b, cfg.OutputDir
}

func TestBuild_SingleTemplate(t *testing.T) {
	b, out := newTestBuilder(t, map[string]string{
		"02_panels/cpu.yml.j2": `title: "@{ labels[0] }@"` + "\n",
	}, Config{
		Datasources:   []string{"prometheus"},
		Labels:        []string{"job"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Datasources)
	assert.Equal(t, 1, result.Rendered)
	assert.Len(t, result.Written, 1)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, map[string]string{
		"json/prometheus/panels/cpu.json": "{\n  \"title\": \"job\"\n}\n",
	}, tree)
}

func TestBuild_ResolvesMergeKeys(t *testing.T) {
	b, out := newTestBuilder(t, map[string]string{
		"02_panels/cpu.yml.j2": "gridPos: &pos {h: 8, w: 12}\nlegend:\n  <<: *pos\n  w: 6\n",
	}, Config{
		Datasources:   []string{"prometheus"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, `{
  "gridPos": {
    "h": 8,
    "w": 12
  },
  "legend": {
    "h": 8,
    "w": 6
  }
}
`, tree["json/prometheus/panels/cpu.json"])
}

func TestBuild_YAMLOutput(t *testing.T) {
	b, out := newTestBuilder(t, map[string]string{
		"02_panels/cpu.yml.j2": "title: CPU\ngridPos: {h: 8, w: 12}\n",
	}, Config{
		Datasources:   []string{"prometheus"},
		OutputFormats: []string{"yaml"},
		Targets:       []string{"panels"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, "title: CPU\ngridPos:\n  h: 8\n  w: 12\n", tree["yaml/prometheus/panels/cpu.yaml"])
}

// dashboardTemplates is a small tree where panels embed targets and
// dashboards embed panels, the same way real template trees thread items.
var dashboardTemplates = map[string]string{
	"01_targets/up.yml.j2":   "expr: 'up{@{ prom_labels(labels) }@}'\nrefId: A\n",
	"02_panels/_base.yml.j2": "gridPos: {h: 8, w: 12}\n",
	"02_panels/cpu.yml.j2": `title: CPU @{ datasource }@
gridPos: @{ panels["_base"]["gridPos"] | to_json }@
targets:
- @{ targets["up"] | to_nice_yaml | indent(2) }@
`,
	"03_rows/": "",
	"04_dashboards/main.yml.j2": `title: Main
rows: @{ rows | to_json }@
panels:
{% for name in panels %}
{% if not name.startswith("_") %}
- @{ panels[name] | to_nice_yaml | indent(2) }@
{% endif %}
{% endfor %}
`,
}

func TestBuild_ThreadsItemsThroughCategories(t *testing.T) {
	b, out := newTestBuilder(t, dashboardTemplates, Config{
		Datasources:   []string{"prometheus"},
		Labels:        []string{"job"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels", "dashboards"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, []string{
		"json/prometheus/dashboards/main.json",
		"json/prometheus/panels/cpu.json",
	}, testutil.SortedKeys(tree))

	target := document.NewMapWithItems(
		document.MapItem{Key: "expr", Value: `up{job="${job}"}`},
		document.MapItem{Key: "refId", Value: "A"},
	)
	panel := document.NewMapWithItems(
		document.MapItem{Key: "title", Value: "CPU prometheus"},
		document.MapItem{Key: "gridPos", Value: document.NewMapWithItems(
			document.MapItem{Key: "h", Value: int64(8)},
			document.MapItem{Key: "w", Value: int64(12)},
		)},
		document.MapItem{Key: "targets", Value: []any{target}},
	)

	got, err := document.ParseJSON([]byte(tree["json/prometheus/panels/cpu.json"]))
	require.NoError(t, err)
	assert.True(t, document.Equal(panel, got), "panel: %s", tree["json/prometheus/panels/cpu.json"])

	dashboard := document.NewMapWithItems(
		document.MapItem{Key: "title", Value: "Main"},
		document.MapItem{Key: "rows", Value: document.NewMap()},
		document.MapItem{Key: "panels", Value: []any{panel}},
	)
	got, err = document.ParseJSON([]byte(tree["json/prometheus/dashboards/main.json"]))
	require.NoError(t, err)
	assert.True(t, document.Equal(dashboard, got), "dashboard: %s", tree["json/prometheus/dashboards/main.json"])
}

func TestBuild_SkipsPrivateItems(t *testing.T) {
	b, out := newTestBuilder(t, dashboardTemplates, Config{
		Datasources:   []string{"prometheus"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Contains(t, tree, "json/prometheus/panels/cpu.json")
	assert.NotContains(t, tree, "json/prometheus/panels/_base.json")
}

func TestBuild_OutputMatrix(t *testing.T) {
	b, out := newTestBuilder(t, dashboardTemplates, Config{
		Datasources:   []string{"prometheus", "influxdb"},
		Labels:        []string{"job", "instance"},
		OutputFormats: []string{"json", "yaml"},
		Targets:       []string{"panels", "dashboards", "alerts"},
	})

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Datasources)
	assert.Equal(t, 8, result.Rendered)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, []string{
		"json/influxdb/dashboards/main.json",
		"json/influxdb/panels/cpu.json",
		"json/prometheus/dashboards/main.json",
		"json/prometheus/panels/cpu.json",
		"yaml/influxdb/dashboards/main.yaml",
		"yaml/influxdb/panels/cpu.yaml",
		"yaml/prometheus/dashboards/main.yaml",
		"yaml/prometheus/panels/cpu.yaml",
	}, testutil.SortedKeys(tree))
	assert.Len(t, result.Written, 8)
}

func TestBuild_Idempotent(t *testing.T) {
	b, out := newTestBuilder(t, dashboardTemplates, Config{
		Datasources:   []string{"prometheus"},
		Labels:        []string{"job"},
		OutputFormats: []string{"json", "yaml"},
		Targets:       []string{"panels", "dashboards"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first := testutil.ReadTree(t, out)

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, testutil.ReadTree(t, out))
}

func TestBuild_EmptyCategoryIsVisible(t *testing.T) {
	b, out := newTestBuilder(t, map[string]string{
		"01_rows/":               "",
		"02_panels/count.yml.j2": "rows: @{ len(rows) }@\nlater: @{ len(dashboards) }@\n",
		"03_dashboards/d.yml.j2": "title: d\n",
		"02_panels/self.yml.j2":  "seen: @{ len(panels) }@\n",
	}, Config{
		Datasources:   []string{"ds"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, "{\n  \"rows\": 0,\n  \"later\": 0\n}\n", tree["json/ds/panels/count.json"])
	assert.Equal(t, "{\n  \"seen\": 1\n}\n", tree["json/ds/panels/self.json"])
}

func TestBuild_FreshContextPerDatasource(t *testing.T) {
	b, out := newTestBuilder(t, map[string]string{
		"01_panels/p.yml.j2": "ds: @{ datasource }@\nbefore: @{ len(panels) }@\n",
	}, Config{
		Datasources:   []string{"a", "b"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)

	tree := testutil.ReadTree(t, out)
	assert.Equal(t, "{\n  \"ds\": \"a\",\n  \"before\": 0\n}\n", tree["json/a/panels/p.json"])
	assert.Equal(t, "{\n  \"ds\": \"b\",\n  \"before\": 0\n}\n", tree["json/b/panels/p.json"])
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name      string
		templates map[string]string
		wantErr   string
	}{
		{
			name:      "invalid yaml",
			templates: map[string]string{"01_panels/bad.yml.j2": "a: [1, 2\n"},
			wantErr:   "01_panels/bad.yml.j2 is not valid YAML",
		},
		{
			name:      "undefined variable",
			templates: map[string]string{"01_panels/bad.yml.j2": "a: @{ missing }@\n"},
			wantErr:   "failed to render 01_panels/bad.yml.j2",
		},
		{
			name:      "unknown filter",
			templates: map[string]string{"01_panels/bad.yml.j2": "a: @{ datasource | nope }@\n"},
			wantErr:   "failed to render 01_panels/bad.yml.j2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBuilder(t, tt.templates, Config{
				Datasources:   []string{"prometheus"},
				OutputFormats: []string{"json"},
				Targets:       []string{"panels"},
			})

			_, err := b.Build(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "datasource prometheus")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	b, _ := newTestBuilder(t, map[string]string{
		"01_panels/p.yml.j2": "a: 1\n",
	}, Config{
		Datasources:   []string{"prometheus"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_MissingTemplatesDir(t *testing.T) {
	_, err := New(Config{TemplatesDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "templates directory")
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) DatasourceStarted(ds string) { r.events = append(r.events, "ds:"+ds) }
func (r *recordingReporter) TemplateRendered(p string)   { r.events = append(r.events, "render:"+p) }
func (r *recordingReporter) FileWritten(p string) {
	r.events = append(r.events, "write:"+filepath.Base(p))
}

func TestBuild_Reporter(t *testing.T) {
	rep := &recordingReporter{}
	b, _ := newTestBuilder(t, map[string]string{
		"01_targets/t.yml.j2": "a: 1\n",
		"02_panels/p.yml.j2":  "b: 2\n",
	}, Config{
		Datasources:   []string{"prometheus"},
		OutputFormats: []string{"json"},
		Targets:       []string{"panels"},
		Reporter:      rep,
	})

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ds:prometheus",
		"render:01_targets/t.yml.j2",
		"render:02_panels/p.yml.j2",
		"write:p.json",
	}, rep.events)
}

func TestContext_Set(t *testing.T) {
	c := NewContext("prometheus", []string{"job"}, []Category{{Name: "panels"}})
	assert.True(t, c.Has("panels"))
	assert.False(t, c.Has("rows"))
	assert.Equal(t, 0, c.Items("panels").Len())
	assert.Nil(t, c.Items("rows"))

	replaced, err := c.Set("panels", "cpu", document.NewMapWithItems(document.MapItem{Key: "a", Value: int64(1)}))
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = c.Set("panels", "cpu", "second")
	require.NoError(t, err)
	assert.True(t, replaced)

	v, ok := c.Items("panels").Get("cpu")
	require.True(t, ok)
	assert.Equal(t, "second", v)

	_, err = c.Set("rows", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"panels", "rows"}, c.Categories())
	assert.Contains(t, c.Vars(), "rows")
}
