// Package converter decomposes a rendered dashboard into a templates tree.
//
// Variables, datasource inputs, query targets and panels are each written to
// their own template file and replaced in their parent by a reference
// expression, so that building the tree again reproduces the dashboard.
// Row panels are decomposed recursively.
package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/dashgen/internal/document"
	"github.com/leapstack-labs/dashgen/internal/yamlfmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template directories created by a conversion.
const (
	TargetsDir    = "01_targets"
	VariablesDir  = "01_variables"
	InputsDir     = "01_inputs"
	PanelsDir     = "02_panels"
	RowsDir       = "03_rows"
	DashboardsDir = "04_dashboards"
)

// Dirs lists every directory a conversion creates, in build order.
var Dirs = []string{TargetsDir, VariablesDir, InputsDir, PanelsDir, RowsDir, DashboardsDir}

const templateSuffix = ".yml.j2"

// idNamespace seeds content-derived identifiers.
var idNamespace = uuid.MustParse("6f0d3c52-8d53-4a3e-9f5c-2a1c7e0b9d41")

// Reporter receives user-facing progress events.
type Reporter interface {
	TemplateWritten(path string)
}

type nopReporter struct{}

func (nopReporter) TemplateWritten(string) {}

// Options configures a Converter.
type Options struct {
	// TemplatesDir receives the generated category directories
	TemplatesDir string
	// StableIDs derives missing identifiers from the entity content instead
	// of generating random ones
	StableIDs bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Reporter receives progress events (optional)
	Reporter Reporter
}

// Converter writes template trees from rendered dashboards.
type Converter struct {
	opts     Options
	logger   *slog.Logger
	reporter Reporter
	lower    cases.Caser
}

// Result summarizes a conversion.
type Result struct {
	Variables int
	Inputs    int
	Targets   int
	Panels    int
	Rows      int
	// Dashboard is the path of the top-level dashboard template
	Dashboard string
	// Written lists every template file in the order it was written
	Written []string
}

// New creates a converter.
func New(opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Converter{
		opts:     opts,
		logger:   logger,
		reporter: reporter,
		lower:    cases.Lower(language.Und),
	}
}

// ConvertFile loads a dashboard from a JSON or YAML file and converts it.
func (c *Converter) ConvertFile(ctx context.Context, inputPath string) (*Result, error) {
	doc, err := document.Load(inputPath)
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, doc)
}

// Convert decomposes a loaded dashboard. The dashboard is modified in place:
// extracted sections are replaced by reference expressions.
func (c *Converter) Convert(ctx context.Context, doc any) (*Result, error) {
	dashboard, ok := doc.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("dashboard must be a mapping, got %s", kindOf(doc))
	}

	for _, dir := range Dirs {
		if err := os.MkdirAll(filepath.Join(c.opts.TemplatesDir, dir), 0755); err != nil { //nolint:gosec // G301: templates are shared with the build
			return nil, fmt.Errorf("failed to create template directory: %w", err)
		}
	}

	run := &conversion{Converter: c, result: &Result{}, seen: make(map[string]bool)}

	if err := run.variables(dashboard); err != nil {
		return nil, err
	}
	if err := run.inputs(dashboard); err != nil {
		return nil, err
	}
	if panels, ok := dashboard.Get("panels"); ok {
		list, ok := panels.([]any)
		if !ok {
			return nil, fmt.Errorf("panels must be a list, got %s", kindOf(panels))
		}
		if len(list) > 0 {
			refs, err := run.panels(ctx, list)
			if err != nil {
				return nil, err
			}
			dashboard.Set("panels", refs)
		}
	}
	if err := run.dashboard(dashboard); err != nil {
		return nil, err
	}

	c.logger.Info("conversion completed",
		"templates_dir", c.opts.TemplatesDir,
		"variables", run.result.Variables,
		"inputs", run.result.Inputs,
		"targets", run.result.Targets,
		"panels", run.result.Panels,
		"rows", run.result.Rows)

	return run.result, nil
}

// conversion holds the state of a single Convert call.
type conversion struct {
	*Converter
	result *Result
	seen   map[string]bool
}

func (r *conversion) variables(dashboard *document.Map) error {
	templating, ok := dashboard.Get("templating")
	if !ok {
		return nil
	}
	tm, ok := templating.(*document.Map)
	if !ok {
		return fmt.Errorf("templating must be a mapping, got %s", kindOf(templating))
	}
	list, err := listField(tm, "list", "templating.list")
	if err != nil || len(list) == 0 {
		return err
	}

	refs := make([]any, 0, len(list))
	for _, v := range list {
		name, err := r.entityID(v, stringField(v, "name"))
		if err != nil {
			return err
		}
		if err := r.write(VariablesDir, name, "Variable", name, v); err != nil {
			return err
		}
		refs = append(refs, Reference("variables", name, 4))
		r.result.Variables++
	}
	tm.Set("list", refs)
	return nil
}

func (r *conversion) inputs(dashboard *document.Map) error {
	list, err := listField(dashboard, "__inputs", "__inputs")
	if err != nil || len(list) == 0 {
		return err
	}

	refs := make([]any, 0, len(list))
	for _, in := range list {
		name := stringField(in, "name")
		if name == "" {
			name = stringField(in, "pluginId")
		}
		if name == "" {
			name = "ds"
		}
		name = sanitize(name)
		if err := r.write(InputsDir, name, "Datasource", name, in); err != nil {
			return err
		}
		refs = append(refs, Reference("inputs", name, 2))
		r.result.Inputs++
	}
	dashboard.Set("__inputs", refs)
	return nil
}

// panels decomposes a panel list and returns one reference per panel in
// input order. Panels holding a non-empty panels list are rows; their
// children are decomposed first.
func (r *conversion) panels(ctx context.Context, list []any) ([]any, error) {
	refs := make([]any, 0, len(list))

	for _, p := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		panel, ok := p.(*document.Map)
		if !ok {
			return nil, fmt.Errorf("panel must be a mapping, got %s", kindOf(p))
		}

		id := stringField(panel, "uid")
		if id == "" {
			id = stringField(panel, "id")
		}
		id, err := r.entityID(panel, id)
		if err != nil {
			return nil, err
		}

		if err := r.targets(panel, id); err != nil {
			return nil, err
		}

		children, err := listField(panel, "panels", "panel "+id+" panels")
		if err != nil {
			return nil, err
		}

		dir, category := PanelsDir, "panels"
		if len(children) > 0 {
			dir, category = RowsDir, "rows"
			nested, err := r.panels(ctx, children)
			if err != nil {
				return nil, err
			}
			panel.Set("panels", nested)
			r.result.Rows++
		} else {
			r.result.Panels++
		}

		if err := r.write(dir, id, "Panel", id, panel); err != nil {
			return nil, err
		}
		refs = append(refs, Reference(category, id, 2))
	}

	return refs, nil
}

func (r *conversion) targets(panel *document.Map, panelID string) error {
	list, err := listField(panel, "targets", "panel "+panelID+" targets")
	if err != nil || len(list) == 0 {
		return err
	}

	refs := make([]any, 0, len(list))
	for i, t := range list {
		queryID := panelID + "_t" + strconv.Itoa(i)
		if err := r.write(TargetsDir, queryID, "Query", queryID, t); err != nil {
			return err
		}
		refs = append(refs, Reference("targets", queryID, 2))
		r.result.Targets++
	}
	panel.Set("targets", refs)
	return nil
}

func (r *conversion) dashboard(dashboard *document.Map) error {
	title := stringField(dashboard, "title")

	name := "dashboard"
	if title != "" {
		name = sanitize(strings.ReplaceAll(r.lower.String(title), " ", "_"))
	}
	header := title
	if header == "" {
		header = "Unknown Dashboard"
	}

	if err := r.write(DashboardsDir, name, "Dashboard", header, dashboard); err != nil {
		return err
	}
	r.result.Dashboard = r.result.Written[len(r.result.Written)-1]
	return nil
}

// entityID returns id made safe for use as a file name, or a generated
// identifier when id is empty.
func (r *conversion) entityID(entity any, id string) (string, error) {
	if id != "" {
		return sanitize(id), nil
	}
	if !r.opts.StableIDs {
		return uuid.NewString(), nil
	}
	canonical, err := document.MarshalCompactJSON(entity)
	if err != nil {
		return "", fmt.Errorf("failed to derive identifier: %w", err)
	}
	return uuid.NewSHA1(idNamespace, []byte(canonical)).String(), nil
}

// write stores data as <templates>/<dir>/<name>.yml.j2 behind a one-line header.
func (r *conversion) write(dir, name, kind, label string, data any) error {
	body, err := yamlfmt.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s template %s: %w", strings.ToLower(kind), name, err)
	}

	path := filepath.Join(r.opts.TemplatesDir, dir, name+templateSuffix)
	if r.seen[path] {
		r.logger.Warn("template overwritten", "path", path)
	}
	r.seen[path] = true

	content := "# " + kind + " template: " + singleLine(label) + "\n" + string(body)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { //nolint:gosec // G306: templates are shared with the build
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	r.logger.Debug("template written", "path", path)
	r.reporter.TemplateWritten(path)
	r.result.Written = append(r.result.Written, path)
	return nil
}

// Reference returns the expression that renders item from category as YAML
// indented to sit under a sequence dash at the given width.
func Reference(category, item string, indent int) document.RawExpr {
	return document.RawExpr(fmt.Sprintf("@{ %s[%s] | to_nice_yaml | indent(%d, false) }@", category, strconv.Quote(item), indent))
}

func listField(m *document.Map, key, what string) ([]any, error) {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %s", what, kindOf(v))
	}
	return list, nil
}

// stringField formats a scalar field of a mapping, or returns "" when the
// value is absent, null or not a scalar.
func stringField(v any, key string) string {
	m, ok := v.(*document.Map)
	if !ok {
		return ""
	}
	field, ok := m.Get(key)
	if !ok {
		return ""
	}
	switch f := field.(type) {
	case string:
		return f
	case int64:
		return strconv.FormatInt(f, 10)
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(f)
	default:
		return ""
	}
}

var pathReplacer = strings.NewReplacer("/", "_", "\\", "_")

func sanitize(name string) string {
	return pathReplacer.Replace(name)
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func singleLine(s string) string {
	return newlineReplacer.Replace(s)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *document.Map:
		return "mapping"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
