// Package builder renders a templates tree into dashboard artifacts.
//
// For every datasource the category directories are visited in order, each
// template is rendered against a context that already holds the results of
// earlier templates, and the rendered items of the target categories are
// written out in every requested format.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/dashgen/internal/document"
	"github.com/leapstack-labs/dashgen/internal/template"
)

// Reporter receives user-facing progress events. The CLI output renderer
// implements it; library callers can leave it nil.
type Reporter interface {
	DatasourceStarted(datasource string)
	TemplateRendered(path string)
	FileWritten(path string)
}

type nopReporter struct{}

func (nopReporter) DatasourceStarted(string) {}
func (nopReporter) TemplateRendered(string)  {}
func (nopReporter) FileWritten(string)       {}

// Config holds build configuration.
type Config struct {
	// TemplatesDir is the root holding the category directories
	TemplatesDir string
	// OutputDir is where artifacts are written
	OutputDir string
	// Datasources are built one after another, each from a fresh context
	Datasources []string
	// Labels is exposed to templates as `labels`
	Labels []string
	// Targets names the categories that are written out
	Targets []string
	// OutputFormats lists formats; "json" writes JSON, anything else YAML
	OutputFormats []string
	// Categories optionally fixes the category order (see Discover)
	Categories []string
	// Env renders templates (optional, defaults to one rooted at TemplatesDir)
	Env *template.Environment
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Reporter receives progress events (optional)
	Reporter Reporter
}

// Builder renders and emits templates.
type Builder struct {
	cfg      Config
	env      *template.Environment
	logger   *slog.Logger
	reporter Reporter
}

// Result summarizes a build.
type Result struct {
	Datasources int
	Rendered    int
	Written     []string
	Duration    time.Duration
}

// New creates a builder. The templates directory must exist.
func New(cfg Config) (*Builder, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates directory %s is not a directory", cfg.TemplatesDir)
	}

	env := cfg.Env
	if env == nil {
		env = template.NewEnvironment(template.WithLoaderDir(cfg.TemplatesDir))
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Builder{cfg: cfg, env: env, logger: logger, reporter: reporter}, nil
}

// Build renders every datasource and writes the target categories.
// Output already on disk is overwritten file by file; nothing is rolled back on error.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	categories, err := Discover(b.cfg.TemplatesDir, b.cfg.Categories)
	if err != nil {
		return nil, err
	}

	b.logger.Info("starting build",
		"templates_dir", b.cfg.TemplatesDir,
		"output_dir", b.cfg.OutputDir,
		"datasources", len(b.cfg.Datasources),
		"categories", len(categories))

	for _, ds := range b.cfg.Datasources {
		b.reporter.DatasourceStarted(ds)

		bctx, rendered, err := b.RenderDatasource(ctx, ds, categories)
		if err != nil {
			return nil, fmt.Errorf("datasource %s: %w", ds, err)
		}
		result.Rendered += rendered

		written, err := b.Emit(bctx)
		if err != nil {
			return nil, fmt.Errorf("datasource %s: %w", ds, err)
		}
		result.Written = append(result.Written, written...)
		result.Datasources++
	}

	result.Duration = time.Since(start)
	b.logger.Info("build completed",
		"datasources", result.Datasources,
		"rendered", result.Rendered,
		"written", len(result.Written),
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// RenderDatasource renders all templates for one datasource into a fresh
// context. It returns the context and the number of templates rendered.
func (b *Builder) RenderDatasource(ctx context.Context, datasource string, categories []Category) (*Context, int, error) {
	bctx := NewContext(datasource, b.cfg.Labels, categories)
	rendered := 0

	for _, cat := range categories {
		b.logger.Debug("rendering category", "datasource", datasource, "category", cat.Name, "dir", cat.Dir)

		for _, file := range cat.Templates {
			if err := ctx.Err(); err != nil {
				return nil, rendered, err
			}

			tmplPath := cat.TemplatePath(file)
			b.reporter.TemplateRendered(tmplPath)

			data, err := b.renderTemplate(tmplPath, bctx)
			if err != nil {
				return nil, rendered, err
			}

			name := ItemName(file)
			replaced, err := bctx.Set(cat.Name, name, data)
			if err != nil {
				return nil, rendered, err
			}
			if replaced {
				b.logger.Debug("item overwritten", "category", cat.Name, "item", name, "template", tmplPath)
			}
			rendered++
		}
	}

	return bctx, rendered, nil
}

// renderTemplate renders one template and parses the result as YAML.
func (b *Builder) renderTemplate(tmplPath string, bctx *Context) (any, error) {
	text, err := b.env.RenderFile(tmplPath, bctx.Vars())
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", tmplPath, err)
	}

	data, err := document.ParseYAML([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("rendered output of %s is not valid YAML: %w", tmplPath, err)
	}
	return data, nil
}
