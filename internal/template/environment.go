package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	starctx "github.com/leapstack-labs/dashgen/internal/starlark"
	"go.starlark.net/starlark"
)

// Environment holds everything needed to load and render templates: syntax,
// a loader rooted at the templates directory, filters and extra globals.
// An Environment is built once per command and passed to whoever renders.
type Environment struct {
	syntax  Syntax
	loader  fs.FS
	filters starlark.StringDict
	globals starlark.StringDict
}

// Option configures an Environment.
type Option func(*Environment)

// WithDelims overrides the tag delimiters.
func WithDelims(d Delims) Option {
	return func(e *Environment) {
		e.syntax.Delims = d
	}
}

// WithTrimBlocks toggles removal of the first newline after a block tag.
func WithTrimBlocks(on bool) Option {
	return func(e *Environment) {
		e.syntax.TrimBlocks = on
	}
}

// WithLstripBlocks toggles removal of indentation before a block tag.
func WithLstripBlocks(on bool) Option {
	return func(e *Environment) {
		e.syntax.LstripBlocks = on
	}
}

// WithLoader sets the filesystem GetTemplate reads from.
func WithLoader(fsys fs.FS) Option {
	return func(e *Environment) {
		e.loader = fsys
	}
}

// WithLoaderDir roots the loader at a directory on disk.
func WithLoaderDir(dir string) Option {
	return WithLoader(os.DirFS(dir))
}

// WithFilter registers or replaces a filter.
func WithFilter(name string, fn starlark.Callable) Option {
	return func(e *Environment) {
		e.filters[name] = fn
	}
}

// WithGlobal makes a value visible to every template rendered by the environment.
func WithGlobal(name string, v starlark.Value) Option {
	return func(e *Environment) {
		e.globals[name] = v
	}
}

// NewEnvironment returns an environment with DefaultSyntax and the default filters.
func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		syntax:  DefaultSyntax(),
		filters: starctx.DefaultFilters(),
		globals: starlark.StringDict{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Syntax returns the syntax templates are parsed with.
func (e *Environment) Syntax() Syntax {
	return e.syntax
}

// Parse parses source under the given name.
func (e *Environment) Parse(source, name string) (*Template, error) {
	return ParseStringWithSyntax(source, name, e.syntax)
}

// GetTemplate loads and parses a template by its slash-separated path relative
// to the loader root. Templates are read on every call so edits are picked up.
func (e *Environment) GetTemplate(name string) (*Template, error) {
	if e.loader == nil {
		return nil, &TemplateNotFoundError{Name: name, Cause: errors.New("no loader configured")}
	}

	clean := path.Clean(name)
	if !fs.ValidPath(clean) {
		return nil, &TemplateNotFoundError{Name: name, Cause: errors.New("invalid template path")}
	}

	data, err := fs.ReadFile(e.loader, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &TemplateNotFoundError{Name: name, Cause: err}
		}
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	return e.Parse(string(data), name)
}

// NewContext builds the expression context for one render.
func (e *Environment) NewContext(vars starlark.StringDict) *starctx.ExecutionContext {
	return starctx.NewExecutionContext(vars,
		starctx.WithFilters(e.filters),
		starctx.WithGlobals(e.globals),
	)
}

// Render renders tmpl with vars.
func (e *Environment) Render(tmpl *Template, vars starlark.StringDict) (string, error) {
	return Render(tmpl, e.NewContext(vars))
}

// RenderString parses and renders source in one step.
func (e *Environment) RenderString(source, name string, vars starlark.StringDict) (string, error) {
	tmpl, err := e.Parse(source, name)
	if err != nil {
		return "", err
	}
	return e.Render(tmpl, vars)
}

// RenderFile loads the named template and renders it with vars.
func (e *Environment) RenderFile(name string, vars starlark.StringDict) (string, error) {
	tmpl, err := e.GetTemplate(name)
	if err != nil {
		return "", err
	}
	return e.Render(tmpl, vars)
}
