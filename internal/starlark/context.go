package starlark

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.starlark.net/starlark"
)

// ExecutionContext provides all globals and filters for template expression evaluation.
type ExecutionContext struct {
	// vars holds the render variables (datasource, labels, categories, ...).
	vars starlark.StringDict

	// predeclared holds the values from Predeclared plus any extra globals.
	predeclared starlark.StringDict

	// filters are looked up by name for each `| name` segment.
	filters starlark.StringDict

	// globals is the combined set of all globals for execution
	globals starlark.StringDict

	// mu protects globals during initialization
	mu sync.RWMutex
}

// ContextOption is a functional option for configuring ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithFilters replaces the default filter set.
func WithFilters(filters starlark.StringDict) ContextOption {
	return func(ctx *ExecutionContext) {
		ctx.filters = filters
	}
}

// WithGlobals adds globals on top of Predeclared. Render variables with the
// same name take precedence.
func WithGlobals(globals starlark.StringDict) ContextOption {
	return func(ctx *ExecutionContext) {
		for name, v := range globals {
			ctx.predeclared[name] = v
		}
	}
}

// NewExecutionContext creates a context exposing vars to expressions.
func NewExecutionContext(vars starlark.StringDict, opts ...ContextOption) *ExecutionContext {
	ctx := &ExecutionContext{
		vars:        vars,
		predeclared: Predeclared(),
		filters:     DefaultFilters(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.buildGlobals()
	return ctx
}

// buildGlobals constructs the combined globals dict.
func (ctx *ExecutionContext) buildGlobals() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	ctx.globals = make(starlark.StringDict, len(ctx.predeclared)+len(ctx.vars))
	for name, v := range ctx.predeclared {
		ctx.globals[name] = v
	}
	for name, v := range ctx.vars {
		ctx.globals[name] = v
	}
}

// Globals returns the combined globals dictionary for Starlark execution.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.globals
}

// HasFilter reports whether a filter with the given name is registered.
func (ctx *ExecutionContext) HasFilter(name string) bool {
	_, ok := ctx.filters[name]
	return ok
}

// EvalExpr evaluates a single Starlark expression and returns the result.
func (ctx *ExecutionContext) EvalExpr(expr string, filename string, line int) (starlark.Value, error) {
	return ctx.EvalExprWithLocals(expr, filename, line, nil)
}

// EvalExprWithLocals evaluates a Starlark expression with additional local variables.
// This is used for expressions inside loops where loop variables need to be in scope.
func (ctx *ExecutionContext) EvalExprWithLocals(expr string, filename string, line int, locals starlark.StringDict) (starlark.Value, error) {
	thread := ctx.newThread(filename)

	// Combine globals with locals (locals take precedence)
	globals := ctx.Globals()
	if len(locals) > 0 {
		combined := make(starlark.StringDict, len(globals)+len(locals))
		for k, v := range globals {
			combined[k] = v
		}
		for k, v := range locals {
			combined[k] = v
		}
		globals = combined
	}

	result, err := starlark.Eval(thread, filename, expr, globals) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, &EvalError{
			File:    filename,
			Line:    line,
			Expr:    expr,
			Message: err.Error(),
		}
	}

	return result, nil
}

// EvalPipeline evaluates `expr | filter | filter(args)`. The head is a plain
// Starlark expression; each filter receives the running value as its first argument.
func (ctx *ExecutionContext) EvalPipeline(expr string, filename string, line int, locals starlark.StringDict) (starlark.Value, error) {
	segments, err := SplitPipeline(expr)
	if err != nil {
		return nil, &EvalError{File: filename, Line: line, Expr: expr, Message: err.Error()}
	}

	value, err := ctx.EvalExprWithLocals(segments[0], filename, line, locals)
	if err != nil {
		return nil, err
	}

	for _, seg := range segments[1:] {
		value, err = ctx.applyFilter(seg, value, filename, line, locals)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// applyFilter calls one filter segment against value.
func (ctx *ExecutionContext) applyFilter(seg string, value starlark.Value, filename string, line int, locals starlark.StringDict) (starlark.Value, error) {
	name, args, err := parseFilter(seg)
	if err != nil {
		return nil, &EvalError{File: filename, Line: line, Expr: seg, Message: err.Error()}
	}

	fn, ok := ctx.filters[name]
	if !ok {
		return nil, &EvalError{File: filename, Line: line, Expr: seg, Message: fmt.Sprintf("unknown filter %q", name)}
	}

	scope := make(starlark.StringDict, len(locals)+2)
	for k, v := range locals {
		scope[k] = v
	}
	scope["__filter__"] = fn
	scope["__value__"] = value

	call := "__filter__(__value__)"
	if args != "" {
		call = "__filter__(__value__, " + args + ")"
	}
	return ctx.EvalExprWithLocals(call, filename, line, scope)
}

// EvalPipelineString evaluates a pipeline and returns its text: strings as is,
// None as the empty string, anything else in Starlark notation.
func (ctx *ExecutionContext) EvalPipelineString(expr string, filename string, line int, locals starlark.StringDict) (string, error) {
	result, err := ctx.EvalPipeline(expr, filename, line, locals)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case starlark.String:
		return string(v), nil
	case starlark.NoneType:
		return "", nil
	default:
		return result.String(), nil
	}
}

// newThread creates a new Starlark thread for execution.
func (ctx *ExecutionContext) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, _ string) {
			// Template execution should not print
		},
	}
}

// SplitPipeline splits an expression on `|` characters that are outside
// string literals and brackets. The first element is the filtered expression.
func SplitPipeline(expr string) ([]string, error) {
	var (
		segments []string
		depth    int
		quote    rune
		escaped  bool
		start    int
	)

	for i, r := range expr {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		switch r {
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|':
			if depth == 0 {
				segments = append(segments, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string literal")
	}
	segments = append(segments, strings.TrimSpace(expr[start:]))

	for i, seg := range segments {
		if seg == "" {
			if i == 0 {
				return nil, fmt.Errorf("empty expression")
			}
			return nil, fmt.Errorf("empty filter")
		}
	}
	return segments, nil
}

// parseFilter splits `name` or `name(args)` into the name and the raw argument list.
func parseFilter(seg string) (string, string, error) {
	end := 0
	for i, r := range seg {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			end = i + len(string(r))
			continue
		}
		break
	}
	if end == 0 {
		return "", "", fmt.Errorf("invalid filter %q", seg)
	}

	name := seg[:end]
	rest := strings.TrimSpace(seg[end:])
	if rest == "" {
		return name, "", nil
	}
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", "", fmt.Errorf("invalid filter %q: expected %s(...)", seg, name)
	}
	return name, strings.TrimSpace(rest[1 : len(rest)-1]), nil
}

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: error evaluating %q: %s", e.File, e.Line, e.Expr, e.Message)
	}
	return fmt.Sprintf("%s: error evaluating %q: %s", e.File, e.Expr, e.Message)
}
