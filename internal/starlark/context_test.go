package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func newTestContext(t *testing.T) *ExecutionContext {
	t.Helper()

	targets := starlark.NewDict(1)
	target := starlark.NewDict(2)
	require.NoError(t, target.SetKey(starlark.String("expr"), starlark.String("up")))
	require.NoError(t, target.SetKey(starlark.String("refId"), starlark.String("A")))
	require.NoError(t, targets.SetKey(starlark.String("5_t0"), target))

	return NewExecutionContext(starlark.StringDict{
		"datasource": starlark.String("prometheus"),
		"labels":     StringList([]string{"job", "instance"}),
		"targets":    targets,
	})
}

func TestNewExecutionContext(t *testing.T) {
	ctx := newTestContext(t)
	require.NotNil(t, ctx, "NewExecutionContext returned nil")

	globals := ctx.Globals()
	for _, key := range []string{"datasource", "labels", "targets", "true", "false", "none", "prom_labels", "influx_labels"} {
		_, ok := globals[key]
		assert.True(t, ok, "global %q not found", key)
	}
}

func TestExecutionContext_EvalPipelineString(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "simple string", expr: `"hello"`, want: "hello"},
		{name: "variable", expr: `datasource`, want: "prometheus"},
		{name: "list index", expr: `labels[0]`, want: "job"},
		{name: "dict access", expr: `targets["5_t0"]["expr"]`, want: "up"},
		{name: "lowercase booleans", expr: `"yes" if true else "no"`, want: "yes"},
		{name: "none renders empty", expr: `none`, want: ""},
		{name: "list repr", expr: `labels`, want: `["job", "instance"]`},
		{name: "single filter", expr: `datasource | upper`, want: "PROMETHEUS"},
		{name: "filter with args", expr: `labels | join(",")`, want: "job,instance"},
		{name: "chained filters", expr: `labels | join("-") | replace("-", "+")`, want: "job+instance"},
		{name: "pipe inside string", expr: `"a|b" | upper`, want: "A|B"},
		{name: "pipe inside brackets", expr: `len([1, 2] ) | default(0)`, want: "2"},
		{
			name: "reference expression",
			expr: `targets["5_t0"] | to_nice_yaml | indent(2, false)`,
			want: "expr: up\n  refId: A\n",
		},
		{name: "global helper", expr: `prom_labels(labels)`, want: `job="${job}", instance="${instance}"`},
		{name: "undefined variable", expr: `undefined_var`, wantErr: true},
		{name: "missing key", expr: `targets["nope"]`, wantErr: true},
		{name: "unknown filter", expr: `datasource | shout`, wantErr: true},
		{name: "empty filter", expr: `datasource |`, wantErr: true},
		{name: "malformed filter", expr: `datasource | upper[0]`, wantErr: true},
		{name: "syntax error", expr: `if`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ctx.EvalPipelineString(tt.expr, "test.yml.j2", 1, nil)

			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}

			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.want, result, "EvalPipelineString()")
		})
	}
}

func TestExecutionContext_Locals(t *testing.T) {
	ctx := newTestContext(t)

	result, err := ctx.EvalPipelineString(`label | upper`, "test.yml.j2", 3, starlark.StringDict{
		"label": starlark.String("job"),
	})
	require.NoError(t, err)
	assert.Equal(t, "JOB", result)

	// Locals shadow globals.
	result, err = ctx.EvalPipelineString(`datasource`, "test.yml.j2", 3, starlark.StringDict{
		"datasource": starlark.String("influxdb"),
	})
	require.NoError(t, err)
	assert.Equal(t, "influxdb", result)
}

func TestExecutionContext_WithFilters(t *testing.T) {
	ctx := NewExecutionContext(starlark.StringDict{}, WithFilters(starlark.StringDict{
		"twice": starlark.NewBuiltin("twice", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			s, _ := starlark.AsString(args[0])
			return starlark.String(s + s), nil
		}),
	}))

	assert.True(t, ctx.HasFilter("twice"))
	assert.False(t, ctx.HasFilter("upper"), "custom filter set replaces defaults")

	result, err := ctx.EvalPipelineString(`"ab" | twice`, "test.yml.j2", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "abab", result)
}

func TestExecutionContext_WithGlobals(t *testing.T) {
	ctx := NewExecutionContext(
		starlark.StringDict{"env": starlark.String("dev")},
		WithGlobals(starlark.StringDict{
			"region": starlark.String("eu"),
			"env":    starlark.String("shadowed"),
		}),
	)

	result, err := ctx.EvalPipelineString(`region + "/" + env`, "test.yml.j2", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "eu/dev", result, "render variables take precedence over globals")
}

func TestSplitPipeline(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []string
		wantErr bool
	}{
		{name: "no filters", expr: `a`, want: []string{"a"}},
		{name: "two filters", expr: `a | b | c(1, 2)`, want: []string{"a", "b", "c(1, 2)"}},
		{name: "quoted pipe", expr: `"x|y" | b`, want: []string{`"x|y"`, "b"}},
		{name: "escaped quote", expr: `"x\"|" | b`, want: []string{`"x\"|"`, "b"}},
		{name: "bracketed pipe", expr: `f(a | b) | c`, want: []string{"f(a | b)", "c"}},
		{name: "unterminated string", expr: `"abc | d`, wantErr: true},
		{name: "empty head", expr: ` | upper`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitPipeline(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  EvalError
		want string
	}{
		{
			name: "with line",
			err:  EvalError{File: "panels/cpu.yml.j2", Line: 4, Expr: "x", Message: "undefined: x"},
			want: `panels/cpu.yml.j2:4: error evaluating "x": undefined: x`,
		},
		{
			name: "without line",
			err:  EvalError{File: "panels/cpu.yml.j2", Expr: "x", Message: "undefined: x"},
			want: `panels/cpu.yml.j2: error evaluating "x": undefined: x`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
