package starlark

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashgen/internal/document"
	"github.com/leapstack-labs/dashgen/internal/yamlfmt"
	"go.starlark.net/starlark"
)

// Predeclared returns the globals every template sees besides its render
// variables: lowercase aliases for the boolean and null constants and the
// label selector helpers.
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"true":          starlark.True,
		"false":         starlark.False,
		"none":          starlark.None,
		"prom_labels":   starlark.NewBuiltin("prom_labels", promLabels),
		"influx_labels": starlark.NewBuiltin("influx_labels", influxLabels),
	}
}

// DefaultFilters returns the filters available after `|` in an expression.
// A filter is called with the piped value as its first positional argument.
func DefaultFilters() starlark.StringDict {
	return starlark.StringDict{
		"to_nice_yaml": starlark.NewBuiltin("to_nice_yaml", toNiceYAML),
		"to_yaml":      starlark.NewBuiltin("to_yaml", toNiceYAML),
		"to_json":      starlark.NewBuiltin("to_json", toJSON),
		"indent":       starlark.NewBuiltin("indent", indent),
		"default":      starlark.NewBuiltin("default", defaultFilter),
		"join":         starlark.NewBuiltin("join", join),
		"lower":        starlark.NewBuiltin("lower", lower),
		"upper":        starlark.NewBuiltin("upper", upper),
		"replace":      starlark.NewBuiltin("replace", replace),
	}
}

// promLabels renders a Prometheus label matcher list: job="${job}", instance="${instance}".
func promLabels(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	names, err := unpackLabels(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf(`%s="${%s}"`, name, name)
	}
	return starlark.String(strings.Join(parts, ", ")), nil
}

// influxLabels renders an InfluxQL condition: job = '${job}' AND instance = '${instance}'.
func influxLabels(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	names, err := unpackLabels(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s = '${%s}'", name, name)
	}
	return starlark.String(strings.Join(parts, " AND ")), nil
}

func unpackLabels(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) ([]string, error) {
	var labels starlark.Iterable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "labels", &labels); err != nil {
		return nil, err
	}
	return iterStrings(labels), nil
}

func toNiceYAML(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	width := yamlfmt.DefaultIndent
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value, "indent?", &width); err != nil {
		return nil, err
	}
	doc, err := ToDocument(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	out, err := yamlfmt.NewPrinter(yamlfmt.WithIndent(width)).Print(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(out), nil
}

func toJSON(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value); err != nil {
		return nil, err
	}
	doc, err := ToDocument(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	out, err := document.MarshalCompactJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(out), nil
}

// indent prefixes every line but the first with width spaces. With first set
// the first line is indented too; blank lines are left alone unless blank is set.
func indent(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		value starlark.Value
		width = 4
		first bool
		blank bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &value, "width?", &width, "first?", &first, "blank?", &blank); err != nil {
		return nil, err
	}
	return starlark.String(IndentText(asString(value), width, first, blank)), nil
}

// IndentText implements the indent filter on plain strings.
func IndentText(s string, width int, first, blank bool) string {
	pad := strings.Repeat(" ", width)
	lines := strings.Split(s, "\n")

	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
			if line != "" || blank {
				sb.WriteString(pad)
			}
		}
		sb.WriteString(line)
	}

	out := sb.String()
	if first {
		out = pad + out
	}
	return out
}

func defaultFilter(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		value    starlark.Value
		fallback starlark.Value = starlark.String("")
		boolean  bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value, "default_value?", &fallback, "boolean?", &boolean); err != nil {
		return nil, err
	}
	if value == starlark.None || (boolean && !bool(value.Truth())) {
		return fallback, nil
	}
	return value, nil
}

func join(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		items starlark.Iterable
		sep   string
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &items, "d?", &sep); err != nil {
		return nil, err
	}
	return starlark.String(strings.Join(iterStrings(items), sep)), nil
}

func lower(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &value); err != nil {
		return nil, err
	}
	return starlark.String(strings.ToLower(asString(value))), nil
}

func upper(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &value); err != nil {
		return nil, err
	}
	return starlark.String(strings.ToUpper(asString(value))), nil
}

func replace(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		value          starlark.Value
		oldStr, newStr string
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "s", &value, "old", &oldStr, "new", &newStr); err != nil {
		return nil, err
	}
	return starlark.String(strings.ReplaceAll(asString(value), oldStr, newStr)), nil
}

// asString returns the text of a Starlark string, or its repr for other values.
func asString(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

func iterStrings(items starlark.Iterable) []string {
	var out []string
	iter := items.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		out = append(out, asString(x))
	}
	return out
}
