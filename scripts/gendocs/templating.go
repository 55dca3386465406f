package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	starctx "github.com/leapstack-labs/dashgen/internal/starlark"
	"go.starlark.net/starlark"
)

// builtinDocs describes the names predeclared for every template.
var builtinDocs = map[string]string{
	"true":          "Alias for `True`",
	"false":         "Alias for `False`",
	"none":          "Alias for `None`",
	"prom_labels":   "Prometheus matchers for a label list: `job=\"${job}\", instance=\"${instance}\"`",
	"influx_labels": "InfluxQL condition for a label list: `job = '${job}' AND instance = '${instance}'`",
}

// filterDocs describes the filters available after `|`.
var filterDocs = map[string]string{
	"to_nice_yaml": "Block-style YAML with a trailing newline",
	"to_yaml":      "Same as `to_nice_yaml`",
	"to_json":      "Compact JSON",
	"indent":       "`indent(width=4, first=False, blank=False)` indents every line but the first",
	"default":      "`default(value=\"\", boolean=False)` replaces `None`, or any falsy value when `boolean` is set",
	"join":         "`join(d=\"\")` joins a list of strings",
	"lower":        "Lowercases a string",
	"upper":        "Uppercases a string",
	"replace":      "`replace(old, new)` replaces every occurrence",
}

// builtinRows returns one documentation row per name in dict, sorted.
func builtinRows(dict starlark.StringDict, docs map[string]string) [][]string {
	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		desc, ok := docs[name]
		if !ok {
			log.Printf("  warning: %s has no description", name)
		}
		rows = append(rows, []string{InlineCode(name), cleanDescription(desc)})
	}
	return rows
}

// generateTemplatingDocs writes templating.md.
func generateTemplatingDocs(outDir string) error {
	log.Printf("Generating templating docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Templating", "Template syntax, variables and filters")
	w.GeneratedMarker()

	w.Header(1, "Templating")
	w.Paragraph("Templates live in `<ordinal>_<category>` directories and end in `.yml.j2`. They are rendered in directory order and must produce YAML.")

	w.Header(2, "Syntax")
	w.Table([]string{"Delimiters", "Meaning"}, [][]string{
		{InlineCode("@{ expr }@"), "Insert the value of a Starlark expression, optionally piped through filters"},
		{InlineCode("{% if %} / {% for %}"), "Control flow; the line holding a tag is removed from the output"},
		{InlineCode("{# comment #}"), "Comment"},
	})
	w.Paragraph("Grafana's own `{{ }}` and `${var}` syntax passes through untouched.")

	w.Header(2, "Variables")
	w.Table([]string{"Variable", "Description"}, [][]string{
		{InlineCode("datasource"), "The datasource being built"},
		{InlineCode("labels"), "The configured label names"},
		{InlineCode("<category>"), "A dict of the items rendered so far in that category, e.g. `panels[\"cpu\"]`"},
	})

	w.Header(2, "Globals")
	w.Table([]string{"Name", "Description"}, builtinRows(starctx.Predeclared(), builtinDocs))

	w.Header(2, "Filters")
	w.Table([]string{"Filter", "Description"}, builtinRows(starctx.DefaultFilters(), filterDocs))

	w.Header(2, "Example")
	w.CodeBlock("yaml", `title: CPU (@{ datasource }@)
targets:
{% for name in targets %}
- @{ targets[name] | to_nice_yaml | indent(2) }@
{% endfor %}`)

	if err := os.WriteFile(filepath.Join(outDir, "templating.md"), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated templating.md")
	return nil
}
