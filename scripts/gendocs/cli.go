package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dashgen/internal/builder"
	"github.com/leapstack-labs/dashgen/internal/cli"
	"github.com/leapstack-labs/dashgen/internal/cli/config"
	"github.com/leapstack-labs/dashgen/internal/converter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// dirDocs says what convert writes to each directory it creates.
var dirDocs = map[string]string{
	converter.TargetsDir:    "Panel queries, named `<panel>_t<index>`",
	converter.VariablesDir:  "Dashboard variables (`templating.list`)",
	converter.InputsDir:     "Datasource inputs (`__inputs`)",
	converter.PanelsDir:     "Leaf panels",
	converter.RowsDir:       "Row panels holding nested panels",
	converter.DashboardsDir: "The dashboard skeleton, named after its title",
}

// documented reports whether a command gets its own page.
func documented(cmd *cobra.Command) bool {
	return !cmd.Hidden && cmd.Name() != "help" && cmd.Name() != "__complete"
}

// generateCLIDocs writes index.md and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range root.Commands() {
		if documented(cmd) {
			pages[cmd.Name()+".md"] = commandPage(cmd)
		}
	}

	for name, data := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for dashgen")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)

	var rows [][]string
	for _, cmd := range root.Commands() {
		if documented(cmd) {
			rows = append(rows, []string{fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()), cleanDescription(cmd.Short)})
		}
	}
	w.Header(2, "Commands")
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Templates Layout")
	w.Paragraph(fmt.Sprintf("Each directory under the templates root is a category named after the part following its first underscore, "+
		"holding %s files rendered in lexical order. Directories build in name order. Items whose name starts with %s are rendered "+
		"for later templates but never written.", InlineCode("*"+builder.TemplateSuffix), InlineCode(builder.PrivatePrefix)))
	rows = nil
	for _, dir := range converter.Dirs {
		rows = append(rows, []string{InlineCode(dir), InlineCode(builder.CategoryName(dir)), dirDocs[dir]})
	}
	w.Table([]string{"Directory", "Category", "Written by convert"}, rows)

	w.Header(2, "Reference Expressions")
	w.Paragraph("convert replaces every extracted piece with an expression that embeds the rendered item. Variables are indented by 4, everything else by 2:")
	w.CodeBlock("yaml", fmt.Sprintf("panels:\n- %s\ntemplating:\n  list:\n  - %s",
		converter.Reference("panels", "5", 2), converter.Reference("variables", "job", 4)))

	w.Header(2, "Output Layout")
	w.CodeBlock("text", fmt.Sprintf("<output>/<format>/<datasource>/<category>/<item>.%s   # format %q\n<output>/<format>/<datasource>/<category>/<item>.%s   # any other format",
		builder.Extension(builder.FormatJSON), builder.FormatJSON, builder.Extension("yaml")))

	w.Header(2, "Environment Variables")
	rows = nil
	for _, f := range configFields() {
		rows = append(rows, []string{InlineCode(config.EnvPrefix + strings.ToUpper(f.Key)), cleanDescription(f.Description)})
	}
	w.Table([]string{"Variable", "Description"}, rows)
	w.Paragraph("List values are comma separated. Flags override the environment, which overrides the config file.")

	return w.Bytes()
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		w.Table(flagHeaders, flagRows(cmd.LocalFlags()))
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		w.Table(flagHeaders, flagRows(cmd.InheritedFlags()))
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w.Bytes()
}

var flagHeaders = []string{"Option", "Short", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if f.Value.Type() == "string" && def != "" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	return rows
}

// dedent strips the indentation shared by all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	prefix, found := "", false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found || len(indent) < len(prefix) {
			prefix, found = indent, true
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
