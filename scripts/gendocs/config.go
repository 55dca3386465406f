package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/leapstack-labs/dashgen/internal/cli/config"
)

// ConfigField describes one config key.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Description string
}

var configDescriptions = map[string]string{
	"datasource":    "Datasources to build; each gets its own output directory and a fresh template context",
	"labels":        "Label names exposed to templates as `labels`",
	"output_format": "Output formats; `json` writes JSON, any other name writes YAML",
	"target":        "Categories written to the output directory",
	"categories":    "Category build order; unlisted directories follow in name order",
	"templates_dir": "Templates directory",
	"output_dir":    "Output directory",
	"verbose":       "Enable debug logging",
	"no_color":      "Disable colored output",
}

var configDefaults = map[string]string{
	"templates_dir": config.DefaultTemplatesDir,
	"output_dir":    config.DefaultOutputDir,
	"verbose":       "false",
	"no_color":      "false",
}

// configFields lists the keys of config.Config in declaration order.
func configFields() []ConfigField {
	t := reflect.TypeOf(config.Config{})
	fields := make([]ConfigField, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		key := f.Tag.Get("koanf")
		if key == "" {
			continue
		}
		desc, ok := configDescriptions[key]
		if !ok {
			log.Printf("  warning: config key %s has no description", key)
		}
		typ := "string"
		switch f.Type.Kind() {
		case reflect.Slice:
			typ = "list of strings"
		case reflect.Bool:
			typ = "bool"
		}
		fields = append(fields, ConfigField{Key: key, Type: typ, Default: configDefaults[key], Description: desc})
	}
	return fields
}

// generateConfigDocs writes configuration.md.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "dashgen configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("dashgen reads %s from the working directory (override with `--config`).", InlineCode(config.DefaultConfigFile)))

	headers := []string{"Key", "Type", "Default", "Description"}
	var rows [][]string
	for _, f := range configFields() {
		def := f.Default
		if def == "" {
			def = "-"
		} else {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, cleanDescription(f.Description)})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `datasource:
  - prometheus
  - influxdb
labels:
  - job
  - instance
output_format:
  - json
target:
  - dashboards
  - alerts`)

	if err := os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
