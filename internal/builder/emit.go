package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dashgen/internal/document"
	"github.com/leapstack-labs/dashgen/internal/yamlfmt"
)

// FormatJSON selects JSON output; every other format name produces YAML.
const FormatJSON = "json"

// PrivatePrefix marks items that are rendered into the context but never written.
const PrivatePrefix = "_"

// Extension returns the file extension for an output format.
func Extension(format string) string {
	if format == FormatJSON {
		return "json"
	}
	return "yaml"
}

// Encode serializes a rendered item in the given format.
func Encode(format string, data any) ([]byte, error) {
	if format == FormatJSON {
		return document.MarshalJSON(data)
	}
	return yamlfmt.Marshal(data)
}

// Emit writes the target categories of a rendered context to
// <output>/<format>/<datasource>/<category>/<item>.<ext> and returns the written paths.
// A target with no matching category writes nothing.
func (b *Builder) Emit(bctx *Context) ([]string, error) {
	var written []string

	for _, format := range b.cfg.OutputFormats {
		for _, target := range b.cfg.Targets {
			items := bctx.Items(target)
			if items == nil {
				b.logger.Debug("target category not found", "target", target, "datasource", bctx.Datasource())
				continue
			}

			dir := filepath.Join(b.cfg.OutputDir, format, bctx.Datasource(), target)
			err := items.IterateErr(func(name string, data any) error {
				if strings.HasPrefix(name, PrivatePrefix) {
					return nil
				}

				out, err := Encode(format, data)
				if err != nil {
					return fmt.Errorf("failed to encode %s/%s as %s: %w", target, name, format, err)
				}

				if err := os.MkdirAll(dir, 0755); err != nil { //nolint:gosec // G301: output is read by provisioning
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				path := filepath.Join(dir, name+"."+Extension(format))
				if err := os.WriteFile(path, out, 0644); err != nil { //nolint:gosec // G306: output is read by provisioning
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				b.reporter.FileWritten(path)
				written = append(written, path)
				return nil
			})
			if err != nil {
				return written, err
			}
		}
	}

	return written, nil
}
