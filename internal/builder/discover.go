package builder

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// TemplateSuffix marks the files rendered in a category directory.
const TemplateSuffix = ".yml.j2"

// Category is one template-type directory, e.g. 02_panels.
type Category struct {
	// Name is the context key: the directory name after its first underscore.
	Name string
	// Dir is the directory name relative to the templates root.
	Dir string
	// Templates lists the template file names in lexical order.
	Templates []string
}

// TemplatePath returns the slash-separated path of a template relative to the templates root.
func (c Category) TemplatePath(file string) string {
	return path.Join(c.Dir, file)
}

// CategoryName derives the context key from a directory name. 02_panels is
// "panels"; a name without an underscore is used as is.
func CategoryName(dir string) string {
	if _, after, ok := strings.Cut(dir, "_"); ok {
		return after
	}
	return dir
}

// ItemName strips the template suffix from a file name.
func ItemName(file string) string {
	return strings.TrimSuffix(file, TemplateSuffix)
}

// Discover lists the category directories under templatesDir in build order.
// Without order, directories are sorted by byte-wise name comparison. With
// order, the named categories come first in the given sequence and any
// remaining directories follow in name order. Hidden directories are ignored.
func Discover(templatesDir string, order []string) ([]Category, error) {
	entries, err := os.ReadDir(templatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	// os.ReadDir returns entries sorted by file name.
	var all []Category
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		templates, err := listTemplates(templatesDir, entry.Name())
		if err != nil {
			return nil, err
		}
		all = append(all, Category{
			Name:      CategoryName(entry.Name()),
			Dir:       entry.Name(),
			Templates: templates,
		})
	}

	if len(order) == 0 {
		return all, nil
	}
	return applyOrder(all, order)
}

func listTemplates(templatesDir, dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(templatesDir, dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read category directory %s: %w", dir, err)
	}

	var templates []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), TemplateSuffix) {
			continue
		}
		templates = append(templates, entry.Name())
	}
	return templates, nil
}

func applyOrder(all []Category, order []string) ([]Category, error) {
	used := make([]bool, len(all))
	ordered := make([]Category, 0, len(all))

	for _, name := range order {
		found := false
		for i, c := range all {
			if c.Name == name && !used[i] {
				ordered = append(ordered, c)
				used[i] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("category %q has no template directory", name)
		}
	}

	for i, c := range all {
		if !used[i] {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
