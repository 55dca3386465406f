package config

import (
	"fmt"
	"strings"
)

// Validate checks that names used as output path segments are usable.
func (c *Config) Validate() error {
	if err := validateNames("datasource", c.Datasources); err != nil {
		return err
	}
	if err := validateNames("output_format", c.OutputFormats); err != nil {
		return err
	}
	if err := validateNames("target", c.Targets); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, name := range c.Categories {
		if name == "" {
			return fmt.Errorf("categories: empty category name")
		}
		if seen[name] {
			return fmt.Errorf("categories: %q listed more than once", name)
		}
		seen[name] = true
	}

	if c.TemplatesDir == "" {
		return fmt.Errorf("templates_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}

func validateNames(key string, names []string) error {
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%s: empty name", key)
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("%s: %q cannot be used as a directory name", key, name)
		}
	}
	return nil
}
