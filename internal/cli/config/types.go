// Package config loads the build configuration for the dashgen CLI.
//
// Values are layered with koanf: built-in defaults, then the YAML config
// file, then DASHGEN_* environment variables, then command-line flags.
package config

// Config holds the build configuration.
type Config struct {
	// Datasources are built one after another
	Datasources []string `koanf:"datasource"`
	// Labels is exposed to templates as `labels`
	Labels []string `koanf:"labels"`
	// OutputFormats lists formats; "json" writes JSON, anything else YAML
	OutputFormats []string `koanf:"output_format"`
	// Targets names the categories that are written out
	Targets []string `koanf:"target"`
	// Categories optionally fixes the category build order
	Categories []string `koanf:"categories"`

	TemplatesDir string `koanf:"templates_dir"`
	OutputDir    string `koanf:"output_dir"`
	Verbose      bool   `koanf:"verbose"`
	NoColor      bool   `koanf:"no_color"`
}

// Default configuration values.
const (
	DefaultConfigFile   = "config.yml"
	DefaultTemplatesDir = "templates"
	DefaultOutputDir    = "output"
	EnvPrefix           = "DASHGEN_"
)
