package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/dashgen/internal/cli/config"
	"github.com/leapstack-labs/dashgen/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new dashgen project",
		Long: `Initialize a new dashgen project with a config file and a small
templates tree.

This creates:
  - config.yml with one datasource, two labels and JSON output
  - templates/01_targets, 02_panels and 04_dashboards with working examples

Run 'dashgen build' in the directory afterwards to render the example dashboard.`,
		Example: `  # Initialize in current directory
  dashgen init

  # Initialize in a new directory
  dashgen init my-dashboards

  # Force overwrite existing files
  dashgen init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd, output.ModeAuto).Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	created, err := copyScaffold(dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	for _, f := range created {
		r.StatusLine("Created", f, "success", "")
	}

	r.Println("")
	r.Success("dashgen project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set your datasources and labels in config.yml")
	r.Println("  2. Add templates under templates/")
	r.Println("  3. Run 'dashgen build' to render them")
	r.Println("  4. Run 'dashgen list' to see the build order")

	return nil
}
