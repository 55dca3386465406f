package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/dashgen/internal/builder"
	"github.com/leapstack-labs/dashgen/internal/cli/config"
	"github.com/leapstack-labs/dashgen/internal/cli/output"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	configFile string
	format     string
	watch      bool
}

// buildSummary is the JSON output of the build command.
type buildSummary struct {
	Datasources int      `json:"datasources"`
	Rendered    int      `json:"rendered"`
	Written     []string `json:"written"`
	DurationMS  int64    `json:"duration_ms"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build templates into dashboards",
		Long: `Render every template for every configured datasource and write the
target categories in every configured output format.

Template directories are named <ordinal>_<category> (e.g. 02_panels) and are
rendered in order. Each template sees the items rendered before it, so panels
can embed targets and dashboards can embed panels. Items whose name starts
with an underscore are rendered but never written.

Output is written to <output>/<format>/<datasource>/<category>/<item>.<json|yaml>.`,
		Example: `  # Build with the defaults (config.yml, templates/, output/)
  dashgen build

  # Build with explicit paths
  dashgen build --config config.yml --templates templates --output output

  # Rebuild whenever a template or the config changes
  dashgen build --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "Configuration file path")
	cmd.Flags().String("templates", config.DefaultTemplatesDir, "Templates directory path")
	cmd.Flags().String("output", config.DefaultOutputDir, "Output directory path")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild when templates or the config file change")
	addFormatFlag(cmd, &opts.format)

	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	mode, err := output.ParseMode(opts.format)
	if err != nil {
		return err
	}
	cc := NewCommandContext(cmd, mode)
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(opts.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	if err := buildOnce(ctx, cc, cfg); err != nil {
		if !opts.watch {
			return err
		}
		cc.Renderer.Error(err.Error())
	}
	if !opts.watch {
		return nil
	}

	cc.Renderer.Muted(fmt.Sprintf("Watching %s and %s for changes (Ctrl+C to stop)", cfg.TemplatesDir, opts.configFile))
	return builder.Watch(ctx, builder.WatchOptions{
		TemplatesDir: cfg.TemplatesDir,
		Files:        []string{opts.configFile},
		Logger:       cc.Logger,
	}, func(ctx context.Context) error {
		// The config is reloaded so edits to it take effect.
		cfg, err := config.LoadConfig(opts.configFile, cmd.Flags())
		if err == nil {
			err = buildOnce(ctx, cc, cfg)
		}
		if err != nil {
			cc.Renderer.Error(err.Error())
		}
		return err
	})
}

func buildOnce(ctx context.Context, cc *CommandContext, cfg *config.Config) error {
	b, err := builder.New(builder.Config{
		TemplatesDir:  cfg.TemplatesDir,
		OutputDir:     cfg.OutputDir,
		Datasources:   cfg.Datasources,
		Labels:        cfg.Labels,
		Targets:       cfg.Targets,
		OutputFormats: cfg.OutputFormats,
		Categories:    cfg.Categories,
		Logger:        cc.Logger,
		Reporter:      cc.Renderer,
	})
	if err != nil {
		return err
	}

	result, err := b.Build(ctx)
	if err != nil {
		return err
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		written := result.Written
		if written == nil {
			written = []string{}
		}
		return cc.Renderer.JSON(buildSummary{
			Datasources: result.Datasources,
			Rendered:    result.Rendered,
			Written:     written,
			DurationMS:  result.Duration.Milliseconds(),
		})
	}
	cc.Renderer.Success("Build completed successfully!")
	return nil
}
