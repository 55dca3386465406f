package commands

import (
	"log/slog"

	"github.com/leapstack-labs/dashgen/internal/cli/config"
	"github.com/leapstack-labs/dashgen/internal/cli/output"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with the logger from the command
// context and a renderer writing to the command's output streams.
func NewCommandContext(cmd *cobra.Command, mode output.Mode) *CommandContext {
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		r.DisableColor()
	}

	return &CommandContext{
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: r,
	}
}

// addFormatFlag registers the --format flag shared by commands with
// machine-readable output.
func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "format", string(output.ModeAuto), "Output format (auto|text|markdown|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
}
