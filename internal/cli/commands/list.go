package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dashgen/internal/builder"
	"github.com/leapstack-labs/dashgen/internal/cli/config"
	"github.com/leapstack-labs/dashgen/internal/cli/output"
	"github.com/spf13/cobra"
)

type listOptions struct {
	configFile string
	format     string
}

// categoryInfo is one category in the JSON output of the list command.
type categoryInfo struct {
	Order     int      `json:"order"`
	Dir       string   `json:"dir"`
	Category  string   `json:"category"`
	Templates []string `json:"templates"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List template categories in build order",
		Long: `List the template categories and their templates in the order the build
renders them. The config file is optional; when present its categories list
decides the order.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table

Use --format to override: auto, text, markdown, json`,
		Example: `  # List categories (auto-detect output format)
  dashgen list

  # List categories as JSON
  dashgen list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "Configuration file path")
	cmd.Flags().String("templates", config.DefaultTemplatesDir, "Templates directory path")
	addFormatFlag(cmd, &opts.format)

	return cmd
}

func runList(cmd *cobra.Command, opts *listOptions) error {
	mode, err := output.ParseMode(opts.format)
	if err != nil {
		return err
	}
	r := NewCommandContext(cmd, mode).Renderer

	cfg, err := config.LoadOptional(opts.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	categories, err := builder.Discover(cfg.TemplatesDir, cfg.Categories)
	if err != nil {
		return fmt.Errorf("failed to discover templates: %w", err)
	}

	infos := make([]categoryInfo, len(categories))
	for i, c := range categories {
		items := make([]string, len(c.Templates))
		for j, file := range c.Templates {
			items[j] = builder.ItemName(file)
		}
		infos[i] = categoryInfo{Order: i + 1, Dir: c.Dir, Category: c.Name, Templates: items}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Categories (%d total)", len(infos)))
	r.Println("")
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{
			strconv.Itoa(info.Order),
			info.Dir,
			info.Category,
			strconv.Itoa(len(info.Templates)),
			strings.Join(info.Templates, ", "),
		}
	}
	r.Table([]string{"#", "Directory", "Category", "Count", "Templates"}, rows)
	return nil
}
