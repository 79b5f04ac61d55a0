package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
)

var presetTestTarget string

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"profiles"},
	Short:   "List and inspect scan presets",
	Long: `View the built-in scan presets and those defined under presets in the
config file. Presets created through the web UI live only in server memory.`,
	Example: `  uplink presets list
  uplink presets show full
  uplink presets test vuln --target 10.0.0.5`,
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		manager, err := newPresetManager()
		if err != nil {
			return err
		}
		return writePresetTable(cmd.OutOrStdout(), manager.GetAll())
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a scan preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newPresetManager()
		if err != nil {
			return err
		}
		preset, err := manager.Get(args[0])
		if err != nil {
			return err
		}
		writePreset(cmd.OutOrStdout(), preset)
		return nil
	},
}

var presetsTestCmd = &cobra.Command{
	Use:   "test NAME",
	Short: "Print the nmap command a preset builds for a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newPresetManager()
		if err != nil {
			return err
		}
		preset, err := manager.Get(args[0])
		if err != nil {
			return err
		}
		form := preset.Form(presetTestTarget, false)
		argv, err := options.DefaultCatalog().BuildCommand(&form)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(argv, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsShowCmd)
	presetsCmd.AddCommand(presetsTestCmd)

	presetsTestCmd.Flags().StringVar(&presetTestTarget, "target", "scanme.nmap.org", "target to build the command for")
}

func newPresetManager() (*profiles.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return profiles.NewManager(options.DefaultCatalog(), cfg.Presets)
}

func writePresetTable(w io.Writer, presets []*profiles.Preset) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Description", "Options", "Scripts", "Built-in")
	for _, p := range presets {
		row := []string{
			p.Name,
			p.Description,
			strings.Join(p.Options, " "),
			strings.Join(p.Scripts, ","),
			fmt.Sprintf("%t", p.BuiltIn),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writePreset(w io.Writer, p *profiles.Preset) {
	_, _ = headingColor.Fprintln(w, p.Name)
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	fmt.Fprintln(w)

	catalog := options.DefaultCatalog()
	for _, flag := range p.Options {
		fmt.Fprintf(w, "  %-8s %s\n", flag, catalog.Describe(flag))
	}
	for _, script := range p.Scripts {
		fmt.Fprintf(w, "  %-8s %s\n", "--script", script+": "+catalog.Describe(script))
	}
	if p.CustomArgs != "" {
		fmt.Fprintf(w, "  %-8s %s\n", "args", p.CustomArgs)
	}
}
