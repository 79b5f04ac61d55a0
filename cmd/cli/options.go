package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/options"
)

var optionsScripts bool

// optionsCmd represents the options command
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the nmap options and NSE scripts in the catalog",
	Long: `List the catalog of nmap options and NSE scripts that scans may select.
Anything else must go through --args.`,
	Example: `  uplink options
  uplink options --scripts
  uplink options describe -- -sV`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog := options.DefaultCatalog()
		if optionsScripts {
			return writeScriptTable(cmd.OutOrStdout(), catalog)
		}
		return writeOptionTable(cmd.OutOrStdout(), catalog)
	},
}

var optionsDescribeCmd = &cobra.Command{
	Use:   "describe KEY",
	Short: "Describe an option flag or script name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc := options.DefaultCatalog().Describe(args[0])
		if desc == "" {
			return fmt.Errorf("%s is not in the catalog", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), desc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
	optionsCmd.AddCommand(optionsDescribeCmd)

	optionsCmd.Flags().BoolVar(&optionsScripts, "scripts", false, "list NSE scripts instead of options")
}

func writeOptionTable(w io.Writer, catalog *options.Catalog) error {
	table := tablewriter.NewWriter(w)
	table.Header("Category", "Flag", "Description")
	for _, opt := range catalog.Options() {
		if err := table.Append([]string{opt.Category, opt.Flag, opt.Description}); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeScriptTable(w io.Writer, catalog *options.Catalog) error {
	table := tablewriter.NewWriter(w)
	table.Header("Category", "Script", "Description")
	for _, script := range catalog.Scripts() {
		if err := table.Append([]string{script.Category, script.Name, script.Description}); err != nil {
			return err
		}
	}
	return table.Render()
}
