package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/nmapxml"
	"github.com/anstrom/uplink/internal/report"
)

var (
	summaryTable bool
	reportDir    string
	reportStdout bool
	graphWidth   int
	graphHeight  int
	graphProfile int
	graphJSON    bool
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary FILE",
	Short: "Summarize a saved nmap XML file",
	Example: `  uplink summary scan.xml
  uplink summary scan.xml --table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, result, err := nmapxml.LoadFile(args[0])
		if err != nil {
			return err
		}
		if summaryTable {
			return report.WriteTable(cmd.OutOrStdout(), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary(data))
		return nil
	},
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report FILE",
	Short: "Write a Markdown report for a saved nmap XML file",
	Long: `Write a Markdown report and a copy of the raw XML, named after the
current time, into the report directory.`,
	Example: `  uplink report scan.xml
  uplink report scan.xml --dir reports/
  uplink report scan.xml --stdout`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, result, err := nmapxml.LoadFile(args[0])
		if err != nil {
			return err
		}
		now := time.Now()
		if reportStdout {
			_, err := io.WriteString(cmd.OutOrStdout(), report.Markdown(result, now))
			return err
		}

		dir := reportDir
		if dir == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.Nmap.ReportDir
		}
		saved, err := report.Save(dir, data, now)
		if err != nil {
			return err
		}
		_, _ = successColor.Fprintln(cmd.OutOrStdout(), saved.Message())
		return nil
	},
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph FILE",
	Short: "Lay out a saved nmap XML file as a spider graph",
	Long: `Lay out the hosts and open services of a saved scan the way the web UI
draws them and print the nodes. --profile prints the detail shown when a node
is right-clicked.`,
	Example: `  uplink graph scan.xml
  uplink graph scan.xml --profile 3
  uplink graph scan.xml --json > graph.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _, err := nmapxml.LoadFile(args[0])
		if err != nil {
			return err
		}
		g, err := graph.Build(data, float64(graphWidth), float64(graphHeight))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cmd.Flags().Changed("profile") {
			return writeNodeProfile(out, g, graphProfile)
		}
		if graphJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}
		return writeGraphTable(out, g)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(graphCmd)

	summaryCmd.Flags().BoolVar(&summaryTable, "table", false, "print open ports as a table")

	reportCmd.Flags().StringVar(&reportDir, "dir", "", "report directory (default nmap.report_dir)")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "print the Markdown instead of saving it")

	graphCmd.Flags().IntVar(&graphWidth, "width", 800, "canvas width")
	graphCmd.Flags().IntVar(&graphHeight, "height", 600, "canvas height")
	graphCmd.Flags().IntVar(&graphProfile, "profile", 0, "print the profile of this node id")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "print the graph as JSON")
}

func writeGraphTable(w io.Writer, g *graph.Graph) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Kind", "Label", "X", "Y", "Parent")
	for i := range g.Nodes {
		n := &g.Nodes[i]
		parent := "-"
		if n.Parent >= 0 {
			parent = strconv.Itoa(n.Parent)
		}
		row := []string{
			strconv.Itoa(n.ID),
			n.Kind,
			n.Label,
			strconv.FormatFloat(n.X, 'f', 1, 64),
			strconv.FormatFloat(n.Y, 'f', 1, 64),
			parent,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeNodeProfile(w io.Writer, g *graph.Graph, id int) error {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID != id {
			continue
		}
		_, _ = headingColor.Fprintln(w, n.Title)
		fmt.Fprintln(w, n.Profile)
		return nil
	}
	return fmt.Errorf("no node with id %d", id)
}
