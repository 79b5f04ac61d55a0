package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/report"
)

const defaultHistoryLimit = 20

var (
	historyLimit int
	historyXML   bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded scans",
	Long: `Browse scans recorded in the PostgreSQL history database.
Requires history.enabled and history.database in the config file.`,
	Example: `  uplink history list --limit 5
  uplink history show 0b6f0c3e-...
  uplink history show 0b6f0c3e-... --xml > scan.xml`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd.Context(), func(ctx context.Context, store history.Store) error {
			records, err := store.List(ctx, historyLimit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded scans.")
				return nil
			}
			return writeHistoryTable(cmd.OutOrStdout(), records)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the summary or XML of a recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid scan ID %q: %w", args[0], err)
		}
		return withHistory(cmd.Context(), func(ctx context.Context, store history.Store) error {
			rec, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			return writeHistoryRecord(cmd.OutOrStdout(), rec, historyXML)
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", defaultHistoryLimit, "number of scans to show")
	historyShowCmd.Flags().BoolVar(&historyXML, "xml", false, "print the raw XML instead of the summary")
}

func writeHistoryTable(w io.Writer, records []*history.ScanRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Target", "Status", "Hosts", "Open Ports", "Started", "Duration")
	for _, rec := range records {
		row := []string{
			rec.ID.String(),
			rec.Target,
			rec.Status,
			strconv.Itoa(rec.HostCount),
			strconv.Itoa(rec.OpenPortCount),
			formatTime(rec.StartedAt),
			rec.Duration().Round(100 * time.Millisecond).String(),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeHistoryRecord(w io.Writer, rec *history.ScanRecord, rawXML bool) error {
	if rawXML {
		_, err := io.WriteString(w, rec.XMLOutput)
		return err
	}

	_, _ = headingColor.Fprintf(w, "Scan %s\n", rec.ID)
	fmt.Fprintf(w, "Target:   %s\n", rec.Target)
	fmt.Fprintf(w, "Command:  %s\n", rec.Command)
	fmt.Fprintf(w, "Status:   %s\n", rec.Status)
	fmt.Fprintf(w, "Started:  %s\n", formatTime(rec.StartedAt))
	fmt.Fprintf(w, "Duration: %s\n", rec.Duration())
	if rec.ErrorMessage.Valid {
		_, _ = errorColor.Fprintf(w, "Error:    %s\n", rec.ErrorMessage.String)
	}
	if rec.XMLOutput != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, report.Summary([]byte(rec.XMLOutput)))
	}
	return nil
}
