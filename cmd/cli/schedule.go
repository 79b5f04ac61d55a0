package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/scheduler"
)

var (
	schedulePreset   string
	scheduleAlarm    bool
	scheduleDisabled bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled scans on a running server",
	Long: `Manage cron-scheduled scans on a running uplink server.

Scheduled scans share the single scan slot: a tick that fires while another
scan is running is skipped and counted. Jobs live in server memory; the
schedule section of the config file adds a job at startup.`,
	Example: `  uplink schedule list
  uplink schedule add nightly "0 2 * * *" 192.168.1.0/24 --preset intense
  uplink schedule run 6f1c...
  uplink schedule disable 6f1c...`,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newAPIClientFromConfig()
		if err != nil {
			return err
		}
		var jobs []scheduler.ScheduledJob
		if err := client.Get(cmd.Context(), "/schedules", &jobs); err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scheduled scans.")
			return nil
		}
		return writeScheduleTable(cmd.OutOrStdout(), jobs)
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add NAME CRON TARGET",
	Short: "Add a scheduled scan",
	Long: `Add a scheduled scan. CRON is a standard five-field expression or a
descriptor such as @hourly or "@every 30m".`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClientFromConfig()
		if err != nil {
			return err
		}
		enabled := !scheduleDisabled
		req := map[string]interface{}{
			"name":      args[0],
			"cron_expr": args[1],
			"target":    args[2],
			"preset":    schedulePreset,
			"alarm":     scheduleAlarm,
			"enabled":   enabled,
		}
		var job scheduler.ScheduledJob
		if err := client.Post(cmd.Context(), "/schedules", req, &job); err != nil {
			return err
		}
		_, _ = successColor.Fprintf(cmd.OutOrStdout(), "Scheduled %q (%s), next run %s\n",
			job.Name, job.ID, formatTime(job.NextRun))
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a scheduled scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClientFromConfig()
		if err != nil {
			return err
		}
		if err := client.Delete(cmd.Context(), "/schedules/"+args[0], nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed schedule %s\n", args[0])
		return nil
	},
}

func scheduleActionCmd(use, short, action, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClientFromConfig()
			if err != nil {
				return err
			}
			var job scheduler.ScheduledJob
			if err := client.Post(cmd.Context(), "/schedules/"+args[0]+"/"+action, nil, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", done, job.Name)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default from api config)")

	scheduleAddCmd.Flags().StringVar(&schedulePreset, "preset", "", "preset to scan with (default quick)")
	scheduleAddCmd.Flags().BoolVar(&scheduleAlarm, "alarm", false, "sound the alarm when the scan finishes")
	scheduleAddCmd.Flags().BoolVar(&scheduleDisabled, "disabled", false, "create the job disabled")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleActionCmd("run", "Run a scheduled scan now", "run", "Started"))
	scheduleCmd.AddCommand(scheduleActionCmd("enable", "Enable a scheduled scan", "enable", "Enabled"))
	scheduleCmd.AddCommand(scheduleActionCmd("disable", "Disable a scheduled scan", "disable", "Disabled"))
}

func writeScheduleTable(w io.Writer, jobs []scheduler.ScheduledJob) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Cron", "Target", "Preset", "Enabled", "Next Run", "Runs", "Skipped", "Last Error")
	for i := range jobs {
		job := &jobs[i]
		next := "-"
		if job.Enabled {
			next = formatTime(job.NextRun)
		}
		row := []string{
			job.ID.String(),
			job.Name,
			job.CronExpression,
			job.Config.Target,
			job.Config.Preset,
			fmt.Sprintf("%t", job.Enabled),
			next,
			fmt.Sprintf("%d", job.Runs),
			fmt.Sprintf("%d", job.Skipped),
			job.LastError,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
