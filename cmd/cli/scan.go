package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/alarm"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/nmapxml"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/report"
	"github.com/anstrom/uplink/internal/scanning"
)

var (
	scanOptions []string
	scanScripts []string
	scanArgs    string
	scanPreset  string
	scanAlarm   bool
	scanXMLFile string
	scanReport  bool
	scanTable   bool
	scanDryRun  bool
)

// Seams for tests.
var (
	newRunner   = func() scanning.Runner { return scanning.ExecRunner{} }
	alarmPlayer = func() alarm.Player { return alarm.NewSystemPlayer() }
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan TARGET",
	Short: "Run an nmap scan in the terminal",
	Long: `Build an nmap command from catalog options, NSE scripts and custom
arguments, run it with live output and print the summary when it finishes.

Options and scripts must come from the catalog ("uplink options" lists them).
A preset supplies a saved selection; extra flags are added on top of it.
Press Ctrl-C to stop a running scan.`,
	Example: `  uplink scan scanme.nmap.org -o -sV -o -T4
  uplink scan 192.168.1.0/24 --preset quick --table
  uplink scan 10.0.0.5 -s http-title --args "-p 80,443" --report
  uplink scan 10.0.0.5 -o -O --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringArrayVarP(&scanOptions, "option", "o", nil, "catalog option to enable (repeatable), e.g. -o -sV")
	scanCmd.Flags().StringArrayVarP(&scanScripts, "script", "s", nil, "NSE script to run (repeatable)")
	scanCmd.Flags().StringVar(&scanArgs, "args", "", "additional nmap arguments")
	scanCmd.Flags().StringVarP(&scanPreset, "preset", "p", "", "start from a named preset")
	scanCmd.Flags().BoolVar(&scanAlarm, "alarm", false, "sound an alarm when the scan finishes")
	scanCmd.Flags().StringVar(&scanXMLFile, "xml", "", "save the raw XML output to this file")
	scanCmd.Flags().BoolVar(&scanReport, "report", false, "save a Markdown report to nmap.report_dir")
	scanCmd.Flags().BoolVar(&scanTable, "table", false, "print open ports as a table")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "print the command without running it")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog := options.DefaultCatalog()
	form, err := buildForm(cfg, catalog, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := append(sessionOptions(cfg), scanning.WithSink(newWriterSink(out)))

	if cfg.History.Enabled && !scanDryRun {
		store, err := history.ConnectAndMigrate(cmd.Context(), &cfg.History.Database)
		if err != nil {
			_, _ = warnColor.Fprintf(cmd.ErrOrStderr(), "Scan history unavailable: %v\n", err)
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, scanning.WithHistory(store))
		}
	}

	session := scanning.NewSession(catalog, newRunner(), opts...)

	if scanDryRun {
		argv, warning, err := session.Prepare(&form)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(argv, " "))
		if warning != "" {
			_, _ = warnColor.Fprintln(out, warning)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := session.Start(ctx, form); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Stop()
		case <-done:
		}
	}()

	err = session.Wait(context.Background())
	close(done)
	if err != nil {
		return err
	}

	last, ok := session.Last()
	if !ok {
		return nil
	}

	if err := writeScanResults(cfg, out, last); err != nil {
		return err
	}

	if scanAlarm && last.Status == scanning.StatusCompleted {
		waitForAcknowledge(cfg, cmd.InOrStdin(), out)
	}

	if last.Status == scanning.StatusFailed {
		return fmt.Errorf("scan failed: %s", last.Error)
	}
	return nil
}

// buildForm merges the preset, if any, with the option flags.
func buildForm(cfg *config.Config, catalog *options.Catalog, target string) (options.Form, error) {
	form := options.Form{Target: target, Alarm: scanAlarm}

	if scanPreset != "" {
		manager, err := profiles.NewManager(catalog, cfg.Presets)
		if err != nil {
			return form, err
		}
		preset, err := manager.Get(scanPreset)
		if err != nil {
			return form, err
		}
		form = preset.Form(target, scanAlarm)
	}

	form.Options = appendMissing(form.Options, scanOptions)
	form.Scripts = appendMissing(form.Scripts, scanScripts)
	form.CustomArgs = strings.TrimSpace(form.CustomArgs + " " + scanArgs)
	return form, nil
}

func appendMissing(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range extra {
		if !seen[v] {
			base = append(base, v)
			seen[v] = true
		}
	}
	return base
}

func sessionOptions(cfg *config.Config) []scanning.SessionOption {
	opts := []scanning.SessionOption{
		scanning.WithBinary(cfg.Nmap.Binary),
		scanning.WithLogger(logging.Default()),
	}
	if cfg.Nmap.DisableSudo {
		opts = append(opts, scanning.WithoutSudo())
	}
	return opts
}

func writeScanResults(cfg *config.Config, out io.Writer, last *scanning.Completion) error {
	if !last.HasResults() {
		return nil
	}

	if scanXMLFile != "" {
		if err := nmapxml.SaveFile(scanXMLFile, last.XML); err != nil {
			return err
		}
		fmt.Fprintf(out, "XML saved to %s\n", scanXMLFile)
	}

	if scanTable {
		result, err := nmapxml.Parse(last.XML)
		if err != nil {
			return err
		}
		if err := report.WriteTable(out, result); err != nil {
			return err
		}
	}

	if scanReport {
		saved, err := report.Save(cfg.Nmap.ReportDir, last.XML, time.Now())
		if err != nil {
			return err
		}
		_, _ = successColor.Fprintln(out, saved.Message())
	}
	return nil
}

// waitForAcknowledge sounds the alarm until the user presses Enter.
func waitForAcknowledge(cfg *config.Config, in io.Reader, out io.Writer) {
	a := alarm.New(alarmPlayer(), cfg.Alarm.Interval, logging.Default())
	a.Start()
	_, _ = headingColor.Fprintln(out, "Scan finished. Press Enter to acknowledge.")
	_, _ = bufio.NewReader(in).ReadString('\n')
	a.Acknowledge()
}
