package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/nmapxml"
)

var followupFrom string

// followupCmd represents the followup command
var followupCmd = &cobra.Command{
	Use:   "followup ACTION [HOST]",
	Short: "Run a follow-up action against a host",
	Long: `Run a follow-up action against a host: ping, traceroute, dns, snmp or
sweep (a ping sweep of the host's /24). Without HOST the first address in the
saved scan given by --from is used.`,
	Example: `  uplink followup ping 10.0.0.5
  uplink followup dns scanme.nmap.org
  uplink followup sweep --from scan.xml`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"ping", "traceroute", "dns", "snmp", "sweep"},
	RunE:      runFollowup,
}

// followupShortcut exposes a single follow-up action as a top-level command.
func followupShortcut(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [HOST]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollowup(cmd, append([]string{action}, args...))
		},
	}
}

func init() {
	rootCmd.AddCommand(followupCmd)

	followupCmd.Flags().StringVar(&followupFrom, "from", "", "saved nmap XML file to take the default host from")

	for _, shortcut := range []*cobra.Command{
		followupShortcut("ping", "Ping a host"),
		followupShortcut("traceroute", "Trace the route to a host"),
	} {
		shortcut.Flags().StringVar(&followupFrom, "from", "", "saved nmap XML file to take the default host from")
		rootCmd.AddCommand(shortcut)
	}
}

func runFollowup(cmd *cobra.Command, args []string) error {
	action, err := followup.ParseAction(args[0])
	if err != nil {
		return err
	}
	host := ""
	if len(args) > 1 {
		host = args[1]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service := followup.NewService(newRunner(), newWriterSink(cmd.OutOrStdout()), cfg.Followup,
		followup.WithTarget(savedTarget(followupFrom)),
		followup.WithNmapBinary(cfg.Nmap.Binary),
		followup.WithLogger(logging.Default()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return service.Execute(ctx, action, host)
}

// savedTarget returns the first address of a saved scan, or nothing.
func savedTarget(path string) followup.TargetFunc {
	return func() string {
		if path == "" {
			return ""
		}
		_, result, err := nmapxml.LoadFile(path)
		if err != nil {
			return ""
		}
		addr, _ := result.FirstAddress()
		return addr
	}
}
