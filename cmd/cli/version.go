package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/scanning"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "uplink %s\n", version)
		fmt.Fprintf(out, "  commit:     %s\n", commit)
		fmt.Fprintf(out, "  built:      %s\n", buildTime)
		fmt.Fprintf(out, "  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if path, err := scanning.LookupBinary(cfg.Nmap.Binary); err == nil {
			fmt.Fprintf(out, "  nmap:       %s\n", path)
		} else {
			_, _ = warnColor.Fprintf(out, "  nmap:       %s not found on PATH\n", cfg.Nmap.Binary)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
