// Package cli provides the command-line interface of Nmap Uplink.
// This package implements the Cobra-based CLI structure with commands for
// running scans, serving the web UI, working with saved results, follow-up
// actions, scan history, schedules and API keys.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apihandlers "github.com/anstrom/uplink/internal/api/handlers"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/logging"
)

const defaultConfigFile = "uplink.yaml"

var (
	cfgFile string
	verbose bool
	noColor bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "uplink",
	Short: "Web front-end and command line for nmap",
	Long: `Nmap Uplink builds nmap command lines from a catalog of options and NSE
scripts, runs one scan at a time with live output and turns the XML result
into a summary, a Markdown report and an animated spider graph.

Run "uplink serve" for the web UI or "uplink scan" from the terminal.`,
	Version:      getVersion(),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./uplink.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.String("nmap", "", "nmap binary (overrides nmap.binary)")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	bindings := map[string]string{
		"verbose":       "verbose",
		"nmap.binary":   "nmap",
		"logging.level": "log-level",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("uplink")
	}

	// UPLINK_API_PORT overrides api.port and so on.
	viper.SetEnvPrefix("UPLINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if noColor {
		color.NoColor = true
	}

	initLogging()
}

// getConfigFilePath returns the config file in use.
func getConfigFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigFile
}

// loadConfig loads the YAML configuration and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if v := viper.GetString("nmap.binary"); v != "" {
		cfg.Nmap.Binary = v
	}
	if v := viper.GetString("nmap.report_dir"); v != "" {
		cfg.Nmap.ReportDir = v
	}
	if v := viper.GetString("api.listen_addr"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := viper.GetInt("api.port"); v != 0 {
		cfg.API.Port = v
	}
	if v := viper.GetString("api.api_key_hash"); v != "" {
		cfg.API.APIKeyHash = v
	}
	if viper.IsSet("history.enabled") {
		cfg.History.Enabled = viper.GetBool("history.enabled")
	}
	if v := viper.GetString("history.database.password"); v != "" {
		cfg.History.Database.Password = v
	}
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = logging.LogLevel(v)
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = logging.LevelDebug
	}
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
	apihandlers.SetBuildInfo(v, c, bt)
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		return
	}
	applyOverrides(cfg)

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
}
