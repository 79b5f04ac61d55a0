package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/alarm"
	"github.com/anstrom/uplink/internal/api"
	apihandlers "github.com/anstrom/uplink/internal/api/handlers"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/options"
	"github.com/anstrom/uplink/internal/profiles"
	"github.com/anstrom/uplink/internal/scanning"
	"github.com/anstrom/uplink/internal/scheduler"
	"github.com/anstrom/uplink/internal/workers"
)

const (
	serverShutdownTimeout = 10 * time.Second
	databaseTimeout       = 5 * time.Second
)

// Serve command flags.
var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI and API",
	Long: `Start the web UI, the REST API under /api/v1 and the live event socket.

The server runs one scan at a time, streams nmap output to connected browsers,
runs follow-up actions on a worker pool and animates the spider graph.
Scan history is recorded when history.enabled is set.`,
	Example: `  uplink serve
  uplink serve --port 9000
  UPLINK_API_API_KEY_HASH=... uplink serve --host 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "override api.listen_addr")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override api.port")
}

// components are the long-lived pieces behind the server.
type components struct {
	deps     apihandlers.Dependencies
	prom     *metrics.PrometheusMetrics
	pool     *workers.Pool
	database *history.DB
}

func (c *components) close(logger *logging.Logger) {
	if c.deps.Scheduler != nil {
		c.deps.Scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := c.deps.Session.Close(ctx); err != nil {
		logger.Warn("Scan did not stop cleanly", "error", err)
	}

	if c.pool != nil {
		if err := c.pool.Shutdown(); err != nil {
			logger.Warn("Follow-up pool shutdown error", "error", err)
		}
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			logger.Error("Failed to close history database", "error", err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.API.ListenAddr = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := logging.Default()
	warnIfExposed(cfg, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	server, err := api.New(cfg, c.deps, c.prom)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	logger.Info("Starting Nmap Uplink",
		"version", version,
		"commit", commit,
		"build_time", buildTime,
		"address", cfg.APIAddress())
	fmt.Fprintf(cmd.OutOrStdout(), "Nmap Uplink %s listening on http://%s\n", version, cfg.APIAddress())
	fmt.Fprintf(cmd.OutOrStdout(), "API documentation: http://%s/swagger/\n", cfg.APIAddress())

	return server.Start(ctx)
}

// buildComponents wires the scan session, follow-ups, graph, alarm, history
// and scheduler for the server.
func buildComponents(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*components, error) {
	registry := metrics.Default()
	prom := metrics.NewPrometheusMetrics()
	catalog := options.DefaultCatalog()

	manager, err := profiles.NewManager(catalog, cfg.Presets)
	if err != nil {
		return nil, fmt.Errorf("invalid presets: %w", err)
	}

	c := &components{prom: prom}
	c.deps = apihandlers.Dependencies{
		Config:     cfg,
		Catalog:    catalog,
		Profiles:   manager,
		Visualizer: graph.NewVisualizer(),
		Logger:     logger,
		Registry:   registry,
	}

	opts := append(sessionOptions(cfg), scanning.WithMetrics(registry, prom))

	if cfg.Alarm.Enabled {
		a := alarm.New(alarmPlayer(), cfg.Alarm.Interval, logger)
		c.deps.Alarm = a
		opts = append(opts, scanning.WithAlarm(a))
	}

	if cfg.History.Enabled {
		dbCtx, cancel := context.WithTimeout(ctx, databaseTimeout)
		defer cancel()

		logger.Info("Connecting to history database...")
		database, err := history.ConnectAndMigrate(dbCtx, &cfg.History.Database)
		if err != nil {
			return nil, fmt.Errorf("history database connection failed: %w", err)
		}
		c.database = database
		c.deps.History = database
		c.deps.Database = database
		opts = append(opts, scanning.WithHistory(database))
	}

	session := scanning.NewSession(catalog, newRunner(), opts...)
	hub := apihandlers.NewHub(logger, registry, prom)
	session.SetSink(hub)
	c.deps.Session = session
	c.deps.Hub = hub

	c.pool = workers.New(workers.Config{
		Size:            cfg.Followup.WorkerPoolSize,
		QueueSize:       cfg.Followup.QueueSize,
		RetryDelay:      time.Second,
		JobTimeout:      cfg.Followup.Timeout,
		ShutdownTimeout: serverShutdownTimeout,
	})
	c.pool.Start()

	c.deps.Followups = followup.NewService(scanning.ExecRunner{}, hub, cfg.Followup,
		followup.WithPool(c.pool),
		followup.WithTarget(session.Target),
		followup.WithNmapBinary(cfg.Nmap.Binary),
		followup.WithLogger(logger),
		followup.WithMetrics(registry, prom),
	)

	sched := scheduler.NewScheduler(session, manager, logger)
	if cfg.Schedule.Enabled {
		job, err := sched.AddScanJob("config", cfg.Schedule.Cron, scheduler.ScanJobConfig{
			Target: cfg.Schedule.Target,
			Preset: cfg.Schedule.Preset,
		})
		if err != nil {
			c.close(logger)
			return nil, fmt.Errorf("invalid schedule: %w", err)
		}
		logger.Info("Scheduled scan configured", "job_id", job.ID, "cron", cfg.Schedule.Cron)
	}
	if err := sched.Start(); err != nil {
		c.close(logger)
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	c.deps.Scheduler = sched

	return c, nil
}

// warnIfExposed logs a warning when the server listens beyond loopback
// without an API key.
func warnIfExposed(cfg *config.Config, logger *logging.Logger) {
	if cfg.API.APIKeyHash != "" {
		return
	}
	ip := net.ParseIP(cfg.API.ListenAddr)
	if cfg.API.ListenAddr == "localhost" || (ip != nil && ip.IsLoopback()) {
		return
	}
	logger.Warn("API key authentication is disabled on a non-loopback address; "+
		"anyone who can reach the server can run scans",
		"address", cfg.APIAddress())
}
