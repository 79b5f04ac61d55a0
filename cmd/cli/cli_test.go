package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/nmapxml/nmapxmltest"
	"github.com/anstrom/uplink/internal/scanning"
	"github.com/anstrom/uplink/internal/scanning/mocks"
)

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// writeConfig saves a default config, adjusted by mutate, into a temp dir.
func writeConfig(t *testing.T, mutate func(cfg *config.Config)) string {
	t.Helper()
	cfg := config.Default()
	cfg.Nmap.ReportDir = t.TempDir()
	cfg.Nmap.DisableSudo = true
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(t.TempDir(), "uplink.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

// execute runs the root command with args against the config at cfgPath.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	resetFlags(rootCmd)
	t.Cleanup(func() { logging.SetDefault(logging.NewDefault()) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func mockRunner(t *testing.T, stdout, stderr string) *mocks.MockRunner {
	t.Helper()
	ctrl := gomock.NewController(t)
	proc := mocks.NewMockProcess(ctrl)
	proc.EXPECT().Stdout().Return(strings.NewReader(stdout)).AnyTimes()
	proc.EXPECT().Stderr().Return(strings.NewReader(stderr)).AnyTimes()
	proc.EXPECT().Wait().Return(nil).AnyTimes()

	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Start(gomock.Any(), gomock.Any()).Return(proc, nil)

	orig := newRunner
	newRunner = func() scanning.Runner { return runner }
	t.Cleanup(func() { newRunner = orig })
	return runner
}

func TestOptionsCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	out, err := execute(t, cfgPath, "options")
	require.NoError(t, err)
	assert.Contains(t, out, "-sV")
	assert.Contains(t, out, "-T4")

	out, err = execute(t, cfgPath, "options", "--scripts")
	require.NoError(t, err)
	assert.Contains(t, out, "http-title")
	assert.NotContains(t, out, "-T4")

	out, err = execute(t, cfgPath, "options", "describe", "--", "-F")
	require.NoError(t, err)
	assert.Contains(t, out, "Fast Scan")

	_, err = execute(t, cfgPath, "options", "describe", "--", "--bogus")
	assert.Error(t, err)
}

func TestPresetsCommand(t *testing.T) {
	cfgPath := writeConfig(t, func(cfg *config.Config) {
		cfg.Presets = []config.PresetConfig{
			{Name: "web", Description: "Web titles", Options: []string{"-sV"}, Scripts: []string{"http-title"}},
		}
	})

	out, err := execute(t, cfgPath, "presets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "quick")
	assert.Contains(t, out, "web")

	out, err = execute(t, cfgPath, "presets", "show", "web")
	require.NoError(t, err)
	assert.Contains(t, out, "Web titles")
	assert.Contains(t, out, "http-title")

	out, err = execute(t, cfgPath, "presets", "test", "web", "--target", "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "nmap 10.0.0.5 -oX - -sV --script=http-title\n", out)

	_, err = execute(t, cfgPath, "presets", "show", "missing")
	assert.Error(t, err)
}

func TestScanCommand_DryRun(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	out, err := execute(t, cfgPath, "scan", "10.0.0.1", "--preset", "quick", "-o", "-sV", "--args", "-p 22", "--dry-run")
	require.NoError(t, err)

	line := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(line, "nmap 10.0.0.1 -oX -"), line)
	for _, want := range []string{"-sV", "-F", "-T4", "-p 22"} {
		assert.Contains(t, line, want)
	}
	assert.NotContains(t, line, "sudo")
}

func TestScanCommand_RejectsUnknownOption(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, cfgPath, "scan", "10.0.0.1", "-o", "--not-an-option", "--dry-run")
	assert.Error(t, err)
}

func TestScanCommand_Run(t *testing.T) {
	reportDir := t.TempDir()
	cfgPath := writeConfig(t, func(cfg *config.Config) {
		cfg.Nmap.ReportDir = reportDir
	})
	mockRunner(t, nmapxmltest.TwoHosts, "Starting Nmap 7.94\n")
	xmlPath := filepath.Join(t.TempDir(), "out.xml")

	out, err := execute(t, cfgPath, "scan", "192.168.1.1", "-o", "-sV", "--table", "--report", "--xml", xmlPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Executing command: nmap 192.168.1.1 -oX - -sV")
	assert.Contains(t, out, "Starting Nmap 7.94")
	assert.Contains(t, out, "Scan completed")
	assert.Contains(t, out, "2 host(s), 4 open port(s)")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Scan report saved to:")
	assert.Contains(t, out, "OpenSSH")

	saved, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	assert.Equal(t, nmapxmltest.TwoHosts, string(saved))

	reports, err := filepath.Glob(filepath.Join(reportDir, "*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestSummaryCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	fixture := writeFixture(t, nmapxmltest.TwoHosts)

	out, err := execute(t, cfgPath, "summary", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "192.168.1.1")
	assert.Contains(t, out, "192.168.1.2")

	out, err = execute(t, cfgPath, "summary", fixture, "--table")
	require.NoError(t, err)
	assert.Contains(t, out, "22/tcp")
	assert.Contains(t, out, "nginx")

	_, err = execute(t, cfgPath, "summary", writeFixture(t, "   "))
	assert.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	fixture := writeFixture(t, nmapxmltest.TwoHosts)

	out, err := execute(t, cfgPath, "report", fixture, "--stdout")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Nmap Scan Report"))
	assert.Contains(t, out, "## Host: `192.168.1.1`")

	dir := t.TempDir()
	out, err = execute(t, cfgPath, "report", fixture, "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Scan report saved to:")

	md, err := filepath.Glob(filepath.Join(dir, "*.md"))
	require.NoError(t, err)
	assert.Len(t, md, 1)
}

func TestGraphCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	fixture := writeFixture(t, nmapxmltest.TwoHosts)

	out, err := execute(t, cfgPath, "graph", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Host: 192.168.1.1")
	assert.Contains(t, out, "22/tcp")

	out, err = execute(t, cfgPath, "graph", fixture, "--json")
	require.NoError(t, err)
	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	require.NotEmpty(t, g.Nodes)
	assert.True(t, g.Nodes[0].Main)
	assert.Equal(t, 800.0, g.Width)

	out, err = execute(t, cfgPath, "graph", fixture, "--profile", "0")
	require.NoError(t, err)
	assert.Contains(t, out, g.Nodes[0].Title)
	assert.Contains(t, out, "192.168.1.1")

	_, err = execute(t, cfgPath, "graph", fixture, "--profile", "999")
	assert.Error(t, err)
}

func TestFollowupCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	mockRunner(t, "64 bytes from 192.168.1.1: icmp_seq=1\n", "")
	fixture := writeFixture(t, nmapxmltest.TwoHosts)

	out, err := execute(t, cfgPath, "followup", "ping", "--from", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "--- Pinging 192.168.1.1 ---")
	assert.Contains(t, out, "64 bytes from 192.168.1.1")
}

func TestTracerouteShortcut(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	mockRunner(t, " 1  gateway (10.0.0.1)  0.412 ms\n", "")

	out, err := execute(t, cfgPath, "traceroute", "10.0.0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "--- Tracerouting 10.0.0.5 ---")
	assert.Contains(t, out, "gateway (10.0.0.1)")
}

func TestFollowupCommand_Errors(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, cfgPath, "followup", "teleport", "10.0.0.1")
	assert.Error(t, err)

	_, err = execute(t, cfgPath, "followup", "ping")
	assert.Error(t, err)
}

func TestAPIKeyCommands(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	out, err := execute(t, cfgPath, "apikey", "generate", "--name", "laptop", "--save", "-o", "json")
	require.NoError(t, err)

	var generated struct {
		Name  string `json:"name"`
		Key   string `json:"key"`
		Saved bool   `json:"saved"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	assert.Equal(t, "laptop", generated.Name)
	assert.True(t, strings.HasPrefix(generated.Key, "upl_"))
	assert.True(t, generated.Saved)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.API.APIKeyHash)

	out, err = execute(t, cfgPath, "apikey", "verify", generated.Key)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	_, err = execute(t, cfgPath, "apikey", "verify", "upl_abcdefghijklmnopqrstuvwxyz234567")
	assert.Error(t, err)

	_, err = execute(t, cfgPath, "apikey", "verify", "not-a-key")
	assert.Error(t, err)
}

func TestAPIKeyGenerate_Text(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	out, err := execute(t, cfgPath, "apikey", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Key:    upl_")
	assert.Contains(t, out, "Hash:   $2a$")
	assert.Contains(t, out, "shown only once")
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfgPath := writeConfig(t, func(cfg *config.Config) {
		cfg.API.Port = 8088
	})
	t.Setenv("UPLINK_API_PORT", "9191")
	t.Setenv("UPLINK_NMAP_REPORT_DIR", "/var/tmp/uplink")

	_, err := execute(t, cfgPath, "--nmap", "/opt/nmap/bin/nmap", "--log-level", "warn", "options")
	require.NoError(t, err)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, "/var/tmp/uplink", cfg.Nmap.ReportDir)
	assert.Equal(t, "/opt/nmap/bin/nmap", cfg.Nmap.Binary)
	assert.Equal(t, logging.LogLevel("warn"), cfg.Logging.Level)
}

func TestLoadConfig_VerboseForcesDebug(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, cfgPath, "-v", "options")
	require.NoError(t, err)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
}

func TestWarnIfExposed(t *testing.T) {
	tests := []struct {
		name     string
		listen   string
		keyHash  string
		wantWarn bool
	}{
		{name: "loopback", listen: "127.0.0.1"},
		{name: "localhost", listen: "localhost"},
		{name: "ipv6 loopback", listen: "::1"},
		{name: "wildcard without key", listen: "0.0.0.0", wantWarn: true},
		{name: "wildcard with key", listen: "0.0.0.0", keyHash: "$2a$12$hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewWithWriter(logging.DefaultConfig(), &buf)
			cfg := config.Default()
			cfg.API.ListenAddr = tt.listen
			cfg.API.APIKeyHash = tt.keyHash

			warnIfExposed(cfg, logger)
			assert.Equal(t, tt.wantWarn, strings.Contains(buf.String(), "API key authentication is disabled"))
		})
	}
}

func TestDefaultServerURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.Port = 8088

	cfg.API.ListenAddr = "0.0.0.0"
	assert.Equal(t, "http://127.0.0.1:8088", defaultServerURL(cfg))

	cfg.API.ListenAddr = "192.168.1.10"
	assert.Equal(t, "http://192.168.1.10:8088", defaultServerURL(cfg))

	cfg.API.ListenAddr = "::1"
	assert.Equal(t, "http://[::1]:8088", defaultServerURL(cfg))
}

func historyConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, func(cfg *config.Config) {
		cfg.History.Enabled = true
		cfg.History.Database.Database = "uplink"
		cfg.History.Database.Username = "uplink"
	})
}

func useMockHistory(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	orig := openHistory
	openHistory = func(context.Context, *history.Config) (history.Store, error) {
		return history.NewDB(sqlx.NewDb(conn, "sqlmock")), nil
	}
	t.Cleanup(func() {
		openHistory = orig
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return mock
}

var historyColumns = []string{
	"id", "target", "command", "status", "error_message", "xml_output",
	"host_count", "open_port_count", "started_at", "finished_at",
}

func TestHistoryCommands(t *testing.T) {
	cfgPath := historyConfig(t)
	id := uuid.New()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("list", func(t *testing.T) {
		mock := useMockHistory(t)
		mock.ExpectQuery("SELECT (.+) FROM scan_history").
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(historyColumns).
				AddRow(id.String(), "192.168.1.0/24", "nmap 192.168.1.0/24 -oX -", "completed", nil, "",
					2, 4, started, started.Add(90*time.Second)))
		mock.ExpectClose()

		out, err := execute(t, cfgPath, "history", "list", "--limit", "5")
		require.NoError(t, err)
		assert.Contains(t, out, id.String())
		assert.Contains(t, out, "192.168.1.0/24")
		assert.Contains(t, out, "1m30s")
	})

	t.Run("show", func(t *testing.T) {
		mock := useMockHistory(t)
		mock.ExpectQuery("SELECT (.+) FROM scan_history WHERE id").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(historyColumns).
				AddRow(id.String(), "192.168.1.1", "nmap 192.168.1.1 -oX -", "completed", nil, nmapxmltest.TwoHosts,
					2, 4, started, started.Add(time.Minute)))
		mock.ExpectClose()

		out, err := execute(t, cfgPath, "history", "show", id.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Scan "+id.String())
		assert.Contains(t, out, "Command:  nmap 192.168.1.1 -oX -")
		assert.Contains(t, out, "192.168.1.2")
	})

	t.Run("show xml", func(t *testing.T) {
		mock := useMockHistory(t)
		mock.ExpectQuery("SELECT (.+) FROM scan_history WHERE id").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(historyColumns).
				AddRow(id.String(), "192.168.1.1", "nmap", "completed", nil, nmapxmltest.TwoHosts,
					2, 4, started, started))
		mock.ExpectClose()

		out, err := execute(t, cfgPath, "history", "show", id.String(), "--xml")
		require.NoError(t, err)
		assert.Equal(t, nmapxmltest.TwoHosts, out)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := execute(t, cfgPath, "history", "show", "not-a-uuid")
		assert.Error(t, err)
	})
}

func TestHistoryCommands_Disabled(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, cfgPath, "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestVersionCommand(t *testing.T) {
	cfgPath := writeConfig(t, func(cfg *config.Config) {
		cfg.Nmap.Binary = "definitely-not-nmap-binary"
	})

	out, err := execute(t, cfgPath, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "uplink dev")
	assert.Contains(t, out, "definitely-not-nmap-binary not found")
}
