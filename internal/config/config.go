// Package config loads and validates the uplink YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/history"
	"github.com/anstrom/uplink/internal/logging"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600

	defaultPort           = 8088
	defaultGraphWidth     = 800
	defaultGraphHeight    = 600
	defaultAlarmInterval  = 500 * time.Millisecond
	defaultFollowupPool   = 2
	defaultFollowupQueue  = 16
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRequestSize = 1024 * 1024
)

// Config represents the complete uplink configuration.
type Config struct {
	Nmap     NmapConfig     `yaml:"nmap" json:"nmap"`
	Presets  []PresetConfig `yaml:"presets" json:"presets" validate:"dive"`
	Alarm    AlarmConfig    `yaml:"alarm" json:"alarm"`
	Graph    GraphConfig    `yaml:"graph" json:"graph"`
	Followup FollowupConfig `yaml:"followup" json:"followup"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	API      APIConfig      `yaml:"api" json:"api"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Logging  logging.Config `yaml:"logging" json:"logging"`
}

// NmapConfig controls how the nmap binary is launched.
type NmapConfig struct {
	// Binary is the nmap executable, looked up on PATH when not absolute.
	Binary string `yaml:"binary" json:"binary" validate:"required"`

	// ReportDir is where markdown reports and raw XML are written.
	ReportDir string `yaml:"report_dir" json:"report_dir" validate:"required"`

	// DisableSudo skips the automatic sudo prefix for privileged scans on linux.
	DisableSudo bool `yaml:"disable_sudo" json:"disable_sudo"`
}

// PresetConfig is a named set of form selections.
type PresetConfig struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Description string   `yaml:"description,omitempty" json:"description"`
	Options     []string `yaml:"options,omitempty" json:"options"`
	Scripts     []string `yaml:"scripts,omitempty" json:"scripts"`
	CustomArgs  string   `yaml:"custom_args,omitempty" json:"custom_args"`
}

// AlarmConfig controls the completion alarm.
type AlarmConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval" validate:"gt=0"`
}

// GraphConfig holds the visualizer canvas settings.
type GraphConfig struct {
	Width         int           `yaml:"width" json:"width" validate:"gt=1"`
	Height        int           `yaml:"height" json:"height" validate:"gt=1"`
	FrameInterval time.Duration `yaml:"frame_interval" json:"frame_interval" validate:"gt=0"`
}

// FollowupConfig holds settings for ping, traceroute, DNS and SNMP follow-ups.
type FollowupConfig struct {
	WorkerPoolSize int           `yaml:"worker_pool_size" json:"worker_pool_size" validate:"gt=0"`
	QueueSize      int           `yaml:"queue_size" json:"queue_size" validate:"gt=0"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	DNSServer      string        `yaml:"dns_server" json:"dns_server"`
	SNMPCommunity  string        `yaml:"snmp_community" json:"snmp_community"`
	SNMPPort       uint16        `yaml:"snmp_port" json:"snmp_port"`
}

// ScheduleConfig repeats a scan on a cron expression.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron" validate:"required_if=Enabled true"`
	Target  string `yaml:"target" json:"target" validate:"required_if=Enabled true"`
	Preset  string `yaml:"preset" json:"preset"`
}

// APIConfig holds the web UI and API server settings.
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr" json:"listen_addr" validate:"required"`
	Port           int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	APIKeyHash     string        `yaml:"api_key_hash" json:"-"`
	CORS           CORSConfig    `yaml:"cors" json:"cors"`
	RateLimit      RateLimit     `yaml:"rate_limit" json:"rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRequestSize int64         `yaml:"max_request_size" json:"max_request_size"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// RateLimit holds API rate limiting settings.
type RateLimit struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"required_if=Enabled true"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// HistoryConfig enables the optional PostgreSQL scan history.
type HistoryConfig struct {
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	Database history.Config `yaml:"database" json:"database"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Nmap: NmapConfig{
			Binary:    "nmap",
			ReportDir: ".",
		},
		Alarm: AlarmConfig{
			Interval: defaultAlarmInterval,
		},
		Graph: GraphConfig{
			Width:         defaultGraphWidth,
			Height:        defaultGraphHeight,
			FrameInterval: 20 * time.Millisecond,
		},
		Followup: FollowupConfig{
			WorkerPoolSize: defaultFollowupPool,
			QueueSize:      defaultFollowupQueue,
			Timeout:        2 * time.Minute,
			SNMPCommunity:  "public",
			SNMPPort:       161,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1",
			Port:       defaultPort,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"http://127.0.0.1:8088", "http://localhost:8088"},
			},
			RateLimit: RateLimit{
				Enabled:           true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
			RequestTimeout: defaultRequestTimeout,
			MaxRequestSize: defaultMaxRequestSize,
		},
		History: HistoryConfig{
			Database: history.DefaultConfig(),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to parse YAML config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.ErrConfigInvalid(first.Namespace(), first.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation, "configuration validation failed", err)
	}

	seen := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if seen[p.Name] {
			return errors.ErrConfigInvalid("Config.Presets.Name", p.Name)
		}
		seen[p.Name] = true
	}

	if c.History.Enabled {
		if c.History.Database.Database == "" {
			return errors.ErrConfigInvalid("Config.History.Database.Database", "")
		}
		if c.History.Database.Username == "" {
			return errors.ErrConfigInvalid("Config.History.Database.Username", "")
		}
	}

	return nil
}

// APIAddress returns the host:port the server listens on.
func (c *Config) APIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
