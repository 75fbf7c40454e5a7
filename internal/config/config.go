package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mini-eventlog/internal/topic"

	"github.com/BurntSushi/toml"
)

// StartupPolicy decides what happens when recovery found malformed lines or
// unreadable files.
type StartupPolicy string

const (
	// PolicyServe starts with whatever loaded and reports the errors.
	PolicyServe StartupPolicy = "serve"
	// PolicyRefuse refuses to start if any recovery error occurred.
	PolicyRefuse StartupPolicy = "refuse"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// Config represents the event log server configuration
type Config struct {
	// Storage settings
	DataDir    string `toml:"data_dir"`
	WindowSize int    `toml:"window_size"` // Max records returned per read
	SyncWrites bool   `toml:"sync_writes"` // fsync after every append
	QueueDepth int    `toml:"queue_depth"` // Buffered appends per topic

	// Server settings
	Address         string        `toml:"address"`
	Port            int           `toml:"port"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// Startup settings
	StartupPolicy StartupPolicy `toml:"startup_policy"`

	// Audit settings
	AuditTopic  string `toml:"audit_topic"`
	AuditBuffer int    `toml:"audit_buffer"`

	Log LogConfig `toml:"log"`
}

func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		DataDir:         filepath.Join(homeDir, ".mini-eventlog"),
		WindowSize:      4096,
		SyncWrites:      false,
		QueueDepth:      256,
		Address:         "127.0.0.1",
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		StartupPolicy:   PolicyServe,
		AuditTopic:      topic.AuditTopic,
		AuditBuffer:     1024,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile overlays the TOML file at path on the defaults. An empty path
// returns the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue_depth must be positive, got %d", c.QueueDepth)
	}
	if c.AuditBuffer <= 0 {
		return fmt.Errorf("audit_buffer must be positive, got %d", c.AuditBuffer)
	}
	switch c.StartupPolicy {
	case PolicyServe, PolicyRefuse:
	default:
		return fmt.Errorf("unknown startup_policy %q (want %q or %q)", c.StartupPolicy, PolicyServe, PolicyRefuse)
	}
	if err := topic.Validate(c.AuditTopic); err != nil {
		return fmt.Errorf("audit_topic: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
