package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for usbb.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Jobs     JobsConfig     `toml:"jobs"`
	Scan     ScanConfig     `toml:"scan"`
	Monitor  MonitorConfig  `toml:"monitor"`
}

// DatabaseConfig represents configuration for the catalog database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level"`         // debug, info, warn, error
	Format string `toml:"format"`        // json, console or auto
	Dir    string `toml:"dir,omitempty"` // when set, logs are also written to usbb.log here
}

// JobsConfig controls the job scheduler.
type JobsConfig struct {
	HistorySize int `toml:"history_size"` // completed jobs kept in memory
}

// ScanConfig holds scan-related settings.
type ScanConfig struct {
	Ignore []string `toml:"ignore"`
}

// MonitorConfig controls the long running serve command.
type MonitorConfig struct {
	Interval    Duration `toml:"interval"`     // device stats refresh period
	MetricsAddr string   `toml:"metrics_addr"` // Prometheus listener, empty disables
}

// Duration is a time.Duration that reads and writes TOML strings like "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default values applied by NewConfig and Normalize.
const (
	DefaultHistorySize     = 100
	DefaultMonitorInterval = 5 * time.Minute
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "auto"
)

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	cfg := &Config{
		BaseDir:  baseDir,
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Log:      LogConfig{Dir: filepath.Join(baseDir, "log")},
		Scan:     ScanConfig{Ignore: []string{}},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Jobs.HistorySize <= 0 {
		c.Jobs.HistorySize = DefaultHistorySize
	}
	if c.Monitor.Interval.Duration <= 0 {
		c.Monitor.Interval.Duration = DefaultMonitorInterval
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
