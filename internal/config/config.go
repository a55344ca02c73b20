// Package config manages the netwatch application configuration.
// It handles loading, validating, and providing access to configuration settings
// from YAML files. It includes defaults for all settings and implements thread-safe
// access to configuration values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// SeriesStyle is the stroke and fill of one trend series
type SeriesStyle struct {
	Stroke string `yaml:"stroke"`
	Fill   string `yaml:"fill"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		Host            string   `yaml:"host"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		ReadTimeout     int      `yaml:"readTimeout"`
		WriteTimeout    int      `yaml:"writeTimeout"`
		ShutdownTimeout int      `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Data struct {
		Source           string `yaml:"source"` // directory or http(s) base URL
		RefreshFrequency string `yaml:"refreshFrequency"`
		EnableScheduler  bool   `yaml:"enableScheduler"`
		WatchFiles       bool   `yaml:"watchFiles"`
		WatchDebounce    string `yaml:"watchDebounce"`
		FetchTimeout     string `yaml:"fetchTimeout"`
	} `yaml:"data"`

	Dashboard struct {
		HistoryWindow  int         `yaml:"historyWindow"`
		RiskLimit      int         `yaml:"riskLimit"`
		QueueLimit     int         `yaml:"queueLimit"`
		StabilityLimit int         `yaml:"stabilityLimit"`
		LegendLimit    int         `yaml:"legendLimit"`
		SparkWidth     float64     `yaml:"sparkWidth"`
		SparkHeight    float64     `yaml:"sparkHeight"`
		SparkPadding   float64     `yaml:"sparkPadding"`
		DevicesSeries  SeriesStyle `yaml:"devicesSeries"`
		PortsSeries    SeriesStyle `yaml:"portsSeries"`
		RisksSeries    SeriesStyle `yaml:"risksSeries"`
	} `yaml:"dashboard"`

	Database struct {
		Path              string `yaml:"path"`
		BackupDir         string `yaml:"backupDir"`
		BackupFrequency   string `yaml:"backupFrequency"`
		OptimizeFrequency string `yaml:"optimizeFrequency"`
		DataRetentionDays int    `yaml:"dataRetentionDays"`
		MaxConnections    int    `yaml:"maxConnections"`
		JournalMode       string `yaml:"journalMode"`
		SynchronousMode   string `yaml:"synchronousMode"`
	} `yaml:"database"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"` // json or console
		OutputPath string `yaml:"outputPath"`
	} `yaml:"logging"`

	Maintenance struct {
		Interval         string `yaml:"interval"`
		DatabaseBackup   bool   `yaml:"databaseBackup"`
		DatabaseOptimize bool   `yaml:"databaseOptimize"`
		CleanupOldData   bool   `yaml:"cleanupOldData"`
	} `yaml:"maintenance"`

	Advanced struct {
		MetricsEnabled  bool   `yaml:"metricsEnabled"`
		MetricsEndpoint string `yaml:"metricsEndpoint"`
	} `yaml:"advanced"`

	path string
	mu   sync.RWMutex
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New returns a configuration populated with defaults
func New() *Config {
	c := &Config{}
	setDefaults(c)
	return c
}

// LoadConfig loads configuration from a YAML file
func (c *Config) LoadConfig(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Save path for potential reloading
	c.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}

	// Create directories if they don't exist
	dirs := []string{
		c.Database.BackupDir,
		filepath.Dir(c.Database.Path),
	}
	if c.Logging.OutputPath != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.OutputPath))
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().Str("path", path).Msg("Configuration loaded successfully")
	return nil
}

// Reload reloads the configuration from the file
func (c *Config) Reload() error {
	if c.path == "" {
		return errors.New("configuration was not loaded from a file")
	}
	return c.LoadConfig(c.path)
}

// SaveConfig saves the current configuration to a file
func (c *Config) SaveConfig(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Data.Source) == "" {
		return errors.New("data source is required")
	}

	durations := map[string]string{
		"refresh frequency":    c.Data.RefreshFrequency,
		"watch debounce":       c.Data.WatchDebounce,
		"fetch timeout":        c.Data.FetchTimeout,
		"backup frequency":     c.Database.BackupFrequency,
		"optimize frequency":   c.Database.OptimizeFrequency,
		"maintenance interval": c.Maintenance.Interval,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if c.Dashboard.HistoryWindow < 0 || c.Dashboard.RiskLimit < 0 || c.Dashboard.QueueLimit < 0 {
		return errors.New("dashboard limits must not be negative")
	}
	if c.Dashboard.SparkPadding*2 >= c.Dashboard.SparkWidth || c.Dashboard.SparkPadding*2 >= c.Dashboard.SparkHeight {
		return fmt.Errorf("spark padding %.0f does not fit a %.0fx%.0f canvas",
			c.Dashboard.SparkPadding, c.Dashboard.SparkWidth, c.Dashboard.SparkHeight)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Database.MaxConnections < 0 {
		return fmt.Errorf("invalid database max connections: %d", c.Database.MaxConnections)
	}
	switch strings.ToUpper(c.Database.JournalMode) {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("invalid journal mode: %s", c.Database.JournalMode)
	}
	switch strings.ToUpper(c.Database.SynchronousMode) {
	case "", "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronous mode: %s", c.Database.SynchronousMode)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Advanced.MetricsEnabled && !strings.HasPrefix(c.Advanced.MetricsEndpoint, "/") {
		return fmt.Errorf("invalid metrics endpoint: %s", c.Advanced.MetricsEndpoint)
	}

	return nil
}

// GetRefreshFrequency returns the reload frequency as a parsed duration
func (c *Config) GetRefreshFrequency() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Data.RefreshFrequency)
}

// GetFetchTimeout returns the per-pass fetch timeout as a parsed duration
func (c *Config) GetFetchTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Data.FetchTimeout)
}

// GetWatchDebounce returns the file watcher debounce as a parsed duration
func (c *Config) GetWatchDebounce() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Data.WatchDebounce)
}

// GetBackupFrequency returns the backup frequency as a parsed duration
func (c *Config) GetBackupFrequency() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Database.BackupFrequency)
}

// GetOptimizeFrequency returns the optimize frequency as a parsed duration
func (c *Config) GetOptimizeFrequency() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Database.OptimizeFrequency)
}

// GetMaintenanceInterval returns the maintenance interval as a parsed duration
func (c *Config) GetMaintenanceInterval() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Maintenance.Interval)
}

// setDefaults initializes the configuration with default values
func setDefaults(c *Config) {
	// Server defaults
	c.Server.Port = 8080
	c.Server.Host = "127.0.0.1"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeout = 30
	c.Server.WriteTimeout = 30
	c.Server.ShutdownTimeout = 10

	// Data defaults
	c.Data.Source = "./data/state"
	c.Data.RefreshFrequency = "5m"
	c.Data.EnableScheduler = true
	c.Data.WatchFiles = true
	c.Data.WatchDebounce = "500ms"
	c.Data.FetchTimeout = "10s"

	// Dashboard defaults
	c.Dashboard.HistoryWindow = 48
	c.Dashboard.RiskLimit = 12
	c.Dashboard.QueueLimit = 40
	c.Dashboard.StabilityLimit = 5
	c.Dashboard.LegendLimit = 8
	c.Dashboard.SparkWidth = 560
	c.Dashboard.SparkHeight = 64
	c.Dashboard.SparkPadding = 6
	c.Dashboard.DevicesSeries = SeriesStyle{Stroke: "rgba(122,162,255,.95)", Fill: "rgba(122,162,255,.18)"}
	c.Dashboard.PortsSeries = SeriesStyle{Stroke: "rgba(255,211,107,.95)", Fill: "rgba(255,211,107,.18)"}
	c.Dashboard.RisksSeries = SeriesStyle{Stroke: "rgba(255,107,158,.95)", Fill: "rgba(255,107,158,.18)"}

	// Database defaults
	c.Database.Path = "./data/netwatch.db"
	c.Database.BackupDir = "./data/backups"
	c.Database.BackupFrequency = "168h" // 1 week
	c.Database.OptimizeFrequency = "24h"
	c.Database.DataRetentionDays = 90
	c.Database.MaxConnections = 10
	c.Database.JournalMode = "WAL"
	c.Database.SynchronousMode = "NORMAL"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Logging.OutputPath = ""

	// Maintenance defaults
	c.Maintenance.Interval = "24h"
	c.Maintenance.DatabaseBackup = false
	c.Maintenance.DatabaseOptimize = true
	c.Maintenance.CleanupOldData = true

	// Advanced defaults
	c.Advanced.MetricsEnabled = true
	c.Advanced.MetricsEndpoint = "/metrics"
}
