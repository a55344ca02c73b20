// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := New()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}
	if cfg.Dashboard.HistoryWindow != 48 || cfg.Dashboard.RiskLimit != 12 || cfg.Dashboard.QueueLimit != 40 {
		t.Errorf("Unexpected dashboard defaults: %+v", cfg.Dashboard)
	}
	if cfg.Dashboard.SparkWidth != 560 || cfg.Dashboard.SparkHeight != 64 || cfg.Dashboard.SparkPadding != 6 {
		t.Errorf("Unexpected spark geometry defaults")
	}
	if cfg.Advanced.MetricsEndpoint != "/metrics" {
		t.Errorf("Expected /metrics, got %s", cfg.Advanced.MetricsEndpoint)
	}
	if GetConfig() != GetConfig() {
		t.Errorf("GetConfig should return the same instance")
	}
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	configPath := writeConfig(t, tempDir, `
server:
  port: 9090
  host: "127.0.0.1"

data:
  source: "http://192.168.1.5:8000/state"
  refreshFrequency: "30m"
  watchFiles: false

dashboard:
  queueLimit: 20

database:
  path: "`+filepath.Join(tempDir, "db", "test.db")+`"
  backupDir: "`+filepath.Join(tempDir, "backups")+`"

logging:
  format: "json"
`)

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Data.Source != "http://192.168.1.5:8000/state" {
		t.Errorf("Unexpected data source %s", cfg.Data.Source)
	}
	if cfg.Data.WatchFiles {
		t.Errorf("Expected WatchFiles false, got true")
	}
	if cfg.Dashboard.QueueLimit != 20 {
		t.Errorf("Expected queue limit 20, got %d", cfg.Dashboard.QueueLimit)
	}
	// untouched values keep their defaults
	if cfg.Dashboard.RiskLimit != 12 {
		t.Errorf("Expected default risk limit 12, got %d", cfg.Dashboard.RiskLimit)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "db")); err != nil {
		t.Errorf("Expected database directory to be created: %v", err)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	cfg := New()
	if err := cfg.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("Expected error for missing file, got nil")
	}
}

func TestReload(t *testing.T) {
	tempDir := t.TempDir()
	base := `
database:
  path: "` + filepath.Join(tempDir, "test.db") + `"
  backupDir: "` + filepath.Join(tempDir, "backups") + `"
server:
  port: `

	configPath := writeConfig(t, tempDir, base+"9090\n")

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected initial port 9090, got %d", cfg.Server.Port)
	}

	writeConfig(t, tempDir, base+"8081\n")
	if err := cfg.Reload(); err != nil {
		t.Errorf("Reload returned error: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Expected updated port 8081, got %d", cfg.Server.Port)
	}

	if err := New().Reload(); err == nil {
		t.Errorf("Expected error reloading a config that was never loaded")
	}
}

func TestGetRefreshFrequency(t *testing.T) {
	cfg := New()
	cfg.Data.RefreshFrequency = "2h30m"

	duration, err := cfg.GetRefreshFrequency()
	if err != nil {
		t.Errorf("GetRefreshFrequency returned error: %v", err)
	}
	if duration != 150*time.Minute {
		t.Errorf("Expected 2h30m, got %v", duration)
	}

	cfg.Data.RefreshFrequency = "invalid"
	if _, err := cfg.GetRefreshFrequency(); err == nil {
		t.Errorf("Expected error for invalid frequency, got nil")
	}

	if d, err := cfg.GetFetchTimeout(); err != nil || d != 10*time.Second {
		t.Errorf("Expected default fetch timeout 10s, got %v (%v)", d, err)
	}
	if d, err := cfg.GetOptimizeFrequency(); err != nil || d != 24*time.Hour {
		t.Errorf("Expected default optimize frequency 24h, got %v (%v)", d, err)
	}
	if d, err := cfg.GetBackupFrequency(); err != nil || d != 168*time.Hour {
		t.Errorf("Expected default backup frequency 168h, got %v (%v)", d, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }},
		{"empty source", func(c *Config) { c.Data.Source = "  " }},
		{"invalid frequency", func(c *Config) { c.Data.RefreshFrequency = "invalid" }},
		{"negative debounce", func(c *Config) { c.Data.WatchDebounce = "-1s" }},
		{"negative limit", func(c *Config) { c.Dashboard.RiskLimit = -1 }},
		{"padding too large", func(c *Config) { c.Dashboard.SparkPadding = 40 }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"negative max connections", func(c *Config) { c.Database.MaxConnections = -1 }},
		{"unknown journal mode", func(c *Config) { c.Database.JournalMode = "fast" }},
		{"unknown synchronous mode", func(c *Config) { c.Database.SynchronousMode = "sometimes" }},
		{"invalid optimize frequency", func(c *Config) { c.Database.OptimizeFrequency = "daily" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"relative metrics endpoint", func(c *Config) { c.Advanced.MetricsEndpoint = "metrics" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error, got nil")
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()

	cfg := New()
	cfg.Database.Path = filepath.Join(tempDir, "test.db")
	cfg.Database.BackupDir = filepath.Join(tempDir, "backups")
	cfg.Server.Port = 9999
	cfg.Data.RefreshFrequency = "5m"
	cfg.Dashboard.DevicesSeries.Stroke = "red"

	savePath := filepath.Join(tempDir, "saved-config.yaml")
	if err := cfg.SaveConfig(savePath); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	newCfg := New()
	if err := newCfg.LoadConfig(savePath); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if newCfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", newCfg.Server.Port)
	}
	if newCfg.Data.RefreshFrequency != "5m" {
		t.Errorf("Expected frequency 5m, got %s", newCfg.Data.RefreshFrequency)
	}
	if newCfg.Dashboard.DevicesSeries.Stroke != "red" {
		t.Errorf("Expected stroke red, got %s", newCfg.Dashboard.DevicesSeries.Stroke)
	}
}
