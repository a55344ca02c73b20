// cmd/netwatchd/main_test.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"netwatch/internal/config"
	"netwatch/internal/database"
)

// TestMainStartup builds the binary, starts it against a fixture directory
// and checks the status endpoint
func TestMainStartup(t *testing.T) {
	if testing.Short() || os.Getenv("CI") != "" {
		t.Skip("Skipping binary startup test")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}

	tempDir := t.TempDir()
	stateDir := filepath.Join(tempDir, "state")
	os.MkdirAll(stateDir, 0755)
	os.MkdirAll(filepath.Join(tempDir, "configs"), 0755)

	snapshot := `{"subnet": "10.0.0.0/24", "devices": [{"id": "nas", "ip": "10.0.0.5", "type": "nas", "name": "NAS"}]}`
	if err := os.WriteFile(filepath.Join(stateDir, "latest.json"), []byte(snapshot), 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}

	configPath := filepath.Join(tempDir, "configs", "test-config.yaml")
	configContent := `
server:
  port: 18181
  host: "127.0.0.1"

data:
  source: "` + stateDir + `"
  enableScheduler: false
  watchFiles: false

database:
  path: "` + filepath.Join(tempDir, "data", "test.db") + `"
  backupDir: "` + filepath.Join(tempDir, "data", "backups") + `"

logging:
  level: "debug"
  format: "json"
  outputPath: "` + filepath.Join(tempDir, "logs", "test.log") + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	binaryPath := filepath.Join(tempDir, "netwatchd-test")
	if out, err := exec.Command("go", "build", "-o", binaryPath, ".").CombinedOutput(); err != nil {
		t.Fatalf("Failed to build test binary: %v\n%s", err, out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "--config", configPath)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start test binary: %v", err)
	}

	// Poll until the first load has published
	var status map[string]interface{}
	for {
		if ctx.Err() != nil {
			cmd.Process.Kill()
			t.Fatalf("Timed out waiting for server to start")
		}
		resp, err := http.Get("http://127.0.0.1:18181/api/status/health")
		if err == nil {
			json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && status["ready"] == true {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err.Error() != "signal: interrupt" {
			t.Errorf("Process did not exit cleanly: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("Process did not exit within timeout")
		cmd.Process.Kill()
	}

	if _, err := os.Stat(filepath.Join(tempDir, "data", "test.db")); os.IsNotExist(err) {
		t.Errorf("Database file was not created")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "logs", "test.log")); os.IsNotExist(err) {
		t.Errorf("Log file was not created")
	}
}

// TestCommandLineArgs tests command line argument parsing
func TestCommandLineArgs(t *testing.T) {
	oldArgs := os.Args
	defer func() {
		os.Args = oldArgs
		logLevelFlag, sourceFlag = "", ""
	}()

	os.Args = []string{"netwatchd", "--config", "/tmp/test-config.yaml"}
	if configPath := parseFlags(); configPath != "/tmp/test-config.yaml" {
		t.Errorf("Expected config path /tmp/test-config.yaml, got %s", configPath)
	}

	os.Args = []string{"netwatchd", "--log-level", "debug", "--source", "http://pi.lan/state"}
	if configPath := parseFlags(); configPath != "configs/config.yaml" {
		t.Errorf("Expected default config path, got %s", configPath)
	}
	if logLevelFlag != "debug" {
		t.Errorf("Expected log level debug, got %s", logLevelFlag)
	}
	if sourceFlag != "http://pi.lan/state" {
		t.Errorf("Expected source override, got %s", sourceFlag)
	}
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		flag, config string
		want         zerolog.Level
	}{
		{"debug", "error", zerolog.DebugLevel},
		{"", "warn", zerolog.WarnLevel},
		{"bogus", "error", zerolog.ErrorLevel},
		{"", "", zerolog.InfoLevel},
		{"bogus", "nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := resolveLevel(tt.flag, tt.config); got != tt.want {
			t.Errorf("resolveLevel(%q, %q) = %v, want %v", tt.flag, tt.config, got, tt.want)
		}
	}
}

// TestSetupLogging tests that records reach the file and extra writers
func TestSetupLogging(t *testing.T) {
	oldLogger := log.Logger
	oldLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = oldLogger
		zerolog.SetGlobalLevel(oldLevel)
	}()

	tempDir := t.TempDir()
	cfg := config.New()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "info"
	cfg.Logging.OutputPath = filepath.Join(tempDir, "logs", "netwatch.log")

	var extra bytes.Buffer
	closer, err := setupLogging(cfg, &extra)
	if err != nil {
		t.Fatalf("setupLogging returned error: %v", err)
	}

	log.Debug().Msg("hidden")
	log.Info().Str("component", "test").Msg("visible")
	closer.Close()

	data, err := os.ReadFile(cfg.Logging.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"visible"`) {
		t.Errorf("Log file missing record: %s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("Debug record should be filtered at info level")
	}
	if !strings.Contains(extra.String(), `"component":"test"`) {
		t.Errorf("Extra writer missing record: %s", extra.String())
	}
}

func TestViewOptions(t *testing.T) {
	cfg := config.New()
	cfg.Dashboard.HistoryWindow = 24
	cfg.Dashboard.SparkWidth = 300

	opts := viewOptions(cfg)
	if opts.HistoryWindow != 24 || opts.Geometry.Width != 300 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.Geometry.Height != cfg.Dashboard.SparkHeight || opts.RisksStyle.Stroke != cfg.Dashboard.RisksSeries.Stroke {
		t.Errorf("Dashboard defaults not carried over: %+v", opts)
	}
}

// TestRunMaintenance tests one maintenance round with backups enabled
func TestRunMaintenance(t *testing.T) {
	tempDir := t.TempDir()

	cfg := config.New()
	cfg.Database.Path = filepath.Join(tempDir, "data", "test.db")
	cfg.Database.BackupDir = filepath.Join(tempDir, "backups")
	cfg.Maintenance.DatabaseBackup = true

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	runMaintenance(cfg, db)

	entries, err := os.ReadDir(cfg.Database.BackupDir)
	if err != nil {
		t.Fatalf("Failed to read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected one backup, got %d", len(entries))
	}
}

// TestMaintenanceTasks tests that each upkeep task follows its own setting
func TestMaintenanceTasks(t *testing.T) {
	cfg := config.New()
	cfg.Maintenance.Interval = "6h"
	cfg.Maintenance.DatabaseBackup = true
	cfg.Database.OptimizeFrequency = "12h"
	cfg.Database.BackupFrequency = "72h"

	want := map[string]time.Duration{
		"cleanup":  6 * time.Hour,
		"optimize": 12 * time.Hour,
		"backup":   72 * time.Hour,
	}
	tasks := maintenanceTasks(cfg)
	if len(tasks) != len(want) {
		t.Fatalf("Expected %d tasks, got %d", len(want), len(tasks))
	}
	for _, task := range tasks {
		if task.interval != want[task.name] {
			t.Errorf("Task %s: expected every %v, got %v", task.name, want[task.name], task.interval)
		}
	}

	cfg.Maintenance.CleanupOldData = false
	cfg.Maintenance.DatabaseBackup = false
	cfg.Database.OptimizeFrequency = "never"
	tasks = maintenanceTasks(cfg)
	if len(tasks) != 1 || tasks[0].name != "optimize" || tasks[0].interval != 24*time.Hour {
		t.Errorf("Expected only optimize on the 24h fallback, got %+v", tasks)
	}
}

// TestMaintenanceLoop tests that backups run on the backup frequency and the
// loop ends with its context
func TestMaintenanceLoop(t *testing.T) {
	tempDir := t.TempDir()

	cfg := config.New()
	cfg.Database.Path = filepath.Join(tempDir, "data", "test.db")
	cfg.Database.BackupDir = filepath.Join(tempDir, "backups")
	cfg.Database.BackupFrequency = "50ms"
	cfg.Maintenance.Interval = "1h"
	cfg.Maintenance.DatabaseBackup = true
	cfg.Maintenance.DatabaseOptimize = false
	cfg.Maintenance.CleanupOldData = false

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- maintenanceLoop(ctx, cfg, db)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, _ := os.ReadDir(cfg.Database.BackupDir)
		if len(entries) > 0 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("No backup was written on the backup frequency")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("maintenanceLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("maintenanceLoop did not stop")
	}
}

// TestDatabaseOptions tests that the database settings reach the connection
func TestDatabaseOptions(t *testing.T) {
	cfg := config.New()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Database.JournalMode = "truncate"
	cfg.Database.SynchronousMode = "FULL"
	cfg.Database.MaxConnections = 4

	db, err := database.Open(cfg.Database.Path, databaseOptions(cfg))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	journal, syncMode, err := db.Pragmas()
	if err != nil {
		t.Fatalf("Pragmas returned error: %v", err)
	}
	if journal != "TRUNCATE" || syncMode != "FULL" {
		t.Errorf("Expected TRUNCATE/FULL, got %s/%s", journal, syncMode)
	}
	if db.Stats().MaxOpenConnections != 4 {
		t.Errorf("Expected 4 max connections, got %d", db.Stats().MaxOpenConnections)
	}
}
