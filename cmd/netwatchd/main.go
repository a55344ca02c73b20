// Command netwatchd serves the household network dashboard. It loads the
// scanner's output resources, keeps the latest complete set in memory, and
// exposes dashboard views, overrides and status over an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"netwatch/internal/api"
	"netwatch/internal/config"
	"netwatch/internal/database"
	"netwatch/internal/loader"
	"netwatch/internal/metrics"
	"netwatch/internal/trend"
	"netwatch/internal/view"
)

// Global variables for command line flags
var (
	logLevelFlag string
	sourceFlag   string
)

// parseFlags parses command line flags and returns the config path
func parseFlags() string {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "Path to configuration file")
	fs.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	fs.StringVar(&sourceFlag, "source", "", "Resource directory or base URL; overrides the config file")
	fs.Parse(os.Args[1:])
	return *configPath
}

// resolveLevel picks the flag level over the configured one, falling back to info
func resolveLevel(flagLevel, configLevel string) zerolog.Level {
	for _, candidate := range []string{flagLevel, configLevel} {
		if candidate == "" {
			continue
		}
		if level, err := zerolog.ParseLevel(candidate); err == nil && level != zerolog.NoLevel {
			return level
		}
	}
	return zerolog.InfoLevel
}

// setupLogging configures the global logger. Console or JSON output goes to
// stderr, optionally mirrored to a file. The returned closer releases the file.
func setupLogging(cfg *config.Config, extra ...io.Writer) (io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(resolveLevel(logLevelFlag, cfg.Logging.Level))

	var stderr io.Writer = os.Stderr
	if cfg.Logging.Format != "json" {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	writers := []io.Writer{stderr}

	var closer io.Closer = io.NopCloser(nil)
	if cfg.Logging.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.OutputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Logging.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	writers = append(writers, extra...)

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}

// databaseOptions maps the database settings onto connection options
func databaseOptions(cfg *config.Config) database.Options {
	return database.Options{
		JournalMode:     cfg.Database.JournalMode,
		SynchronousMode: cfg.Database.SynchronousMode,
		MaxConnections:  cfg.Database.MaxConnections,
	}
}

// viewOptions maps the dashboard settings onto view options
func viewOptions(cfg *config.Config) view.Options {
	d := cfg.Dashboard
	return view.Options{
		HistoryWindow:  d.HistoryWindow,
		RiskLimit:      d.RiskLimit,
		QueueLimit:     d.QueueLimit,
		StabilityLimit: d.StabilityLimit,
		LegendLimit:    d.LegendLimit,
		Geometry:       trend.Geometry{Width: d.SparkWidth, Height: d.SparkHeight, Padding: d.SparkPadding},
		DevicesStyle:   trend.Style(d.DevicesSeries),
		OpenPortsStyle: trend.Style(d.PortsSeries),
		RisksStyle:     trend.Style(d.RisksSeries),
	}
}

// maintenanceTask is one kind of database upkeep with its own schedule
type maintenanceTask struct {
	name     string
	interval time.Duration
	run      func(cfg *config.Config, db *database.DB)
}

// taskInterval parses a schedule setting, falling back when it is invalid
func taskInterval(get func() (time.Duration, error), setting string, fallback time.Duration) time.Duration {
	d, err := get()
	if err != nil || d <= 0 {
		log.Warn().Err(err).Str("setting", setting).Str("fallback", fallback.String()).Msg("Invalid maintenance schedule, using default")
		return fallback
	}
	return d
}

// maintenanceTasks returns the enabled upkeep tasks. Cleanup runs on the
// maintenance interval, optimize and backup on their database frequencies.
func maintenanceTasks(cfg *config.Config) []maintenanceTask {
	var tasks []maintenanceTask
	if cfg.Maintenance.CleanupOldData {
		tasks = append(tasks, maintenanceTask{
			name:     "cleanup",
			interval: taskInterval(cfg.GetMaintenanceInterval, "maintenance.interval", 24*time.Hour),
			run:      cleanOldData,
		})
	}
	if cfg.Maintenance.DatabaseOptimize {
		tasks = append(tasks, maintenanceTask{
			name:     "optimize",
			interval: taskInterval(cfg.GetOptimizeFrequency, "database.optimizeFrequency", 24*time.Hour),
			run:      optimizeDatabase,
		})
	}
	if cfg.Maintenance.DatabaseBackup {
		tasks = append(tasks, maintenanceTask{
			name:     "backup",
			interval: taskInterval(cfg.GetBackupFrequency, "database.backupFrequency", 168*time.Hour),
			run:      backupDatabase,
		})
	}
	return tasks
}

func cleanOldData(cfg *config.Config, db *database.DB) {
	logger := log.With().Str("component", "maintenance").Logger()
	deleted, err := db.CleanOldData(cfg.Database.DataRetentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to clean old data")
		return
	}
	logger.Info().Int("deleted", deleted).Msg("Old data cleaned")
}

func optimizeDatabase(cfg *config.Config, db *database.DB) {
	if err := db.OptimizeDatabase(); err != nil {
		log.Error().Err(err).Str("component", "maintenance").Msg("Database optimization failed")
	}
}

func backupDatabase(cfg *config.Config, db *database.DB) {
	logger := log.With().Str("component", "maintenance").Logger()
	path, err := db.BackupDatabase(cfg.Database.BackupDir)
	if err != nil {
		logger.Error().Err(err).Msg("Database backup failed")
		return
	}
	logger.Info().Str("path", path).Msg("Database backed up")
}

// runMaintenance runs every enabled upkeep task once
func runMaintenance(cfg *config.Config, db *database.DB) {
	for _, task := range maintenanceTasks(cfg) {
		task.run(cfg, db)
	}
}

// maintenanceLoop runs each enabled task on its own ticker until ctx ends
func maintenanceLoop(ctx context.Context, cfg *config.Config, db *database.DB) error {
	var g errgroup.Group
	for _, task := range maintenanceTasks(cfg) {
		log.Info().Str("task", task.name).Str("every", task.interval.String()).Msg("Scheduling maintenance")
		g.Go(func() error {
			ticker := time.NewTicker(task.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					task.run(cfg, db)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func main() {
	// Parse command line flags
	configPath := parseFlags()

	// Load configuration
	cfg := config.GetConfig()
	if err := cfg.LoadConfig(configPath); err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}
	if sourceFlag != "" {
		cfg.Data.Source = sourceFlag
	}

	// Warnings and errors are also kept in the database for /api/logs.
	// The sink queues until the database is attached below.
	sink := database.NewLogSink(zerolog.WarnLevel)

	logFile, err := setupLogging(cfg, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer logFile.Close()

	log.Info().Str("version", api.Version).Msg("Starting netwatch")

	// Initialize database
	db, err := database.Open(cfg.Database.Path, databaseOptions(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	sink.Attach(db)
	defer sink.Close()

	log.Info().Str("path", cfg.Database.Path).Msg("Database ready")

	var m *metrics.Metrics
	if cfg.Advanced.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize loader service
	fetchTimeout, err := cfg.GetFetchTimeout()
	if err != nil {
		fetchTimeout = 10 * time.Second
	}
	src := loader.NewSource(cfg.Data.Source, fetchTimeout)

	var observer loader.Observer
	if m != nil {
		observer = m
	}
	service := loader.New(cfg, src, db, observer)
	if err := service.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start loader service")
	}

	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())
	defer stopMaintenance()
	maintenanceDone := make(chan struct{})
	go func() {
		defer close(maintenanceDone)
		maintenanceLoop(maintenanceCtx, cfg, db)
	}()

	router := api.NewRouter(cfg, db, service, m, viewOptions(cfg))

	// Set up HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.WithCORS(cfg, router),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for termination signal
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalChan
	log.Info().Str("signal", sig.String()).Msg("Received termination signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stopMaintenance()
	<-maintenanceDone

	log.Info().Msg("Stopping loader service")
	if err := service.Stop(); err != nil {
		log.Error().Err(err).Msg("Loader service shutdown failed")
	}

	log.Info().Msg("Optimizing database before exit")
	if err := db.OptimizeDatabase(); err != nil {
		log.Error().Err(err).Msg("Database optimization failed")
	}

	log.Info().Msg("netwatch has been shut down gracefully")
}
