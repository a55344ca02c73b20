// Package database provides the local store of netwatch.
// It handles all interactions with the SQLite database including initialization,
// optimization, the load journal, user preferences, staged overrides and logs.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"netwatch/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// PrefLearnMode is the preference key of the learn mode flag
const PrefLearnMode = "learn.enabled"

// Options are the connection settings applied when the database is opened
type Options struct {
	JournalMode     string
	SynchronousMode string
	MaxConnections  int
}

// DefaultOptions returns WAL journaling with NORMAL sync and ten connections
func DefaultOptions() Options {
	return Options{JournalMode: "WAL", SynchronousMode: "NORMAL", MaxConnections: 10}
}

var (
	journalModes     = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	synchronousModes = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

// normalize upper-cases the modes, fills blanks from the defaults and rejects
// modes SQLite does not know
func (o Options) normalize() (Options, error) {
	def := DefaultOptions()
	o.JournalMode = strings.ToUpper(strings.TrimSpace(o.JournalMode))
	o.SynchronousMode = strings.ToUpper(strings.TrimSpace(o.SynchronousMode))
	if o.JournalMode == "" {
		o.JournalMode = def.JournalMode
	}
	if o.SynchronousMode == "" {
		o.SynchronousMode = def.SynchronousMode
	}
	if o.MaxConnections <= 0 {
		o.MaxConnections = def.MaxConnections
	}
	if !slices.Contains(journalModes, o.JournalMode) {
		return o, fmt.Errorf("unsupported journal mode: %s", o.JournalMode)
	}
	if !slices.Contains(synchronousModes, o.SynchronousMode) {
		return o, fmt.Errorf("unsupported synchronous mode: %s", o.SynchronousMode)
	}
	return o, nil
}

// dsn carries the per-connection pragmas so every pooled connection gets them
func (o Options) dsn(path string) string {
	return fmt.Sprintf("%s?_journal_mode=%s&_synchronous=%s&_busy_timeout=10000",
		path, o.JournalMode, o.SynchronousMode)
}

// DB represents the database connection
type DB struct {
	*sql.DB
	Path    string // Exported for integration tests
	options Options
	sync.Mutex
}

// New opens the database at path with the default options
func New(path string) (*DB, error) {
	return Open(path, DefaultOptions())
}

// Open creates a new database connection with the given options
func Open(path string, opts Options) (*DB, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", opts.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxConnections)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	dbInstance := &DB{
		DB:      db,
		Path:    path,
		options: opts,
	}

	if err := dbInstance.initializeDB(); err != nil {
		db.Close()
		return nil, err
	}

	if err := dbInstance.optimizeDB(); err != nil {
		dbInstance.logger().Warn().Err(err).Msg("Failed to set some database optimization parameters")
	}

	return dbInstance, nil
}

// logger resolves the global logger at call time
func (db *DB) logger() *zerolog.Logger {
	l := log.With().Str("component", "database").Logger()
	return &l
}

// Options returns the settings the database was opened with
func (db *DB) Options() Options {
	return db.options
}

// Pragmas reads the journal and synchronous modes in effect
func (db *DB) Pragmas() (journalMode, synchronousMode string, err error) {
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return "", "", fmt.Errorf("failed to read journal mode: %w", err)
	}
	var level int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&level); err != nil {
		return "", "", fmt.Errorf("failed to read synchronous mode: %w", err)
	}
	if level >= 0 && level < len(synchronousModes) {
		synchronousMode = synchronousModes[level]
	}
	return strings.ToUpper(journalMode), synchronousMode, nil
}

// Initialize database schema
func (db *DB) initializeDB() error {
	db.logger().Info().Msg("Initializing database schema")

	schema := `
	-- Load journal
	CREATE TABLE IF NOT EXISTS loads (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		duration_ms INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		device_count INTEGER DEFAULT 0,
		has_snapshot BOOLEAN DEFAULT FALSE,
		has_history BOOLEAN DEFAULT FALSE,
		has_stats BOOLEAN DEFAULT FALSE,
		has_lessons BOOLEAN DEFAULT FALSE,
		error_message TEXT
	);

	-- User preferences
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Staged classification overrides, keyed by MAC or device id
	CREATE TABLE IF NOT EXISTS overrides (
		key TEXT PRIMARY KEY,
		type TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL
	);

	-- Logs table
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		component TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loads_started_at ON loads(started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_level_component ON logs(level, component);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return nil
}

// optimizeDB sets SQLite optimization parameters
func (db *DB) optimizeDB() error {
	if _, err := db.Exec("PRAGMA journal_mode=" + db.options.JournalMode); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous=" + db.options.SynchronousMode); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA cache_size=-20000"); err != nil { // Approx 20MB cache
		db.logger().Warn().Err(err).Msg("Failed to set cache_size PRAGMA")
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout=10000"); err != nil { // 10 seconds
		db.logger().Warn().Err(err).Msg("Failed to set busy_timeout PRAGMA")
	}

	return nil
}

// ExecuteWithRetry attempts to execute a function with retries for transient errors
func (db *DB) ExecuteWithRetry(maxRetries int, retryDelay time.Duration, operation func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		// Check if the error is one we should retry
		if strings.Contains(err.Error(), "database is locked") ||
			strings.Contains(err.Error(), "busy") {
			db.logger().Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("maxRetries", maxRetries).
				Msg("Retrying database operation")

			time.Sleep(retryDelay)
			retryDelay = retryDelay * 2
			continue
		}

		// Not a retryable error
		break
	}

	return fmt.Errorf("database operation failed after %d attempts: %w", maxRetries, err)
}

// RecordLoad journals one load pass
func (db *DB) RecordLoad(rec models.LoadRecord) error {
	if rec.ID == "" {
		return errors.New("load record requires an id")
	}

	return db.ExecuteWithRetry(3, 50*time.Millisecond, func() error {
		db.Lock()
		defer db.Unlock()

		_, err := db.Exec(
			`INSERT INTO loads (id, started_at, duration_ms, status, device_count,
				has_snapshot, has_history, has_stats, has_lessons, error_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				duration_ms = excluded.duration_ms,
				status = excluded.status,
				device_count = excluded.device_count,
				has_snapshot = excluded.has_snapshot,
				has_history = excluded.has_history,
				has_stats = excluded.has_stats,
				has_lessons = excluded.has_lessons,
				error_message = excluded.error_message`,
			rec.ID, rec.StartedAt, rec.Duration, rec.Status, rec.DeviceCount,
			rec.HasSnapshot, rec.HasHistory, rec.HasStats, rec.HasLessons, nullString(rec.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to record load: %w", err)
		}
		return nil
	})
}

const loadColumns = `id, started_at, duration_ms, status, device_count,
	has_snapshot, has_history, has_stats, has_lessons, error_message`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoad(row rowScanner) (*models.LoadRecord, error) {
	var rec models.LoadRecord
	var errorMsg sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.StartedAt,
		&rec.Duration,
		&rec.Status,
		&rec.DeviceCount,
		&rec.HasSnapshot,
		&rec.HasHistory,
		&rec.HasStats,
		&rec.HasLessons,
		&errorMsg,
	)
	if err != nil {
		return nil, err
	}
	if errorMsg.Valid {
		rec.Error = errorMsg.String
	}
	return &rec, nil
}

// GetLoad retrieves one journaled load by id
func (db *DB) GetLoad(id string) (*models.LoadRecord, error) {
	rec, err := scanLoad(db.QueryRow("SELECT "+loadColumns+" FROM loads WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load: %w", err)
	}
	return rec, nil
}

// GetRecentLoads retrieves the most recent loads, newest first
func (db *DB) GetRecentLoads(limit int) ([]*models.LoadRecord, error) {
	rows, err := db.Query(
		"SELECT "+loadColumns+" FROM loads ORDER BY started_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent loads: %w", err)
	}
	defer rows.Close()

	loads := []*models.LoadRecord{}
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		loads = append(loads, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating load rows: %w", err)
	}

	return loads, nil
}

// GetPreference returns a stored preference value
func (db *DB) GetPreference(key string) (string, bool, error) {
	var value string
	err := db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores a preference value
func (db *DB) SetPreference(key, value string) error {
	db.Lock()
	defer db.Unlock()

	_, err := db.Exec(
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// LearnMode reports whether learn mode is enabled. It is off until set.
func (db *DB) LearnMode() (bool, error) {
	value, ok, err := db.GetPreference(PrefLearnMode)
	if err != nil || !ok {
		return false, err
	}
	return value == "1", nil
}

// SetLearnMode persists the learn mode flag
func (db *DB) SetLearnMode(enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return db.SetPreference(PrefLearnMode, value)
}

// SaveOverride creates or replaces the staged override for a key
func (db *DB) SaveOverride(o models.Override) error {
	if strings.TrimSpace(o.Key) == "" {
		return errors.New("override key is required")
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}

	db.Lock()
	defer db.Unlock()

	_, err := db.Exec(
		`INSERT INTO overrides (key, type, name, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET type = excluded.type, name = excluded.name, updated_at = excluded.updated_at`,
		o.Key, o.Type, o.Name, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// GetOverride returns the staged override for a key
func (db *DB) GetOverride(key string) (*models.Override, error) {
	var o models.Override
	err := db.QueryRow("SELECT key, type, name, updated_at FROM overrides WHERE key = ?", key).
		Scan(&o.Key, &o.Type, &o.Name, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("override %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	return &o, nil
}

// DeleteOverride removes a staged override
func (db *DB) DeleteOverride(key string) error {
	db.Lock()
	defer db.Unlock()

	res, err := db.Exec("DELETE FROM overrides WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("override %s: %w", key, ErrNotFound)
	}
	return nil
}

// ListOverrides returns every staged override ordered by key
func (db *DB) ListOverrides() ([]*models.Override, error) {
	rows, err := db.Query("SELECT key, type, name, updated_at FROM overrides ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	overrides := []*models.Override{}
	for rows.Next() {
		var o models.Override
		if err := rows.Scan(&o.Key, &o.Type, &o.Name, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override row: %w", err)
		}
		overrides = append(overrides, &o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating override rows: %w", err)
	}

	return overrides, nil
}

// GetOverrides returns the staged overrides as an overrides document.
// Empty types or names are left out of their map.
func (db *DB) GetOverrides() (models.Overrides, error) {
	doc := models.NewOverrides()
	list, err := db.ListOverrides()
	if err != nil {
		return doc, err
	}
	for _, o := range list {
		if o.Type != "" {
			doc.Types[o.Key] = o.Type
		}
		if o.Name != "" {
			doc.Names[o.Key] = o.Name
		}
	}
	return doc, nil
}

// OptimizeDatabase performs database maintenance operations
func (db *DB) OptimizeDatabase() error {
	db.Lock()
	defer db.Unlock()

	db.logger().Info().Msg("Optimizing database")

	// Run VACUUM to rebuild the database and reclaim space
	_, err := db.Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	_, err = db.Exec("REINDEX")
	if err != nil {
		return fmt.Errorf("failed to reindex database: %w", err)
	}

	// Run ANALYZE to update statistics for query planning
	_, err = db.Exec("ANALYZE")
	if err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	// Refresh PRAGMA settings as they may reset after VACUUM
	if err := db.optimizeDB(); err != nil {
		db.logger().Warn().Err(err).Msg("Failed to reset optimization parameters after vacuum")
	}

	return nil
}

// BackupDatabase writes a consistent copy of the database into backupDir.
// An empty backupDir means a backups directory next to the database.
func (db *DB) BackupDatabase(backupDir string) (string, error) {
	db.Lock()
	defer db.Unlock()

	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(db.Path), "backups")
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Create backup filename with timestamp
	timestamp := time.Now().Format("20060102_150405")
	baseFilename := filepath.Base(db.Path)
	extIdx := strings.LastIndex(baseFilename, ".")
	var backupFilename string
	if extIdx > 0 {
		backupFilename = fmt.Sprintf("%s_%s%s", baseFilename[:extIdx], timestamp, baseFilename[extIdx:])
	} else {
		backupFilename = fmt.Sprintf("%s_%s", baseFilename, timestamp)
	}
	backupPath := filepath.Join(backupDir, backupFilename)

	// Checkpoint the WAL first to ensure all changes are in the main DB file
	_, err := db.Exec("PRAGMA wal_checkpoint(FULL)")
	if err != nil {
		db.logger().Warn().Err(err).Msg("Failed to checkpoint WAL before backup")
	}

	_, err = db.Exec("VACUUM INTO ?", backupPath)
	if err != nil {
		// Fall back to file copy if VACUUM INTO fails (it requires SQLite 3.27.0+)
		if fileErr := copyFile(db.Path, backupPath); fileErr != nil {
			return "", fmt.Errorf("failed to backup database (both VACUUM INTO and file copy failed): %w", fileErr)
		}
		db.logger().Warn().Err(err).Msg("VACUUM INTO failed, used file copy backup instead")
	}

	db.logger().Info().Str("path", backupPath).Msg("Database backup created")

	return backupPath, nil
}

// Helper function to copy a file
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := dstFile.ReadFrom(srcFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	return nil
}

// CleanOldData removes journal and log entries older than the retention period
func (db *DB) CleanOldData(retentionDays int) (int, error) {
	db.Lock()
	defer db.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is rolled back in case of error
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.Exec("DELETE FROM loads WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old loads: %w", err)
	}
	loadCount, _ := res.RowsAffected()

	res, err = tx.Exec("DELETE FROM logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old logs: %w", err)
	}
	logCount, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Set tx to nil to prevent rollback in deferred function
	tx = nil

	totalDeleted := int(loadCount + logCount)

	db.logger().Info().
		Int("loads", int(loadCount)).
		Int("logs", int(logCount)).
		Int("total", totalDeleted).
		Msg("Cleaned old data")

	return totalDeleted, nil
}

// AddLogEntry adds a log entry to the database
func (db *DB) AddLogEntry(level, message, component string) error {
	_, err := db.Exec(
		"INSERT INTO logs (level, message, component, timestamp) VALUES (?, ?, ?, ?)",
		level, message, component, time.Now(),
	)
	return err
}

// GetLogEntries retrieves log entries with filtering options
func (db *DB) GetLogEntries(limit int, level, component string) ([]*models.Log, error) {
	query := "SELECT id, level, message, component, timestamp FROM logs"
	var args []interface{}
	var conditions []string

	if level != "" {
		conditions = append(conditions, "level = ?")
		args = append(args, level)
	}

	if component != "" {
		conditions = append(conditions, "component = ?")
		args = append(args, component)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.Log{}
	for rows.Next() {
		var entry models.Log
		err := rows.Scan(
			&entry.ID,
			&entry.Level,
			&entry.Message,
			&entry.Component,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		logs = append(logs, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	return logs, nil
}

// GetDatabaseStats returns statistics about the database
func (db *DB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := []struct {
		key   string
		table string
	}{
		{"loadCount", "loads"},
		{"overrideCount", "overrides"},
		{"logCount", "logs"},
	}
	for _, c := range counts {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
		stats[c.key] = n
	}

	// Get last load time - as a string first, then convert
	var lastLoadStr sql.NullString
	err := db.QueryRow("SELECT MAX(started_at) FROM loads").Scan(&lastLoadStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last load time: %w", err)
	}
	stats["lastLoadTime"] = time.Time{}
	if lastLoadStr.Valid && lastLoadStr.String != "" {
		if t, ok := parseTimestamp(lastLoadStr.String); ok {
			stats["lastLoadTime"] = t
		} else {
			db.logger().Warn().Str("timestamp", lastLoadStr.String).Msg("Failed to parse load timestamp")
		}
	}

	fileInfo, err := os.Stat(db.Path)
	if err != nil {
		db.logger().Warn().Err(err).Msg("Failed to get database file size")
		stats["sizeBytes"] = int64(0)
	} else {
		stats["sizeBytes"] = fileInfo.Size()
	}

	statusDistribution := make(map[string]int)
	rows, err := db.Query("SELECT status, COUNT(*) FROM loads GROUP BY status")
	if err != nil {
		db.logger().Warn().Err(err).Msg("Failed to get load status distribution")
	} else {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				db.logger().Warn().Err(err).Msg("Failed to scan load status row")
				continue
			}
			statusDistribution[status] = count
		}

		if err = rows.Err(); err != nil {
			db.logger().Warn().Err(err).Msg("Error iterating load status rows")
		}
	}
	stats["loadStatusDistribution"] = statusDistribution

	return stats, nil
}

// parseTimestamp tries the formats SQLite may hand back for a TIMESTAMP column
func parseTimestamp(s string) (time.Time, bool) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999Z07:00",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
