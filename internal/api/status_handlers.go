// internal/api/status_handlers.go
package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"netwatch/internal/config"
	"netwatch/internal/database"
)

// Version is reported by the status endpoint
var Version = "dev"

// StatusHandler handles system status-related API endpoints
type StatusHandler struct {
	db        *database.DB
	loader    Loader
	cfg       *config.Config
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *database.DB, l Loader, cfg *config.Config) *StatusHandler {
	return &StatusHandler{
		db:        db,
		loader:    l,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", h.getSystemStatus).Methods("GET")
	r.HandleFunc("/api/status/health", h.getHealthCheck).Methods("GET")
	r.HandleFunc("/api/status/database", h.getDatabaseStatus).Methods("GET")
	r.HandleFunc("/api/logs", h.getLogs).Methods("GET")
}

// getSystemStatus returns the overall system status
func (h *StatusHandler) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getSystemStatus").Logger()

	dbStats, err := h.db.GetDatabaseStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve database stats")
		dbStats = map[string]interface{}{}
	}

	loadStatus := h.loader.Status()
	st := h.loader.Current()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(h.startTime)

	snapshot := map[string]interface{}{
		"ready": st.Ready(),
	}
	if st.Ready() {
		snapshot["loadId"] = st.LoadID
		snapshot["loadedAt"] = st.LoadedAt
		snapshot["loadedAgo"] = humanize.Time(st.LoadedAt)
		snapshot["timestamp"] = st.Snapshot.TimestampHuman
		snapshot["subnet"] = st.Snapshot.Subnet
		snapshot["devices"] = len(st.Snapshot.Devices)
		snapshot["hasHistory"] = st.History != nil
		snapshot["hasStats"] = st.Stats != nil
		snapshot["hasLessons"] = st.Lessons != nil
	}

	sizeBytes, _ := dbStats["sizeBytes"].(int64)

	response := map[string]interface{}{
		"status":    "healthy",
		"version":   Version,
		"uptime":    uptime.String(),
		"startTime": h.startTime,
		"system": map[string]interface{}{
			"goVersion":    runtime.Version(),
			"goArch":       runtime.GOARCH,
			"goOS":         runtime.GOOS,
			"numCPU":       runtime.NumCPU(),
			"numGoroutine": runtime.NumGoroutine(),
		},
		"memory": map[string]interface{}{
			"alloc":       humanize.Bytes(memStats.Alloc),
			"totalAlloc":  humanize.Bytes(memStats.TotalAlloc),
			"sys":         humanize.Bytes(memStats.Sys),
			"numGC":       memStats.NumGC,
			"heapObjects": memStats.HeapObjects,
		},
		"config": map[string]interface{}{
			"serverPort":       h.cfg.Server.Port,
			"source":           h.cfg.Data.Source,
			"refreshFrequency": h.cfg.Data.RefreshFrequency,
			"watchFiles":       h.cfg.Data.WatchFiles,
			"loggingLevel":     h.cfg.Logging.Level,
			"metricsEnabled":   h.cfg.Advanced.MetricsEnabled,
		},
		"loader":   loadStatus,
		"snapshot": snapshot,
		"database": map[string]interface{}{
			"size":          humanize.Bytes(uint64(sizeBytes)),
			"loadCount":     dbStats["loadCount"],
			"overrideCount": dbStats["overrideCount"],
			"path":          h.cfg.Database.Path,
		},
		"timestamp": time.Now(),
	}

	writeJSON(w, logger, http.StatusOK, response)
}

// getHealthCheck returns a simple health check response. The service is
// healthy when the database answers; it is ready once a snapshot is loaded.
func (h *StatusHandler) getHealthCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHealthCheck").Logger()

	status := "healthy"
	code := http.StatusOK
	if err := h.db.Ping(); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
		logger.Error().Err(err).Msg("Database ping failed")
	}

	response := map[string]interface{}{
		"status":    status,
		"ready":     h.loader.Current().Ready(),
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	}

	writeJSON(w, logger, code, response)
}

// getDatabaseStatus returns detailed database status information
func (h *StatusHandler) getDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDatabaseStatus").Logger()

	dbStats, err := h.db.GetDatabaseStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve database stats")
		http.Error(w, "Failed to retrieve database status", http.StatusInternalServerError)
		return
	}

	journalMode, synchronousMode, err := h.db.Pragmas()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read database pragmas")
	}

	sizeBytes, _ := dbStats["sizeBytes"].(int64)
	lastLoad, _ := dbStats["lastLoadTime"].(time.Time)
	lastLoadAgo := "never"
	if !lastLoad.IsZero() {
		lastLoadAgo = humanize.Time(lastLoad)
	}

	response := map[string]interface{}{
		"status":                 "online",
		"path":                   h.cfg.Database.Path,
		"sizeBytes":              sizeBytes,
		"size":                   humanize.Bytes(uint64(sizeBytes)),
		"loadCount":              dbStats["loadCount"],
		"overrideCount":          dbStats["overrideCount"],
		"logCount":               dbStats["logCount"],
		"lastLoadTime":           lastLoad,
		"lastLoadAgo":            lastLoadAgo,
		"loadStatusDistribution": dbStats["loadStatusDistribution"],
		"retentionDays":          h.cfg.Database.DataRetentionDays,
		"backupFrequency":        h.cfg.Database.BackupFrequency,
		"optimizeFrequency":      h.cfg.Database.OptimizeFrequency,
		"maxConnections":         h.db.Options().MaxConnections,
		"journalMode":            journalMode,
		"synchronousMode":        synchronousMode,
		"timestamp":              time.Now(),
	}

	writeJSON(w, logger, http.StatusOK, response)
}

// getLogs returns stored log entries filtered by level and component
func (h *StatusHandler) getLogs(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLogs").Logger()

	q := r.URL.Query()
	limit := 100
	if limitParam := q.Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.db.GetLogEntries(limit, q.Get("level"), q.Get("component"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve logs")
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, logger, http.StatusOK, logs)
}
