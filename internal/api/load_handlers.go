// internal/api/load_handlers.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"netwatch/internal/database"
	"netwatch/internal/loader"
)

// Loader runs load passes and reports on them
type Loader interface {
	StateProvider
	Reload(ctx context.Context) (loader.Report, error)
	ReloadAsync() bool
	Status() loader.Status
}

// LoadHandler handles the load journal and reload triggers
type LoadHandler struct {
	db     *database.DB
	loader Loader
}

// NewLoadHandler creates a new load handler
func NewLoadHandler(db *database.DB, l Loader) *LoadHandler {
	return &LoadHandler{
		db:     db,
		loader: l,
	}
}

// RegisterRoutes registers the load routes
func (h *LoadHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/loads", h.getLoads).Methods("GET")
	r.HandleFunc("/api/loads", h.startLoad).Methods("POST")
	r.HandleFunc("/api/loads/status", h.getLoadStatus).Methods("GET")
	r.HandleFunc("/api/loads/{id}", h.getLoad).Methods("GET")
}

// getLoads returns the most recent journaled loads
func (h *LoadHandler) getLoads(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLoads").Logger()

	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsedLimit, err := strconv.Atoi(limitParam)
		if err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	loads, err := h.db.GetRecentLoads(limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve loads")
		http.Error(w, "Failed to retrieve loads", http.StatusInternalServerError)
		return
	}

	writeJSON(w, logger, http.StatusOK, loads)
}

// getLoad returns one journaled load
func (h *LoadHandler) getLoad(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLoad").Logger()

	id := mux.Vars(r)["id"]
	rec, err := h.db.GetLoad(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Load not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("id", id).Msg("Failed to retrieve load")
		http.Error(w, "Failed to retrieve load", http.StatusInternalServerError)
		return
	}

	writeJSON(w, logger, http.StatusOK, rec)
}

// startLoad triggers a reload. With wait=true the pass runs within the
// request and its report is returned; otherwise it runs in the background.
func (h *LoadHandler) startLoad(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "startLoad").Logger()

	if r.URL.Query().Get("wait") == "true" {
		report, err := h.loader.Reload(r.Context())
		response := map[string]interface{}{
			"report":    report,
			"published": err == nil,
		}
		if err != nil {
			response["error"] = err.Error()
		}
		writeJSON(w, logger, http.StatusOK, response)
		return
	}

	if !h.loader.ReloadAsync() {
		logger.Warn().Msg("Load requested while the loader is stopped")
		http.Error(w, "Loader is shutting down", http.StatusServiceUnavailable)
		return
	}

	logger.Info().Msg("Load requested")
	writeJSON(w, logger, http.StatusAccepted, map[string]interface{}{
		"message":   "Load started",
		"timestamp": time.Now(),
	})
}

// getLoadStatus returns the refresh service status
func (h *LoadHandler) getLoadStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLoadStatus").Logger()
	writeJSON(w, logger, http.StatusOK, h.loader.Status())
}
