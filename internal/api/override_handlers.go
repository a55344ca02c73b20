// internal/api/override_handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"netwatch/internal/classify"
	"netwatch/internal/database"
	"netwatch/internal/inventory"
	"netwatch/internal/models"
)

// OverrideHandler handles staged overrides and user preferences
type OverrideHandler struct {
	db     *database.DB
	states StateProvider
}

// NewOverrideHandler creates a new override handler
func NewOverrideHandler(db *database.DB, states StateProvider) *OverrideHandler {
	return &OverrideHandler{
		db:     db,
		states: states,
	}
}

// RegisterRoutes registers the override and preference routes
func (h *OverrideHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/overrides", h.getOverrides).Methods("GET")
	r.HandleFunc("/api/overrides/{key}", h.putOverride).Methods("PUT")
	r.HandleFunc("/api/overrides/{key}", h.deleteOverride).Methods("DELETE")
	r.HandleFunc("/api/classify/{id}/accept", h.acceptSuggestion).Methods("POST")
	r.HandleFunc("/api/preferences/learn", h.getLearnMode).Methods("GET")
	r.HandleFunc("/api/preferences/learn", h.putLearnMode).Methods("PUT")
}

// overrideRequest is the body of PUT /api/overrides/{key}. Absent fields keep
// their staged value.
type overrideRequest struct {
	Type *string `json:"type"`
	Name *string `json:"name"`
}

type learnModeBody struct {
	Enabled bool `json:"enabled"`
}

// getOverrides returns the staged overrides as an overrides document. With
// list=true it returns the individual records instead.
func (h *OverrideHandler) getOverrides(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getOverrides").Logger()

	if r.URL.Query().Get("list") == "true" {
		list, err := h.db.ListOverrides()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list overrides")
			http.Error(w, "Failed to retrieve overrides", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
		return
	}

	doc, err := h.db.GetOverrides()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve overrides")
		http.Error(w, "Failed to retrieve overrides", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, doc)
}

// putOverride stages a type and/or name for one key
func (h *OverrideHandler) putOverride(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "putOverride").Logger()

	key := mux.Vars(r)["key"]

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("Failed to parse override")
		http.Error(w, "Invalid override", http.StatusBadRequest)
		return
	}
	if req.Type == nil && req.Name == nil {
		http.Error(w, "Override needs a type or a name", http.StatusBadRequest)
		return
	}

	o := models.Override{Key: key}
	existing, err := h.db.GetOverride(key)
	switch {
	case err == nil:
		o = *existing
	case !errors.Is(err, database.ErrNotFound):
		logger.Error().Err(err).Str("key", key).Msg("Failed to read override")
		http.Error(w, "Failed to save override", http.StatusInternalServerError)
		return
	}

	if req.Type != nil {
		o.Type = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.Name != nil {
		o.Name = strings.TrimSpace(*req.Name)
	}
	o.UpdatedAt = time.Now()

	if err := h.db.SaveOverride(o); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Failed to save override")
		http.Error(w, "Failed to save override", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("key", key).Str("type", o.Type).Str("name", o.Name).Msg("Override staged")
	writeJSON(w, logger, http.StatusOK, o)
}

// deleteOverride removes a staged override
func (h *OverrideHandler) deleteOverride(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "deleteOverride").Logger()

	key := mux.Vars(r)["key"]
	if err := h.db.DeleteOverride(key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Override not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("key", key).Msg("Failed to delete override")
		http.Error(w, "Failed to delete override", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// acceptSuggestion stages the classifier suggestion of a queued device
func (h *OverrideHandler) acceptSuggestion(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "acceptSuggestion").Logger()

	id := mux.Vars(r)["id"]
	d, ok := h.states.Current().Device(id)
	if !ok {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	sug := classify.Classify(d)
	o := models.Override{
		Key:       d.OverrideKey(),
		Type:      sug.Type,
		Name:      inventory.ProposedName(d),
		UpdatedAt: time.Now(),
	}
	if err := h.db.SaveOverride(o); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("Failed to stage suggestion")
		http.Error(w, "Failed to save override", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("id", id).Str("type", sug.Type).Str("reason", sug.Reason).Msg("Suggestion accepted")
	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"override":   o,
		"suggestion": sug,
		"snippet":    inventory.NewOverrideSnippet(d, sug.Type).Text(),
	})
}

// getLearnMode returns the learn mode preference
func (h *OverrideHandler) getLearnMode(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLearnMode").Logger()

	enabled, err := h.db.LearnMode()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read learn mode")
		http.Error(w, "Failed to read preference", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, learnModeBody{Enabled: enabled})
}

// putLearnMode stores the learn mode preference
func (h *OverrideHandler) putLearnMode(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "putLearnMode").Logger()

	var body learnModeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn().Err(err).Msg("Failed to parse learn mode")
		http.Error(w, "Invalid learn mode", http.StatusBadRequest)
		return
	}

	if err := h.db.SetLearnMode(body.Enabled); err != nil {
		logger.Error().Err(err).Msg("Failed to store learn mode")
		http.Error(w, "Failed to store preference", http.StatusInternalServerError)
		return
	}

	logger.Info().Bool("enabled", body.Enabled).Msg("Learn mode updated")
	writeJSON(w, logger, http.StatusOK, body)
}
