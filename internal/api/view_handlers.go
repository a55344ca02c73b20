// Package api provides HTTP handlers for the netwatch REST API.
// It includes handlers for the dashboard views, staged overrides, the load
// journal, system status and other functions exposed through the API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"netwatch/internal/inventory"
	"netwatch/internal/view"
)

// StateProvider hands out the currently published state
type StateProvider interface {
	Current() *view.State
}

// RenderObserver is told about every rendered view
type RenderObserver interface {
	ViewRendered(name string)
}

// ViewHandler handles the dashboard view endpoints
type ViewHandler struct {
	states  StateProvider
	opts    view.Options
	metrics RenderObserver
}

// NewViewHandler creates a new view handler. metrics may be nil.
func NewViewHandler(states StateProvider, opts view.Options, metrics RenderObserver) *ViewHandler {
	return &ViewHandler{
		states:  states,
		opts:    opts,
		metrics: metrics,
	}
}

// RegisterRoutes registers the view routes
func (h *ViewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/views/overview", h.getOverview).Methods("GET")
	r.HandleFunc("/api/views/inventory", h.getInventory).Methods("GET")
	r.HandleFunc("/api/views/timeline", h.getTimeline).Methods("GET")
	r.HandleFunc("/api/views/classify", h.getClassify).Methods("GET")
	r.HandleFunc("/api/views/learn", h.getLearn).Methods("GET")
	r.HandleFunc("/api/devices/{id}", h.getDeviceDetail).Methods("GET")
	r.HandleFunc("/api/lessons/{id}", h.getLesson).Methods("GET")
}

// filterFromRequest reads the type, risk and q query parameters
func filterFromRequest(r *http.Request) inventory.Filter {
	q := r.URL.Query()
	return inventory.Filter{
		Type:  q.Get("type"),
		Risk:  q.Get("risk"),
		Query: q.Get("q"),
	}
}

func (h *ViewHandler) rendered(name string) {
	if h.metrics != nil {
		h.metrics.ViewRendered(name)
	}
}

// getOverview returns the overview view
func (h *ViewHandler) getOverview(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getOverview").Logger()

	v := view.BuildOverview(h.states.Current(), filterFromRequest(r), h.opts)
	h.rendered("overview")
	writeJSON(w, logger, http.StatusOK, v)
}

// getInventory returns the grouped device inventory
func (h *ViewHandler) getInventory(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getInventory").Logger()

	v := view.BuildInventory(h.states.Current(), filterFromRequest(r))
	h.rendered("inventory")
	writeJSON(w, logger, http.StatusOK, v)
}

// getTimeline returns the history view
func (h *ViewHandler) getTimeline(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getTimeline").Logger()

	v := view.BuildTimeline(h.states.Current(), h.opts)
	h.rendered("timeline")
	writeJSON(w, logger, http.StatusOK, v)
}

// getClassify returns the classification queue
func (h *ViewHandler) getClassify(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getClassify").Logger()

	v := view.BuildClassify(h.states.Current(), h.opts)
	h.rendered("classify")
	writeJSON(w, logger, http.StatusOK, v)
}

// getLearn returns the lesson index
func (h *ViewHandler) getLearn(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLearn").Logger()

	v := view.BuildLearn(h.states.Current())
	h.rendered("learn")
	writeJSON(w, logger, http.StatusOK, v)
}

// getDeviceDetail returns the detail view of one device
func (h *ViewHandler) getDeviceDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDeviceDetail").Logger()

	id := mux.Vars(r)["id"]
	st := h.states.Current()

	if !st.Ready() {
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"ready":       false,
			"placeholder": view.PlaceholderLoading,
		})
		return
	}

	v, ok := view.BuildDeviceDetail(st, id, h.opts)
	if !ok {
		logger.Debug().Str("id", id).Msg("Device not found")
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	h.rendered("device")
	writeJSON(w, logger, http.StatusOK, v)
}

// getLesson returns one lesson
func (h *ViewHandler) getLesson(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLesson").Logger()

	id := mux.Vars(r)["id"]
	v, ok := view.BuildLesson(h.states.Current(), id)
	if !ok {
		logger.Debug().Str("id", id).Msg("Lesson not found")
		http.Error(w, "Lesson not found", http.StatusNotFound)
		return
	}

	h.rendered("lesson")
	writeJSON(w, logger, http.StatusOK, v)
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}
