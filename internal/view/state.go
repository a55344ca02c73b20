// Package view assembles the dashboard views from one loaded state.
//
// Every builder takes an immutable *State and returns a complete value. A nil
// state or a state without a snapshot yields the view's placeholder instead
// of an error.
package view

import (
	"time"

	"netwatch/internal/inventory"
	"netwatch/internal/models"
	"netwatch/internal/stability"
	"netwatch/internal/trend"
)

// Placeholders shown when a resource is missing
const (
	PlaceholderLoading     = "Loading…"
	PlaceholderNoHistory   = "(history.json not loaded)"
	PlaceholderNoStats     = "(no stats yet)"
	PlaceholderNoIPHistory = "(no IP history yet)"
	PlaceholderNoLessons   = "No lessons loaded."
	PlaceholderNoMatch     = "No devices match."
	PlaceholderNone        = "(none)"
	PlaceholderNoContent   = "No content yet."
	PlaceholderNoActions   = "No suggested actions yet."
	Dash                   = "–"
)

// State is one consistent set of loaded resources. It is never modified after
// it has been published; a reload builds a new State.
type State struct {
	LoadID   string                  `json:"loadId"`
	LoadedAt time.Time               `json:"loadedAt"`
	Snapshot *models.Snapshot        `json:"snapshot,omitempty"`
	History  *models.HistorySeries   `json:"history,omitempty"`
	Stats    *models.StatsDocument   `json:"stats,omitempty"`
	Lessons  *models.LessonsDocument `json:"lessons,omitempty"`
}

// Ready reports whether a snapshot is loaded
func (s *State) Ready() bool {
	return s != nil && s.Snapshot != nil
}

// Devices returns the snapshot devices, or nil before the first load
func (s *State) Devices() []models.Device {
	if !s.Ready() {
		return nil
	}
	return s.Snapshot.Devices
}

// Device looks up a device of the current snapshot by id
func (s *State) Device(id string) (models.Device, bool) {
	for _, d := range s.Devices() {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

// DeviceStats looks up the stability record of a device
func (s *State) DeviceStats(id string) (models.DeviceStats, bool) {
	if s == nil {
		return models.DeviceStats{}, false
	}
	return s.Stats.Lookup(id)
}

// Options controls window sizes, limits and series styling
type Options struct {
	HistoryWindow  int
	RiskLimit      int
	QueueLimit     int
	StabilityLimit int
	LegendLimit    int
	Geometry       trend.Geometry
	DevicesStyle   trend.Style
	OpenPortsStyle trend.Style
	RisksStyle     trend.Style
}

// DefaultOptions returns the stock dashboard settings
func DefaultOptions() Options {
	return Options{
		HistoryWindow:  trend.DefaultWindow,
		RiskLimit:      inventory.DefaultRiskLimit,
		QueueLimit:     inventory.DefaultQueueLimit,
		StabilityLimit: stability.DefaultTopN,
		LegendLimit:    stability.DefaultLegendLimit,
		Geometry:       trend.DefaultGeometry(),
		DevicesStyle:   trend.Style{Stroke: "rgba(122,162,255,.95)", Fill: "rgba(122,162,255,.18)"},
		OpenPortsStyle: trend.Style{Stroke: "rgba(255,211,107,.95)", Fill: "rgba(255,211,107,.18)"},
		RisksStyle:     trend.Style{Stroke: "rgba(255,107,158,.95)", Fill: "rgba(255,107,158,.18)"},
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = def.HistoryWindow
	}
	if o.RiskLimit <= 0 {
		o.RiskLimit = def.RiskLimit
	}
	if o.QueueLimit <= 0 {
		o.QueueLimit = def.QueueLimit
	}
	if o.StabilityLimit <= 0 {
		o.StabilityLimit = def.StabilityLimit
	}
	if o.LegendLimit <= 0 {
		o.LegendLimit = def.LegendLimit
	}
	if o.Geometry.Width <= 0 || o.Geometry.Height <= 0 {
		o.Geometry = def.Geometry
	}
	if o.DevicesStyle.Stroke == "" {
		o.DevicesStyle = def.DevicesStyle
	}
	if o.OpenPortsStyle.Stroke == "" {
		o.OpenPortsStyle = def.OpenPortsStyle
	}
	if o.RisksStyle.Stroke == "" {
		o.RisksStyle = def.RisksStyle
	}
	return o
}

var typeColors = map[string]string{
	"gateway": "rgba(168, 255, 214, .95)",
	"ap":      "rgba(122,162,255,.95)",
	"nas":     "rgba(255,211,107,.95)",
	"tv":      "rgba(255,107,158,.95)",
	"printer": "rgba(205,180,255,.95)",
	"server":  "rgba(255,165,85,.95)",
	"iot":     "rgba(140,240,255,.95)",
	"client":  "rgba(180,255,180,.95)",
	"unknown": "rgba(170,180,210,.85)",
}

// TypeColor returns the palette colour of a device type
func TypeColor(t string) string {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return typeColors[models.TypeUnknown]
}
