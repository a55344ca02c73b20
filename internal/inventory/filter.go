// Package inventory filters, counts, groups and ranks the devices of a
// snapshot.
package inventory

import (
	"sort"
	"strings"

	"netwatch/internal/models"
)

// Risk filter values
const (
	RiskAny     = ""
	RiskRisky   = "risky"
	RiskUnknown = "unknown"
)

// Filter selects devices by type, risk and free-text query. The zero value
// passes every device.
type Filter struct {
	Type  string `json:"type"`
	Risk  string `json:"risk"`
	Query string `json:"query"`
}

// IsEmpty reports whether the filter passes everything
func (f Filter) IsEmpty() bool {
	return f.Type == "" && f.Risk == "" && strings.TrimSpace(f.Query) == ""
}

// Matches reports whether the device passes all three predicates
func Matches(d models.Device, f Filter) bool {
	if f.Type != "" && d.TypeOrUnknown() != f.Type {
		return false
	}

	switch f.Risk {
	case RiskRisky:
		if len(d.RiskFlags) == 0 {
			return false
		}
	case RiskUnknown:
		if d.TypeOrUnknown() != models.TypeUnknown {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(haystack(d), q)
}

func haystack(d models.Device) string {
	parts := make([]string, 0, 6+len(d.MDNS))
	parts = append(parts, d.DisplayLabel(), d.Vendor, d.Hostname)
	parts = append(parts, d.MDNS...)
	parts = append(parts, d.MAC, d.IP)
	return strings.ToLower(strings.Join(parts, " "))
}

// Apply returns the devices that match the filter, in input order
func Apply(devices []models.Device, f Filter) []models.Device {
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if Matches(d, f) {
			out = append(out, d)
		}
	}
	return out
}

// TypeOptions returns the sorted distinct device types, for populating a type
// selector
func TypeOptions(devices []models.Device) []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, d := range devices {
		t := d.TypeOrUnknown()
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}
