// Package stability derives presence and IP churn views from per-device
// stability records.
package stability

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"netwatch/internal/models"
)

// Defaults for the stability views
const (
	DefaultTopN        = 5
	DefaultLegendLimit = 8

	// OffColor fills lane slots in which the device was not seen
	OffColor = "rgba(255,255,255,.05)"
	// NotSeen is the title of an empty lane slot
	NotSeen = "not seen"
)

const hashMod = 0xFFFFFF

// RGB is an 8-bit colour
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String formats the colour as a CSS rgb() value
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// IPColor hashes an IP string to a muted pastel colour. Every channel lies in
// [160, 255] and equal strings always give equal colours.
func IPColor(ip string) RGB {
	var h uint32
	for _, r := range ip {
		unit := r
		if r > 0xFFFF {
			unit, _ = utf16.EncodeRune(r)
		}
		h = (h*131 + uint32(unit)) % hashMod
	}
	return RGB{
		R: uint8(160 + (h & 0x5F)),
		G: uint8(160 + ((h >> 6) & 0x5F)),
		B: uint8(160 + ((h >> 12) & 0x5F)),
	}
}

// LastOctet returns the part of ip after the final dot
func LastOctet(ip string) string {
	if i := strings.LastIndex(ip, "."); i >= 0 {
		return ip[i+1:]
	}
	return ip
}

// Cell is one slot of an IP lane
type Cell struct {
	IP      string `json:"ip"`
	Color   string `json:"color"`
	Label   string `json:"label"`
	Title   string `json:"title"`
	Off     bool   `json:"off"`
	Changed bool   `json:"changed"`
}

// Lane builds one cell per tail slot, oldest first. A slot is marked changed
// when it holds an address different from the slot before it, including
// the first address after a gap. The first slot is never marked.
func Lane(tail []string) []Cell {
	cells := make([]Cell, 0, len(tail))
	for i, ip := range tail {
		if ip == "" {
			cells = append(cells, Cell{Color: OffColor, Title: NotSeen, Off: true})
			continue
		}
		cells = append(cells, Cell{
			IP:      ip,
			Color:   IPColor(ip).String(),
			Label:   LastOctet(ip),
			Title:   ip,
			Changed: i > 0 && ip != tail[i-1],
		})
	}
	return cells
}

// LegendEntry is one distinct address in a lane legend
type LegendEntry struct {
	IP    string `json:"ip"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend lists the distinct addresses of a tail
type Legend struct {
	Entries  []LegendEntry `json:"entries"`
	Overflow int           `json:"overflow"`
}

// NewLegend collects distinct non-empty addresses in first-seen order, keeping
// at most limit of them and counting the rest as overflow
func NewLegend(tail []string, limit int) Legend {
	seen := make(map[string]bool)
	var uniq []string
	for _, ip := range tail {
		if ip == "" || seen[ip] {
			continue
		}
		seen[ip] = true
		uniq = append(uniq, ip)
	}

	l := Legend{Entries: []LegendEntry{}}
	if limit >= 0 && len(uniq) > limit {
		l.Overflow = len(uniq) - limit
		uniq = uniq[:limit]
	}
	for _, ip := range uniq {
		l.Entries = append(l.Entries, LegendEntry{IP: ip, Color: IPColor(ip).String(), Label: LastOctet(ip)})
	}
	return l
}

// MostFlappy returns the n records with the most presence flaps
func MostFlappy(doc *models.StatsDocument, n int) []models.DeviceStats {
	return top(doc, n, func(s models.DeviceStats) int { return s.Flaps })
}

// MostIPChurn returns the n records that held the most distinct addresses
func MostIPChurn(doc *models.StatsDocument, n int) []models.DeviceStats {
	return top(doc, n, func(s models.DeviceStats) int { return s.UniqueIPs })
}

func top(doc *models.StatsDocument, n int, key func(models.DeviceStats) int) []models.DeviceStats {
	if doc == nil {
		return []models.DeviceStats{}
	}
	ranked := append([]models.DeviceStats{}, doc.Devices...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return key(ranked[i]) > key(ranked[j])
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Summary is the one-line stability description used in inventory rows
func Summary(s models.DeviceStats) string {
	return fmt.Sprintf("seen %d/%d • flaps %d • IPs %d", s.SeenHours, s.TotalHours, s.Flaps, s.UniqueIPs)
}

// Detail is the multi-line stability description used in the device view
func Detail(s models.DeviceStats) string {
	return fmt.Sprintf("seen %d/%d\nflaps %d\nunique IPs %d", s.SeenHours, s.TotalHours, s.Flaps, s.UniqueIPs)
}
