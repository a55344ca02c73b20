package inventory

import (
	"encoding/json"
	"sort"

	"netwatch/internal/classify"
	"netwatch/internal/models"
)

// Default limits used by the dashboard
const (
	DefaultRiskLimit  = 12
	DefaultQueueLimit = 40
)

// CanonicalTypeOrder is the render order of inventory groups
var CanonicalTypeOrder = []string{"gateway", "ap", "nas", "tv", "printer", "server", "iot", "client", "unknown"}

// KPIs holds the headline counters of a snapshot
type KPIs struct {
	Total         int `json:"total"`
	Filtered      int `json:"filtered"`
	Unnamed       int `json:"unnamed"`
	UnknownType   int `json:"unknownType"`
	WeakIdentity  int `json:"weakIdentity"`
	OpenPortHosts int `json:"openPortHosts"`
	OpenPorts     int `json:"openPorts"`
	RiskFlags     int `json:"riskFlags"`
}

// DiffCounts holds the sizes of the snapshot diff
type DiffCounts struct {
	New  int `json:"new"`
	Gone int `json:"gone"`
}

// TypeCount is one segment of the type distribution
type TypeCount struct {
	Type  string  `json:"type"`
	Count int     `json:"count"`
	Width float64 `json:"width"` // fraction of all devices, 0..1
}

// Group is one inventory section
type Group struct {
	Type    string          `json:"type"`
	Devices []models.Device `json:"devices"`
}

// OverrideSnippet is a ready-to-paste overrides document for one device
type OverrideSnippet struct {
	Types map[string]string `json:"types"`
	Names map[string]string `json:"names"`
}

// QueueEntry is one device awaiting classification
type QueueEntry struct {
	Device     models.Device       `json:"device"`
	Label      string              `json:"label"`
	Score      int                 `json:"score"`
	Suggestion classify.Suggestion `json:"suggestion"`
	Snippet    OverrideSnippet     `json:"snippet"`
}

// Queue is the ranked classification queue
type Queue struct {
	Size    int          `json:"size"` // before truncation
	Entries []QueueEntry `json:"entries"`
}

// IsWeakIdentity reports whether no signal can establish the device's
// identity. Web probe results are not considered.
func IsWeakIdentity(d models.Device) bool {
	return len(d.MDNSServices) == 0 && len(d.SSDP) == 0 && len(d.OpenPorts) == 0
}

// SignalRichness scores how much identity signal a device carries
func SignalRichness(d models.Device) int {
	return len(d.MDNSServices) + len(d.SSDP) + len(d.OpenPorts) + len(d.Web)
}

// ComputeKPIs counts over all devices; filtered is only used for its length
func ComputeKPIs(all, filtered []models.Device) KPIs {
	k := KPIs{Total: len(all), Filtered: len(filtered)}
	for _, d := range all {
		if d.IsUnnamed() {
			k.Unnamed++
		}
		if d.TypeOrUnknown() == models.TypeUnknown {
			k.UnknownType++
		}
		if IsWeakIdentity(d) {
			k.WeakIdentity++
		}
		if len(d.OpenPorts) > 0 {
			k.OpenPortHosts++
		}
		k.OpenPorts += len(d.OpenPorts)
		k.RiskFlags += len(d.RiskFlags)
	}
	return k
}

// ComputeDiff returns the new/gone counts of a snapshot
func ComputeDiff(s models.Snapshot) DiffCounts {
	return DiffCounts{New: len(s.Diff.NewIDs), Gone: len(s.Diff.GoneIDs)}
}

// TypeDistribution counts devices per type, largest first. Types with equal
// counts keep the order in which they were first seen.
func TypeDistribution(devices []models.Device) []TypeCount {
	index := make(map[string]int)
	dist := []TypeCount{}
	for _, d := range devices {
		t := d.TypeOrUnknown()
		i, ok := index[t]
		if !ok {
			i = len(dist)
			index[t] = i
			dist = append(dist, TypeCount{Type: t})
		}
		dist[i].Count++
	}

	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Count > dist[j].Count
	})

	total := 0
	for _, tc := range dist {
		total += tc.Count
	}
	if total == 0 {
		total = 1
	}
	for i := range dist {
		dist[i].Width = float64(dist[i].Count) / float64(total)
	}
	return dist
}

// RiskRanking returns flagged devices, most flags first, keeping snapshot
// order among ties
func RiskRanking(devices []models.Device, limit int) []models.Device {
	ranked := []models.Device{}
	for _, d := range devices {
		if len(d.RiskFlags) > 0 {
			ranked = append(ranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].RiskFlags) > len(ranked[j].RiskFlags)
	})
	return truncate(ranked, limit)
}

// GroupInventory partitions devices by type. Groups follow
// CanonicalTypeOrder with any other type appended alphabetically; devices
// inside a group are ordered by display label, then by flag count
// descending.
func GroupInventory(devices []models.Device) []Group {
	sorted := append([]models.Device(nil), devices...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ta, tb := a.TypeOrUnknown(), b.TypeOrUnknown(); ta != tb {
			return ta < tb
		}
		if la, lb := a.DisplayLabel(), b.DisplayLabel(); la != lb {
			return la < lb
		}
		return len(a.RiskFlags) > len(b.RiskFlags)
	})

	byType := make(map[string][]models.Device)
	var types []string
	for _, d := range sorted {
		t := d.TypeOrUnknown()
		if _, ok := byType[t]; !ok {
			types = append(types, t)
		}
		byType[t] = append(byType[t], d)
	}

	sort.SliceStable(types, func(i, j int) bool {
		return typeLess(types[i], types[j])
	})

	groups := make([]Group, 0, len(types))
	for _, t := range types {
		groups = append(groups, Group{Type: t, Devices: byType[t]})
	}
	return groups
}

func typeRank(t string) int {
	for i, c := range CanonicalTypeOrder {
		if c == t {
			return i
		}
	}
	return -1
}

func typeLess(a, b string) bool {
	ia, ib := typeRank(a), typeRank(b)
	switch {
	case ia == -1 && ib == -1:
		return a < b
	case ia == -1:
		return false
	case ib == -1:
		return true
	default:
		return ia < ib
	}
}

// NeedsClassification reports whether the device belongs in the queue
func NeedsClassification(d models.Device) bool {
	return d.TypeOrUnknown() == models.TypeUnknown || d.IsUnnamed()
}

// ClassificationQueue ranks unknown or unnamed devices by signal richness
func ClassificationQueue(devices []models.Device, limit int) Queue {
	entries := []QueueEntry{}
	for _, d := range devices {
		if !NeedsClassification(d) {
			continue
		}
		sug := classify.Classify(d)
		entries = append(entries, QueueEntry{
			Device:     d,
			Label:      d.DisplayLabel(),
			Score:      SignalRichness(d),
			Suggestion: sug,
			Snippet:    NewOverrideSnippet(d, sug.Type),
		})
	}
	size := len(entries)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return Queue{Size: size, Entries: entries}
}

// ProposedName is the name offered in an override snippet: the current
// alias if set, else the display label, else the override key
func ProposedName(d models.Device) string {
	if !d.IsUnnamed() {
		return d.Name
	}
	if label := d.DisplayLabel(); label != "" {
		return label
	}
	return d.OverrideKey()
}

// NewOverrideSnippet builds the overrides document that would assign typ
// and the proposed name to the device
func NewOverrideSnippet(d models.Device, typ string) OverrideSnippet {
	key := d.OverrideKey()
	return OverrideSnippet{
		Types: map[string]string{key: typ},
		Names: map[string]string{key: ProposedName(d)},
	}
}

// Text renders the snippet the way it is pasted into overrides.json
func (s OverrideSnippet) Text() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// Overrides converts the snippet to the overrides document model
func (s OverrideSnippet) Overrides() models.Overrides {
	o := models.NewOverrides()
	for k, v := range s.Types {
		o.Types[k] = v
	}
	for k, v := range s.Names {
		o.Names[k] = v
	}
	return o
}

func truncate(devices []models.Device, limit int) []models.Device {
	if limit >= 0 && len(devices) > limit {
		return devices[:limit]
	}
	return devices
}
