// Package models defines the data structures used throughout netwatch.
// It contains the device, snapshot, history and stability records produced by
// the discovery pipeline, the help lessons, and the records kept in the local
// store (load journal, overrides).
package models

import (
	"strings"
	"time"
)

// TypeUnknown is the device type assigned when nothing better is known
const TypeUnknown = "unknown"

// Device represents one discovered network endpoint
type Device struct {
	ID           string       `json:"id"`
	MAC          string       `json:"mac"`
	IP           string       `json:"ip"`
	Hostname     string       `json:"hostname"`
	Vendor       string       `json:"vendor"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	MDNS         []string     `json:"mdns"`
	MDNSServices []string     `json:"mdns_services"`
	SSDP         []SSDPRecord `json:"ssdp"`
	OpenPorts    []OpenPort   `json:"open_ports"`
	Web          []WebProbe   `json:"web"`
	RiskFlags    []string     `json:"risk_flags"`
	SeenAlive    bool         `json:"seen_alive"`
	SeenARP      bool         `json:"seen_arp"`
}

// SSDPRecord represents one SSDP/UPnP response banner
type SSDPRecord struct {
	Server   string `json:"server"`
	ST       string `json:"st"`
	Location string `json:"location"`
}

// OpenPort represents an open port reported by the scanner.
// Port holds "<port>/<proto>", e.g. "445/tcp".
type OpenPort struct {
	Port    string `json:"port"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
	Raw     string `json:"raw"`
}

// WebProbe represents the result of probing an HTTP(S) endpoint on a device
type WebProbe struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Title  string `json:"title"`
}

// Diff lists device ids that appeared or disappeared since the previous snapshot
type Diff struct {
	NewIDs  []string `json:"new_ids"`
	GoneIDs []string `json:"gone_ids"`
}

// Snapshot represents one discovery run
type Snapshot struct {
	TimestampUTC   string   `json:"timestamp_utc"`
	TimestampHuman string   `json:"timestamp_human"`
	HostIP         string   `json:"host_ip"`
	Subnet         string   `json:"subnet"`
	Devices        []Device `json:"devices"`
	Diff           Diff     `json:"diff"`

	// Dropped counts device records that could not be decoded
	Dropped int `json:"-"`
}

// HistorySeries holds parallel per-snapshot counters aligned by index
type HistorySeries struct {
	T         []string  `json:"t"`
	Devices   []float64 `json:"devices"`
	OpenPorts []float64 `json:"openPorts"`
	Risks     []float64 `json:"risks"`
}

// DeviceStats represents the accumulated stability record of one device.
// ID is the key the record was stored under in device_stats.json.
type DeviceStats struct {
	ID         string   `json:"id"`
	Display    string   `json:"display"`
	MAC        string   `json:"mac,omitempty"`
	Type       string   `json:"type,omitempty"`
	Vendor     string   `json:"vendor,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	SeenHours  int      `json:"seenHours"`
	TotalHours int      `json:"totalHours"`
	Flaps      int      `json:"flaps"`
	UniqueIPs  int      `json:"uniqueIps"`
	IPTail     []string `json:"ipTail"`
}

// StatsDocument is the device_stats.json resource. Devices keeps the key
// order of the JSON object; Lookup indexes it by device id.
type StatsDocument struct {
	GeneratedAt string        `json:"generatedAt,omitempty"`
	Window      int           `json:"window,omitempty"`
	Devices     []DeviceStats `json:"devices"`
}

// Lookup returns the stats recorded for the given device id
func (s *StatsDocument) Lookup(id string) (DeviceStats, bool) {
	if s == nil {
		return DeviceStats{}, false
	}
	for _, st := range s.Devices {
		if st.ID == id {
			return st, true
		}
	}
	return DeviceStats{}, false
}

// Lesson is a piece of help content shown in learn mode
type Lesson struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Level       string   `json:"level"`
	Body        []string `json:"body"`
	WhatToDoNow []string `json:"what_to_do_now"`
}

// LessonsDocument is the lessons.json resource
type LessonsDocument struct {
	Lessons []Lesson `json:"lessons"`
}

// Overrides is the user-maintained correction document keyed by MAC (or id)
type Overrides struct {
	Types map[string]string `json:"types"`
	Names map[string]string `json:"names"`
}

// NewOverrides returns an empty overrides document
func NewOverrides() Overrides {
	return Overrides{Types: map[string]string{}, Names: map[string]string{}}
}

// Override is a single staged correction
type Override struct {
	Key       string    `json:"key"`
	Type      string    `json:"type,omitempty"`
	Name      string    `json:"name,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoadRecord represents one resource load pass in the journal
type LoadRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	Duration    int64     `json:"durationMs"`
	Status      string    `json:"status"` // published, superseded, error
	DeviceCount int       `json:"deviceCount"`
	HasSnapshot bool      `json:"hasSnapshot"`
	HasHistory  bool      `json:"hasHistory"`
	HasStats    bool      `json:"hasStats"`
	HasLessons  bool      `json:"hasLessons"`
	Error       string    `json:"error,omitempty"`
}

// Log represents a log entry
type Log struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
}

// DisplayLabel returns the best human label for the device:
// name, first mDNS hostname, hostname, vendor, then id.
func (d Device) DisplayLabel() string {
	if !blank(d.Name) {
		return d.Name
	}
	if len(d.MDNS) > 0 && !blank(d.MDNS[0]) {
		return d.MDNS[0]
	}
	if !blank(d.Hostname) {
		return d.Hostname
	}
	if !blank(d.Vendor) {
		return d.Vendor
	}
	return d.ID
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TypeOrUnknown returns the device type, treating an empty type as unknown
func (d Device) TypeOrUnknown() string {
	if d.Type == "" {
		return TypeUnknown
	}
	return d.Type
}

// OverrideKey returns the key used in the overrides document
func (d Device) OverrideKey() string {
	if d.MAC != "" {
		return d.MAC
	}
	return d.ID
}

// IsUnnamed reports whether the device has no user alias
func (d Device) IsUnnamed() bool {
	return blank(d.Name)
}

// Normalize returns a copy with every list field non-nil and the type defaulted
func (d Device) Normalize() Device {
	d.Type = d.TypeOrUnknown()
	d.MDNS = nonNil(d.MDNS)
	d.MDNSServices = nonNil(d.MDNSServices)
	d.RiskFlags = nonNil(d.RiskFlags)
	if d.SSDP == nil {
		d.SSDP = []SSDPRecord{}
	}
	if d.OpenPorts == nil {
		d.OpenPorts = []OpenPort{}
	}
	if d.Web == nil {
		d.Web = []WebProbe{}
	}
	return d
}

// Normalize returns a copy of the snapshot with normalized devices and diff
func (s Snapshot) Normalize() Snapshot {
	devices := make([]Device, len(s.Devices))
	for i, d := range s.Devices {
		devices[i] = d.Normalize()
	}
	s.Devices = devices
	s.Diff.NewIDs = nonNil(s.Diff.NewIDs)
	s.Diff.GoneIDs = nonNil(s.Diff.GoneIDs)
	return s
}

// Len returns the number of aligned samples
func (h HistorySeries) Len() int {
	return len(h.Devices)
}

// Normalize truncates every series to the shortest one so indexes stay aligned
func (h HistorySeries) Normalize() HistorySeries {
	n := len(h.T)
	for _, l := range []int{len(h.Devices), len(h.OpenPorts), len(h.Risks)} {
		if l < n {
			n = l
		}
	}
	return HistorySeries{
		T:         append([]string{}, h.T[:n]...),
		Devices:   append([]float64{}, h.Devices[:n]...),
		OpenPorts: append([]float64{}, h.OpenPorts[:n]...),
		Risks:     append([]float64{}, h.Risks[:n]...),
	}
}

// Normalize returns a copy with an empty ip tail instead of nil
func (s DeviceStats) Normalize() DeviceStats {
	s.IPTail = nonNil(s.IPTail)
	return s
}

// Normalize returns a copy with non-nil lesson lists
func (l Lesson) Normalize() Lesson {
	l.Body = nonNil(l.Body)
	l.WhatToDoNow = nonNil(l.WhatToDoNow)
	return l
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

// Normalize returns a copy with normalized stats records
func (s StatsDocument) Normalize() StatsDocument {
	devices := make([]DeviceStats, len(s.Devices))
	for i, st := range s.Devices {
		devices[i] = st.Normalize()
	}
	s.Devices = devices
	return s
}

// Normalize returns a copy with normalized lessons
func (l LessonsDocument) Normalize() LessonsDocument {
	lessons := make([]Lesson, len(l.Lessons))
	for i, lesson := range l.Lessons {
		lessons[i] = lesson.Normalize()
	}
	l.Lessons = lessons
	return l
}

// Find returns the lesson with the given id
func (l *LessonsDocument) Find(id string) (Lesson, bool) {
	if l == nil {
		return Lesson{}, false
	}
	for _, lesson := range l.Lessons {
		if lesson.ID == id {
			return lesson, true
		}
	}
	return Lesson{}, false
}
