package view

import (
	"fmt"
	"strings"

	"netwatch/internal/classify"
	"netwatch/internal/inventory"
	"netwatch/internal/models"
	"netwatch/internal/stability"
	"netwatch/internal/trend"
)

// TypeSegment is one entry of the type bar and its legend
type TypeSegment struct {
	Type  string  `json:"type"`
	Count int     `json:"count"`
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// TrendCard is one series on the overview
type TrendCard struct {
	Label string           `json:"label"`
	Value float64          `json:"value"`
	Spark trend.Spark      `json:"spark"`
	Heat  *trend.HeatStrip `json:"heat,omitempty"`
}

// Trends groups the overview series
type Trends struct {
	Devices   TrendCard `json:"devices"`
	OpenPorts TrendCard `json:"openPorts"`
	Risks     TrendCard `json:"risks"`
}

// StabilityEntry is one row of a stability top list
type StabilityEntry struct {
	ID      string `json:"id"`
	Display string `json:"display"`
	Value   int    `json:"value"`
}

// StabilityLists holds the overview stability top lists
type StabilityLists struct {
	MostFlappy  []StabilityEntry `json:"mostFlappy"`
	MostIPChurn []StabilityEntry `json:"mostIpChurn"`
	Placeholder string           `json:"placeholder,omitempty"`
}

// RiskRow is one line of the risky devices table
type RiskRow struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	MAC       string   `json:"mac"`
	Type      string   `json:"type"`
	IP        string   `json:"ip"`
	Flags     []string `json:"flags"`
	FlagCount int      `json:"flagCount"`
}

// Overview is the household snapshot view
type Overview struct {
	Ready             bool                 `json:"ready"`
	Placeholder       string               `json:"placeholder,omitempty"`
	LoadID            string               `json:"loadId,omitempty"`
	Timestamp         string               `json:"timestamp,omitempty"`
	Subnet            string               `json:"subnet,omitempty"`
	KPIs              inventory.KPIs       `json:"kpis"`
	Diff              inventory.DiffCounts `json:"diff"`
	Types             []TypeSegment        `json:"types"`
	TypeLegend        []TypeSegment        `json:"typeLegend"`
	TypeOverflow      int                  `json:"typeOverflow"`
	Trends            *Trends              `json:"trends,omitempty"`
	TrendsPlaceholder string               `json:"trendsPlaceholder,omitempty"`
	Stability         StabilityLists       `json:"stability"`
	Risks             []RiskRow            `json:"risks"`
}

// BuildOverview assembles the overview. KPIs, types, trends and risks cover
// the whole snapshot; the filter only feeds the filtered count.
func BuildOverview(st *State, f inventory.Filter, opts Options) Overview {
	opts = opts.withDefaults()
	if !st.Ready() {
		return Overview{Placeholder: PlaceholderLoading, Types: []TypeSegment{}, TypeLegend: []TypeSegment{}, Risks: []RiskRow{}}
	}

	all := st.Devices()
	v := Overview{
		Ready:     true,
		LoadID:    st.LoadID,
		Timestamp: snapshotTime(st.Snapshot),
		Subnet:    st.Snapshot.Subnet,
		KPIs:      inventory.ComputeKPIs(all, inventory.Apply(all, f)),
		Diff:      inventory.ComputeDiff(*st.Snapshot),
		Risks:     []RiskRow{},
	}

	v.Types = typeSegments(inventory.TypeDistribution(all))
	v.TypeLegend = v.Types
	if len(v.Types) > opts.LegendLimit {
		v.TypeLegend = v.Types[:opts.LegendLimit]
		v.TypeOverflow = len(v.Types) - opts.LegendLimit
	}

	if st.History != nil {
		v.Trends = buildTrends(*st.History, v.KPIs, opts)
	} else {
		v.TrendsPlaceholder = PlaceholderNoHistory
	}

	v.Stability = buildStability(st.Stats, opts.StabilityLimit)

	for _, d := range inventory.RiskRanking(all, opts.RiskLimit) {
		v.Risks = append(v.Risks, RiskRow{
			ID:        d.ID,
			Label:     d.DisplayLabel(),
			MAC:       d.MAC,
			Type:      d.Type,
			IP:        d.IP,
			Flags:     head(d.RiskFlags, 4),
			FlagCount: len(d.RiskFlags),
		})
	}
	return v
}

func snapshotTime(s *models.Snapshot) string {
	if s.TimestampHuman != "" {
		return s.TimestampHuman
	}
	return s.TimestampUTC
}

func typeSegments(dist []inventory.TypeCount) []TypeSegment {
	out := make([]TypeSegment, 0, len(dist))
	for _, tc := range dist {
		out = append(out, TypeSegment{Type: tc.Type, Count: tc.Count, Width: tc.Width, Color: TypeColor(tc.Type)})
	}
	return out
}

func buildTrends(h models.HistorySeries, k inventory.KPIs, opts Options) *Trends {
	devices := trend.Window(h.Devices, opts.HistoryWindow)
	heat := trend.NewHeatStrip(devices)
	return &Trends{
		Devices: TrendCard{
			Label: "Devices",
			Value: lastOr(h.Devices, float64(k.Total)),
			Spark: trend.NewSpark(devices, opts.Geometry, opts.DevicesStyle),
			Heat:  &heat,
		},
		OpenPorts: TrendCard{
			Label: "Open ports",
			Value: lastOr(h.OpenPorts, float64(k.OpenPorts)),
			Spark: trend.NewSpark(trend.Window(h.OpenPorts, opts.HistoryWindow), opts.Geometry, opts.OpenPortsStyle),
		},
		Risks: TrendCard{
			Label: "Risk flags",
			Value: lastOr(h.Risks, float64(k.RiskFlags)),
			Spark: trend.NewSpark(trend.Window(h.Risks, opts.HistoryWindow), opts.Geometry, opts.RisksStyle),
		},
	}
}

func lastOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return values[len(values)-1]
}

func buildStability(doc *models.StatsDocument, n int) StabilityLists {
	lists := StabilityLists{
		MostFlappy:  []StabilityEntry{},
		MostIPChurn: []StabilityEntry{},
	}
	for _, s := range stability.MostFlappy(doc, n) {
		lists.MostFlappy = append(lists.MostFlappy, StabilityEntry{ID: s.ID, Display: s.Display, Value: s.Flaps})
	}
	for _, s := range stability.MostIPChurn(doc, n) {
		lists.MostIPChurn = append(lists.MostIPChurn, StabilityEntry{ID: s.ID, Display: s.Display, Value: s.UniqueIPs})
	}
	if len(lists.MostFlappy) == 0 {
		lists.Placeholder = PlaceholderNoStats
	}
	return lists
}

// DeviceRow is one device line of the inventory
type DeviceRow struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Key       string   `json:"key"`
	Vendor    string   `json:"vendor"`
	Type      string   `json:"type"`
	TypeColor string   `json:"typeColor"`
	IP        string   `json:"ip"`
	Flags     []string `json:"flags"`
	FlagCount int      `json:"flagCount"`
	Stability string   `json:"stability"`
	MDNS      []string `json:"mdns"`
	Services  []string `json:"services"`
	SSDP      string   `json:"ssdp"`
}

// InventoryGroup is one type section of the inventory
type InventoryGroup struct {
	Type  string      `json:"type"`
	Color string      `json:"color"`
	Count int         `json:"count"`
	Rows  []DeviceRow `json:"rows"`
}

// Inventory is the grouped device list
type Inventory struct {
	Ready       bool             `json:"ready"`
	Placeholder string           `json:"placeholder,omitempty"`
	Filter      inventory.Filter `json:"filter"`
	TypeOptions []string         `json:"typeOptions"`
	Total       int              `json:"total"`
	Matched     int              `json:"matched"`
	Groups      []InventoryGroup `json:"groups"`
}

// BuildInventory groups the devices that pass the filter
func BuildInventory(st *State, f inventory.Filter) Inventory {
	v := Inventory{Filter: f, TypeOptions: []string{}, Groups: []InventoryGroup{}}
	if !st.Ready() {
		v.Placeholder = PlaceholderLoading
		return v
	}

	all := st.Devices()
	matched := inventory.Apply(all, f)
	v.Ready = true
	v.TypeOptions = inventory.TypeOptions(all)
	v.Total = len(all)
	v.Matched = len(matched)

	for _, g := range inventory.GroupInventory(matched) {
		group := InventoryGroup{Type: g.Type, Color: TypeColor(g.Type), Count: len(g.Devices), Rows: make([]DeviceRow, 0, len(g.Devices))}
		for _, d := range g.Devices {
			group.Rows = append(group.Rows, deviceRow(st, d))
		}
		v.Groups = append(v.Groups, group)
	}
	if len(v.Groups) == 0 {
		v.Placeholder = PlaceholderNoMatch
	}
	return v
}

func deviceRow(st *State, d models.Device) DeviceRow {
	row := DeviceRow{
		ID:        d.ID,
		Label:     d.DisplayLabel(),
		Key:       d.OverrideKey(),
		Vendor:    d.Vendor,
		Type:      d.TypeOrUnknown(),
		TypeColor: TypeColor(d.TypeOrUnknown()),
		IP:        d.IP,
		Flags:     head(d.RiskFlags, 3),
		FlagCount: len(d.RiskFlags),
		Stability: Dash,
		MDNS:      head(d.MDNS, 2),
		Services:  head(d.MDNSServices, 3),
	}
	if s, ok := st.DeviceStats(d.ID); ok {
		row.Stability = stability.Summary(s)
	}
	if len(d.SSDP) > 0 {
		row.SSDP = ssdpBanner(d.SSDP[0])
	}
	return row
}

func ssdpBanner(r models.SSDPRecord) string {
	if r.Server != "" {
		return r.Server
	}
	return r.ST
}

// Timeline is the history view
type Timeline struct {
	Ready       bool          `json:"ready"`
	Placeholder string        `json:"placeholder,omitempty"`
	Snapshots   int           `json:"snapshots"`
	T           []string      `json:"t"`
	Devices     trend.Summary `json:"devices"`
	OpenPorts   trend.Summary `json:"openPorts"`
	Risks       trend.Summary `json:"risks"`
	Spark       trend.Spark   `json:"spark"`
}

// BuildTimeline summarises the last window of the history series
func BuildTimeline(st *State, opts Options) Timeline {
	opts = opts.withDefaults()
	v := Timeline{T: []string{}, Spark: trend.NewSpark(nil, opts.Geometry, opts.DevicesStyle)}
	if !st.Ready() {
		v.Placeholder = PlaceholderLoading
		return v
	}
	v.Ready = true
	if st.History == nil {
		v.Placeholder = PlaceholderNoHistory
		return v
	}

	h := *st.History
	if n := len(h.T); n > opts.HistoryWindow {
		v.T = append(v.T, h.T[n-opts.HistoryWindow:]...)
	} else {
		v.T = append(v.T, h.T...)
	}
	devices := trend.Window(h.Devices, opts.HistoryWindow)

	v.Snapshots = len(v.T)
	v.Devices = trend.Summarize(devices)
	v.OpenPorts = trend.Summarize(trend.Window(h.OpenPorts, opts.HistoryWindow))
	v.Risks = trend.Summarize(trend.Window(h.Risks, opts.HistoryWindow))
	v.Spark = trend.NewSpark(devices, opts.Geometry, opts.DevicesStyle)
	return v
}

// QueueRow is one device of the classification view
type QueueRow struct {
	ID          string                    `json:"id"`
	Label       string                    `json:"label"`
	Key         string                    `json:"key"`
	Vendor      string                    `json:"vendor"`
	IP          string                    `json:"ip"`
	Score       int                       `json:"score"`
	Signals     string                    `json:"signals"`
	Suggestion  classify.Suggestion       `json:"suggestion"`
	Snippet     inventory.OverrideSnippet `json:"snippet"`
	SnippetText string                    `json:"snippetText"`
}

// Classify is the classification queue view
type Classify struct {
	Ready       bool       `json:"ready"`
	Placeholder string     `json:"placeholder,omitempty"`
	Size        int        `json:"size"`
	Shown       int        `json:"shown"`
	Entries     []QueueRow `json:"entries"`
}

// BuildClassify ranks unknown and unnamed devices over the whole snapshot
func BuildClassify(st *State, opts Options) Classify {
	opts = opts.withDefaults()
	v := Classify{Entries: []QueueRow{}}
	if !st.Ready() {
		v.Placeholder = PlaceholderLoading
		return v
	}

	q := inventory.ClassificationQueue(st.Devices(), opts.QueueLimit)
	v.Ready = true
	v.Size = q.Size
	v.Shown = len(q.Entries)
	for _, e := range q.Entries {
		v.Entries = append(v.Entries, QueueRow{
			ID:          e.Device.ID,
			Label:       e.Label,
			Key:         e.Device.OverrideKey(),
			Vendor:      e.Device.Vendor,
			IP:          e.Device.IP,
			Score:       e.Score,
			Signals:     signalSummary(e.Device),
			Suggestion:  e.Suggestion,
			Snippet:     e.Snippet,
			SnippetText: e.Snippet.Text(),
		})
	}
	return v
}

// signalSummary lists up to four services, one SSDP banner and six ports
func signalSummary(d models.Device) string {
	var ports []string
	for _, p := range head(d.OpenPorts, 6) {
		ports = append(ports, p.Port)
	}
	var ssdp string
	if len(d.SSDP) > 0 {
		ssdp = ssdpBanner(d.SSDP[0])
	}

	var parts []string
	for _, s := range []string{strings.Join(head(d.MDNSServices, 4), ", "), ssdp, strings.Join(ports, ", ")} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Dash
	}
	return strings.Join(parts, " • ")
}

// DeviceDetail is the per-device drawer
type DeviceDetail struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Subtitle        string                    `json:"subtitle"`
	Device          models.Device             `json:"device"`
	TypeColor       string                    `json:"typeColor"`
	MDNSNames       string                    `json:"mdnsNames"`
	MDNSServices    string                    `json:"mdnsServices"`
	HasStats        bool                      `json:"hasStats"`
	Stability       string                    `json:"stability"`
	Lane            []stability.Cell          `json:"lane"`
	LanePlaceholder string                    `json:"lanePlaceholder,omitempty"`
	Legend          stability.Legend          `json:"legend"`
	Ports           string                    `json:"ports"`
	Web             string                    `json:"web"`
	SSDP            string                    `json:"ssdp"`
	Flags           string                    `json:"flags"`
	Suggestion      classify.Suggestion       `json:"suggestion"`
	Snippet         inventory.OverrideSnippet `json:"snippet"`
	SnippetText     string                    `json:"snippetText"`
}

// BuildDeviceDetail describes one device. The override snippet carries the
// device's current type. It reports false when the device is not in the
// current snapshot.
func BuildDeviceDetail(st *State, id string, opts Options) (DeviceDetail, bool) {
	opts = opts.withDefaults()
	d, ok := st.Device(id)
	if !ok {
		return DeviceDetail{}, false
	}

	typ := d.TypeOrUnknown()
	v := DeviceDetail{
		ID:           d.ID,
		Title:        d.DisplayLabel(),
		Subtitle:     fmt.Sprintf("%s • %s • %s", typ, d.OverrideKey(), d.IP),
		Device:       d,
		TypeColor:    TypeColor(typ),
		MDNSNames:    orDash(strings.Join(d.MDNS, ", ")),
		MDNSServices: orDash(strings.Join(d.MDNSServices, ", ")),
		Stability:    PlaceholderNoStats,
		Lane:         []stability.Cell{},
		Legend:       stability.Legend{Entries: []stability.LegendEntry{}},
		Suggestion:   classify.Classify(d),
		Snippet:      inventory.NewOverrideSnippet(d, typ),
	}
	v.SnippetText = v.Snippet.Text()

	var tail []string
	if s, ok := st.DeviceStats(d.ID); ok {
		v.HasStats = true
		v.Stability = stability.Detail(s)
		tail = s.IPTail
	}
	if len(tail) > 0 {
		v.Lane = stability.Lane(tail)
		v.Legend = stability.NewLegend(tail, opts.LegendLimit)
	} else {
		v.LanePlaceholder = PlaceholderNoIPHistory
	}

	var lines []string
	for _, p := range d.OpenPorts {
		lines = append(lines, p.Raw)
	}
	v.Ports = orNone(strings.Join(lines, "\n"))

	lines = lines[:0]
	for _, w := range head(d.Web, 6) {
		status := ""
		if w.Status != 0 {
			status = fmt.Sprint(w.Status)
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s HTTP %s %s", w.URL, status, w.Title)))
	}
	v.Web = orNone(strings.Join(lines, "\n"))

	lines = lines[:0]
	for _, r := range head(d.SSDP, 4) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s | %s | %s", r.ST, r.Server, r.Location)))
	}
	v.SSDP = orNone(strings.Join(lines, "\n"))

	v.Flags = orNone(strings.Join(d.RiskFlags, "\n"))
	return v, true
}

// LessonCard is one entry of the lesson list
type LessonCard struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Level   string `json:"level"`
	Summary string `json:"summary"`
}

// Learn is the lesson index
type Learn struct {
	Lessons     []LessonCard `json:"lessons"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// BuildLearn lists the loaded lessons. It does not need a snapshot.
func BuildLearn(st *State) Learn {
	v := Learn{Lessons: []LessonCard{}}
	if st != nil && st.Lessons != nil {
		for _, l := range st.Lessons.Lessons {
			v.Lessons = append(v.Lessons, LessonCard{ID: l.ID, Title: l.Title, Level: l.Level, Summary: l.Summary})
		}
	}
	if len(v.Lessons) == 0 {
		v.Placeholder = PlaceholderNoLessons
	}
	return v
}

// Lesson is one opened lesson
type Lesson struct {
	models.Lesson
	BodyPlaceholder string `json:"bodyPlaceholder,omitempty"`
	TodoPlaceholder string `json:"todoPlaceholder,omitempty"`
}

// BuildLesson returns the lesson with the given id
func BuildLesson(st *State, id string) (Lesson, bool) {
	if st == nil {
		return Lesson{}, false
	}
	l, ok := st.Lessons.Find(id)
	if !ok {
		return Lesson{}, false
	}
	v := Lesson{Lesson: l.Normalize()}
	if len(v.Body) == 0 {
		v.BodyPlaceholder = PlaceholderNoContent
	}
	if len(v.WhatToDoNow) == 0 {
		v.TodoPlaceholder = PlaceholderNoActions
	}
	return v, true
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append([]T{}, s...)
}

func orDash(s string) string {
	if s == "" {
		return Dash
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return PlaceholderNone
	}
	return s
}
