package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The discovery pipeline writes loosely typed JSON. Decoding here is
// permissive: a field of the wrong shape decodes to its zero value instead of
// failing the whole document.

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = flexString(s)
	case 't', 'f':
		*f = flexString(data)
	case 'n', '{', '[':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var s flexString
	_ = s.UnmarshalJSON(data)
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var v flexFloat
	_ = v.UnmarshalJSON(data)
	*f = flexInt(int(v))
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var s flexString
	_ = s.UnmarshalJSON(data)
	switch strings.ToLower(string(s)) {
	case "true", "1", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// elements returns the raw members of a JSON array, or nil for anything else
func elements(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func stringList(raw json.RawMessage) []string {
	items := elements(raw)
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s flexString
		_ = s.UnmarshalJSON(item)
		out = append(out, string(s))
	}
	return out
}

func floatList(raw json.RawMessage) []float64 {
	items := elements(raw)
	out := make([]float64, 0, len(items))
	for _, item := range items {
		var v flexFloat
		_ = v.UnmarshalJSON(item)
		out = append(out, float64(v))
	}
	return out
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// UnmarshalJSON decodes a device record permissively
func (d *Device) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("device record is not an object")
	}
	var raw struct {
		ID           flexString      `json:"id"`
		MAC          flexString      `json:"mac"`
		IP           flexString      `json:"ip"`
		Hostname     flexString      `json:"hostname"`
		Vendor       flexString      `json:"vendor"`
		Name         flexString      `json:"name"`
		Type         flexString      `json:"type"`
		MDNS         json.RawMessage `json:"mdns"`
		MDNSServices json.RawMessage `json:"mdns_services"`
		SSDP         json.RawMessage `json:"ssdp"`
		OpenPorts    json.RawMessage `json:"open_ports"`
		Web          json.RawMessage `json:"web"`
		RiskFlags    json.RawMessage `json:"risk_flags"`
		SeenAlive    flexBool        `json:"seen_alive"`
		SeenARP      flexBool        `json:"seen_arp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode device record: %w", err)
	}

	*d = Device{
		ID:           string(raw.ID),
		MAC:          string(raw.MAC),
		IP:           string(raw.IP),
		Hostname:     string(raw.Hostname),
		Vendor:       string(raw.Vendor),
		Name:         string(raw.Name),
		Type:         string(raw.Type),
		MDNS:         stringList(raw.MDNS),
		MDNSServices: stringList(raw.MDNSServices),
		RiskFlags:    stringList(raw.RiskFlags),
		SeenAlive:    bool(raw.SeenAlive),
		SeenARP:      bool(raw.SeenARP),
		SSDP:         []SSDPRecord{},
		OpenPorts:    []OpenPort{},
		Web:          []WebProbe{},
	}
	for _, item := range elements(raw.SSDP) {
		var rec SSDPRecord
		if err := json.Unmarshal(item, &rec); err == nil {
			d.SSDP = append(d.SSDP, rec)
		}
	}
	for _, item := range elements(raw.OpenPorts) {
		var p OpenPort
		if err := json.Unmarshal(item, &p); err == nil {
			d.OpenPorts = append(d.OpenPorts, p)
		}
	}
	for _, item := range elements(raw.Web) {
		var w WebProbe
		if err := json.Unmarshal(item, &w); err == nil {
			d.Web = append(d.Web, w)
		}
	}
	return nil
}

// UnmarshalJSON decodes an SSDP banner permissively
func (r *SSDPRecord) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("ssdp record is not an object")
	}
	var raw struct {
		Server   flexString `json:"server"`
		ST       flexString `json:"st"`
		Location flexString `json:"location"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = SSDPRecord{Server: string(raw.Server), ST: string(raw.ST), Location: string(raw.Location)}
	return nil
}

// UnmarshalJSON decodes an open port permissively. A bare port number is
// read as TCP.
func (p *OpenPort) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("open port record is not an object")
	}
	var raw struct {
		Port    flexString `json:"port"`
		Service flexString `json:"service"`
		Version flexString `json:"version"`
		Raw     flexString `json:"raw"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = OpenPort{
		Port:    PortKey(string(raw.Port)),
		Service: string(raw.Service),
		Version: string(raw.Version),
		Raw:     string(raw.Raw),
	}
	return nil
}

// PortKey returns the "<port>/<proto>" form of a port value, defaulting the
// protocol to tcp
func PortKey(port string) string {
	port = strings.ToLower(strings.TrimSpace(port))
	if port == "" || strings.Contains(port, "/") {
		return port
	}
	return port + "/tcp"
}

// UnmarshalJSON decodes a web probe result permissively
func (w *WebProbe) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("web probe record is not an object")
	}
	var raw struct {
		URL    flexString `json:"url"`
		Status flexInt    `json:"status"`
		Title  flexString `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = WebProbe{URL: string(raw.URL), Status: int(raw.Status), Title: string(raw.Title)}
	return nil
}

// UnmarshalJSON decodes a snapshot. Device records that are not objects are
// skipped and counted in Dropped.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("snapshot is not an object")
	}
	var raw struct {
		TimestampUTC   flexString      `json:"timestamp_utc"`
		TimestampHuman flexString      `json:"timestamp_human"`
		HostIP         flexString      `json:"host_ip"`
		Subnet         flexString      `json:"subnet"`
		Devices        json.RawMessage `json:"devices"`
		Diff           json.RawMessage `json:"diff"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	*s = Snapshot{
		TimestampUTC:   string(raw.TimestampUTC),
		TimestampHuman: string(raw.TimestampHuman),
		HostIP:         string(raw.HostIP),
		Subnet:         string(raw.Subnet),
		Devices:        []Device{},
	}
	for _, item := range elements(raw.Devices) {
		var d Device
		if err := json.Unmarshal(item, &d); err != nil {
			s.Dropped++
			continue
		}
		s.Devices = append(s.Devices, d)
	}
	if isObject(raw.Diff) {
		var diff struct {
			NewIDs  json.RawMessage `json:"new_ids"`
			GoneIDs json.RawMessage `json:"gone_ids"`
		}
		if err := json.Unmarshal(raw.Diff, &diff); err == nil {
			s.Diff.NewIDs = stringList(diff.NewIDs)
			s.Diff.GoneIDs = stringList(diff.GoneIDs)
		}
	}
	return nil
}

// UnmarshalJSON decodes a history series permissively
func (h *HistorySeries) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("history is not an object")
	}
	var raw struct {
		T         json.RawMessage `json:"t"`
		Devices   json.RawMessage `json:"devices"`
		OpenPorts json.RawMessage `json:"openPorts"`
		Risks     json.RawMessage `json:"risks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}
	*h = HistorySeries{
		T:         stringList(raw.T),
		Devices:   floatList(raw.Devices),
		OpenPorts: floatList(raw.OpenPorts),
		Risks:     floatList(raw.Risks),
	}
	return nil
}

// UnmarshalJSON decodes one stability record permissively
func (s *DeviceStats) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("stats record is not an object")
	}
	var raw struct {
		ID         flexString      `json:"id"`
		Display    flexString      `json:"display"`
		MAC        flexString      `json:"mac"`
		Type       flexString      `json:"type"`
		Vendor     flexString      `json:"vendor"`
		Hostname   flexString      `json:"hostname"`
		SeenHours  flexInt         `json:"seenHours"`
		TotalHours flexInt         `json:"totalHours"`
		Flaps      flexInt         `json:"flaps"`
		UniqueIPs  flexInt         `json:"uniqueIps"`
		IPTail     json.RawMessage `json:"ipTail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DeviceStats{
		ID:         string(raw.ID),
		Display:    string(raw.Display),
		MAC:        string(raw.MAC),
		Type:       string(raw.Type),
		Vendor:     string(raw.Vendor),
		Hostname:   string(raw.Hostname),
		SeenHours:  int(raw.SeenHours),
		TotalHours: int(raw.TotalHours),
		Flaps:      int(raw.Flaps),
		UniqueIPs:  int(raw.UniqueIPs),
		IPTail:     stringList(raw.IPTail),
	}
	return nil
}

// UnmarshalJSON decodes device_stats.json. The devices object is walked
// token by token so the records keep the order they were written in.
func (s *StatsDocument) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("device stats is not an object")
	}
	var raw struct {
		GeneratedAt flexString      `json:"generatedAt"`
		Window      flexInt         `json:"window"`
		Devices     json.RawMessage `json:"devices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode device stats: %w", err)
	}
	*s = StatsDocument{
		GeneratedAt: string(raw.GeneratedAt),
		Window:      int(raw.Window),
		Devices:     []DeviceStats{},
	}
	if !isObject(raw.Devices) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Devices))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read device stats object: %w", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read device stats key: %w", err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to read device stats for %q: %w", key, err)
		}
		var st DeviceStats
		if err := json.Unmarshal(value, &st); err != nil {
			continue
		}
		st.ID = key
		s.Devices = append(s.Devices, st)
	}
	return nil
}

// UnmarshalJSON decodes a lesson permissively
func (l *Lesson) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("lesson is not an object")
	}
	var raw struct {
		ID          flexString      `json:"id"`
		Title       flexString      `json:"title"`
		Summary     flexString      `json:"summary"`
		Level       flexString      `json:"level"`
		Body        json.RawMessage `json:"body"`
		WhatToDoNow json.RawMessage `json:"what_to_do_now"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Lesson{
		ID:          string(raw.ID),
		Title:       string(raw.Title),
		Summary:     string(raw.Summary),
		Level:       string(raw.Level),
		Body:        stringList(raw.Body),
		WhatToDoNow: stringList(raw.WhatToDoNow),
	}
	return nil
}

// UnmarshalJSON decodes lessons.json, skipping entries that are not objects
func (l *LessonsDocument) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return fmt.Errorf("lessons document is not an object")
	}
	var raw struct {
		Lessons json.RawMessage `json:"lessons"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode lessons: %w", err)
	}
	l.Lessons = []Lesson{}
	for _, item := range elements(raw.Lessons) {
		var lesson Lesson
		if err := json.Unmarshal(item, &lesson); err == nil {
			l.Lessons = append(l.Lessons, lesson)
		}
	}
	return nil
}
