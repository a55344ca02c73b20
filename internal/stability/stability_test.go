package stability

import (
	"fmt"
	"testing"

	"netwatch/internal/models"
)

// TestIPColor tests hash determinism and the pastel band
func TestIPColor(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"192.168.1.10", "rgb(246,185,224)"},
		{"192.168.1.11", "rgb(247,185,224)"},
		{"10.0.0.2", "rgb(189,230,233)"},
	}
	for _, tt := range tests {
		if got := IPColor(tt.ip).String(); got != tt.want {
			t.Errorf("IPColor(%q): expected %s, got %s", tt.ip, tt.want, got)
		}
		if IPColor(tt.ip) != IPColor(tt.ip) {
			t.Errorf("IPColor(%q) is not deterministic", tt.ip)
		}
	}
}

func TestIPColorDistribution(t *testing.T) {
	colors := make(map[RGB]int)
	for i := 1; i < 255; i++ {
		c := IPColor(fmt.Sprintf("192.168.1.%d", i))
		if c.R < 160 || c.G < 160 || c.B < 160 {
			t.Fatalf("Color %+v outside pastel band", c)
		}
		colors[c]++
	}
	if len(colors) < 200 {
		t.Errorf("Expected mostly distinct colors, got %d distinct of 254", len(colors))
	}
}

// TestLane tests slot colours, labels and change markers
func TestLane(t *testing.T) {
	tail := []string{"192.168.1.10", "192.168.1.10", "", "192.168.1.10", "192.168.1.11", ""}
	cells := Lane(tail)

	if len(cells) != len(tail) {
		t.Fatalf("Expected %d cells, got %d", len(tail), len(cells))
	}

	wantChanged := []bool{false, false, false, true, true, false}
	for i, c := range cells {
		if c.Changed != wantChanged[i] {
			t.Errorf("Cell %d: expected changed=%v, got %v", i, wantChanged[i], c.Changed)
		}
	}

	if cells[0].Label != "10" || cells[0].Title != "192.168.1.10" || cells[0].Color != "rgb(246,185,224)" {
		t.Errorf("Unexpected first cell: %+v", cells[0])
	}
	off := cells[2]
	if !off.Off || off.Color != OffColor || off.Title != NotSeen || off.Label != "" {
		t.Errorf("Unexpected empty cell: %+v", off)
	}
}

func TestLaneFirstSlot(t *testing.T) {
	cells := Lane([]string{"10.0.0.2"})
	if cells[0].Changed {
		t.Errorf("First slot must not be marked changed")
	}
	if got := Lane(nil); len(got) != 0 {
		t.Errorf("Expected no cells for empty tail, got %d", len(got))
	}
}

// TestLegend tests first-seen order and the overflow count
func TestLegend(t *testing.T) {
	var tail []string
	for i := 10; i > 0; i-- {
		ip := fmt.Sprintf("10.0.0.%d", i)
		tail = append(tail, ip, "", ip)
	}

	l := NewLegend(tail, DefaultLegendLimit)
	if len(l.Entries) != 8 || l.Overflow != 2 {
		t.Fatalf("Expected 8 entries and overflow 2, got %d/%d", len(l.Entries), l.Overflow)
	}
	if l.Entries[0].IP != "10.0.0.10" || l.Entries[0].Label != "10" || l.Entries[7].IP != "10.0.0.3" {
		t.Errorf("Unexpected legend order: %+v", l.Entries)
	}

	small := NewLegend([]string{"", "10.0.0.1"}, DefaultLegendLimit)
	if len(small.Entries) != 1 || small.Overflow != 0 {
		t.Errorf("Unexpected small legend: %+v", small)
	}
}

func testStats() *models.StatsDocument {
	return &models.StatsDocument{Devices: []models.DeviceStats{
		{ID: "a", Display: "A", Flaps: 2, UniqueIPs: 1},
		{ID: "b", Display: "B", Flaps: 7, UniqueIPs: 3},
		{ID: "c", Display: "C", Flaps: 2, UniqueIPs: 3},
		{ID: "d", Display: "D", Flaps: 0, UniqueIPs: 1},
		{ID: "e", Display: "E", Flaps: 2, UniqueIPs: 2},
		{ID: "f", Display: "F", Flaps: 1, UniqueIPs: 5},
		{ID: "g", Display: "G", Flaps: 2, UniqueIPs: 1},
	}}
}

func ids(stats []models.DeviceStats) string {
	out := ""
	for _, s := range stats {
		out += s.ID
	}
	return out
}

// TestTopLists tests ranking with stable ties
func TestTopLists(t *testing.T) {
	doc := testStats()

	if got := ids(MostFlappy(doc, DefaultTopN)); got != "baceg" {
		t.Errorf("Unexpected flappy order: %s", got)
	}
	if got := ids(MostIPChurn(doc, DefaultTopN)); got != "fbcea" {
		t.Errorf("Unexpected churn order: %s", got)
	}
	if doc.Devices[0].ID != "a" {
		t.Errorf("Top lists must not reorder the document")
	}
	if got := MostFlappy(nil, DefaultTopN); len(got) != 0 {
		t.Errorf("Expected empty list without stats, got %v", got)
	}
}

func TestSummary(t *testing.T) {
	s := models.DeviceStats{SeenHours: 40, TotalHours: 48, Flaps: 3, UniqueIPs: 2}
	if got := Summary(s); got != "seen 40/48 • flaps 3 • IPs 2" {
		t.Errorf("Unexpected summary: %q", got)
	}
	if got := Detail(s); got != "seen 40/48\nflaps 3\nunique IPs 2" {
		t.Errorf("Unexpected detail: %q", got)
	}
}
