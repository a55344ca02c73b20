package inventory

import (
	"encoding/json"
	"fmt"
	"testing"

	"netwatch/internal/models"
)

func testDevices() []models.Device {
	return []models.Device{
		{
			ID: "aa:00:00:00:00:01", MAC: "aa:00:00:00:00:01", IP: "192.168.1.20",
			Name: "Living Room TV", Type: "tv", Vendor: "LG Innotek",
			MDNS:         []string{"lgwebostv.local"},
			MDNSServices: []string{"_airplay._tcp"},
			RiskFlags:    []string{"SSH exposed (22)"},
		},
		{
			ID: "aa:00:00:00:00:02", MAC: "aa:00:00:00:00:02", IP: "192.168.1.30",
			Type: "unknown", Vendor: "Espressif",
		},
		{
			ID: "aa:00:00:00:00:03", MAC: "aa:00:00:00:00:03", IP: "192.168.1.2",
			Name: "NAS", Type: "nas", Vendor: "Synology",
			OpenPorts: []models.OpenPort{{Port: "445/tcp"}, {Port: "5000/tcp"}},
			RiskFlags: []string{"SMB exposed (445/139)", "NAS/admin web surface (5000/5001)"},
		},
		{
			ID: "ip:192.168.1.40", IP: "192.168.1.40",
			Hostname: "kitchen-tv.lan", Type: "tv",
			RiskFlags: []string{"Printer port exposed (9100/JetDirect)"},
		},
	}
}

// TestMatchesEmptyFilter tests that the zero filter passes every device
func TestMatchesEmptyFilter(t *testing.T) {
	for _, d := range append(testDevices(), models.Device{}) {
		if !Matches(d, Filter{}) {
			t.Errorf("Empty filter rejected device %q", d.ID)
		}
	}
}

// TestMatchesConjunction tests that type, risk and query are ANDed
func TestMatchesConjunction(t *testing.T) {
	f := Filter{Type: "tv", Risk: RiskRisky, Query: "living"}
	devices := testDevices()

	if !Matches(devices[0], f) {
		t.Errorf("Expected living room TV to match %+v", f)
	}
	// tv and risky but query fails
	if Matches(devices[3], f) {
		t.Errorf("Kitchen TV should not match query 'living'")
	}

	quiet := devices[0]
	quiet.RiskFlags = nil
	if Matches(quiet, f) {
		t.Errorf("Device without flags should not match risky filter")
	}

	other := devices[0]
	other.Type = "client"
	if Matches(other, f) {
		t.Errorf("Client should not match type filter tv")
	}
}

func TestMatchesQuery(t *testing.T) {
	d := testDevices()[0]
	tests := []struct {
		query string
		want  bool
	}{
		{"LIVING", true},
		{"  lg innotek ", true},
		{"lgwebostv", true},
		{"aa:00:00:00:00:01", true},
		{"192.168.1.20", true},
		{"synology", false},
	}
	for _, tt := range tests {
		if got := Matches(d, Filter{Query: tt.query}); got != tt.want {
			t.Errorf("Query %q: expected %v, got %v", tt.query, tt.want, got)
		}
	}
}

// TestMatchesUnsetType tests that an empty type is treated as unknown
func TestMatchesUnsetType(t *testing.T) {
	d := models.Device{ID: "x"}
	if !Matches(d, Filter{Type: "unknown"}) {
		t.Errorf("Expected unset type to match type filter unknown")
	}
	if !Matches(d, Filter{Risk: RiskUnknown}) {
		t.Errorf("Expected unset type to match risk filter unknown")
	}
}

func TestApplyAndTypeOptions(t *testing.T) {
	devices := testDevices()
	got := Apply(devices, Filter{Type: "tv"})
	if len(got) != 2 || got[0].ID != devices[0].ID || got[1].ID != devices[3].ID {
		t.Errorf("Unexpected filter result: %v", got)
	}

	opts := TypeOptions(devices)
	want := []string{"nas", "tv", "unknown"}
	if fmt.Sprint(opts) != fmt.Sprint(want) {
		t.Errorf("Expected type options %v, got %v", want, opts)
	}
}

// TestComputeKPIs tests the headline counters
func TestComputeKPIs(t *testing.T) {
	devices := testDevices()
	k := ComputeKPIs(devices, devices[:1])

	if k.Total != 4 || k.Filtered != 1 {
		t.Errorf("Expected total 4 filtered 1, got %d/%d", k.Total, k.Filtered)
	}
	if k.Unnamed != 2 {
		t.Errorf("Expected 2 unnamed, got %d", k.Unnamed)
	}
	if k.UnknownType != 1 {
		t.Errorf("Expected 1 unknown, got %d", k.UnknownType)
	}
	// espressif and kitchen tv have no services, ssdp or ports
	if k.WeakIdentity != 2 {
		t.Errorf("Expected 2 weak identity, got %d", k.WeakIdentity)
	}
	if k.OpenPorts != 2 || k.OpenPortHosts != 1 || k.RiskFlags != 4 {
		t.Errorf("Unexpected exposure counters: %+v", k)
	}
}

// TestWeakIdentityIgnoresWeb tests that web probes do not establish identity
// while still counting toward queue score
func TestWeakIdentityIgnoresWeb(t *testing.T) {
	d := models.Device{Web: []models.WebProbe{{URL: "http://10.0.0.9/", Status: 200}}}
	if !IsWeakIdentity(d) {
		t.Errorf("Expected web-only device to have weak identity")
	}
	if SignalRichness(d) != 1 {
		t.Errorf("Expected web probe to score 1, got %d", SignalRichness(d))
	}
}

func TestComputeDiff(t *testing.T) {
	s := models.Snapshot{Diff: models.Diff{NewIDs: []string{"a", "b"}, GoneIDs: []string{"c"}}}
	got := ComputeDiff(s)
	if got.New != 2 || got.Gone != 1 {
		t.Errorf("Expected 2 new 1 gone, got %+v", got)
	}
}

// TestTypeDistribution tests ordering, tie-break and widths
func TestTypeDistribution(t *testing.T) {
	devices := []models.Device{
		{ID: "1", Type: "iot"},
		{ID: "2", Type: "tv"},
		{ID: "3"},
		{ID: "4", Type: "tv"},
		{ID: "5", Type: "iot"},
		{ID: "6", Type: "printer"},
	}

	dist := TypeDistribution(devices)
	if len(dist) != 4 {
		t.Fatalf("Expected 4 groups, got %d", len(dist))
	}
	order := []string{"iot", "tv", "unknown", "printer"}
	for i, want := range order {
		if dist[i].Type != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, dist[i].Type)
		}
	}
	if dist[0].Count != 2 || dist[0].Width != 2.0/6.0 {
		t.Errorf("Unexpected first segment: %+v", dist[0])
	}

	if got := TypeDistribution(nil); len(got) != 0 {
		t.Errorf("Expected empty distribution, got %v", got)
	}
}

// TestRiskRankingStable tests that ties keep snapshot order
func TestRiskRankingStable(t *testing.T) {
	devices := []models.Device{
		{ID: "a", RiskFlags: []string{"x"}},
		{ID: "b"},
		{ID: "c", RiskFlags: []string{"x", "y"}},
		{ID: "d", RiskFlags: []string{"x"}},
		{ID: "e", RiskFlags: []string{"x"}},
	}

	got := RiskRanking(devices, DefaultRiskLimit)
	want := []string{"c", "a", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d ranked devices, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	if got := RiskRanking(devices, 2); len(got) != 2 {
		t.Errorf("Expected truncation to 2, got %d", len(got))
	}
}

func TestRiskRankingLimit(t *testing.T) {
	var devices []models.Device
	for i := 0; i < 20; i++ {
		devices = append(devices, models.Device{ID: fmt.Sprintf("d%02d", i), RiskFlags: []string{"f"}})
	}
	got := RiskRanking(devices, DefaultRiskLimit)
	if len(got) != 12 {
		t.Errorf("Expected 12 devices, got %d", len(got))
	}
	if got[0].ID != "d00" || got[11].ID != "d11" {
		t.Errorf("Expected snapshot order to be kept, got %s..%s", got[0].ID, got[11].ID)
	}
}

// TestGroupInventory tests canonical group order and in-group sorting
func TestGroupInventory(t *testing.T) {
	devices := []models.Device{
		{ID: "1", Type: "zigbee", Name: "Hub"},
		{ID: "2", Type: "tv", Name: "Bedroom"},
		{ID: "3", Type: "camera", Name: "Porch"},
		{ID: "4", Type: "gateway", Name: "Router"},
		{ID: "5", Type: "tv", Name: "Attic", RiskFlags: []string{"a"}},
		{ID: "6", Type: "tv", Name: "Attic", RiskFlags: []string{"a", "b"}},
		{ID: "7", Name: "Thing"},
	}

	groups := GroupInventory(devices)
	order := []string{"gateway", "tv", "unknown", "camera", "zigbee"}
	if len(groups) != len(order) {
		t.Fatalf("Expected %d groups, got %d", len(order), len(groups))
	}
	for i, want := range order {
		if groups[i].Type != want {
			t.Errorf("Group %d: expected %s, got %s", i, want, groups[i].Type)
		}
	}

	tv := groups[1].Devices
	ids := []string{tv[0].ID, tv[1].ID, tv[2].ID}
	if fmt.Sprint(ids) != "[6 5 2]" {
		t.Errorf("Unexpected tv order: %v", ids)
	}
}

// TestClassificationQueue tests selection, scoring order and snippets
func TestClassificationQueue(t *testing.T) {
	devices := []models.Device{
		{ID: "named", MAC: "aa:aa:aa:aa:aa:01", Name: "Known", Type: "tv"},
		{ID: "weak", MAC: "aa:aa:aa:aa:aa:02", Type: "unknown", Vendor: "Tuya"},
		{ID: "rich", MAC: "aa:aa:aa:aa:aa:03", Type: "unknown",
			MDNSServices: []string{"_googlecast._tcp"},
			OpenPorts:    []models.OpenPort{{Port: "8009/tcp"}, {Port: "8008/tcp"}},
			Web:          []models.WebProbe{{URL: "http://x"}},
		},
		{ID: "unnamed-typed", Type: "printer", Hostname: "brother.lan", OpenPorts: []models.OpenPort{{Port: "9100/tcp"}}},
	}

	q := ClassificationQueue(devices, DefaultQueueLimit)
	if q.Size != 3 || len(q.Entries) != 3 {
		t.Fatalf("Expected 3 queued devices, got size %d entries %d", q.Size, len(q.Entries))
	}
	if q.Entries[0].Device.ID != "rich" || q.Entries[0].Score != 4 {
		t.Errorf("Expected rich device first with score 4, got %s/%d", q.Entries[0].Device.ID, q.Entries[0].Score)
	}
	if q.Entries[0].Suggestion.Type != "tv" {
		t.Errorf("Expected tv suggestion, got %+v", q.Entries[0].Suggestion)
	}
	if q.Entries[1].Device.ID != "unnamed-typed" || q.Entries[2].Device.ID != "weak" {
		t.Errorf("Unexpected queue order: %s, %s", q.Entries[1].Device.ID, q.Entries[2].Device.ID)
	}

	// no MAC: snippet keyed by id
	snip := q.Entries[1].Snippet
	if snip.Types["unnamed-typed"] != "printer" || snip.Names["unnamed-typed"] != "brother.lan" {
		t.Errorf("Unexpected snippet: %+v", snip)
	}

	truncated := ClassificationQueue(devices, 1)
	if truncated.Size != 3 || len(truncated.Entries) != 1 {
		t.Errorf("Expected size 3 with 1 entry, got %d/%d", truncated.Size, len(truncated.Entries))
	}
}

// TestOverrideSnippet tests the exact overrides document shape
func TestOverrideSnippet(t *testing.T) {
	d := models.Device{ID: "dev-1", MAC: "aa:bb:cc:dd:ee:ff", Name: "", Type: "unknown", Vendor: "Kitchen Plug"}

	snip := NewOverrideSnippet(d, "unknown")
	data, err := json.Marshal(snip)
	if err != nil {
		t.Fatalf("Failed to marshal snippet: %v", err)
	}

	want := `{"types":{"aa:bb:cc:dd:ee:ff":"unknown"},"names":{"aa:bb:cc:dd:ee:ff":"Kitchen Plug"}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, string(data))
	}

	text := snip.Text()
	wantText := "{\n  \"types\": {\n    \"aa:bb:cc:dd:ee:ff\": \"unknown\"\n  },\n  \"names\": {\n    \"aa:bb:cc:dd:ee:ff\": \"Kitchen Plug\"\n  }\n}"
	if text != wantText {
		t.Errorf("Unexpected snippet text:\n%s", text)
	}

	o := snip.Overrides()
	if o.Types["aa:bb:cc:dd:ee:ff"] != "unknown" || o.Names["aa:bb:cc:dd:ee:ff"] != "Kitchen Plug" {
		t.Errorf("Unexpected overrides conversion: %+v", o)
	}
}

func TestProposedName(t *testing.T) {
	if got := ProposedName(models.Device{Name: "Alias", Hostname: "h"}); got != "Alias" {
		t.Errorf("Expected alias, got %q", got)
	}
	if got := ProposedName(models.Device{MDNS: []string{"m.local"}, Hostname: "h"}); got != "m.local" {
		t.Errorf("Expected mDNS label, got %q", got)
	}
	if got := ProposedName(models.Device{MAC: "aa"}); got != "aa" {
		t.Errorf("Expected override key fallback, got %q", got)
	}
	if got := ProposedName(models.Device{Name: "   ", Hostname: "printer"}); got != "printer" {
		t.Errorf("Expected hostname for a whitespace alias, got %q", got)
	}
	if got := ProposedName(models.Device{Name: " ", Vendor: " ", MAC: "aa"}); got != "aa" {
		t.Errorf("Expected override key for blank labels, got %q", got)
	}
}
