package classify

import "netwatch/internal/models"

// SignalKind names the kind of signal a rule inspects
type SignalKind string

// Signal kinds, in tier order
const (
	KindService SignalKind = "mdns-service"
	KindSSDP    SignalKind = "ssdp"
	KindHost    SignalKind = "hostname"
	KindPort    SignalKind = "tcp-port"
	KindDefault SignalKind = "default"
)

// Rule is one row of the classification table
type Rule struct {
	Tier    int
	Kind    SignalKind
	Needles []string
	Type    string
	Reason  string
}

// Suggestion is the classifier's answer for one device
type Suggestion struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Tier   int    `json:"tier"`
	Signal string `json:"signal,omitempty"`
}

// ReasonInsufficient is reported when no rule matched
const ReasonInsufficient = "insufficient signal"

// rules is evaluated top to bottom; the first matching row wins and inside a
// row the first listed needle wins.
var rules = []Rule{
	{1, KindService, []string{"_googlecast._tcp"}, "tv", "mDNS: _googlecast._tcp"},
	{1, KindService, []string{"_airplay._tcp", "_raop._tcp"}, "tv", "mDNS: AirPlay/RAOP"},
	{1, KindService, []string{"_hap._tcp"}, "iot", "mDNS: HomeKit (_hap._tcp)"},
	{1, KindService, []string{"_ipp._tcp", "_printer._tcp", "_pdl-datastream._tcp"}, "printer", "mDNS: printer service"},

	{2, KindSSDP, []string{"synology", "diskstation", "dsm"}, "nas", "SSDP: Synology/DSM"},
	{2, KindSSDP, []string{"roku", "chromecast", "webos", "dlna"}, "tv", "SSDP: media/TV signature"},
	{2, KindSSDP, []string{"printer", "epson", "hp"}, "printer", "SSDP: printer signature"},

	{3, KindHost, []string{"webos", "tv", "chromecast", "apple.tv"}, "tv", "hostname hint"},
	{3, KindHost, []string{"vacuum", "roborock", "dyson", "thermostat"}, "iot", "hostname hint"},

	{4, KindPort, []string{"445/tcp", "139/tcp", "5000/tcp", "5001/tcp"}, "server", "server/NAS port pattern"},
	{4, KindPort, []string{"9100/tcp", "631/tcp"}, "printer", "printing ports"},
	{4, KindPort, []string{"8008/tcp", "8009/tcp", "8443/tcp"}, "tv", "cast/TV port pattern"},
}

// Rules returns a copy of the classification table
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Needles = append([]string(nil), r.Needles...)
		out[i] = r
	}
	return out
}

// Classify suggests a type for the device. It is deterministic and never
// modifies the device.
func Classify(d models.Device) Suggestion {
	return ClassifySignals(ExtractSignals(d))
}

// ClassifySignals applies the rule table to already extracted signals
func ClassifySignals(sig Signals) Suggestion {
	for _, r := range rules {
		if needle, ok := r.match(sig); ok {
			return Suggestion{Type: r.Type, Reason: r.Reason, Tier: r.Tier, Signal: needle}
		}
	}
	return Suggestion{Type: models.TypeUnknown, Reason: ReasonInsufficient, Tier: 5}
}

func (r Rule) match(sig Signals) (string, bool) {
	var has func(string) bool
	switch r.Kind {
	case KindService:
		has = sig.HasService
	case KindSSDP:
		has = sig.HasSSDP
	case KindHost:
		has = sig.HasHost
	case KindPort:
		has = sig.HasPort
	default:
		return "", false
	}
	for _, needle := range r.Needles {
		if has(needle) {
			return needle, true
		}
	}
	return "", false
}
