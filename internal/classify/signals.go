// Package classify suggests a device type from the identity signals a device
// advertises: mDNS services, SSDP banners, hostnames and open ports.
package classify

import (
	"strings"

	"netwatch/internal/models"
)

// Signals holds the lower-cased, comparable form of a device's raw signals
type Signals struct {
	Services []string
	SSDP     []string
	Host     string
	Ports    map[string]bool
}

// ExtractSignals normalizes the signal fields of a device. It never fails;
// absent fields yield empty signals.
func ExtractSignals(d models.Device) Signals {
	sig := Signals{
		Services: make([]string, 0, len(d.MDNSServices)),
		SSDP:     make([]string, 0, len(d.SSDP)),
		Ports:    make(map[string]bool, len(d.OpenPorts)),
	}

	for _, svc := range d.MDNSServices {
		sig.Services = append(sig.Services, strings.ToLower(svc))
	}

	for _, rec := range d.SSDP {
		sig.SSDP = append(sig.SSDP, strings.ToLower(rec.Server+" "+rec.ST+" "+rec.Location))
	}

	host := make([]string, 0, len(d.MDNS)+1)
	host = append(host, d.Hostname)
	host = append(host, d.MDNS...)
	sig.Host = strings.ToLower(strings.Join(host, " "))

	for _, p := range d.OpenPorts {
		if key := models.PortKey(p.Port); key != "" {
			sig.Ports[key] = true
		}
	}

	return sig
}

// HasService reports whether any mDNS service contains needle
func (s Signals) HasService(needle string) bool {
	return anyContains(s.Services, needle)
}

// HasSSDP reports whether any SSDP banner contains needle
func (s Signals) HasSSDP(needle string) bool {
	return anyContains(s.SSDP, needle)
}

// HasHost reports whether the hostname text contains needle
func (s Signals) HasHost(needle string) bool {
	return strings.Contains(s.Host, needle)
}

// HasPort reports whether the "<port>/<proto>" key is open
func (s Signals) HasPort(key string) bool {
	return s.Ports[key]
}

func anyContains(list []string, needle string) bool {
	for _, item := range list {
		if strings.Contains(item, needle) {
			return true
		}
	}
	return false
}
