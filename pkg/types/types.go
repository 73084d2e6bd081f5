package types

import (
	"net/netip"
	"time"
)

// ProbeResult is a single reachability sample for one host. RTT is zero when
// the host did not answer.
type ProbeResult struct {
	Host      netip.Addr    `json:"host"`
	Proto     string        `json:"proto,omitempty"`
	Reachable bool          `json:"reachable"`
	RTT       time.Duration `json:"rtt_ns,omitempty"`
	HWAddr    string        `json:"mac,omitempty"`
	Timestamp time.Time     `json:"ts"`
}

// DeviceRecord is the merged view of one discovered host: the probe outcome
// plus whatever enrichment lookups completed within their budgets. Fields the
// lookups could not fill stay at their zero value.
type DeviceRecord struct {
	Host         netip.Addr    `json:"host"`
	MAC          string        `json:"mac,omitempty"`
	Reachable    bool          `json:"reachable"`
	ResponseTime time.Duration `json:"response_time_ns,omitempty"`
	Hostname     string        `json:"hostname,omitempty"`
	Manufacturer string        `json:"manufacturer,omitempty"`
	WebService   string        `json:"web_service,omitempty"`
	SeenAt       time.Time     `json:"seen_at"`
}
