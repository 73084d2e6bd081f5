package scan

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/internal/enrich"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// scriptedProber answers from a fixed reachability map and records which
// hosts were probed.
type scriptedProber struct {
	mu     sync.Mutex
	up     map[string]time.Duration
	probed map[string]int
	delay  time.Duration
}

func newScriptedProber(up map[string]time.Duration) *scriptedProber {
	return &scriptedProber{up: up, probed: make(map[string]int)}
}

func (p *scriptedProber) Probe(ctx context.Context, host netip.Addr, _ time.Duration) (types.ProbeResult, error) {
	p.mu.Lock()
	p.probed[host.String()]++
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
		}
	}
	res := types.ProbeResult{Host: host, Proto: "icmp", Timestamp: time.Now().UTC()}
	if rtt, ok := p.up[host.String()]; ok {
		res.Reachable = true
		res.RTT = rtt
	}
	return res, nil
}

type staticEnricher struct {
	enrichment enrich.Enrichment
	calls      int
	mu         sync.Mutex
}

func (e *staticEnricher) Enrich(_ context.Context, _ netip.Addr, _ string) enrich.Enrichment {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return e.enrichment
}

func scanConfig() config.ScanConfig {
	cfg := config.Default().Scan
	cfg.HostTimeout = 50 * time.Millisecond
	return cfg
}

func drainScan(t *testing.T, updates <-chan Update) (devices []types.DeviceRecord, progress []Progress) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return devices, progress
			}
			if u.Device != nil {
				devices = append(devices, *u.Device)
			}
			if u.Progress != nil {
				progress = append(progress, *u.Progress)
			}
		case <-timeout:
			t.Fatalf("scan did not finish in time")
		}
	}
}

func TestScanEmitsOnlyReachableHosts(t *testing.T) {
	prober := newScriptedProber(map[string]time.Duration{
		"192.168.1.1": 5 * time.Millisecond,
	})
	enricher := &staticEnricher{enrichment: enrich.Enrichment{Hostname: "gw.lan", Manufacturer: "Acme"}}
	c := NewCoordinator(scanConfig(), prober, enricher)

	updates, err := c.Scan(context.Background(), "192.168.1.0/30")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	devices, progress := drainScan(t, updates)

	if len(devices) != 1 {
		t.Fatalf("expected exactly one device, got %d", len(devices))
	}
	d := devices[0]
	if d.Host != netip.MustParseAddr("192.168.1.1") || !d.Reachable {
		t.Fatalf("unexpected device %+v", d)
	}
	if d.ResponseTime != 5*time.Millisecond {
		t.Fatalf("expected probe rtt carried over, got %s", d.ResponseTime)
	}
	if d.Hostname != "gw.lan" || d.Manufacturer != "Acme" {
		t.Fatalf("expected enrichment merged, got %+v", d)
	}

	if len(progress) == 0 {
		t.Fatalf("expected progress updates")
	}
	terminal := 0
	for _, p := range progress {
		if p.Percent == 100 {
			terminal++
			if p.Done != 2 || p.Total != 2 {
				t.Fatalf("unexpected terminal progress %+v", p)
			}
		}
	}
	if terminal != 1 {
		t.Fatalf("expected exactly one terminal progress update, got %d", terminal)
	}
}

func TestScanProbesExactHostSet(t *testing.T) {
	prober := newScriptedProber(nil)
	c := NewCoordinator(scanConfig(), prober, nil)

	updates, err := c.Scan(context.Background(), "192.168.1.0/29")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	drainScan(t, updates)

	prober.mu.Lock()
	defer prober.mu.Unlock()
	if len(prober.probed) != 6 {
		t.Fatalf("expected 6 hosts probed for /29, got %d", len(prober.probed))
	}
	for host, n := range prober.probed {
		if n != 1 {
			t.Fatalf("host %s probed %d times", host, n)
		}
	}
}

func TestScanInvalidRangeProbesNothing(t *testing.T) {
	prober := newScriptedProber(nil)
	c := NewCoordinator(scanConfig(), prober, nil)

	if _, err := c.Scan(context.Background(), "not-an-ip"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if len(prober.probed) != 0 {
		t.Fatalf("no host tasks should be dispatched for an invalid range")
	}
}

func TestScanDownMarkersCarryNoEnrichment(t *testing.T) {
	cfg := scanConfig()
	cfg.EmitDown = true
	prober := newScriptedProber(nil)
	enricher := &staticEnricher{enrichment: enrich.Enrichment{Hostname: "should-not-appear"}}
	c := NewCoordinator(cfg, prober, enricher)

	updates, err := c.Scan(context.Background(), "10.0.0.1,10.0.0.2")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	devices, _ := drainScan(t, updates)

	if len(devices) != 2 {
		t.Fatalf("expected down markers for both hosts, got %d", len(devices))
	}
	for _, d := range devices {
		if d.Reachable {
			t.Fatalf("expected down marker, got %+v", d)
		}
		if d.Hostname != "" || d.Manufacturer != "" || d.WebService != "" || d.ResponseTime != 0 {
			t.Fatalf("down marker must not carry enrichment: %+v", d)
		}
	}
	if enricher.calls != 0 {
		t.Fatalf("enrichment must not run for unreachable hosts")
	}
}

func TestScanCancellationClosesStream(t *testing.T) {
	prober := newScriptedProber(nil)
	prober.delay = 50 * time.Millisecond
	cfg := scanConfig()
	cfg.Concurrency = 2
	c := NewCoordinator(cfg, prober, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := c.Scan(ctx, "192.168.0.0/26")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("update stream not closed after cancellation")
		}
	}
}
