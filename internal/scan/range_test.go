package scan

import (
	"errors"
	"net/netip"
	"testing"
)

func TestExpandRangeCIDR(t *testing.T) {
	hosts, err := ExpandRange("192.168.1.0/30", 0)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	want := []string{"192.168.1.1", "192.168.1.2"}
	if len(hosts) != len(want) {
		t.Fatalf("expected %d hosts got %d: %v", len(want), len(hosts), hosts)
	}
	for i, w := range want {
		if hosts[i] != netip.MustParseAddr(w) {
			t.Fatalf("host[%d] = %s, want %s", i, hosts[i], w)
		}
	}
}

func TestExpandRangeSlash31KeepsBothAddresses(t *testing.T) {
	hosts, err := ExpandRange("10.0.0.0/31", 0)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("expected 2 hosts for /31, got %d", len(hosts))
	}
}

func TestExpandRangeSlash24Count(t *testing.T) {
	hosts, err := ExpandRange("172.16.5.0/24", 4096)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if len(hosts) != 254 {
		t.Fatalf("expected 254 usable hosts, got %d", len(hosts))
	}
	if hosts[0] != netip.MustParseAddr("172.16.5.1") || hosts[253] != netip.MustParseAddr("172.16.5.254") {
		t.Fatalf("unexpected edge hosts %s..%s", hosts[0], hosts[253])
	}
}

func TestExpandRangeHostList(t *testing.T) {
	hosts, err := ExpandRange("10.0.0.5, 10.0.0.9,10.0.0.5", 0)
	if err != nil {
		t.Fatalf("ExpandRange: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("expected duplicates removed, got %v", hosts)
	}
	if hosts[0] != netip.MustParseAddr("10.0.0.5") || hosts[1] != netip.MustParseAddr("10.0.0.9") {
		t.Fatalf("expected order preserved, got %v", hosts)
	}
}

func TestExpandRangeInvalid(t *testing.T) {
	for _, s := range []string{"not-an-ip", "", "10.0.0.0/33", "10.0.0.1,banana", "  ,  "} {
		if _, err := ExpandRange(s, 0); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("ExpandRange(%q) error = %v, want ErrInvalidRange", s, err)
		}
	}
}

func TestExpandRangeCeiling(t *testing.T) {
	if _, err := ExpandRange("10.0.0.0/16", 4096); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ceiling violation to be ErrInvalidRange, got %v", err)
	}
	if _, err := ExpandRange("10.0.0.0/8", 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected /8 rejected even without ceiling, got %v", err)
	}
}
