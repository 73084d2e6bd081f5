package probe

import (
	"context"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

type fakeProber struct {
	result types.ProbeResult
	err    error
	calls  int
}

func (f *fakeProber) Probe(_ context.Context, host netip.Addr, _ time.Duration) (types.ProbeResult, error) {
	f.calls++
	res := f.result
	res.Host = host
	return res, f.err
}

func TestFallbackUsesPrimaryWhenItWorks(t *testing.T) {
	primary := &fakeProber{result: types.ProbeResult{Reachable: true, Proto: "arp", RTT: 5 * time.Millisecond}}
	secondary := &fakeProber{result: types.ProbeResult{Reachable: true, Proto: "icmp"}}
	f := Fallback{Primary: primary, Secondary: secondary}

	host := netip.MustParseAddr("192.168.1.10")
	res, err := f.Probe(context.Background(), host, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Proto != "arp" {
		t.Fatalf("expected primary result, got proto %q", res.Proto)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not run when primary works")
	}
}

func TestFallbackUnreachablePrimaryIsFinal(t *testing.T) {
	primary := &fakeProber{result: types.ProbeResult{Reachable: false, Proto: "arp"}}
	secondary := &fakeProber{result: types.ProbeResult{Reachable: true, Proto: "icmp"}}
	f := Fallback{Primary: primary, Secondary: secondary}

	res, err := f.Probe(context.Background(), netip.MustParseAddr("192.168.1.11"), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reachable {
		t.Fatalf("expected unreachable result")
	}
	if secondary.calls != 0 {
		t.Fatalf("unreachable is data, not a reason to fall back")
	}
}

func TestFallbackSwitchesOnUnsupported(t *testing.T) {
	primary := &fakeProber{err: fmt.Errorf("%w: off-link", ErrUnsupported)}
	secondary := &fakeProber{result: types.ProbeResult{Reachable: true, Proto: "icmp", RTT: 3 * time.Millisecond}}
	f := Fallback{Primary: primary, Secondary: secondary}

	res, err := f.Probe(context.Background(), netip.MustParseAddr("10.0.0.5"), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Proto != "icmp" || !res.Reachable {
		t.Fatalf("expected secondary result, got %+v", res)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestFallbackNoSecondaryPropagatesError(t *testing.T) {
	primary := &fakeProber{err: ErrUnsupported}
	f := Fallback{Primary: primary}

	if _, err := f.Probe(context.Background(), netip.MustParseAddr("10.0.0.6"), time.Second); err == nil {
		t.Fatalf("expected error without a secondary prober")
	}
}
