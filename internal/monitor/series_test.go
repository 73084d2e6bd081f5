package monitor

import (
	"testing"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

func TestSeriesNeverExceedsCapacity(t *testing.T) {
	s := NewSeries(3)
	for i := 0; i < 10; i++ {
		s.Append(types.ProbeResult{RTT: time.Duration(i)})
		if s.Len() > 3 {
			t.Fatalf("series grew past capacity: %d", s.Len())
		}
	}
	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 samples got %d", len(snap))
	}
	for i, want := range []time.Duration{7, 8, 9} {
		if snap[i].RTT != want {
			t.Fatalf("snap[%d] = %d, want %d", i, snap[i].RTT, want)
		}
	}
}

func TestSeriesPartialFill(t *testing.T) {
	s := NewSeries(5)
	s.Append(types.ProbeResult{RTT: 1})
	s.Append(types.ProbeResult{RTT: 2})
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].RTT != 1 || snap[1].RTT != 2 {
		t.Fatalf("unexpected snapshot %v", snap)
	}
}

func TestSeriesZeroCapacityClamped(t *testing.T) {
	s := NewSeries(0)
	s.Append(types.ProbeResult{RTT: 1})
	s.Append(types.ProbeResult{RTT: 2})
	if s.Len() != 1 {
		t.Fatalf("expected capacity clamp to 1, len %d", s.Len())
	}
	if snap := s.Snapshot(); snap[0].RTT != 2 {
		t.Fatalf("expected newest retained, got %v", snap)
	}
}
