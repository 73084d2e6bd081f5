package queue

import (
	"net/netip"
	"testing"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

func sampleResult(last byte) types.ProbeResult {
	return types.ProbeResult{
		Host:      netip.AddrFrom4([4]byte{192, 168, 1, last}),
		Reachable: true,
		Timestamp: time.Now().UTC(),
	}
}

func TestResultQueueEnqueueAndDrain(t *testing.T) {
	q := NewResultQueue(2)

	if dropped := q.Enqueue(sampleResult(1)); dropped {
		t.Fatalf("did not expect drop for first enqueue")
	}
	if dropped := q.Enqueue(sampleResult(2)); dropped {
		t.Fatalf("did not expect drop for second enqueue")
	}
	if dropped := q.Enqueue(sampleResult(3)); !dropped {
		t.Fatalf("expected drop when queue full")
	}

	if got := q.Len(); got != 2 {
		t.Fatalf("expected len 2 got %d", got)
	}

	drained := q.Drain(0)
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained results got %d", len(drained))
	}
	if drained[0].Host.As4()[3] != 2 || drained[1].Host.As4()[3] != 3 {
		t.Fatalf("expected drop-oldest semantics, got %+v", drained)
	}

	if got := q.Len(); got != 0 {
		t.Fatalf("expected len 0 after drain got %d", got)
	}
}

func TestResultQueueDrainMax(t *testing.T) {
	q := NewResultQueue(8)
	for i := byte(1); i <= 5; i++ {
		q.Enqueue(sampleResult(i))
	}

	first := q.Drain(3)
	if len(first) != 3 {
		t.Fatalf("expected 3 drained got %d", len(first))
	}
	rest := q.Drain(0)
	if len(rest) != 2 {
		t.Fatalf("expected 2 remaining got %d", len(rest))
	}
	if rest[0].Host.As4()[3] != 4 {
		t.Fatalf("expected FIFO order preserved across partial drains")
	}
}

type captureRecorder struct {
	events []types.Event
}

func (c *captureRecorder) Record(ev types.Event) {
	c.events = append(c.events, ev)
}

type captureMetrics struct {
	depth int
	drops int
}

func (c *captureMetrics) ObserveQueueDepth(depth int) { c.depth = depth }
func (c *captureMetrics) IncQueueDrops()              { c.drops++ }

func TestResultQueueRecordsDrops(t *testing.T) {
	recorder := &captureRecorder{}
	m := &captureMetrics{}
	q := NewResultQueue(1)
	q.SetEventRecorder(recorder)
	q.SetMetricsRecorder(m)

	q.Enqueue(sampleResult(1))
	q.Enqueue(sampleResult(2))

	if len(recorder.events) != 1 || recorder.events[0].Type != types.EventQueueDrop {
		t.Fatalf("expected one QueueDrop event, got %+v", recorder.events)
	}
	if recorder.events[0].Host != "192.168.1.1" {
		t.Fatalf("expected dropped host recorded, got %q", recorder.events[0].Host)
	}
	if m.drops != 1 || m.depth != 1 {
		t.Fatalf("expected drop and depth recorded, got drops=%d depth=%d", m.drops, m.depth)
	}

	stats := q.Stats()
	if stats.Dropped != 1 || stats.Len != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
