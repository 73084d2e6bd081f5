package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

type Recorder interface {
	Record(event types.Event)
}

type NoopRecorder struct{}

func (NoopRecorder) Record(event types.Event) {}

type Multi struct {
	recorders []Recorder
}

func NewMulti(recorders ...Recorder) Multi {
	return Multi{recorders: recorders}
}

func (m Multi) Record(event types.Event) {
	for _, rec := range m.recorders {
		if rec != nil {
			rec.Record(event)
		}
	}
}

// LogRecorder mirrors every event into the process log at debug level, up/down
// transitions at info.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (r LogRecorder) Record(event types.Event) {
	ev := r.Logger.Debug()
	if event.Type == types.EventDeviceUp || event.Type == types.EventDeviceDown {
		ev = r.Logger.Info()
	}
	ev.Str("event", string(event.Type)).
		Str("host", event.Host).
		Str("scan_id", event.ScanID).
		Time("at", event.Timestamp).
		Msg("event")
}

// Buffer retains the most recent events for the API to serve. Oldest entries
// are evicted once capacity is reached.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	items    []types.Event
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{capacity: capacity}
}

func (b *Buffer) Record(event types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.capacity {
		b.items = b.items[1:]
	}
	b.items = append(b.items, event)
}

// Recent returns up to max events, newest last. max <= 0 means all retained.
func (b *Buffer) Recent(max int) []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.items)
	if max > 0 && max < n {
		n = max
	}
	out := make([]types.Event, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}
