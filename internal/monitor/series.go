package monitor

import (
	"sync"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// Series is the fixed-capacity rolling history for one monitored host.
// Appends come only from that host's monitor loop; snapshots may come from
// any goroutine.
type Series struct {
	mu       sync.Mutex
	capacity int
	buf      []types.ProbeResult
	start    int
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 1
	}
	return &Series{capacity: capacity}
}

func (s *Series) Append(r types.ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.capacity {
		s.buf = append(s.buf, r)
		return
	}
	s.buf[s.start] = r
	s.start = (s.start + 1) % s.capacity
}

// Snapshot copies the history, oldest first.
func (s *Series) Snapshot() []types.ProbeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ProbeResult, len(s.buf))
	for i := range s.buf {
		out[i] = s.buf[(s.start+i)%len(s.buf)]
	}
	return out
}

func (s *Series) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *Series) Capacity() int {
	return s.capacity
}
