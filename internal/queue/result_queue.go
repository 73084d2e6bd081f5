package queue

import (
	"sync"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/internal/events"
	"github.com/ne0fr0stbb/IT-Assistant/internal/metrics"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// ResultQueue is the thread-safe hand-off between probe workers and whatever
// single loop drains samples for presentation. Overflow drops the oldest
// sample so live data keeps flowing.
type ResultQueue struct {
	mu       sync.Mutex
	capacity int
	items    []types.ProbeResult
	dropped  uint64
	events   events.Recorder
	metrics  metrics.QueueRecorder
}

func NewResultQueue(capacity int) *ResultQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &ResultQueue{
		capacity: capacity,
		items:    make([]types.ProbeResult, 0, capacity),
	}
}

func (q *ResultQueue) SetEventRecorder(rec events.Recorder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = rec
}

func (q *ResultQueue) SetMetricsRecorder(rec metrics.QueueRecorder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.metrics = rec
}

func (q *ResultQueue) Enqueue(result types.ProbeResult) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		removed := q.items[0]
		q.items = q.items[1:]
		dropped = true
		q.dropped++
		q.recordDrop(removed)
	}

	q.items = append(q.items, result)
	q.observeDepthLocked()
	return dropped
}

func (q *ResultQueue) Drain(max int) []types.ProbeResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if max > 0 && max < n {
		n = max
	}
	drained := make([]types.ProbeResult, n)
	copy(drained, q.items[:n])
	q.items = q.items[n:]
	q.observeDepthLocked()
	return drained
}

func (q *ResultQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type Stats struct {
	Len     int
	Dropped uint64
}

func (q *ResultQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:     len(q.items),
		Dropped: q.dropped,
	}
}

func (q *ResultQueue) recordDrop(removed types.ProbeResult) {
	if q.events != nil {
		q.events.Record(types.Event{
			Type:      types.EventQueueDrop,
			Timestamp: time.Now().UTC(),
			Host:      removed.Host.String(),
		})
	}
	if q.metrics != nil {
		q.metrics.IncQueueDrops()
	}
}

func (q *ResultQueue) observeDepthLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.ObserveQueueDepth(len(q.items))
}
