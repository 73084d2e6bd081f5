package monitor

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/internal/events"
	"github.com/ne0fr0stbb/IT-Assistant/internal/metrics"
	"github.com/ne0fr0stbb/IT-Assistant/internal/probe"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

var (
	// ErrResourceExhausted means the configured monitor cap is reached; only
	// the host being started is affected.
	ErrResourceExhausted = errors.New("monitor limit reached")
	ErrNotMonitored      = errors.New("host is not monitored")
	ErrClosed            = errors.New("monitor is shut down")
)

// Sink receives every sample from every monitored host. Enqueue must be
// safe for concurrent producers.
type Sink interface {
	Enqueue(types.ProbeResult) bool
}

// Monitor runs one independent probe loop per watched host. Each loop owns
// its Series; the only structures shared between hosts are the sink and the
// event recorder.
type Monitor struct {
	cfg     config.MonitorConfig
	prober  probe.Prober
	sink    Sink
	log     zerolog.Logger
	events  events.Recorder
	metrics metrics.MonitorRecorder

	mu      sync.Mutex
	entries map[netip.Addr]*entry
	closed  bool
}

type entry struct {
	series *Series
	cancel context.CancelFunc
	done   chan struct{}
	subs   []chan types.ProbeResult

	// touched only by the entry's own loop
	downRecorded bool
	downStreak   int
}

type Option func(*Monitor)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Monitor) {
		m.log = log
	}
}

func WithEventRecorder(rec events.Recorder) Option {
	return func(m *Monitor) {
		if rec != nil {
			m.events = rec
		}
	}
}

func WithMetricsRecorder(rec metrics.MonitorRecorder) Option {
	return func(m *Monitor) {
		if rec != nil {
			m.metrics = rec
		}
	}
}

func New(cfg config.MonitorConfig, prober probe.Prober, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:     cfg,
		prober:  prober,
		sink:    sink,
		log:     zerolog.Nop(),
		events:  events.NoopRecorder{},
		metrics: metrics.NoopMonitorRecorder{},
		entries: make(map[netip.Addr]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins monitoring host. interval and capacity fall back to the
// configured defaults when <= 0. Starting an already-monitored host restarts
// it with fresh history.
func (m *Monitor) Start(host netip.Addr, interval time.Duration, capacity int) error {
	if !host.IsValid() {
		return errors.New("invalid host address")
	}
	if interval <= 0 {
		interval = m.cfg.Interval
	}
	if capacity <= 0 {
		capacity = m.cfg.Capacity
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	old, replacing := m.entries[host]
	if !replacing && m.cfg.MaxMonitors > 0 && len(m.entries) >= m.cfg.MaxMonitors {
		m.mu.Unlock()
		return ErrResourceExhausted
	}
	if replacing {
		m.stopEntryLocked(host, old)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		series: NewSeries(capacity),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.entries[host] = e
	active := len(m.entries)
	m.mu.Unlock()

	m.metrics.ObserveActiveMonitors(active)
	m.events.Record(types.Event{
		Type:      types.EventMonitorStarted,
		Timestamp: time.Now().UTC(),
		Host:      host.String(),
		Details:   map[string]any{"interval": interval.String(), "capacity": capacity},
	})
	m.log.Info().Stringer("host", host).Dur("interval", interval).Msg("monitor started")

	go m.loop(ctx, host, e, interval)
	return nil
}

// Stop halts monitoring for host and discards its history. Stopping a host
// that is not monitored is a no-op.
func (m *Monitor) Stop(host netip.Addr) {
	m.mu.Lock()
	e, ok := m.entries[host]
	if ok {
		m.stopEntryLocked(host, e)
	}
	active := len(m.entries)
	m.mu.Unlock()

	if ok {
		m.metrics.ObserveActiveMonitors(active)
		<-e.done
	}
}

// StopAll halts every monitor and waits for their loops to exit.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	stopped := make([]*entry, 0, len(m.entries))
	for host, e := range m.entries {
		m.stopEntryLocked(host, e)
		stopped = append(stopped, e)
	}
	m.mu.Unlock()

	m.metrics.ObserveActiveMonitors(0)
	for _, e := range stopped {
		<-e.done
	}
}

// Close is StopAll plus refusal of any further Start.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.StopAll()
}

func (m *Monitor) stopEntryLocked(host netip.Addr, e *entry) {
	delete(m.entries, host)
	e.cancel()
	m.events.Record(types.Event{
		Type:      types.EventMonitorStopped,
		Timestamp: time.Now().UTC(),
		Host:      host.String(),
	})
}

// Hosts lists the currently monitored addresses.
func (m *Monitor) Hosts() []netip.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]netip.Addr, 0, len(m.entries))
	for host := range m.entries {
		out = append(out, host)
	}
	return out
}

// Snapshot returns the rolling history for host, oldest first.
func (m *Monitor) Snapshot(host netip.Addr) ([]types.ProbeResult, bool) {
	m.mu.Lock()
	e, ok := m.entries[host]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.series.Snapshot(), true
}

// Stream subscribes to host's live samples. The channel is buffered; slow
// consumers miss samples rather than stalling the probe loop. It is closed
// when the host's monitor stops.
func (m *Monitor) Stream(host netip.Addr) (<-chan types.ProbeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[host]
	if !ok {
		return nil, ErrNotMonitored
	}
	ch := make(chan types.ProbeResult, 16)
	e.subs = append(e.subs, ch)
	return ch, nil
}

func (m *Monitor) loop(ctx context.Context, host netip.Addr, e *entry, interval time.Duration) {
	// Subscriber channels are closed here, not in Stop: the loop is the only
	// sender, so closing from the sending side cannot race a publish.
	defer func() {
		m.mu.Lock()
		for _, sub := range e.subs {
			close(sub)
		}
		e.subs = nil
		m.mu.Unlock()
		close(e.done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		timeout := m.cfg.Timeout
		if timeout <= 0 || timeout > interval {
			timeout = interval
		}
		res, err := m.prober.Probe(ctx, host, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// A broken probe mechanism is data too: the host is unobservable.
			res = types.ProbeResult{Host: host, Timestamp: time.Now().UTC()}
		}

		if ctx.Err() != nil {
			return
		}
		e.series.Append(res)
		m.metrics.IncSamples()
		m.publish(host, e, res)
	}
}

func (m *Monitor) publish(host netip.Addr, e *entry, res types.ProbeResult) {
	if m.sink != nil {
		m.sink.Enqueue(res)
	}

	m.mu.Lock()
	subs := make([]chan types.ProbeResult, len(e.subs))
	copy(subs, e.subs)
	m.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- res:
		default:
		}
	}

	m.observeTransition(host, e, res)
}

// observeTransition records DeviceUp/DeviceDown events. Down fires once
// after DownAfter consecutive failed samples; Up fires on the first answer
// after a recorded Down.
func (m *Monitor) observeTransition(host netip.Addr, e *entry, res types.ProbeResult) {
	threshold := m.cfg.DownAfter
	if threshold <= 0 {
		threshold = 1
	}

	if res.Reachable {
		if e.downRecorded {
			m.events.Record(types.Event{
				Type:      types.EventDeviceUp,
				Timestamp: res.Timestamp,
				Host:      host.String(),
			})
		}
		e.downRecorded = false
		e.downStreak = 0
		return
	}

	e.downStreak++
	if !e.downRecorded && e.downStreak >= threshold {
		e.downRecorded = true
		m.events.Record(types.Event{
			Type:      types.EventDeviceDown,
			Timestamp: res.Timestamp,
			Host:      host.String(),
			Details:   map[string]any{"failed_samples": e.downStreak},
		})
	}
}
