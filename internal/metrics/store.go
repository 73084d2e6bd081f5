package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// Store maintains in-memory gauges and counters for the scanning and
// monitoring pipelines.
type Store struct {
	probesSent        atomic.Uint64
	probesUnanswered  atomic.Uint64
	scansStarted      atomic.Uint64
	scansCompleted    atomic.Uint64
	devicesDiscovered atomic.Uint64
	samplesRecorded   atomic.Uint64
	activeMonitors    atomic.Int64
	queueDepth        atomic.Int64
	queueDrops        atomic.Uint64
}

// NewStore constructs a Store with zeroed metrics.
func NewStore() *Store {
	return &Store{}
}

// Snapshot captures the current metric values in a plain struct.
type Snapshot struct {
	ProbesSent        uint64
	ProbesUnanswered  uint64
	ScansStarted      uint64
	ScansCompleted    uint64
	DevicesDiscovered uint64
	SamplesRecorded   uint64
	ActiveMonitors    int64
	QueueDepth        int64
	QueueDroppedTotal uint64
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ProbesSent:        s.probesSent.Load(),
		ProbesUnanswered:  s.probesUnanswered.Load(),
		ScansStarted:      s.scansStarted.Load(),
		ScansCompleted:    s.scansCompleted.Load(),
		DevicesDiscovered: s.devicesDiscovered.Load(),
		SamplesRecorded:   s.samplesRecorded.Load(),
		ActiveMonitors:    s.activeMonitors.Load(),
		QueueDepth:        s.queueDepth.Load(),
		QueueDroppedTotal: s.queueDrops.Load(),
	}
}

// QueueRecorder returns an implementation of QueueRecorder backed by the store.
func (s *Store) QueueRecorder() QueueRecorder {
	return queueRecorder{store: s}
}

// ScanRecorder returns an implementation of ScanRecorder backed by the store.
func (s *Store) ScanRecorder() ScanRecorder {
	return scanRecorder{store: s}
}

// MonitorRecorder returns an implementation of MonitorRecorder backed by the store.
func (s *Store) MonitorRecorder() MonitorRecorder {
	return monitorRecorder{store: s}
}

type queueRecorder struct {
	store *Store
}

func (r queueRecorder) ObserveQueueDepth(depth int) {
	r.store.queueDepth.Store(int64(depth))
}

func (r queueRecorder) IncQueueDrops() {
	r.store.queueDrops.Add(1)
}

type scanRecorder struct {
	store *Store
}

func (r scanRecorder) IncScansStarted() {
	r.store.scansStarted.Add(1)
}

func (r scanRecorder) IncScansCompleted() {
	r.store.scansCompleted.Add(1)
}

func (r scanRecorder) IncDevicesDiscovered() {
	r.store.devicesDiscovered.Add(1)
}

func (r scanRecorder) ObserveProbe(answered bool) {
	r.store.probesSent.Add(1)
	if !answered {
		r.store.probesUnanswered.Add(1)
	}
}

type monitorRecorder struct {
	store *Store
}

func (r monitorRecorder) ObserveActiveMonitors(n int) {
	r.store.activeMonitors.Store(int64(n))
}

func (r monitorRecorder) IncSamples() {
	r.store.samplesRecorded.Add(1)
}

// WritePrometheus renders the current metrics using the Prometheus text format.
func (s *Store) WritePrometheus(w io.Writer) error {
	snap := s.Snapshot()
	lines := []string{
		"# HELP itassistant_probes_sent_total Total probes issued by scans and monitors.",
		"# TYPE itassistant_probes_sent_total counter",
		fmt.Sprintf("itassistant_probes_sent_total %d", snap.ProbesSent),
		"# HELP itassistant_probes_unanswered_total Probes that got no reply within budget.",
		"# TYPE itassistant_probes_unanswered_total counter",
		fmt.Sprintf("itassistant_probes_unanswered_total %d", snap.ProbesUnanswered),
		"# HELP itassistant_scans_started_total Scan invocations accepted.",
		"# TYPE itassistant_scans_started_total counter",
		fmt.Sprintf("itassistant_scans_started_total %d", snap.ScansStarted),
		"# HELP itassistant_scans_completed_total Scans that reached terminal progress.",
		"# TYPE itassistant_scans_completed_total counter",
		fmt.Sprintf("itassistant_scans_completed_total %d", snap.ScansCompleted),
		"# HELP itassistant_devices_discovered_total Device records emitted across all scans.",
		"# TYPE itassistant_devices_discovered_total counter",
		fmt.Sprintf("itassistant_devices_discovered_total %d", snap.DevicesDiscovered),
		"# HELP itassistant_monitor_samples_total Samples recorded by live monitors.",
		"# TYPE itassistant_monitor_samples_total counter",
		fmt.Sprintf("itassistant_monitor_samples_total %d", snap.SamplesRecorded),
		"# HELP itassistant_monitors_active Number of hosts currently monitored.",
		"# TYPE itassistant_monitors_active gauge",
		fmt.Sprintf("itassistant_monitors_active %d", snap.ActiveMonitors),
		"# HELP itassistant_queue_depth Number of samples currently buffered in the result queue.",
		"# TYPE itassistant_queue_depth gauge",
		fmt.Sprintf("itassistant_queue_depth %d", snap.QueueDepth),
		"# HELP itassistant_queue_dropped_total Total samples dropped due to queue pressure.",
		"# TYPE itassistant_queue_dropped_total counter",
		fmt.Sprintf("itassistant_queue_dropped_total %d", snap.QueueDroppedTotal),
		"",
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// NewHTTPHandler returns an http.Handler that serves Prometheus formatted metrics.
func NewHTTPHandler(store *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if r.Method == http.MethodHead {
			return
		}
		if err := store.WritePrometheus(w); err != nil {
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		}
	})
}
