package scan

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/internal/enrich"
	"github.com/ne0fr0stbb/IT-Assistant/internal/events"
	"github.com/ne0fr0stbb/IT-Assistant/internal/metrics"
	"github.com/ne0fr0stbb/IT-Assistant/internal/probe"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// Enricher resolves the optional DeviceRecord fields for a reachable host.
type Enricher interface {
	Enrich(ctx context.Context, host netip.Addr, mac string) enrich.Enrichment
}

// Progress reports scan completion. The terminal update (Done == Total,
// Percent == 100) is emitted exactly once, after every host task finished or
// timed out.
type Progress struct {
	ScanID  string `json:"scan_id"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
}

// Update is one element of a scan's output stream: either a discovered
// device or a progress tick, never both.
type Update struct {
	Device   *types.DeviceRecord `json:"device,omitempty"`
	Progress *Progress           `json:"progress,omitempty"`
}

// Coordinator fans a range of hosts out over a bounded worker pool, probing
// and enriching each one, and streams results back in completion order.
type Coordinator struct {
	cfg      config.ScanConfig
	prober   probe.Prober
	enricher Enricher
	limiter  *rate.Limiter
	log      zerolog.Logger
	events   events.Recorder
	metrics  metrics.ScanRecorder
}

type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

func WithEventRecorder(rec events.Recorder) Option {
	return func(c *Coordinator) {
		if rec != nil {
			c.events = rec
		}
	}
}

func WithMetricsRecorder(rec metrics.ScanRecorder) Option {
	return func(c *Coordinator) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

func NewCoordinator(cfg config.ScanConfig, prober probe.Prober, enricher Enricher, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		prober:   prober,
		enricher: enricher,
		log:      zerolog.Nop(),
		events:   events.NoopRecorder{},
		metrics:  metrics.NoopScanRecorder{},
	}
	if cfg.RatePPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePPS), cfg.RatePPS)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan validates and expands rangeStr, then starts the sweep. The returned
// channel carries DeviceRecords interleaved with Progress updates and is
// closed once the scan finishes or ctx is cancelled. Range problems are the
// only errors; everything per-host degrades into the stream instead.
func (c *Coordinator) Scan(ctx context.Context, rangeStr string) (<-chan Update, error) {
	hosts, err := ExpandRange(rangeStr, c.cfg.HostCeiling)
	if err != nil {
		return nil, err
	}

	scanID := uuid.NewString()
	workers := c.cfg.Concurrency
	if workers <= 0 {
		workers = 32
	}
	if workers > len(hosts) {
		workers = len(hosts)
	}

	c.metrics.IncScansStarted()
	c.events.Record(types.Event{
		Type:      types.EventScanStarted,
		Timestamp: time.Now().UTC(),
		ScanID:    scanID,
		Details:   map[string]any{"range": rangeStr, "hosts": len(hosts)},
	})
	c.log.Info().Str("scan_id", scanID).Str("range", rangeStr).Int("hosts", len(hosts)).Msg("scan started")

	work := make(chan netip.Addr)
	outcomes := make(chan *types.DeviceRecord)
	updates := make(chan Update, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, work, outcomes)
		}()
	}

	go func() {
		defer close(work)
		for _, host := range hosts {
			select {
			case <-ctx.Done():
				return
			case work <- host:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	go c.collect(ctx, scanID, len(hosts), outcomes, updates)

	return updates, nil
}

// collect serializes worker outcomes into the update stream and owns the
// progress accounting, so the terminal update cannot race or double-fire.
func (c *Coordinator) collect(ctx context.Context, scanID string, total int, outcomes <-chan *types.DeviceRecord, updates chan<- Update) {
	defer close(updates)

	done := 0
	cancelled := false
	for rec := range outcomes {
		done++
		if cancelled {
			continue
		}
		if rec != nil {
			c.metrics.IncDevicesDiscovered()
			if !c.emit(ctx, updates, Update{Device: rec}) {
				cancelled = true
				continue
			}
		}
		progress := &Progress{
			ScanID:  scanID,
			Done:    done,
			Total:   total,
			Percent: done * 100 / total,
		}
		if !c.emit(ctx, updates, Update{Progress: progress}) {
			cancelled = true
		}
	}

	if done == total && !cancelled {
		c.metrics.IncScansCompleted()
		c.events.Record(types.Event{
			Type:      types.EventScanFinished,
			Timestamp: time.Now().UTC(),
			ScanID:    scanID,
			Details:   map[string]any{"hosts": total},
		})
		c.log.Info().Str("scan_id", scanID).Int("hosts", total).Msg("scan finished")
		return
	}
	c.log.Info().Str("scan_id", scanID).Int("done", done).Int("total", total).Msg("scan cancelled")
}

func (c *Coordinator) emit(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Coordinator) worker(ctx context.Context, work <-chan netip.Addr, outcomes chan<- *types.DeviceRecord) {
	for host := range work {
		rec := c.scanHost(ctx, host)
		select {
		case outcomes <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// scanHost probes one host and, when it answers, runs enrichment. A nil
// return means the host contributed nothing to the stream (down, and down
// markers disabled) but still advances progress.
func (c *Coordinator) scanHost(ctx context.Context, host netip.Addr) *types.DeviceRecord {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	res, err := c.prober.Probe(ctx, host, c.cfg.HostTimeout)
	if err != nil {
		c.log.Debug().Err(err).Stringer("host", host).Msg("probe mechanism failed")
		res = types.ProbeResult{Host: host, Timestamp: time.Now().UTC()}
	}
	c.metrics.ObserveProbe(res.Reachable)

	if !res.Reachable {
		if !c.cfg.EmitDown {
			return nil
		}
		return &types.DeviceRecord{Host: host, Reachable: false, SeenAt: res.Timestamp}
	}

	rec := &types.DeviceRecord{
		Host:         host,
		MAC:          res.HWAddr,
		Reachable:    true,
		ResponseTime: res.RTT,
		SeenAt:       res.Timestamp,
	}
	if c.enricher != nil {
		en := c.enricher.Enrich(ctx, host, res.HWAddr)
		rec.Hostname = en.Hostname
		rec.Manufacturer = en.Manufacturer
		rec.WebService = en.WebService
	}
	return rec
}
