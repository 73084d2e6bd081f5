package speedtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/showwin/speedtest-go/speedtest"
)

// ErrUnavailable means the speed test service could not be reached at all;
// the feature is reported unavailable, nothing else is affected.
var ErrUnavailable = errors.New("speed test service unavailable")

type Stage string

const (
	StageServer   Stage = "selecting-server"
	StageLatency  Stage = "latency"
	StageDownload Stage = "download"
	StageUpload   Stage = "upload"
	StageDone     Stage = "done"
)

// Result is the outcome of a complete bandwidth measurement.
type Result struct {
	Server       string        `json:"server"`
	Latency      time.Duration `json:"latency_ns"`
	DownloadMbps float64       `json:"download_mbps"`
	UploadMbps   float64       `json:"upload_mbps"`
	MeasuredAt   time.Time     `json:"measured_at"`
}

// ProgressFunc is invoked as the test advances stages. Partial results are
// carried along so a UI can show numbers as they firm up.
type ProgressFunc func(stage Stage, partial Result)

type Runner struct {
	log      zerolog.Logger
	progress ProgressFunc
}

type Option func(*Runner)

func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

func NewRunner(log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) report(stage Stage, partial Result) {
	if r.progress != nil {
		r.progress(stage, partial)
	}
}

// Run measures latency, download and upload against the closest speedtest.net
// server. Cancelling ctx aborts the remaining stages.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var result Result
	client := speedtest.New()

	r.report(StageServer, result)
	serverList, err := client.FetchServerListContext(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	targets, err := serverList.FindServer(nil)
	if err != nil || len(targets) == 0 {
		return result, fmt.Errorf("%w: no server found", ErrUnavailable)
	}
	server := targets[0]
	result.Server = fmt.Sprintf("%s (%s)", server.Sponsor, server.Name)

	r.report(StageLatency, result)
	if err := server.PingTestContext(ctx, nil); err != nil {
		return result, fmt.Errorf("latency test: %w", err)
	}
	result.Latency = server.Latency

	r.report(StageDownload, result)
	if err := server.DownloadTestContext(ctx); err != nil {
		return result, fmt.Errorf("download test: %w", err)
	}
	result.DownloadMbps = server.DLSpeed.Mbps()

	r.report(StageUpload, result)
	if err := server.UploadTestContext(ctx); err != nil {
		return result, fmt.Errorf("upload test: %w", err)
	}
	result.UploadMbps = server.ULSpeed.Mbps()

	result.MeasuredAt = time.Now().UTC()
	r.report(StageDone, result)
	r.log.Info().
		Str("server", result.Server).
		Float64("down_mbps", result.DownloadMbps).
		Float64("up_mbps", result.UploadMbps).
		Msg("speed test finished")
	return result, nil
}
