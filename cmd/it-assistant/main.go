package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ne0fr0stbb/IT-Assistant/internal/alert"
	"github.com/ne0fr0stbb/IT-Assistant/internal/api"
	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/internal/enrich"
	"github.com/ne0fr0stbb/IT-Assistant/internal/events"
	"github.com/ne0fr0stbb/IT-Assistant/internal/export"
	"github.com/ne0fr0stbb/IT-Assistant/internal/logging"
	"github.com/ne0fr0stbb/IT-Assistant/internal/metrics"
	"github.com/ne0fr0stbb/IT-Assistant/internal/monitor"
	"github.com/ne0fr0stbb/IT-Assistant/internal/nmap"
	"github.com/ne0fr0stbb/IT-Assistant/internal/probe"
	"github.com/ne0fr0stbb/IT-Assistant/internal/queue"
	"github.com/ne0fr0stbb/IT-Assistant/internal/scan"
	"github.com/ne0fr0stbb/IT-Assistant/internal/speedtest"
	"github.com/ne0fr0stbb/IT-Assistant/internal/store"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

const eventBufferCapacity = 512

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "scan":
		err = runScan(ctx, os.Args[2:])
	case "monitor":
		err = runMonitor(ctx, os.Args[2:])
	case "nmap":
		err = runNmap(ctx, os.Args[2:])
	case "speedtest":
		err = runSpeedtest(ctx, os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}

	logger := logging.New(cfg.Log.Level)
	logger.Info().Str("addr", cfg.API.Addr).Msg("starting")

	metricsStore := metrics.NewStore()
	eventBuf := events.NewBuffer(eventBufferCapacity)

	recorders := []events.Recorder{eventBuf, events.LogRecorder{Logger: logger}}
	if cfg.Alerts.Enabled {
		recorders = append(recorders, alert.NewManager(cfg.Alerts, logger))
	}
	recorder := events.NewMulti(recorders...)

	prober := probe.Default(cfg.Scan.Interface, logger)
	enricher := enrich.New(cfg.Enrich, logger)

	scanner := scan.NewCoordinator(cfg.Scan, prober, enricher,
		scan.WithLogger(logger),
		scan.WithEventRecorder(recorder),
		scan.WithMetricsRecorder(metricsStore.ScanRecorder()),
	)

	samples := queue.NewResultQueue(cfg.Queue.Capacity)
	samples.SetEventRecorder(recorder)
	samples.SetMetricsRecorder(metricsStore.QueueRecorder())

	mon := monitor.New(cfg.Monitor, prober, samples,
		monitor.WithLogger(logger),
		monitor.WithEventRecorder(recorder),
		monitor.WithMetricsRecorder(metricsStore.MonitorRecorder()),
	)
	defer mon.Close()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store %q: %w", cfg.Store.Path, err)
	}
	defer st.Close()

	srv := api.New(api.Config{
		Addr:         cfg.API.Addr,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}, api.Dependencies{
		Logger:    logger,
		Scanner:   scanner,
		Monitor:   mon,
		Store:     st,
		Nmap:      nmap.NewRunner(cfg.Tools.NmapPath, cfg.Tools.NmapTimeout, logger),
		Speedtest: speedtest.NewRunner(logger),
		Events:    eventBuf,
		Metrics:   metricsStore,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grp, groupCtx := errgroup.WithContext(runCtx)

	grp.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	grp.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Monitor samples land in the queue so bursts survive slow consumers.
	// Drain on a fixed cadence and keep only the log trail.
	grp.Go(func() error {
		ticker := time.NewTicker(cfg.Monitor.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				drained := samples.Drain(cfg.Queue.Capacity)
				for _, res := range drained {
					logger.Debug().
						Stringer("host", res.Host).
						Bool("reachable", res.Reachable).
						Dur("rtt", res.RTT).
						Msg("monitor sample")
				}
			}
		}
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info().Msg("stopped")
	return nil
}

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	rangeStr := fs.String("range", "", "CIDR or comma separated host list to scan")
	csvPath := fs.String("csv", "", "Write discovered devices to a CSV file")
	xlsxPath := fs.String("xlsx", "", "Write discovered devices to an XLSX file")
	emitDown := fs.Bool("all", false, "Include unreachable hosts in the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rangeStr == "" {
		return errors.New("--range is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *emitDown {
		cfg.Scan.EmitDown = true
	}

	logger := logging.New(cfg.Log.Level)
	prober := probe.Default(cfg.Scan.Interface, logger)
	enricher := enrich.New(cfg.Enrich, logger)
	scanner := scan.NewCoordinator(cfg.Scan, prober, enricher, scan.WithLogger(logger))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updates, err := scanner.Scan(runCtx, *rangeStr)
	if err != nil {
		return err
	}

	// Sweep mDNS concurrently with the scan; names merge in before export.
	mdnsNames := make(chan map[netip.Addr]string, 1)
	go func() {
		mdnsNames <- enricher.MDNSNames(runCtx, cfg.Scan.Interface, 2*time.Second)
	}()

	var recs []types.DeviceRecord
	for u := range updates {
		if u.Device != nil {
			recs = append(recs, *u.Device)
			printDevice(*u.Device)
		}
		if u.Progress != nil {
			fmt.Fprintf(os.Stderr, "\rscanning %d/%d (%d%%)", u.Progress.Done, u.Progress.Total, u.Progress.Percent)
		}
	}
	fmt.Fprintln(os.Stderr)
	enrich.MergeMDNSNames(recs, <-mdnsNames)
	fmt.Printf("%d device(s) found\n", len(recs))

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			return fmt.Errorf("create %q: %w", *csvPath, err)
		}
		defer f.Close()
		if err := export.WriteCSV(f, recs); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if *xlsxPath != "" {
		if err := export.WriteXLSX(*xlsxPath, recs); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	return nil
}

func printDevice(rec types.DeviceRecord) {
	line := rec.Host.String()
	if rec.Hostname != "" {
		line += "  " + rec.Hostname
	}
	if rec.MAC != "" {
		line += "  " + rec.MAC
	}
	if rec.Manufacturer != "" {
		line += "  (" + rec.Manufacturer + ")"
	}
	if rec.Reachable {
		line += fmt.Sprintf("  %.1fms", float64(rec.ResponseTime)/float64(time.Millisecond))
	} else {
		line += "  down"
	}
	fmt.Println(line)
}

func runMonitor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	interval := fs.Duration("interval", 0, "Probe interval (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hosts := fs.Args()
	if len(hosts) == 0 {
		return errors.New("at least one host argument is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	prober := probe.Default(cfg.Scan.Interface, logger)

	samples := queue.NewResultQueue(cfg.Queue.Capacity)
	mon := monitor.New(cfg.Monitor, prober, samples, monitor.WithLogger(logger))
	defer mon.Close()

	for _, h := range hosts {
		addr, err := parseAddr(h)
		if err != nil {
			return err
		}
		if err := mon.Start(addr, *interval, 0); err != nil {
			return fmt.Errorf("monitor %s: %w", h, err)
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cadence := *interval
	if cadence <= 0 {
		cadence = cfg.Monitor.Interval
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return nil
		case <-ticker.C:
			for _, res := range samples.Drain(cfg.Queue.Capacity) {
				if res.Reachable {
					fmt.Printf("%s  %s  %.1fms\n", res.Timestamp.Format(time.TimeOnly), res.Host, float64(res.RTT)/float64(time.Millisecond))
				} else {
					fmt.Printf("%s  %s  timeout\n", res.Timestamp.Format(time.TimeOnly), res.Host)
				}
			}
		}
	}
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid host %q: %w", s, err)
	}
	return addr, nil
}

func runNmap(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("nmap", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	profile := fs.String("profile", "quick", "Scan profile: quick, ping, services, os, full")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one target argument is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	runner := nmap.NewRunner(cfg.Tools.NmapPath, cfg.Tools.NmapTimeout, logger)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := runner.RunProfile(runCtx, fs.Arg(0), *profile)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runSpeedtest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("speedtest", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	runner := speedtest.NewRunner(logger, speedtest.WithProgress(func(stage speedtest.Stage, partial speedtest.Result) {
		// Each stage reports at its start, so the partial result holds
		// the numbers from the stage that just finished.
		switch stage {
		case speedtest.StageLatency:
			fmt.Printf("server: %s\n", partial.Server)
		case speedtest.StageDownload:
			fmt.Printf("latency: %s\n", partial.Latency)
		case speedtest.StageUpload:
			fmt.Printf("download: %.2f Mbps\n", partial.DownloadMbps)
		}
	}))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(runCtx)
	if err != nil {
		return err
	}
	fmt.Printf("done: %.2f Mbps down, %.2f Mbps up, %s latency (%s)\n",
		res.DownloadMbps, res.UploadMbps, res.Latency, res.Server)
	return nil
}

func printUsage() {
	fmt.Println("IT Assistant network toolkit")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  it-assistant serve [--config it-assistant.yaml] [--addr 127.0.0.1:9410]")
	fmt.Println("  it-assistant scan --range 192.168.1.0/24 [--csv out.csv] [--xlsx out.xlsx] [--all]")
	fmt.Println("  it-assistant monitor [--interval 2s] HOST [HOST...]")
	fmt.Println("  it-assistant nmap [--profile quick] TARGET")
	fmt.Println("  it-assistant speedtest")
}
