package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ne0fr0stbb/IT-Assistant/internal/events"
	"github.com/ne0fr0stbb/IT-Assistant/internal/export"
	"github.com/ne0fr0stbb/IT-Assistant/internal/metrics"
	"github.com/ne0fr0stbb/IT-Assistant/internal/monitor"
	"github.com/ne0fr0stbb/IT-Assistant/internal/nmap"
	"github.com/ne0fr0stbb/IT-Assistant/internal/scan"
	"github.com/ne0fr0stbb/IT-Assistant/internal/speedtest"
	"github.com/ne0fr0stbb/IT-Assistant/internal/store"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// Config controls HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Dependencies holds external collaborators required by the server. Nil
// optional collaborators disable their endpoints with 503.
type Dependencies struct {
	Logger    zerolog.Logger
	Scanner   *scan.Coordinator
	Monitor   *monitor.Monitor
	Store     *store.Store
	Nmap      *nmap.Runner
	Speedtest *speedtest.Runner
	Events    *events.Buffer
	Metrics   *metrics.Store
}

// Server wraps http.Server for convenience.
type Server struct {
	*http.Server
	cfg  Config
	deps Dependencies

	mu      sync.Mutex
	devices map[netip.Addr]types.DeviceRecord
}

// New constructs the HTTP API server.
func New(cfg Config, deps Dependencies) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9410"
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		devices: make(map[netip.Addr]types.DeviceRecord),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/scan", s.scanHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/devices", s.devicesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/devices/export", s.exportHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/monitor", s.monitorListHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/monitor/{host}", s.monitorStartHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/monitor/{host}", s.monitorStopHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/monitor/{host}/history", s.monitorHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/monitor/{host}/stream", s.monitorStreamHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/annotations", s.annotationsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/annotations/{key}", s.annotationPutHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/annotations/{key}", s.annotationDeleteHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/profiles", s.profilesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/profiles/{name}", s.profileGetHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/profiles/{name}", s.profilePutHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/profiles/{name}", s.profileDeleteHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/nmap/{host}", s.nmapHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/speedtest", s.speedtestHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/events", s.eventsHandler).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", metrics.NewHTTPHandler(deps.Metrics)).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	s.Server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

type scanRequest struct {
	Range string `json:"range"`
}

// scanHandler streams newline-delimited JSON updates for the duration of the
// scan. The connection staying open is the progress indicator; clients cancel
// by closing it.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scanner == nil {
		http.Error(w, "scanning disabled", http.StatusServiceUnavailable)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	updates, err := s.deps.Scanner.Scan(r.Context(), req.Range)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			s.deps.Logger.Error().Err(err).Str("range", req.Range).Msg("scan failed to start")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	for u := range updates {
		if u.Device != nil {
			s.rememberDevice(*u.Device)
		}
		if err := enc.Encode(u); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) rememberDevice(rec types.DeviceRecord) {
	s.mu.Lock()
	s.devices[rec.Host] = rec
	s.mu.Unlock()
}

func (s *Server) deviceList() []types.DeviceRecord {
	s.mu.Lock()
	recs := make([]types.DeviceRecord, 0, len(s.devices))
	for _, rec := range s.devices {
		recs = append(recs, rec)
	}
	s.mu.Unlock()
	return recs
}

func (s *Server) devicesHandler(w http.ResponseWriter, r *http.Request) {
	recs := s.deviceList()
	if s.deps.Store == nil {
		writeJSON(w, s.deps.Logger, recs)
		return
	}
	annotated, err := s.deps.Store.Overlay(recs)
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("annotation overlay failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.deps.Logger, annotated)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	recs := s.deviceList()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="devices.csv"`)
	if err := export.WriteCSV(w, recs); err != nil {
		s.deps.Logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) monitorListHandler(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Monitor == nil {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		return
	}
	hosts := s.deps.Monitor.Hosts()
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.String())
	}
	writeJSON(w, s.deps.Logger, map[string][]string{"hosts": out})
}

func (s *Server) monitorStartHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		return
	}
	host, ok := parseHost(w, r)
	if !ok {
		return
	}

	var interval time.Duration
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid interval_ms", http.StatusBadRequest)
			return
		}
		interval = time.Duration(ms) * time.Millisecond
	}
	var capacity int
	if v := r.URL.Query().Get("capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid capacity", http.StatusBadRequest)
			return
		}
		capacity = n
	}

	if err := s.deps.Monitor.Start(host, interval, capacity); err != nil {
		if errors.Is(err, monitor.ErrResourceExhausted) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) monitorStopHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		return
	}
	host, ok := parseHost(w, r)
	if !ok {
		return
	}
	s.deps.Monitor.Stop(host)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) monitorHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		return
	}
	host, ok := parseHost(w, r)
	if !ok {
		return
	}
	samples, monitored := s.deps.Monitor.Snapshot(host)
	if !monitored {
		http.Error(w, "host not monitored", http.StatusNotFound)
		return
	}
	writeJSON(w, s.deps.Logger, samples)
}

func (s *Server) monitorStreamHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		return
	}
	host, ok := parseHost(w, r)
	if !ok {
		return
	}
	stream, err := s.deps.Monitor.Stream(host)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case res, open := <-stream:
			if !open {
				return
			}
			if err := enc.Encode(res); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) annotationsHandler(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	all, err := s.deps.Store.Annotations()
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("load annotations failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.deps.Logger, all)
}

func (s *Server) annotationPutHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	var a store.Annotation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	a.Key = mux.Vars(r)["key"]
	if err := s.deps.Store.SaveAnnotation(a); err != nil {
		s.deps.Logger.Error().Err(err).Str("key", a.Key).Msg("save annotation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) annotationDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.deps.Store.DeleteAnnotation(mux.Vars(r)["key"]); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) profilesHandler(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	names, err := s.deps.Store.Profiles()
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("list profiles failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.deps.Logger, map[string][]string{"profiles": names})
}

func (s *Server) profileGetHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	name := mux.Vars(r)["name"]
	hosts, err := s.deps.Store.Profile(name)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, s.deps.Logger, map[string][]string{"hosts": hosts})
}

type profileRequest struct {
	Hosts []string `json:"hosts"`
}

func (s *Server) profilePutHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.deps.Store.SaveProfile(mux.Vars(r)["name"], req.Hosts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) profileDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.deps.Store.DeleteProfile(mux.Vars(r)["name"]); err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nmapResponse struct {
	Target  string `json:"target"`
	Profile string `json:"profile"`
	Output  string `json:"output"`
}

func (s *Server) nmapHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Nmap == nil {
		http.Error(w, "nmap disabled", http.StatusServiceUnavailable)
		return
	}
	host, ok := parseHost(w, r)
	if !ok {
		return
	}
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		profile = "quick"
	}

	out, err := s.deps.Nmap.RunProfile(r.Context(), host.String(), profile)
	if err != nil {
		if errors.Is(err, nmap.ErrToolUnavailable) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, s.deps.Logger, nmapResponse{Target: host.String(), Profile: profile, Output: out})
}

func (s *Server) speedtestHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Speedtest == nil {
		http.Error(w, "speed test disabled", http.StatusServiceUnavailable)
		return
	}
	res, err := s.deps.Speedtest.Run(r.Context())
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("speed test failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, s.deps.Logger, res)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeJSON(w, s.deps.Logger, []types.Event{})
		return
	}
	max := 100
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid max", http.StatusBadRequest)
			return
		}
		max = n
	}
	writeJSON(w, s.deps.Logger, s.deps.Events.Recent(max))
}

func parseHost(w http.ResponseWriter, r *http.Request) (netip.Addr, bool) {
	host, err := netip.ParseAddr(mux.Vars(r)["host"])
	if err != nil {
		http.Error(w, "invalid host address", http.StatusBadRequest)
		return netip.Addr{}, false
	}
	return host, true
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}
