package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envConfigPath     = "ITASSISTANT_CONFIG"
	DefaultConfigPath = "it-assistant.yaml"
)

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Scan    ScanConfig    `yaml:"scan"`
	Monitor MonitorConfig `yaml:"monitor"`
	Enrich  EnrichConfig  `yaml:"enrich"`
	Queue   QueueConfig   `yaml:"queue"`
	API     APIConfig     `yaml:"api"`
	Alerts  AlertConfig   `yaml:"alerts"`
	Tools   ToolsConfig   `yaml:"tools"`
	Store   StoreConfig   `yaml:"store"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ScanConfig struct {
	Concurrency int           `yaml:"concurrency"`
	HostTimeout time.Duration `yaml:"host_timeout"`
	HostCeiling int           `yaml:"host_ceiling"`
	EmitDown    bool          `yaml:"emit_down"`
	RatePPS     int           `yaml:"rate_pps"`
	Interface   string        `yaml:"interface"`
}

type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	Capacity    int           `yaml:"capacity"`
	MaxMonitors int           `yaml:"max_monitors"`
	DownAfter   int           `yaml:"down_after"`
}

type EnrichConfig struct {
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
	WebTimeout    time.Duration `yaml:"web_timeout"`
	WebPorts      []int         `yaml:"web_ports"`
	DNSResolvers  []string      `yaml:"dns_resolvers"`
	OUIPath       string        `yaml:"oui_path"`
}

type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

type APIConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type AlertConfig struct {
	Enabled   bool          `yaml:"enabled"`
	SMTPHost  string        `yaml:"smtp_host"`
	SMTPPort  int           `yaml:"smtp_port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	To        []string      `yaml:"to"`
	DownAfter int           `yaml:"down_after"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

type ToolsConfig struct {
	NmapPath    string        `yaml:"nmap_path"`
	NmapTimeout time.Duration `yaml:"nmap_timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Scan.Concurrency <= 0 {
		c.Scan.Concurrency = 32
	}
	if c.Scan.HostTimeout <= 0 {
		c.Scan.HostTimeout = time.Second
	}
	if c.Scan.HostCeiling <= 0 {
		c.Scan.HostCeiling = 4096
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 2 * time.Second
	}
	if c.Monitor.Timeout <= 0 {
		c.Monitor.Timeout = time.Second
	}
	if c.Monitor.Capacity <= 0 {
		c.Monitor.Capacity = 100
	}
	if c.Monitor.MaxMonitors <= 0 {
		c.Monitor.MaxMonitors = 256
	}
	if c.Monitor.DownAfter <= 0 {
		c.Monitor.DownAfter = 1
	}
	if c.Enrich.LookupTimeout <= 0 {
		c.Enrich.LookupTimeout = time.Second
	}
	if c.Enrich.WebTimeout <= 0 {
		c.Enrich.WebTimeout = 300 * time.Millisecond
	}
	if len(c.Enrich.WebPorts) == 0 {
		c.Enrich.WebPorts = []int{80, 443}
	}
	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 1024
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:9410"
	}
	if c.API.ReadTimeout <= 0 {
		c.API.ReadTimeout = 15 * time.Second
	}
	if c.API.IdleTimeout <= 0 {
		c.API.IdleTimeout = 60 * time.Second
	}
	if c.Alerts.SMTPPort <= 0 {
		c.Alerts.SMTPPort = 587
	}
	if c.Alerts.DownAfter <= 0 {
		c.Alerts.DownAfter = 3
	}
	if c.Alerts.Cooldown <= 0 {
		c.Alerts.Cooldown = 15 * time.Minute
	}
	if c.Tools.NmapPath == "" {
		c.Tools.NmapPath = "nmap"
	}
	if c.Tools.NmapTimeout <= 0 {
		c.Tools.NmapTimeout = 60 * time.Second
	}
	if c.Store.Path == "" {
		c.Store.Path = "it-assistant.db"
	}
}

// Load parses the YAML file at path and fills unset fields with defaults.
func Load(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadFromEnv loads the config named by ITASSISTANT_CONFIG, or the default
// path when unset. A missing default file is not an error; the tool runs with
// built-in defaults then.
func LoadFromEnv() (Config, error) {
	path := os.Getenv(envConfigPath)
	if path != "" {
		return Load(path)
	}
	cfg, err := Load(DefaultConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return cfg, err
	}
	return cfg, nil
}
