// Package config provides hierarchical configuration loading for the viewer.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the web viewer service.
type Config struct {
	Server    Server    `yaml:"server"`
	Data      Data      `yaml:"data"`
	Watcher   Watcher   `yaml:"watcher"`
	WS        WS        `yaml:"ws"`
	Client    Client    `yaml:"client"`
	Search    Search    `yaml:"search"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Data locates the TaskMaster documents on disk. TasksPath and IssuesDir
// default relative to ProjectRoot when left empty.
type Data struct {
	ProjectRoot string `yaml:"project_root"`
	TasksPath   string `yaml:"tasks_path"`
	IssuesDir   string `yaml:"issues_dir"`
}

// Watcher holds file-watch configuration for the task document.
type Watcher struct {
	Debounce time.Duration `yaml:"debounce"`
}

// WS holds WebSocket hub configuration.
type WS struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
}

// Client holds the sync client's reconnect and heartbeat policy.
type Client struct {
	ReconnectBase time.Duration `yaml:"reconnect_base"`
	ReconnectCap  time.Duration `yaml:"reconnect_cap"`
	MaxReconnects int           `yaml:"max_reconnects"`
	PingInterval  time.Duration `yaml:"ping_interval"`
}

// Search holds fuzzy search tunables. Threshold is 0 (exact) .. 1 (match
// anything); Distance caps how far into a field a match may reach;
// MinMatchLength is the shortest query that triggers a search at all.
type Search struct {
	Threshold      float64 `yaml:"threshold"`
	Distance       int     `yaml:"distance"`
	MinMatchLength int     `yaml:"min_match_length"`
}

// Cache holds the issue read cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Telemetry holds the optional OTLP export configuration. Empty endpoint
// disables telemetry entirely.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns a Config with sensible default values for local use.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "5000",
			CORSOrigin: "http://localhost:3000",
		},
		Data: Data{
			ProjectRoot: ".",
		},
		Watcher: Watcher{
			Debounce: 300 * time.Millisecond,
		},
		WS: WS{
			HeartbeatInterval: 30 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Client: Client{
			ReconnectBase: time.Second,
			ReconnectCap:  30 * time.Second,
			MaxReconnects: 10,
			PingInterval:  30 * time.Second,
		},
		Search: Search{
			Threshold:      0.3,
			Distance:       100,
			MinMatchLength: 2,
		},
		Cache: Cache{
			MaxSizeMB: 16,
			TTL:       5 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "webviewer",
		},
	}
}
