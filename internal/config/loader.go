package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "webviewer.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	resolvePaths(&cfg)

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "WEBVIEWER_PORT")
	setString(&cfg.Server.CORSOrigin, "WEBVIEWER_CORS_ORIGIN")
	setString(&cfg.Data.ProjectRoot, "PROJECT_ROOT")
	setString(&cfg.Data.TasksPath, "WEBVIEWER_TASKS_PATH")
	setString(&cfg.Data.IssuesDir, "WEBVIEWER_ISSUES_DIR")
	setDuration(&cfg.Watcher.Debounce, "WEBVIEWER_WATCH_DEBOUNCE")
	setDuration(&cfg.WS.HeartbeatInterval, "WEBVIEWER_WS_HEARTBEAT")
	setDuration(&cfg.WS.WriteTimeout, "WEBVIEWER_WS_WRITE_TIMEOUT")
	setDuration(&cfg.Client.ReconnectBase, "WEBVIEWER_RECONNECT_BASE")
	setDuration(&cfg.Client.ReconnectCap, "WEBVIEWER_RECONNECT_CAP")
	setInt(&cfg.Client.MaxReconnects, "WEBVIEWER_MAX_RECONNECTS")
	setDuration(&cfg.Client.PingInterval, "WEBVIEWER_PING_INTERVAL")
	setFloat64(&cfg.Search.Threshold, "WEBVIEWER_SEARCH_THRESHOLD")
	setInt(&cfg.Search.Distance, "WEBVIEWER_SEARCH_DISTANCE")
	setInt(&cfg.Search.MinMatchLength, "WEBVIEWER_SEARCH_MIN_MATCH")
	setInt64(&cfg.Cache.MaxSizeMB, "WEBVIEWER_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "WEBVIEWER_CACHE_TTL")
	setString(&cfg.Logging.Level, "WEBVIEWER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "WEBVIEWER_LOG_SERVICE")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set and tunables are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Watcher.Debounce <= 0 {
		return errors.New("watcher.debounce must be > 0")
	}
	if cfg.WS.HeartbeatInterval <= 0 {
		return errors.New("ws.heartbeat_interval must be > 0")
	}
	if cfg.Search.Threshold < 0 || cfg.Search.Threshold > 1 {
		return errors.New("search.threshold must be in [0, 1]")
	}
	if cfg.Client.MaxReconnects < 1 {
		return errors.New("client.max_reconnects must be >= 1")
	}
	return nil
}

// resolvePaths fills TasksPath and IssuesDir from ProjectRoot when unset,
// matching the TaskMaster directory layout.
func resolvePaths(cfg *Config) {
	if cfg.Data.TasksPath == "" {
		cfg.Data.TasksPath = filepath.Join(cfg.Data.ProjectRoot, ".taskmaster", "tasks", "tasks.json")
	}
	if cfg.Data.IssuesDir == "" {
		cfg.Data.IssuesDir = filepath.Join(cfg.Data.ProjectRoot, ".taskmaster", "issues")
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
