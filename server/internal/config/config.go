package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultMaxBodyBytes  = 1 << 20
	DefaultAllowedOrigin = "*"
	DefaultTelemetryPath = "telemetry.json"
	DefaultLogLevel      = "info"
)

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// MaxBodyBytes caps the size of an aggregation request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	CORS CORSConfig `yaml:"cors"`
	WS   WSConfig   `yaml:"ws"`
}

// CORSConfig controls the headers added to every API response.
type CORSConfig struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Defaults to "*".
	AllowedOrigin string `yaml:"allowed_origin"`
}

// WSConfig controls the WebSocket aggregation endpoint.
type WSConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TelemetryConfig locates the static dataset.
type TelemetryConfig struct {
	// Path is the telemetry JSON file, relative to the working directory
	// unless absolute. It is read once at startup.
	Path string `yaml:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps Level to a slog.Level. Unknown values were rejected by
// validate, so the fallback is only reached for a zero Config.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also
// what the query command runs with when no config file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     DefaultHTTPPort,
			MaxBodyBytes: DefaultMaxBodyBytes,
			CORS:         CORSConfig{AllowedOrigin: DefaultAllowedOrigin},
			WS:           WSConfig{Enabled: true},
		},
		Telemetry: TelemetryConfig{Path: DefaultTelemetryPath},
		Log:       LogConfig{Level: DefaultLogLevel},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if cfg.Server.CORS.AllowedOrigin == "" {
		return fmt.Errorf("server.cors.allowed_origin must not be empty")
	}
	if cfg.Telemetry.Path == "" {
		return fmt.Errorf("telemetry.path is required")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
