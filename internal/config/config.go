package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Sandbox   SandboxConfig   `yaml:"sandbox" toml:"sandbox"`
	Resolver  ResolverConfig  `yaml:"resolver" toml:"resolver"`
	Bridge    BridgeConfig    `yaml:"bridge" toml:"bridge"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port      string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host      string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
	AssetsDir string `envconfig:"ASSETS_DIR" default:"./assets" yaml:"assets_dir" toml:"assets_dir"`
}

// SandboxConfig holds isolation-boundary configuration.
type SandboxConfig struct {
	// ExpectedOrigin is the one origin the bridge trusts per message.
	ExpectedOrigin string `envconfig:"SANDBOX_ORIGIN" default:"http://localhost:8000" yaml:"expected_origin" toml:"expected_origin"`
	// AllowedOrigins gates WebSocket upgrades, glob patterns allowed.
	AllowedOrigins []string      `envconfig:"SANDBOX_ALLOWED_ORIGINS" default:"http://localhost:8000" yaml:"allowed_origins" toml:"allowed_origins"`
	ExecTimeout    time.Duration `envconfig:"SANDBOX_EXEC_TIMEOUT" default:"5s" yaml:"exec_timeout" toml:"exec_timeout"`
	// Headless swaps the iframe transport for the in-process runtime.
	Headless bool `envconfig:"SANDBOX_HEADLESS" default:"false" yaml:"headless" toml:"headless"`
}

// ResolverConfig holds dependency resolution configuration.
type ResolverConfig struct {
	PrimaryCDN      string `envconfig:"RESOLVER_CDN" default:"jsdelivr" yaml:"primary_cdn" toml:"primary_cdn"`
	RegistryLookups bool   `envconfig:"RESOLVER_REGISTRY_LOOKUPS" default:"false" yaml:"registry_lookups" toml:"registry_lookups"`
	CacheSize       int    `envconfig:"RESOLVER_CACHE_SIZE" default:"256" yaml:"cache_size" toml:"cache_size"`
}

// BridgeConfig holds bridge policy configuration.
type BridgeConfig struct {
	// NoisePatterns overrides the default console deny list when set.
	NoisePatterns []string `envconfig:"BRIDGE_NOISE_PATTERNS" yaml:"noise_patterns" toml:"noise_patterns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds run-submission rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads from the environment or falls back to defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays a YAML or TOML file, chosen by extension, on top of
// environment configuration. File values win.
func LoadFile(path string) (*Config, error) {
	cfg := LoadOrDefault()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}

	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8000",
			Host:      "0.0.0.0",
			AssetsDir: "./assets",
		},
		Sandbox: SandboxConfig{
			ExpectedOrigin: "http://localhost:8000",
			AllowedOrigins: []string{"http://localhost:8000"},
			ExecTimeout:    5 * time.Second,
		},
		Resolver: ResolverConfig{
			PrimaryCDN: "jsdelivr",
			CacheSize:  256,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
