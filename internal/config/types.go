// Package config provides configuration loading for the proxy fleet using
// Viper. Configuration is loaded from YAML files with automatic
// environment variable binding.
//
// Environment variables use the QUERYSHIELD_ prefix and underscore-separated
// keys:
//   - QUERYSHIELD_API_ENABLED -> api.enabled
//   - QUERYSHIELD_API_PORT -> api.port
//   - QUERYSHIELD_LOGGING_LEVEL -> logging.level
//   - QUERYSHIELD_STORAGE_PATH -> storage.path
package config

import (
	"os"
	"strings"
	"time"
)

// ServerConfig describes one upstream game server and how the proxy in
// front of it should behave.
type ServerConfig struct {
	Name string `yaml:"name" mapstructure:"name"`

	ServerIP   string `yaml:"server_ip"   mapstructure:"server_ip"`
	ServerPort int    `yaml:"server_port" mapstructure:"server_port"`
	BindIP     string `yaml:"bind_ip"     mapstructure:"bind_ip"`
	// BindPort of 0 means "pick server_port+BindPortOffset if free, else
	// any free port".
	BindPort int `yaml:"bind_port" mapstructure:"bind_port"`

	InfoCacheLifetime    time.Duration `yaml:"a2s_info_cache_lifetime"    mapstructure:"a2s_info_cache_lifetime"`
	PlayersCacheLifetime time.Duration `yaml:"a2s_players_cache_lifetime" mapstructure:"a2s_players_cache_lifetime"`
	RulesCacheLifetime   time.Duration `yaml:"a2s_rules_cache_lifetime"   mapstructure:"a2s_rules_cache_lifetime"`
	ResponseTimeout      time.Duration `yaml:"a2s_response_timeout"       mapstructure:"a2s_response_timeout"`

	NoA2SRules bool `yaml:"no_a2s_rules" mapstructure:"no_a2s_rules"`

	WaitReadyGracefulPeriod time.Duration `yaml:"wait_ready_graceful_period"   mapstructure:"wait_ready_graceful_period"`
	MaxFailsBeforeOffline   int           `yaml:"max_a2s_fails_before_offline" mapstructure:"max_a2s_fails_before_offline"`
}

// Defaults applied when a server entry omits a field.
const (
	DefaultInfoCacheLifetime     = 5 * time.Second
	DefaultPlayersCacheLifetime  = 5 * time.Second
	DefaultRulesCacheLifetime    = 30 * time.Second
	DefaultResponseTimeout       = 3 * time.Second
	DefaultWaitReadyGraceful     = 10 * time.Second
	DefaultMaxFailsBeforeOffline = 3

	// BindPortOffset is the "pretty" offset tried first when BindPort is
	// left at its zero value.
	BindPortOffset = 800
)

// ApplyDefaults fills in zero-valued fields with package defaults.
func (s *ServerConfig) ApplyDefaults() {
	if s.InfoCacheLifetime <= 0 {
		s.InfoCacheLifetime = DefaultInfoCacheLifetime
	}
	if s.PlayersCacheLifetime <= 0 {
		s.PlayersCacheLifetime = DefaultPlayersCacheLifetime
	}
	if s.RulesCacheLifetime <= 0 {
		s.RulesCacheLifetime = DefaultRulesCacheLifetime
	}
	if s.ResponseTimeout <= 0 {
		s.ResponseTimeout = DefaultResponseTimeout
	}
	if s.WaitReadyGracefulPeriod <= 0 {
		s.WaitReadyGracefulPeriod = DefaultWaitReadyGraceful
	}
	if s.MaxFailsBeforeOffline <= 0 {
		s.MaxFailsBeforeOffline = DefaultMaxFailsBeforeOffline
	}
}

// LoggingConfig controls the structured logger shared by every proxy and
// the management API.
type LoggingConfig struct {
	Level      string            `yaml:"level"        mapstructure:"level"        json:"level"`
	Structured bool              `yaml:"structured"   mapstructure:"structured"   json:"structured"`
	Format     string            `yaml:"format"        mapstructure:"format"        json:"format"` // "text" or "json"
	IncludePID bool              `yaml:"include_pid"  mapstructure:"include_pid"  json:"include_pid"`
	ExtraFields map[string]string `yaml:"extra_fields" mapstructure:"extra_fields" json:"extra_fields,omitempty"`
}

// APIConfig controls the optional management HTTP API.
//
// Note: APIKey is intentionally treated as a secret and should not be
// returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// StorageConfig controls optional SQLite-backed health history. An empty
// Path disables persistence; health events are still kept, bounded, in an
// in-memory ring buffer per server.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FleetConfig is the root configuration structure: one entry per proxied
// game server plus fleet-wide settings.
type FleetConfig struct {
	Servers []ServerConfig `yaml:"servers" mapstructure:"servers"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	API     APIConfig     `yaml:"api"     mapstructure:"api"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("QUERYSHIELD_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable
// overrides. This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (QUERYSHIELD_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*FleetConfig, error) {
	return loadFromSource(path)
}
