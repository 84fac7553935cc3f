// Package config provides configuration loading and validation for the
// query proxy fleet.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/queryshieldd/main.go)
//  2. Environment variables (QUERYSHIELD_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from QUERYSHIELD_CATEGORY_SETTING
// format, e.g., QUERYSHIELD_API_PORT maps to api.port in YAML. Per-server
// fields are only ever set from the servers list in the config file:
// fleets with more than one upstream aren't addressable from a single flat
// env var namespace.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses QUERYSHIELD_ prefix: QUERYSHIELD_API_ENABLED -> api.enabled
	v.SetEnvPrefix("QUERYSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	// Management API defaults: disabled and bound to localhost for safety.
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")

	// Storage defaults: persistence off, in-memory ring buffer only.
	v.SetDefault("storage.path", "")
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*FleetConfig, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &FleetConfig{}

	durationHook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.UnmarshalKey("servers", &cfg.Servers, durationHook); err != nil {
		return nil, fmt.Errorf("failed to parse servers: %w", err)
	}

	loadLoggingConfig(v, cfg)
	loadAPIConfig(v, cfg)
	loadStorageConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadLoggingConfig(v *viper.Viper, cfg *FleetConfig) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadAPIConfig(v *viper.Viper, cfg *FleetConfig) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
	cfg.API.APIKey = v.GetString("api.api_key")
}

func loadStorageConfig(v *viper.Viper, cfg *FleetConfig) {
	cfg.Storage.Path = v.GetString("storage.path")
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *FleetConfig) error {
	if len(cfg.Servers) == 0 {
		return errors.New("at least one server must be configured")
	}

	seen := make(map[string]struct{}, len(cfg.Servers))
	for i := range cfg.Servers {
		s := &cfg.Servers[i]
		if s.ServerIP == "" {
			return fmt.Errorf("servers[%d]: server_ip is required", i)
		}
		if s.ServerPort <= 0 || s.ServerPort > 65535 {
			return fmt.Errorf("servers[%d]: server_port must be 1..65535", i)
		}
		if s.BindIP == "" {
			s.BindIP = "0.0.0.0"
		}
		if s.BindPort < 0 || s.BindPort > 65535 {
			return fmt.Errorf("servers[%d]: bind_port must be 0..65535", i)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s:%d", s.ServerIP, s.ServerPort)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = struct{}{}

		s.ApplyDefaults()
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	return nil
}

