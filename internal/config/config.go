// Package config loads service configuration from an optional YAML file with
// environment-variable overrides on top. Environment wins so deployments can
// keep a checked-in base file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Port        int           `yaml:"port"`
	OSRMURL     string        `yaml:"osrm_url"` // empty disables road-network lookups
	OSRMTimeout time.Duration `yaml:"osrm_timeout"`
	DatabaseURL string        `yaml:"database_url"` // empty selects the in-memory store
	RedisURL    string        `yaml:"redis_url"`    // empty selects the in-process broker
	LogLevel    string        `yaml:"log_level"`
	LogJSON     bool          `yaml:"log_json"`
}

// Defaults returns a Config with sane defaults.
func Defaults() Config {
	return Config{
		Port:        8080,
		OSRMTimeout: 10 * time.Second,
		LogLevel:    "info",
	}
}

// Load reads path (when non-empty and present) and applies environment
// overrides. A missing file at an explicitly requested path is an error; an
// empty path is not.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.OSRMTimeout <= 0 {
		cfg.OSRMTimeout = 10 * time.Second
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("OSRM_URL"); v != "" {
		cfg.OSRMURL = v
	}
	if v := os.Getenv("OSRM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OSRMTimeout = d
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}
}
