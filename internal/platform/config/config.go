package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCacheTTL bounds how long a cached person record may be served
// without going back to the registry.
const DefaultCacheTTL = 5 * time.Minute

// Config captures everything the client surfaces need: where the registry
// lives, whether lookups are cached, and how chatty the logs are. Addr is
// only used by the local stub server.
type Config struct {
	RegistryURL string
	RedisURL    string
	CacheTTL    time.Duration
	LogLevel    string
	Addr        string
}

// fileConfig is the YAML shape; durations are strings so operators can write
// "5m" rather than nanosecond counts.
type fileConfig struct {
	RegistryURL string `yaml:"registry_url"`
	RedisURL    string `yaml:"redis_url"`
	CacheTTL    string `yaml:"cache_ttl"`
	LogLevel    string `yaml:"log_level"`
	Addr        string `yaml:"addr"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		RegistryURL: os.Getenv("ANAGRAFE_REGISTRY_URL"),
		RedisURL:    os.Getenv("ANAGRAFE_REDIS_URL"),
		CacheTTL:    DefaultCacheTTL,
		LogLevel:    os.Getenv("ANAGRAFE_LOG_LEVEL"),
		Addr:        os.Getenv("ANAGRAFE_ADDR"),
	}
	if cfg.RegistryURL == "" {
		cfg.RegistryURL = "http://localhost:8080"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if raw := os.Getenv("ANAGRAFE_CACHE_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.CacheTTL = ttl
		}
	}
	return cfg
}

// Load reads a YAML config file over the environment-derived defaults.
// Fields absent from the file keep their env values.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.RegistryURL != "" {
		cfg.RegistryURL = file.RegistryURL
	}
	if file.RedisURL != "" {
		cfg.RedisURL = file.RedisURL
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.Addr != "" {
		cfg.Addr = file.Addr
	}
	if file.CacheTTL != "" {
		ttl, err := time.ParseDuration(file.CacheTTL)
		if err != nil {
			return Config{}, fmt.Errorf("parse config %s: cache_ttl: %w", path, err)
		}
		if ttl > 0 {
			cfg.CacheTTL = ttl
		}
	}
	return cfg, nil
}
