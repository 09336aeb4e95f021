package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Upstream struct {
		BaseURL      string `yaml:"base_url"`
		FeedURL      string `yaml:"feed_url"`
		ServiceToken string `yaml:"service_token"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"upstream"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		Lease    string `yaml:"lease"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Search struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"search"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path. Environment variables in the file are expanded
// and STUDYHUB_* variables override the upstream and auth secrets.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STUDYHUB_UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("STUDYHUB_FEED_URL"); v != "" {
		cfg.Upstream.FeedURL = v
	}
	if v := os.Getenv("STUDYHUB_SERVICE_TOKEN"); v != "" {
		cfg.Upstream.ServiceToken = v
	}
	if v := os.Getenv("STUDYHUB_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
