package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for stabled.
type Config struct {
	ListenAddress string      `yaml:"listen"`
	DatabasePath  string      `yaml:"database"`
	Admin         AdminConfig `yaml:"admin"`
	Audit         AuditConfig `yaml:"audit"`
}

// AdminConfig guards the ingestion and summary endpoints.
type AdminConfig struct {
	BearerToken string `yaml:"bearer_token"`
}

// AuditConfig tunes the receipt retention sweep.
type AuditConfig struct {
	Retention Duration `yaml:"retention"`
	Interval  Duration `yaml:"sweep_interval"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7080"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "/var/data/stabled.sqlite"
	}
	if cfg.Audit.Retention.Duration == 0 {
		cfg.Audit.Retention.Duration = 30 * 24 * time.Hour
	}
	if cfg.Audit.Interval.Duration == 0 {
		cfg.Audit.Interval.Duration = time.Hour
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Admin.BearerToken) == "" {
		return fmt.Errorf("admin.bearer_token must be configured")
	}
	if cfg.Audit.Retention.Duration < time.Hour {
		return fmt.Errorf("audit.retention must be at least one hour")
	}
	if cfg.Audit.Interval.Duration < time.Minute {
		return fmt.Errorf("audit.sweep_interval must be at least one minute")
	}
	return nil
}
