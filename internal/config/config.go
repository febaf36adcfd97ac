// Package config loads the static YAML document describing targets and
// runtime settings, with environment overrides. Loaded once at startup;
// never hot-reloaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/netradar/netradar/internal/domain"
)

const (
	envConfigPath = "NETRADAR_CONFIG"
	defaultPath   = "config.yaml"
)

type Config struct {
	// Collector settings.
	ListenAddr      string `yaml:"listen_addr"`
	DBPath          string `yaml:"db_path"`
	DatabaseURL     string `yaml:"database_url"`
	APIKey          string `yaml:"api_key"`
	RetentionHours  int    `yaml:"retention_hours"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	WebhookURL      string `yaml:"webhook_url"`

	// Agent settings.
	AgentID      string `yaml:"agent_id"`
	CollectorURL string `yaml:"collector_url"`

	// Probe settings.
	CheckIntervalSec int             `yaml:"check_interval"`
	Concurrency      int             `yaml:"concurrency"`
	VerifyTLS        *bool           `yaml:"verify_tls"`
	Targets          []domain.Target `yaml:"targets"`

	LogDir string `yaml:"log_dir"`
}

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

func (c Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c Config) TLSVerification() bool {
	if c.VerifyTLS == nil {
		return true
	}
	return *c.VerifyTLS
}

// Load reads the file at path (or $NETRADAR_CONFIG, or ./config.yaml),
// applies environment overrides and defaults, and validates.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultPath
	}

	var cfg Config
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("AGENT_ID"); v != "" {
		c.AgentID = v
	}
	if v := os.Getenv("COLLECTOR_URL"); v != "" {
		c.CollectorURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CheckIntervalSec = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":5000"
	}
	if c.CheckIntervalSec <= 0 {
		c.CheckIntervalSec = 60
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 6
	}
	// Unset gets the default; an explicit negative value disables the
	// retention sweeper.
	if c.RetentionHours == 0 {
		c.RetentionHours = 24
	}
	if c.RateLimitPerMin == 0 {
		c.RateLimitPerMin = 200
	}
	if c.AgentID == "" {
		c.AgentID = defaultAgentID()
	}
}

func (c Config) validate() error {
	seen := make(map[string]struct{}, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target with host %q has no name", t.Host)
		}
		if t.Host == "" {
			return fmt.Errorf("target %q has no host", t.Name)
		}
		if !domain.ValidType(t.Type) {
			return fmt.Errorf("target %q has unknown type %q", t.Name, t.Type)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// defaultAgentID is the hostname, falling back to a random id on hosts
// that cannot report one.
func defaultAgentID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "agent-" + uuid.NewString()
}
