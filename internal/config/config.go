package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main configuration structure for the cynq gateway.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Auth     AuthConfig     `yaml:"auth"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
}

type StorageConfig struct {
	// Dir is the badger database directory holding the durable snapshots.
	Dir string `yaml:"dir"`
}

type LLMConfig struct {
	// Provider selects the completion adapter: "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// BaseURL points at an OpenAI-compatible gateway when set.
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	DefaultModel string  `yaml:"default_model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float32 `yaml:"temperature"`
}

type AuthConfig struct {
	// JWTSecret signs the mock provider access tokens.
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

type SessionsConfig struct {
	// ExpireAfter removes sessions idle longer than this; zero disables sweeps.
	ExpireAfter time.Duration `yaml:"expire_after"`
	// SweepSchedule is a cron spec for the expiry sweeper.
	SweepSchedule string `yaml:"sweep_schedule"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads and parses the configuration file, resolving $include
// directives and expanding environment variables, then applies defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	raw, err := loadTree(path, map[string]bool{})
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := bindConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects configurations that cannot produce a working server.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port %d", c.Server.HTTPPort)
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return fmt.Errorf("storage.dir is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8787
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "gemini-2.5-flash"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 16000
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "cynq-dev-secret"
	}
	if cfg.Auth.TokenExpiry == 0 {
		cfg.Auth.TokenExpiry = time.Hour
	}
	if cfg.Sessions.SweepSchedule == "" {
		cfg.Sessions.SweepSchedule = "@hourly"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
