package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Content   ContentConfig
	Grading   GradingConfig
	Sandbox   SandboxConfig
	History   HistoryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ContentConfig locates exercise content.
type ContentConfig struct {
	Dir    string `envconfig:"CONTENT_DIR" default:"content"`
	Glob   string `envconfig:"CONTENT_GLOB" default:"**/*.{yaml,yml,toml,json}"`
	URL    string `envconfig:"CONTENT_URL"`
	Strict bool   `envconfig:"CONTENT_STRICT" default:"false"`
}

// GradingConfig holds coordinator deadlines and limits.
type GradingConfig struct {
	LoadTimeout        time.Duration `envconfig:"GRADING_LOAD_TIMEOUT" default:"3s"`
	RunTimeout         time.Duration `envconfig:"GRADING_RUN_TIMEOUT" default:"2s"`
	PoolSize           int           `envconfig:"GRADING_POOL_SIZE" default:"4"`
	MaxSubmissionBytes int           `envconfig:"GRADING_MAX_SUBMISSION_BYTES" default:"262144"`
}

// SandboxConfig holds execution host limits.
type SandboxConfig struct {
	MaxCallStack int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	SettleWindow time.Duration `envconfig:"SANDBOX_SETTLE_WINDOW" default:"50ms"`
	TaskBudget   int           `envconfig:"SANDBOX_TASK_BUDGET" default:"1000"`
}

// HistoryConfig holds run history storage configuration.
// An empty path keeps history in memory.
type HistoryConfig struct {
	DBPath string `envconfig:"HISTORY_DB_PATH"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.Grading.LoadTimeout <= 0 {
		return fmt.Errorf("GRADING_LOAD_TIMEOUT must be positive")
	}
	if c.Grading.RunTimeout <= 0 {
		return fmt.Errorf("GRADING_RUN_TIMEOUT must be positive")
	}
	if c.Grading.MaxSubmissionBytes <= 0 {
		return fmt.Errorf("GRADING_MAX_SUBMISSION_BYTES must be positive")
	}
	if c.Grading.PoolSize < 0 {
		return fmt.Errorf("GRADING_POOL_SIZE must not be negative")
	}
	if c.Sandbox.TaskBudget <= 0 {
		return fmt.Errorf("SANDBOX_TASK_BUDGET must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Content: ContentConfig{
			Dir:  "content",
			Glob: "**/*.{yaml,yml,toml,json}",
		},
		Grading: GradingConfig{
			LoadTimeout:        3 * time.Second,
			RunTimeout:         2 * time.Second,
			PoolSize:           4,
			MaxSubmissionBytes: 256 * 1024,
		},
		Sandbox: SandboxConfig{
			MaxCallStack: 1024,
			SettleWindow: 50 * time.Millisecond,
			TaskBudget:   1000,
		},
	}
}
