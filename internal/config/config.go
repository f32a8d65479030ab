// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/veldt-labs/shortcycle/internal/llm"
	"github.com/veldt-labs/shortcycle/internal/loop"
	"github.com/veldt-labs/shortcycle/internal/uploader"
)

// Config is the root configuration structure.
type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// LLM backend settings
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	// Loop settings for the feedback negotiation.
	Loop LoopConfig `yaml:"loop" mapstructure:"loop"`

	// Agents settings for remote collaborator processes.
	Agents AgentsConfig `yaml:"agents" mapstructure:"agents"`

	// Producer settings for video rendering.
	Producer ProducerConfig `yaml:"producer" mapstructure:"producer"`

	// Uploader settings for publishing.
	Uploader UploaderConfig `yaml:"uploader" mapstructure:"uploader"`

	// Metrics settings.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// LLMConfig contains LLM backend settings.
type LLMConfig struct {
	// BaseURL is the OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates requests. Usually set via environment.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Model is the model identifier.
	Model string `yaml:"model" mapstructure:"model"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps response length.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ClientConfig converts to the llm package's config.
func (c LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	}
}

// LoopConfig contains feedback loop settings.
type LoopConfig struct {
	// MaxAttempts is the attempts budget per run.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`

	// DurationSeconds is the required video length. Zero leaves it to the
	// planner.
	DurationSeconds int `yaml:"duration_seconds" mapstructure:"duration_seconds"`

	// Style is an optional style constraint forwarded to the agents.
	Style string `yaml:"style" mapstructure:"style"`
}

// AgentsConfig lists remote agent endpoints. An empty URL means the
// corresponding stage runs in-process (planner, reviewer) or is skipped in
// favor of the local implementation (producer, uploader).
type AgentsConfig struct {
	PlannerURL  string `yaml:"planner_url" mapstructure:"planner_url"`
	ReviewerURL string `yaml:"reviewer_url" mapstructure:"reviewer_url"`
	ProducerURL string `yaml:"producer_url" mapstructure:"producer_url"`
	UploaderURL string `yaml:"uploader_url" mapstructure:"uploader_url"`

	// TaskTimeout bounds each remote task call.
	TaskTimeout time.Duration `yaml:"task_timeout" mapstructure:"task_timeout"`
}

// ProducerConfig contains local rendering settings.
type ProducerConfig struct {
	// Enabled turns the render stage on. With it off, approved runs stop
	// after metadata enrichment.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Command is the shell command used when no producer agent URL is set.
	Command string `yaml:"command" mapstructure:"command"`

	// OutputDir is where rendered clips land.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`

	// Timeout bounds one render.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// UploaderConfig contains publish settings.
type UploaderConfig struct {
	// Enabled turns the upload stage on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Privacy is the publish visibility (public, unlisted, private).
	Privacy string `yaml:"privacy" mapstructure:"privacy"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Addr is the listen address for /metrics.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.local/share/shortcycle/shortcycle.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		LLM: LLMConfig{
			Timeout: 120 * time.Second,
		},
		Loop: LoopConfig{
			MaxAttempts:     loop.DefaultMaxAttempts,
			DurationSeconds: 30,
		},
		Agents: AgentsConfig{
			TaskTimeout: 300 * time.Second,
		},
		Producer: ProducerConfig{
			OutputDir: "output",
			Timeout:   15 * time.Minute,
		},
		Uploader: UploaderConfig{
			Privacy: uploader.DefaultPrivacy,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Loop.MaxAttempts < 1 {
		return fmt.Errorf("loop.max_attempts must be at least 1, got %d", c.Loop.MaxAttempts)
	}
	if c.Loop.DurationSeconds < 0 {
		return fmt.Errorf("loop.duration_seconds cannot be negative, got %d", c.Loop.DurationSeconds)
	}
	if c.Loop.DurationSeconds > 600 {
		return fmt.Errorf("loop.duration_seconds %d exceeds the short-form ceiling of 600", c.Loop.DurationSeconds)
	}

	switch c.Uploader.Privacy {
	case "", uploader.PrivacyPublic, uploader.PrivacyUnlisted, uploader.PrivacyPrivate:
	default:
		return fmt.Errorf("uploader.privacy must be public, unlisted, or private, got %q", c.Uploader.Privacy)
	}

	if c.Producer.Enabled && c.Producer.Command == "" && c.Agents.ProducerURL == "" {
		return fmt.Errorf("producer.enabled requires producer.command or agents.producer_url")
	}
	if c.Uploader.Enabled && !c.Producer.Enabled {
		return fmt.Errorf("uploader.enabled requires producer.enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.enabled requires metrics.addr")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}

	return nil
}
