package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with precedence defaults < config file < env vars.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		// The config file is optional unless explicitly specified.
		if l.configFile != "" {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the file Viper actually read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "shortcycle"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "shortcycle"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHORTCYCLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys need explicit binding for AutomaticEnv to see them.
	for _, key := range []string{
		"database.path",
		"logging.level",
		"logging.format",
		"logging.file",
		"logging.enable_caller",
		"llm.base_url",
		"llm.api_key",
		"llm.model",
		"llm.temperature",
		"llm.max_tokens",
		"llm.timeout",
		"loop.max_attempts",
		"loop.duration_seconds",
		"loop.style",
		"agents.planner_url",
		"agents.reviewer_url",
		"agents.producer_url",
		"agents.uploader_url",
		"agents.task_timeout",
		"producer.enabled",
		"producer.command",
		"producer.output_dir",
		"producer.timeout",
		"uploader.enabled",
		"uploader.privacy",
		"metrics.enabled",
		"metrics.addr",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v, cfg)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("loop.max_attempts", cfg.Loop.MaxAttempts)
	v.SetDefault("loop.duration_seconds", cfg.Loop.DurationSeconds)
	v.SetDefault("agents.task_timeout", cfg.Agents.TaskTimeout)
	v.SetDefault("producer.output_dir", cfg.Producer.OutputDir)
	v.SetDefault("producer.timeout", cfg.Producer.Timeout)
	v.SetDefault("uploader.privacy", cfg.Uploader.Privacy)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	return l.v.ReadInConfig()
}

// LoadFromFile loads configuration from an explicit file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration from the standard search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandTilde(cfg.Database.Path)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
	cfg.Producer.OutputDir = expandTilde(cfg.Producer.OutputDir)
}
