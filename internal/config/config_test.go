package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero max attempts",
			mutate: func(c *Config) { c.Loop.MaxAttempts = 0 },
			want:   "max_attempts",
		},
		{
			name:   "negative max attempts",
			mutate: func(c *Config) { c.Loop.MaxAttempts = -3 },
			want:   "max_attempts",
		},
		{
			name:   "negative duration",
			mutate: func(c *Config) { c.Loop.DurationSeconds = -1 },
			want:   "duration_seconds",
		},
		{
			name:   "absurd duration",
			mutate: func(c *Config) { c.Loop.DurationSeconds = 3600 },
			want:   "duration_seconds",
		},
		{
			name:   "unknown privacy",
			mutate: func(c *Config) { c.Uploader.Privacy = "loud" },
			want:   "privacy",
		},
		{
			name:   "producer enabled without backend",
			mutate: func(c *Config) { c.Producer.Enabled = true },
			want:   "producer",
		},
		{
			name: "uploader without producer",
			mutate: func(c *Config) {
				c.Uploader.Enabled = true
			},
			want: "uploader",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "loudest" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
loop:
  max_attempts: 3
  duration_seconds: 45
  style: rainy forest
llm:
  model: test-model
uploader:
  privacy: private
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Loop.MaxAttempts != 3 || cfg.Loop.DurationSeconds != 45 {
		t.Fatalf("loop config = %+v", cfg.Loop)
	}
	if cfg.Loop.Style != "rainy forest" {
		t.Fatalf("style = %q", cfg.Loop.Style)
	}
	if cfg.LLM.Model != "test-model" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if cfg.Uploader.Privacy != "private" {
		t.Fatalf("privacy = %q", cfg.Uploader.Privacy)
	}
	// Untouched sections keep their defaults.
	if cfg.Producer.OutputDir != "output" {
		t.Fatalf("output dir = %q", cfg.Producer.OutputDir)
	}
}

func TestLoadInvalidFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("loop:\n  max_attempts: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHORTCYCLE_LOOP_MAX_ATTEMPTS", "7")
	t.Setenv("SHORTCYCLE_LLM_API_KEY", "env-key")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Loop.MaxAttempts != 7 {
		t.Fatalf("max attempts = %d, want env override 7", cfg.Loop.MaxAttempts)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestEnvOverridesTimeoutsAndCaller(t *testing.T) {
	t.Setenv("SHORTCYCLE_LLM_TIMEOUT", "90s")
	t.Setenv("SHORTCYCLE_AGENTS_TASK_TIMEOUT", "45s")
	t.Setenv("SHORTCYCLE_PRODUCER_TIMEOUT", "10m")
	t.Setenv("SHORTCYCLE_LOGGING_ENABLE_CALLER", "true")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Fatalf("llm timeout = %v, want env override 90s", cfg.LLM.Timeout)
	}
	if cfg.Agents.TaskTimeout != 45*time.Second {
		t.Fatalf("task timeout = %v, want env override 45s", cfg.Agents.TaskTimeout)
	}
	if cfg.Producer.Timeout != 10*time.Minute {
		t.Fatalf("producer timeout = %v, want env override 10m", cfg.Producer.Timeout)
	}
	if !cfg.Logging.EnableCaller {
		t.Fatal("enable_caller env override not applied")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	if got := expandTilde("~/data/db.sqlite"); got != filepath.Join(home, "data/db.sqlite") {
		t.Fatalf("expandTilde = %q", got)
	}
	if got := expandTilde("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path must pass through, got %q", got)
	}
}
