package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend != BackendWebhook {
		t.Errorf("expected webhook backend, got %s", cfg.Backend)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("unexpected data dir: %s", cfg.DataDir)
	}
	if cfg.BatchSettleDelay != 500*time.Millisecond {
		t.Errorf("unexpected settle delay: %v", cfg.BatchSettleDelay)
	}
	if cfg.ProgressClearError != 5*time.Second {
		t.Errorf("unexpected error clear delay: %v", cfg.ProgressClearError)
	}
	if cfg.RunPollAttempts != 60 || cfg.FilePollAttempts != 30 {
		t.Errorf("unexpected poll bounds: %d/%d", cfg.RunPollAttempts, cfg.FilePollAttempts)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AO_BACKEND", "OpenAI")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("AO_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Backend != BackendOpenAI {
		t.Errorf("expected openai backend, got %s", cfg.Backend)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("unexpected model: %s", cfg.OpenAIModel)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("unexpected poll interval: %v", cfg.PollInterval)
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("AO_BACKEND", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
