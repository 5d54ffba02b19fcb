package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by AO_BACKEND.
const (
	BackendWebhook = "webhook"
	BackendOpenAI  = "openai"
)

type Config struct {
	// Backend
	Backend    string `env:"AO_BACKEND" envDefault:"webhook"`
	WebhookURL string `env:"AO_WEBHOOK_URL" envDefault:"http://localhost:5678/webhook/ao-assistant"`

	// Direct provider
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Auth
	AuthURL     string `env:"AO_AUTH_URL" envDefault:"http://localhost:9999"`
	AuthAnonKey string `env:"AO_AUTH_ANON_KEY"`

	// Storage
	DataDir string `env:"AO_DATA_DIR" envDefault:"./data"`

	// Server
	ListenAddr string `env:"AO_LISTEN_ADDR" envDefault:":8080"`

	// Logging
	LogLevel string `env:"AO_LOG_LEVEL" envDefault:"info"`

	// Polling
	PollInterval     time.Duration `env:"AO_POLL_INTERVAL" envDefault:"1s"`
	RunPollAttempts  int           `env:"AO_RUN_POLL_ATTEMPTS" envDefault:"60"`
	FilePollAttempts int           `env:"AO_FILE_POLL_ATTEMPTS" envDefault:"30"`
	HistoryWindow    int           `env:"AO_HISTORY_WINDOW" envDefault:"10"`
	RequestTimeout   time.Duration `env:"AO_REQUEST_TIMEOUT" envDefault:"5m"`

	// Uploads
	BatchSettleDelay     time.Duration `env:"AO_BATCH_SETTLE_DELAY" envDefault:"500ms"`
	ProgressClearSuccess time.Duration `env:"AO_PROGRESS_CLEAR_SUCCESS" envDefault:"2s"`
	ProgressClearError   time.Duration `env:"AO_PROGRESS_CLEAR_ERROR" envDefault:"5s"`
	PDFServiceURL        string        `env:"AO_PDF_SERVICE_URL"`
	WatchSettle          time.Duration `env:"AO_WATCH_SETTLE" envDefault:"500ms"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("AO_WEBHOOK_URL is required for the webhook backend")
		}
	case BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend %q: want %s or %s", c.Backend, BackendWebhook, BackendOpenAI)
	}
	if c.RunPollAttempts <= 0 || c.FilePollAttempts <= 0 {
		return fmt.Errorf("poll attempts must be positive")
	}
	return nil
}

// SlogLevel maps AO_LOG_LEVEL onto a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
