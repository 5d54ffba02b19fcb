// Package backend selects the chat backend the assistant talks to.
package backend

import (
	"fmt"

	"github.com/0xcro3dile/ao-assistant/internal/adapters/backend/openai"
	"github.com/0xcro3dile/ao-assistant/internal/adapters/backend/webhook"
	"github.com/0xcro3dile/ao-assistant/internal/config"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// New builds the configured backend. apiToken is the persisted settings
// token, used by the direct backend when no key is configured.
func New(cfg *config.Config, sessions ports.SessionSource, apiToken string) (ports.ChatBackend, error) {
	switch cfg.Backend {
	case config.BackendWebhook:
		return webhook.NewBackend(cfg.WebhookURL, sessions, cfg.RequestTimeout), nil
	case config.BackendOpenAI:
		key := cfg.OpenAIKey
		if key == "" {
			key = apiToken
		}
		b, err := openai.NewBackend(openai.Config{
			APIKey:           key,
			BaseURL:          cfg.OpenAIBaseURL,
			Model:            cfg.OpenAIModel,
			PollInterval:     cfg.PollInterval,
			RunPollAttempts:  cfg.RunPollAttempts,
			FilePollAttempts: cfg.FilePollAttempts,
			HistoryWindow:    cfg.HistoryWindow,
			Timeout:          cfg.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("creating openai backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
