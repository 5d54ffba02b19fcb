package app

import (
	"context"
	"testing"

	"github.com/0xcro3dile/ao-assistant/internal/adapters/backend/webhook"
	"github.com/0xcro3dile/ao-assistant/internal/config"
	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Backend:          config.BackendWebhook,
		WebhookURL:       "http://127.0.0.1:1/webhook",
		AuthURL:          "http://127.0.0.1:1/auth",
		DataDir:          t.TempDir(),
		RunPollAttempts:  1,
		FilePollAttempts: 1,
	}
}

func TestNew_WiresWebhookBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer a.Close()

	if _, ok := a.Backend.(*webhook.Backend); !ok {
		t.Errorf("expected webhook backend, got %T", a.Backend)
	}
	if a.Workspace.Snapshot().User != nil {
		t.Error("expected no user without a session")
	}
}

func TestNew_RestoresSettings(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	first.Workspace.UpdateSettings(entities.AppSettings{APIToken: "sk-saved"})
	first.Close()

	second, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	if got := second.Workspace.Snapshot().Settings.APIToken; got != "sk-saved" {
		t.Errorf("expected restored token, got %q", got)
	}
}

func TestNew_OpenAIUsesSavedToken(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	first.Workspace.UpdateSettings(entities.AppSettings{APIToken: "sk-saved"})
	first.Close()

	cfg.Backend = config.BackendOpenAI
	second, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openai backend should start with the saved token: %v", err)
	}
	second.Close()
}

func TestDropFolder(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer a.Close()

	if _, err := a.DropFolder(); err != nil {
		t.Errorf("drop folder failed: %v", err)
	}
}
