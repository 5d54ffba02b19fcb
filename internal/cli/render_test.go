package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/reply"
	"github.com/0xcro3dile/ao-assistant/internal/domain/usecases"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"short", "*****"},
		{"sk-1234567890abcd", "sk-1*********abcd"},
	}
	for _, tt := range tests {
		if got := maskToken(tt.token); got != tt.want {
			t.Errorf("maskToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}

	if got := maskToken(""); !strings.Contains(got, "not set") {
		t.Errorf("expected placeholder for empty token, got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRenderMessage_Citations(t *testing.T) {
	msg := entities.Message{
		Role:      entities.RoleAssistant,
		Content:   "See" + reply.Marker(1) + " for details",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
		Citations: []entities.Citation{{ID: "cite-1", Filename: "report.pdf", Page: 1}},
	}

	out := renderMessage(msg)
	if !strings.Contains(out, "See(1) for details") {
		t.Errorf("expected rendered marker, got %q", out)
	}
	if !strings.Contains(out, "(1) report.pdf, page 1") {
		t.Errorf("expected citation line, got %q", out)
	}
}

func TestRenderProgress(t *testing.T) {
	if got := renderProgress(nil); got != "" {
		t.Errorf("expected nothing without progress, got %q", got)
	}

	p := usecases.UploadProgress{
		Steps: []usecases.ProgressStep{
			{ID: "upload", Label: "Uploading file", Status: usecases.StepCompleted},
			{ID: "process", Label: "Processing and vectorizing", Status: usecases.StepError},
		},
		Error: "upload rejected by backend",
	}
	out := renderProgress(&p)
	for _, want := range []string{"Uploading file", "Processing and vectorizing", "upload rejected by backend"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestRenderConversations(t *testing.T) {
	if got := renderConversations(nil, ""); !strings.Contains(got, "No conversations") {
		t.Errorf("unexpected empty rendering %q", got)
	}

	convs := []entities.Conversation{
		{ID: "c1", Title: "First"},
		{ID: "c2", Title: "Second"},
	}
	out := renderConversations(convs, "c2")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "* c2") {
		t.Errorf("expected active marker on c2, got %q", lines[1])
	}
}
