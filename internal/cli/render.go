package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/reply"
	"github.com/0xcro3dile/ao-assistant/internal/domain/usecases"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#874BFD"))

	citationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A550DF")).
			PaddingLeft(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F25D94"))
)

func renderTitle(s string) string {
	return titleStyle.Render(s)
}

func renderConversations(convs []entities.Conversation, activeID string) string {
	if len(convs) == 0 {
		return mutedStyle.Render("No conversations yet. Start one with: aoassistant new")
	}

	var sb strings.Builder
	for _, c := range convs {
		marker := "  "
		if c.ID == activeID {
			marker = "* "
		}
		meta := fmt.Sprintf("%d messages, %d documents", len(c.Messages), len(c.Documents))
		fmt.Fprintf(&sb, "%s%s  %s  %s\n", marker, c.ID, c.Title, mutedStyle.Render(meta))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderRole(role entities.Role) string {
	if role == entities.RoleUser {
		return userStyle.Render("You")
	}
	return assistantStyle.Render("Assistant")
}

// renderMessage shows the content with citation markers as (n) and the
// numbered sources underneath.
func renderMessage(m entities.Message) string {
	var sb strings.Builder
	sb.WriteString(renderRole(m.Role))
	sb.WriteString(mutedStyle.Render("  " + m.Timestamp.Local().Format("2006-01-02 15:04")))
	sb.WriteString("\n")
	sb.WriteString(reply.RenderMarkers(m.Content, m.Citations))
	if cites := renderCitations(m.Citations); cites != "" {
		sb.WriteString("\n")
		sb.WriteString(cites)
	}
	return sb.String()
}

func renderCitations(citations []entities.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	lines := make([]string, len(citations))
	for i, c := range citations {
		lines[i] = citationStyle.Render(fmt.Sprintf("(%d) %s, page %d", i+1, c.Filename, c.Page))
	}
	return strings.Join(lines, "\n")
}

func renderDocuments(docs []entities.UploadedDocument) string {
	if len(docs) == 0 {
		return mutedStyle.Render("No documents.")
	}

	var sb strings.Builder
	for _, d := range docs {
		state := "pending"
		if d.Vectorized {
			state = "indexed"
		}
		fmt.Fprintf(&sb, "  %s  %s  %s\n", d.ID, d.Name,
			mutedStyle.Render(fmt.Sprintf("%s, %s", formatSize(d.Size), state)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderProgress(p *usecases.UploadProgress) string {
	if p == nil {
		return ""
	}

	lines := make([]string, 0, len(p.Steps)+1)
	for _, step := range p.Steps {
		var icon string
		switch step.Status {
		case usecases.StepCompleted:
			icon = userStyle.Render("✓")
		case usecases.StepActive:
			icon = assistantStyle.Render("●")
		case usecases.StepError:
			icon = errorStyle.Render("✗")
		default:
			icon = mutedStyle.Render("○")
		}
		lines = append(lines, fmt.Sprintf("  %s %s", icon, step.Label))
	}
	if p.Error != "" {
		lines = append(lines, errorStyle.Render("  "+p.Error))
	}
	return strings.Join(lines, "\n")
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func maskToken(token string) string {
	if token == "" {
		return mutedStyle.Render("(not set)")
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
