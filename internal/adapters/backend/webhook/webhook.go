// Package webhook is the workflow-automation backend: every operation is a
// POST to a path under one webhook base URL, and chat replies stream back as
// newline-delimited JSON.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
	"github.com/0xcro3dile/ao-assistant/internal/domain/reply"
)

// Paths below the base URL.
const (
	PathChat               = "/chat"
	PathUpload             = "/upload"
	PathConversations      = "/conversations"
	PathCreateConversation = "/conversations/create"
	PathDocuments          = "/documents"
	PathHistory            = "/history"
)

// Backend implements ports.ChatBackend against a workflow webhook.
type Backend struct {
	baseURL  string
	sessions ports.SessionSource
	client   *http.Client
}

// NewBackend creates a webhook backend. The session user id identifies the
// caller on every request.
func NewBackend(baseURL string, sessions ports.SessionSource, timeout time.Duration) *Backend {
	if timeout <= 0 {
		timeout = 5 * time.Minute // streamed replies can be slow
	}
	return &Backend{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	SessionID      string `json:"sessionID"`
	ChatInput      string `json:"chatInput"`
	ConversationID string `json:"conversationId,omitempty"`
}

type identityRequest struct {
	SessionID      string `json:"sessionID"`
	ConversationID string `json:"conversationId,omitempty"`
	Title          string `json:"title,omitempty"`
}

type uploadResponse struct {
	Success       bool   `json:"success"`
	Content       string `json:"content"`
	VectorStoreID string `json:"vectorStoreId"`
	FileID        string `json:"fileId"`
}

type createResponse struct {
	ID string `json:"id"`
}

// SendMessage posts the user turn and assembles the streamed reply.
func (b *Backend) SendMessage(ctx context.Context, turn entities.ChatTurn, onProgress func(content string)) (*entities.Message, error) {
	sessionID, err := b.sessionID(ctx)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(chatRequest{
		SessionID:      sessionID,
		ChatInput:      turn.Text,
		ConversationID: turn.ConversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+PathChat, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")

	slog.Debug("sending chat turn", "conversation", turn.ConversationID, "chars", len(turn.Text))

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling webhook: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError("chat", resp)
	}

	return reply.Assemble(reply.NewStream(resp.Body), onProgress)
}

// UploadDocument sends the file as multipart form data.
func (b *Backend) UploadDocument(ctx context.Context, r entities.UploadRequest) (*entities.UploadResult, error) {
	sessionID, err := b.sessionID(ctx)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, r.File.Name))
	contentType := r.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(r.File.Data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}

	fields := map[string]string{
		"documentType":   string(r.Type),
		"sessionID":      sessionID,
		"conversationId": r.ConversationID,
		"vectorStoreId":  r.IndexHandle,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+PathUpload, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadResponse
	if err := b.do(req, "upload", &out); err != nil {
		return nil, err
	}

	slog.Debug("document uploaded", "file", r.File.Name, "type", r.Type, "success", out.Success)
	return &entities.UploadResult{
		Success:     out.Success,
		Content:     out.Content,
		IndexHandle: out.VectorStoreID,
		FileHandle:  out.FileID,
	}, nil
}

// ListConversations returns the conversations of the session user.
func (b *Backend) ListConversations(ctx context.Context) ([]entities.RemoteConversation, error) {
	var out []entities.RemoteConversation
	if err := b.postJSON(ctx, "conversations", PathConversations, identityRequest{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments returns the documents of the session user.
func (b *Backend) ListDocuments(ctx context.Context) ([]entities.RemoteDocument, error) {
	var out []entities.RemoteDocument
	if err := b.postJSON(ctx, "documents", PathDocuments, identityRequest{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation registers a conversation and returns its id.
func (b *Backend) CreateConversation(ctx context.Context, title string) (string, error) {
	var out createResponse
	if err := b.postJSON(ctx, "create conversation", PathCreateConversation, identityRequest{Title: title}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create conversation: %w: missing id", entities.ErrMalformedResponse)
	}
	return out.ID, nil
}

// ConversationHistory returns the (human, ai) pairs of a conversation.
func (b *Backend) ConversationHistory(ctx context.Context, conversationID string) ([]entities.HistoryPair, error) {
	var out []entities.HistoryPair
	if err := b.postJSON(ctx, "history", PathHistory, identityRequest{ConversationID: conversationID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// postJSON sends body, stamped with the session user id, and decodes the
// JSON answer into out.
func (b *Backend) postJSON(ctx context.Context, op, path string, body identityRequest, out any) error {
	sessionID, err := b.sessionID(ctx)
	if err != nil {
		return err
	}
	body.SessionID = sessionID

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req, op, out)
}

func (b *Backend) do(req *http.Request, op string, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: %w: empty body", op, entities.ErrMalformedResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, entities.ErrMalformedResponse, err)
	}
	return nil
}

func (b *Backend) sessionID(ctx context.Context) (string, error) {
	session, err := b.sessions.CurrentSession(ctx)
	if err != nil && !errors.Is(err, entities.ErrNoSession) {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if session == nil || session.User.ID == "" {
		return "", entities.ErrNoSession
	}
	return session.User.ID, nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &entities.BackendError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
	}
}
