// Package openai talks to the AI provider directly: plain chat completions
// for conversations without documents, and assistants with file search over
// a per-conversation vector store once documents are attached.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/reply"
)

const (
	assistantName         = "Document Assistant"
	assistantInstructions = "You are a helpful and precise assistant. Search the uploaded documents with file search first and ground your answers in them."
	chatSystemPrompt      = "You are a helpful and precise assistant."

	threadSeedMessages = 5
	chatTemperature    = 0.7
	chatMaxTokens      = 1500

	vectorStoreExpiryDays = 7
	fileStatusCompleted   = "completed"
	fileStatusInProgress  = "in_progress"
	unknownDocumentName   = "Unknown document"
)

// Config configures the direct backend.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	PollInterval     time.Duration
	RunPollAttempts  int
	FilePollAttempts int
	HistoryWindow    int
	Timeout          time.Duration
}

// Backend implements ports.ChatBackend and ports.DocumentSyncer on the
// provider API.
type Backend struct {
	client *openai.Client
	cfg    Config
}

// NewBackend creates a direct backend. An empty API key is rejected.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, entities.ErrMissingAPIToken
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RunPollAttempts <= 0 {
		cfg.RunPollAttempts = 60
	}
	if cfg.FilePollAttempts <= 0 {
		cfg.FilePollAttempts = 30
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Backend{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

// SendMessage answers a turn. Conversations with an index handle go through
// an assistant run so the reply can cite the indexed files.
func (b *Backend) SendMessage(ctx context.Context, turn entities.ChatTurn, onProgress func(content string)) (*entities.Message, error) {
	if turn.IndexHandle == "" {
		return b.complete(ctx, turn, onProgress)
	}
	return b.runAssistant(ctx, turn, onProgress)
}

func (b *Backend) complete(ctx context.Context, turn entities.ChatTurn, onProgress func(content string)) (*entities.Message, error) {
	history := lastMessages(turn.History, b.cfg.HistoryWindow)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(turn.Documents),
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: turn.Text,
	})

	stream, err := b.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       b.cfg.Model,
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting completion: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receiving completion: %w", err)
		}
		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}
		text.WriteString(response.Choices[0].Delta.Content)
		if onProgress != nil {
			onProgress(text.String())
		}
	}

	return newReply(text.String(), nil)
}

func (b *Backend) runAssistant(ctx context.Context, turn entities.ChatTurn, onProgress func(content string)) (*entities.Message, error) {
	name, instructions := assistantName, assistantInstructions
	assistant, err := b.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        b.cfg.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: []string{turn.IndexHandle}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}
	slog.Debug("assistant created", "assistant", assistant.ID, "index", turn.IndexHandle)

	seed := lastMessages(turn.History, threadSeedMessages)
	threadMessages := make([]openai.ThreadMessage, 0, len(seed)+1)
	for _, m := range seed {
		threadMessages = append(threadMessages, openai.ThreadMessage{
			Role:    openai.ThreadMessageRole(m.Role),
			Content: m.Content,
		})
	}
	threadMessages = append(threadMessages, openai.ThreadMessage{
		Role:    openai.ThreadMessageRoleUser,
		Content: turn.Text,
	})

	thread, err := b.client.CreateThread(ctx, openai.ThreadRequest{Messages: threadMessages})
	if err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}

	run, err := b.client.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: assistant.ID})
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	if err := b.waitForRun(ctx, thread.ID, run.ID); err != nil {
		return nil, err
	}

	limit, order := 1, "desc"
	list, err := b.client.ListMessage(ctx, thread.ID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing thread messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return nil, entities.ErrEmptyResponse
	}

	text, annotations, err := messageText(list.Messages[0])
	if err != nil {
		return nil, err
	}
	content, citations := reply.ReconstructCitations(text, annotations)
	if onProgress != nil && content != "" {
		onProgress(content)
	}

	slog.Debug("assistant run answered", "thread", thread.ID, "citations", len(citations))
	return newReply(content, citations)
}

// waitForRun polls the run until it reaches a terminal status.
func (b *Backend) waitForRun(ctx context.Context, threadID, runID string) error {
	for attempt := 1; attempt <= b.cfg.RunPollAttempts; attempt++ {
		if err := sleep(ctx, b.cfg.PollInterval); err != nil {
			return err
		}

		run, err := b.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			slog.Warn("failed to poll run", "run", runID, "attempt", attempt, "error", err)
			continue
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusQueued, openai.RunStatusInProgress:
			slog.Debug("run pending", "run", runID, "status", run.Status, "attempt", attempt)
		default:
			if run.LastError != nil {
				return fmt.Errorf("run %s ended with status %s: %s", runID, run.Status, run.LastError.Message)
			}
			return fmt.Errorf("run %s ended with status %s", runID, run.Status)
		}
	}
	return fmt.Errorf("run %s: %w", runID, entities.ErrPollTimeout)
}

// UploadDocument uploads the file and adds it to the conversation's vector
// store, creating the store when the conversation has none yet.
func (b *Backend) UploadDocument(ctx context.Context, r entities.UploadRequest) (*entities.UploadResult, error) {
	storeID := r.IndexHandle
	if storeID == "" {
		owner := r.ConversationID
		if owner == "" {
			owner = "profile"
		}
		store, err := b.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
			Name: "Documents-" + owner,
			ExpiresAfter: &openai.VectorStoreExpires{
				Anchor: "last_active_at",
				Days:   vectorStoreExpiryDays,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("creating vector store: %w", err)
		}
		storeID = store.ID
		slog.Debug("vector store created", "store", storeID, "owner", owner)
	}

	file, err := b.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    r.File.Name,
		Bytes:   r.File.Data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	storeFile, err := b.client.CreateVectorStoreFile(ctx, storeID, openai.VectorStoreFileRequest{FileID: file.ID})
	if err != nil {
		return nil, fmt.Errorf("adding file to vector store: %w", err)
	}

	status, err := b.waitForFile(ctx, storeID, storeFile.ID, storeFile.Status)
	if err != nil {
		return nil, err
	}
	if status != fileStatusCompleted {
		slog.Warn("file not fully processed", "file", file.ID, "store", storeID, "status", status)
	}

	return &entities.UploadResult{
		Success:     true,
		IndexHandle: storeID,
		FileHandle:  file.ID,
	}, nil
}

func (b *Backend) waitForFile(ctx context.Context, storeID, fileID, status string) (string, error) {
	if status == "" {
		status = fileStatusInProgress
	}
	for attempt := 1; status == fileStatusInProgress && attempt <= b.cfg.FilePollAttempts; attempt++ {
		if err := sleep(ctx, b.cfg.PollInterval); err != nil {
			return status, err
		}
		f, err := b.client.RetrieveVectorStoreFile(ctx, storeID, fileID)
		if err != nil {
			slog.Warn("failed to poll vector store file", "file", fileID, "attempt", attempt, "error", err)
			continue
		}
		status = f.Status
	}
	return status, nil
}

// IndexDocuments lists the files behind a vector store. Files whose details
// cannot be fetched are skipped.
func (b *Backend) IndexDocuments(ctx context.Context, indexHandle string) ([]entities.UploadedDocument, error) {
	list, err := b.client.ListVectorStoreFiles(ctx, indexHandle, openai.Pagination{})
	if err != nil {
		return nil, fmt.Errorf("listing vector store files: %w", err)
	}

	docs := make([]entities.UploadedDocument, 0, len(list.VectorStoreFiles))
	for _, vf := range list.VectorStoreFiles {
		file, err := b.client.GetFile(ctx, vf.ID)
		if err != nil {
			slog.Warn("failed to fetch file details", "file", vf.ID, "error", err)
			continue
		}
		name := file.FileName
		if name == "" {
			name = unknownDocumentName
		}
		docs = append(docs, entities.UploadedDocument{
			ID:         vf.ID,
			Name:       name,
			Size:       int64(file.Bytes),
			UploadedAt: time.Unix(vf.CreatedAt, 0).UTC(),
			Vectorized: vf.Status == fileStatusCompleted,
			FileHandle: vf.ID,
			Type:       entities.ProjectDoc,
		})
	}

	slog.Debug("vector store files listed", "store", indexHandle, "documents", len(docs))
	return docs, nil
}

// ListConversations returns nothing: the provider keeps no conversation list.
func (b *Backend) ListConversations(ctx context.Context) ([]entities.RemoteConversation, error) {
	return []entities.RemoteConversation{}, nil
}

// ListDocuments returns nothing: documents are tracked per vector store.
func (b *Backend) ListDocuments(ctx context.Context) ([]entities.RemoteDocument, error) {
	return []entities.RemoteDocument{}, nil
}

// CreateConversation allocates a local identifier.
func (b *Backend) CreateConversation(ctx context.Context, title string) (string, error) {
	return uuid.NewString(), nil
}

// ConversationHistory is not available on this backend.
func (b *Backend) ConversationHistory(ctx context.Context, conversationID string) ([]entities.HistoryPair, error) {
	return nil, entities.ErrUnsupported
}

// messageText extracts the first text block of a thread message together
// with its annotations.
func messageText(msg openai.Message) (string, []reply.Annotation, error) {
	for _, c := range msg.Content {
		if c.Text == nil {
			continue
		}
		var annotations []reply.Annotation
		if len(c.Text.Annotations) > 0 {
			raw, err := json.Marshal(c.Text.Annotations)
			if err != nil {
				return "", nil, fmt.Errorf("encoding annotations: %w", err)
			}
			if err := json.Unmarshal(raw, &annotations); err != nil {
				return "", nil, fmt.Errorf("%w: annotations: %v", entities.ErrMalformedResponse, err)
			}
		}
		return c.Text.Value, annotations, nil
	}
	return "", nil, nil
}

func systemPrompt(docs []entities.UploadedDocument) string {
	if len(docs) == 0 {
		return chatSystemPrompt
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return chatSystemPrompt + " Available documents: " + strings.Join(names, ", ")
}

func lastMessages(history []entities.Message, n int) []entities.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func newReply(content string, citations []entities.Citation) (*entities.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, entities.ErrEmptyResponse
	}
	if len(citations) == 0 {
		citations = nil
	}
	return &entities.Message{
		ID:        uuid.NewString(),
		Role:      entities.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Citations: citations,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
