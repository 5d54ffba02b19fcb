// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// ChatBackend is the chat/document service the assistant talks to.
// Exactly one implementation is active at a time.
type ChatBackend interface {
	// SendMessage answers one user turn. onProgress, when non-nil, receives the
	// complete reply text accumulated so far after each increment.
	SendMessage(ctx context.Context, turn entities.ChatTurn, onProgress func(content string)) (*entities.Message, error)

	// UploadDocument stores and vectorizes a file.
	UploadDocument(ctx context.Context, req entities.UploadRequest) (*entities.UploadResult, error)

	// ListConversations returns every conversation of the session identity.
	ListConversations(ctx context.Context) ([]entities.RemoteConversation, error)

	// ListDocuments returns every document of the session identity.
	ListDocuments(ctx context.Context) ([]entities.RemoteDocument, error)

	// CreateConversation registers a conversation and returns its identifier.
	CreateConversation(ctx context.Context, title string) (string, error)

	// ConversationHistory returns the (human, ai) pairs of a conversation.
	ConversationHistory(ctx context.Context, conversationID string) ([]entities.HistoryPair, error)
}

// DocumentSyncer is implemented by backends that can list the files behind
// a conversation's index handle.
type DocumentSyncer interface {
	IndexDocuments(ctx context.Context, indexHandle string) ([]entities.UploadedDocument, error)
}

// SessionSource yields the identity implicit in backend calls.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*entities.Session, error)
}

// AuthEvent is a session state transition.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthProvider is the managed authentication service.
type AuthProvider interface {
	SessionSource

	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (*entities.Session, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error

	// OnAuthStateChange registers fn for session transitions and returns a
	// function that removes it.
	OnAuthStateChange(fn func(event AuthEvent, session *entities.Session)) (unsubscribe func())
}

// KeyValueStore persists serialized values under string keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StateStore saves and restores the durable assistant state.
type StateStore interface {
	LoadState(ctx context.Context) (*entities.PersistedState, error)
	SaveState(ctx context.Context, state entities.PersistedState) error
}

// FileLoader reads local files into upload payloads.
type FileLoader interface {
	Load(ctx context.Context, path string) (*entities.FilePayload, error)

	// SupportedExtensions returns the file extensions accepted for upload.
	SupportedExtensions() []string
}

// PreviewExtractor derives displayable text from an uploaded file.
type PreviewExtractor interface {
	Preview(ctx context.Context, file entities.FilePayload) (string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
