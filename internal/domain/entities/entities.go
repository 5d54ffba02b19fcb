// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, transport or UI.
package entities

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DocumentType partitions documents between a conversation and the user profile.
type DocumentType string

const (
	// ProjectDoc belongs to exactly one conversation.
	ProjectDoc DocumentType = "project_doc"
	// UserDoc belongs to the profile and is visible across conversations.
	UserDoc DocumentType = "user_doc"
)

// Conversation is one chat thread with its messages and attached documents.
type Conversation struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Messages    []Message          `json:"messages"`
	Documents   []UploadedDocument `json:"documents"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	IndexHandle string             `json:"vectorStoreId,omitempty"` // backend retrieval index
}

// Message is a single chat turn. Messages are immutable once appended.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// UploadedDocument is a file the backend has accepted (and usually vectorized).
type UploadedDocument struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Size           int64        `json:"size"`
	UploadedAt     time.Time    `json:"uploadedAt"`
	Vectorized     bool         `json:"vectorized"`
	Content        string       `json:"content,omitempty"`
	FileHandle     string       `json:"fileId,omitempty"`
	Type           DocumentType `json:"documentType,omitempty"`
	ConversationID string       `json:"conversationId,omitempty"`
}

// Citation locates a source reference inside an assistant reply.
// StartIndex and EndIndex refer to the original, unsubstituted reply text.
type Citation struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	Filename   string `json:"filename,omitempty"`
	Page       int    `json:"page"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
}

// AppSettings holds locally persisted preferences.
type AppSettings struct {
	APIToken string `json:"openaiToken"`
}

// User is the authenticated identity shown by the app shell.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session issued by the auth provider.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// HistoryPair is one (human, ai) exchange returned by the backend.
type HistoryPair struct {
	Human string `json:"human"`
	AI    string `json:"ai"`
}

// RemoteConversation is a conversation as listed by the backend.
type RemoteConversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IndexHandle string    `json:"vectorStoreId,omitempty"`
}

// RemoteDocument is a document as listed by the backend.
type RemoteDocument struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Size           int64        `json:"size"`
	Type           DocumentType `json:"documentType"`
	ConversationID string       `json:"conversationId,omitempty"`
	FileHandle     string       `json:"fileId,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ChatTurn is everything a backend needs to answer one user message.
type ChatTurn struct {
	ConversationID string
	Text           string
	History        []Message
	Documents      []UploadedDocument
	IndexHandle    string
}

// FilePayload is a local file ready to be uploaded.
type FilePayload struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// UploadRequest asks a backend to store (and vectorize) one file.
type UploadRequest struct {
	File           FilePayload
	Type           DocumentType
	ConversationID string
	IndexHandle    string
}

// UploadResult is the backend's answer to an UploadRequest.
type UploadResult struct {
	Success     bool
	Content     string
	IndexHandle string
	FileHandle  string
}

// PersistedState is the durable part of the assistant state. The streaming
// placeholder and upload progress are never part of it.
type PersistedState struct {
	Settings         AppSettings
	Conversations    []Conversation
	ProfileDocuments []UploadedDocument
}
