package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

type mockSessions struct {
	session *entities.Session
	err     error
}

func (m *mockSessions) CurrentSession(ctx context.Context) (*entities.Session, error) {
	return m.session, m.err
}

func signedIn() *mockSessions {
	return &mockSessions{session: &entities.Session{
		AccessToken: "token",
		User:        entities.User{ID: "user-1", Email: "a@example.com"},
	}}
}

func TestBackend_SendMessage_StreamsReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathChat {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "text/plain" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("unexpected cache-control header: %s", r.Header.Get("Cache-Control"))
		}

		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body.SessionID != "user-1" || body.ChatInput != "hello" || body.ConversationID != "c1" {
			t.Errorf("unexpected request body: %+v", body)
		}

		w.Write([]byte(`{"type":"begin"}` + "\n"))
		w.Write([]byte(`{"type":"item","content":"Hel"}` + "\n"))
		w.Write([]byte("keep-alive\n"))
		w.Write([]byte(`{"type":"item","content":"lo"}` + "\n"))
		w.Write([]byte(`{"type":"end"}`))
	}))
	defer server.Close()

	backend := NewBackend(server.URL, signedIn(), 0)

	var updates []string
	msg, err := backend.SendMessage(context.Background(), entities.ChatTurn{
		ConversationID: "c1",
		Text:           "hello",
	}, func(content string) {
		updates = append(updates, content)
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if msg.Content != "Hello" || msg.Role != entities.RoleAssistant {
		t.Errorf("unexpected message: %+v", msg)
	}
	if len(updates) != 2 || updates[0] != "Hel" || updates[1] != "Hello" {
		t.Errorf("unexpected progress updates: %v", updates)
	}
}

func TestBackend_SendMessage_EmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"begin"}` + "\n" + `{"type":"end"}` + "\n"))
	}))
	defer server.Close()

	backend := NewBackend(server.URL, signedIn(), 0)
	_, err := backend.SendMessage(context.Background(), entities.ChatTurn{Text: "hi"}, nil)
	if !errors.Is(err, entities.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestBackend_SendMessage_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := NewBackend(server.URL, signedIn(), 0)
	_, err := backend.SendMessage(context.Background(), entities.ChatTurn{Text: "hi"}, nil)

	var backendErr *entities.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected status: %d", backendErr.StatusCode)
	}
	if backendErr.Message != "workflow failed" {
		t.Errorf("unexpected message: %q", backendErr.Message)
	}
}

func TestBackend_RequiresSession(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	backend := NewBackend(server.URL, &mockSessions{}, 0)

	if _, err := backend.SendMessage(context.Background(), entities.ChatTurn{Text: "hi"}, nil); !errors.Is(err, entities.ErrNoSession) {
		t.Errorf("send: expected ErrNoSession, got %v", err)
	}
	if _, err := backend.ListConversations(context.Background()); !errors.Is(err, entities.ErrNoSession) {
		t.Errorf("list: expected ErrNoSession, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no requests without a session, got %d", calls)
	}
}

func TestBackend_UploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathUpload {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
			return
		}

		checks := map[string]string{
			"documentType":   "project_doc",
			"sessionID":      "user-1",
			"conversationId": "c1",
			"vectorStoreId":  "vs_1",
		}
		for field, want := range checks {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s: expected %q, got %q", field, want, got)
			}
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.txt" || string(data) != "some notes" {
			t.Errorf("unexpected file %s: %q", header.Filename, data)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"content":       "some notes",
			"vectorStoreId": "vs_1",
			"fileId":        "file_9",
		})
	}))
	defer server.Close()

	backend := NewBackend(server.URL, signedIn(), 0)
	result, err := backend.UploadDocument(context.Background(), entities.UploadRequest{
		File:           entities.FilePayload{Name: "notes.txt", Size: 10, ContentType: "text/plain", Data: []byte("some notes")},
		Type:           entities.ProjectDoc,
		ConversationID: "c1",
		IndexHandle:    "vs_1",
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if !result.Success || result.IndexHandle != "vs_1" || result.FileHandle != "file_9" || result.Content != "some notes" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestBackend_Listings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body identityRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.SessionID != "user-1" {
			t.Errorf("%s: unexpected session id %q", r.URL.Path, body.SessionID)
		}

		switch r.URL.Path {
		case PathConversations:
			w.Write([]byte(`[{"id":"c1","title":"First","vectorStoreId":"vs_1"}]`))
		case PathDocuments:
			w.Write([]byte(`[{"id":"d1","name":"a.pdf","documentType":"project_doc","conversationId":"c1"}]`))
		case PathCreateConversation:
			if body.Title != "Planning" {
				t.Errorf("unexpected title %q", body.Title)
			}
			w.Write([]byte(`{"id":"c2"}`))
		case PathHistory:
			if body.ConversationID != "c1" {
				t.Errorf("unexpected conversation %q", body.ConversationID)
			}
			w.Write([]byte(`[{"human":"hi","ai":"hello"}]`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	backend := NewBackend(server.URL+"/", signedIn(), 0)
	ctx := context.Background()

	convs, err := backend.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list conversations failed: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "c1" || convs[0].IndexHandle != "vs_1" {
		t.Errorf("unexpected conversations: %+v", convs)
	}

	docs, err := backend.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list documents failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Type != entities.ProjectDoc || docs[0].ConversationID != "c1" {
		t.Errorf("unexpected documents: %+v", docs)
	}

	id, err := backend.CreateConversation(ctx, "Planning")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != "c2" {
		t.Errorf("expected c2, got %s", id)
	}

	pairs, err := backend.ConversationHistory(ctx, "c1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Human != "hi" || pairs[0].AI != "hello" {
		t.Errorf("unexpected history: %+v", pairs)
	}
}

func TestBackend_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "<html>oops</html>"},
		{"wrong shape", `{"conversations":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			backend := NewBackend(server.URL, signedIn(), 0)
			_, err := backend.ListConversations(context.Background())
			if !errors.Is(err, entities.ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestBackend_CreateConversation_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	backend := NewBackend(server.URL, signedIn(), 0)
	if _, err := backend.CreateConversation(context.Background(), "x"); !errors.Is(err, entities.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}
