package usecases

import (
	"time"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// State is the complete view-model of the assistant. Values handed out by the
// Workspace are deep copies and may be read freely.
type State struct {
	Conversations    []entities.Conversation     `json:"conversations"`
	ActiveID         string                      `json:"activeConversationId,omitempty"`
	ProfileDocuments []entities.UploadedDocument `json:"userDocuments"`
	Streaming        *entities.Message           `json:"streamingMessage,omitempty"`
	Progress         *UploadProgress             `json:"uploadProgress,omitempty"`
	Uploading        bool                        `json:"isUploading"`
	Settings         entities.AppSettings        `json:"settings"`
	User             *entities.User              `json:"user,omitempty"`
}

// Conversation returns the conversation with the given id.
func (s State) Conversation(id string) (entities.Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return entities.Conversation{}, false
}

// Active returns the active conversation, if any.
func (s State) Active() (entities.Conversation, bool) {
	if s.ActiveID == "" {
		return entities.Conversation{}, false
	}
	return s.Conversation(s.ActiveID)
}

// ActiveView returns the active conversation with the in-flight streaming
// message appended, which is what a renderer shows.
func (s State) ActiveView() (entities.Conversation, bool) {
	c, ok := s.Active()
	if !ok || s.Streaming == nil {
		return c, ok
	}
	c.Messages = append(append([]entities.Message(nil), c.Messages...), *s.Streaming)
	return c, true
}

func (s State) clone() State {
	out := s
	out.Conversations = make([]entities.Conversation, len(s.Conversations))
	for i, c := range s.Conversations {
		out.Conversations[i] = cloneConversation(c)
	}
	out.ProfileDocuments = append([]entities.UploadedDocument{}, s.ProfileDocuments...)
	if s.Streaming != nil {
		m := *s.Streaming
		out.Streaming = &m
	}
	if s.Progress != nil {
		p := s.Progress.clone()
		out.Progress = &p
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

func cloneConversation(c entities.Conversation) entities.Conversation {
	out := c
	out.Messages = make([]entities.Message, len(c.Messages))
	for i, m := range c.Messages {
		m.Citations = append([]entities.Citation(nil), m.Citations...)
		out.Messages[i] = m
	}
	out.Documents = append([]entities.UploadedDocument{}, c.Documents...)
	return out
}

// Reducer derives the next state from the latest one. Reducers never modify
// their argument in place.
type Reducer func(State) State

// updateConversation applies fn to conversation id, leaving the state
// unchanged when it does not exist.
func updateConversation(id string, fn func(entities.Conversation) entities.Conversation) Reducer {
	return func(s State) State {
		convs := make([]entities.Conversation, len(s.Conversations))
		copy(convs, s.Conversations)
		for i, c := range convs {
			if c.ID == id {
				convs[i] = fn(c)
			}
		}
		s.Conversations = convs
		return s
	}
}

func addConversation(c entities.Conversation) Reducer {
	return func(s State) State {
		s.Conversations = append([]entities.Conversation{c}, s.Conversations...)
		return s
	}
}

func removeConversation(id string) Reducer {
	return func(s State) State {
		convs := make([]entities.Conversation, 0, len(s.Conversations))
		for _, c := range s.Conversations {
			if c.ID != id {
				convs = append(convs, c)
			}
		}
		s.Conversations = convs
		if s.ActiveID == id {
			s.ActiveID = ""
		}
		return s
	}
}

func setActive(id string) Reducer {
	return func(s State) State {
		s.ActiveID = id
		return s
	}
}

func appendMessages(id string, at time.Time, msgs ...entities.Message) Reducer {
	return updateConversation(id, func(c entities.Conversation) entities.Conversation {
		c.Messages = append(append([]entities.Message(nil), c.Messages...), msgs...)
		c.UpdatedAt = at
		return c
	})
}

func replaceMessages(id string, msgs []entities.Message) Reducer {
	return updateConversation(id, func(c entities.Conversation) entities.Conversation {
		c.Messages = msgs
		return c
	})
}

// attachDocuments records uploaded documents and the index handle in a single
// transition. An empty handle keeps the current one.
func attachDocuments(id, indexHandle string, at time.Time, docs ...entities.UploadedDocument) Reducer {
	return updateConversation(id, func(c entities.Conversation) entities.Conversation {
		c.Documents = append(append([]entities.UploadedDocument(nil), c.Documents...), docs...)
		if indexHandle != "" {
			c.IndexHandle = indexHandle
		}
		c.UpdatedAt = at
		return c
	})
}

func replaceDocuments(id string, docs []entities.UploadedDocument) Reducer {
	return updateConversation(id, func(c entities.Conversation) entities.Conversation {
		c.Documents = docs
		return c
	})
}

func setConversations(convs []entities.Conversation) Reducer {
	return func(s State) State {
		s.Conversations = convs
		return s
	}
}

func addProfileDocument(doc entities.UploadedDocument) Reducer {
	return func(s State) State {
		s.ProfileDocuments = append(append([]entities.UploadedDocument(nil), s.ProfileDocuments...), doc)
		return s
	}
}

func removeProfileDocument(id string) Reducer {
	return func(s State) State {
		docs := make([]entities.UploadedDocument, 0, len(s.ProfileDocuments))
		for _, d := range s.ProfileDocuments {
			if d.ID != id {
				docs = append(docs, d)
			}
		}
		s.ProfileDocuments = docs
		return s
	}
}

func setProfileDocuments(docs []entities.UploadedDocument) Reducer {
	return func(s State) State {
		s.ProfileDocuments = docs
		return s
	}
}

func setStreaming(msg *entities.Message) Reducer {
	return func(s State) State {
		s.Streaming = msg
		return s
	}
}

// streamContent replaces the placeholder content. It is a no-op once the
// placeholder has been cleared.
func streamContent(content string) Reducer {
	return func(s State) State {
		if s.Streaming == nil {
			return s
		}
		m := *s.Streaming
		m.Content = content
		s.Streaming = &m
		return s
	}
}

func setProgress(p *UploadProgress) Reducer {
	return func(s State) State {
		s.Progress = p
		return s
	}
}

// updateProgress applies fn to the current progress, if any.
func updateProgress(fn func(UploadProgress) UploadProgress) Reducer {
	return func(s State) State {
		if s.Progress == nil {
			return s
		}
		p := fn(*s.Progress)
		s.Progress = &p
		return s
	}
}

// clearProgress removes the banner only if it is still the one identified by
// p, so a newer upload's banner survives an old timer.
func clearProgress(p *UploadProgress) Reducer {
	return func(s State) State {
		if s.Progress != nil && s.Progress.token == p.token {
			s.Progress = nil
		}
		return s
	}
}

func setUploading(v bool) Reducer {
	return func(s State) State {
		s.Uploading = v
		return s
	}
}

func setSettings(settings entities.AppSettings) Reducer {
	return func(s State) State {
		s.Settings = settings
		return s
	}
}

func setUser(u *entities.User) Reducer {
	return func(s State) State {
		s.User = u
		return s
	}
}
