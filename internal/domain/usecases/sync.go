package usecases

import (
	"fmt"
	"time"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// historySpacing separates the synthetic timestamps of expanded history.
const historySpacing = time.Millisecond

// PartitionDocuments splits a backend document listing into project documents
// keyed by owning conversation and the profile-level user documents.
// Project documents without an owner are dropped.
func PartitionDocuments(docs []entities.RemoteDocument) (map[string][]entities.UploadedDocument, []entities.UploadedDocument) {
	byConversation := make(map[string][]entities.UploadedDocument)
	profile := make([]entities.UploadedDocument, 0)

	for _, d := range docs {
		doc := fromRemoteDocument(d)
		switch d.Type {
		case entities.UserDoc:
			doc.ConversationID = ""
			profile = append(profile, doc)
		case entities.ProjectDoc:
			if d.ConversationID == "" {
				continue
			}
			byConversation[d.ConversationID] = append(byConversation[d.ConversationID], doc)
		}
	}
	return byConversation, profile
}

func fromRemoteDocument(d entities.RemoteDocument) entities.UploadedDocument {
	return entities.UploadedDocument{
		ID:             d.ID,
		Name:           d.Name,
		Size:           d.Size,
		UploadedAt:     d.CreatedAt,
		Vectorized:     true,
		FileHandle:     d.FileHandle,
		Type:           d.Type,
		ConversationID: d.ConversationID,
	}
}

// BuildConversations turns a backend conversation listing into conversations
// with their project documents attached.
func BuildConversations(remote []entities.RemoteConversation, docs map[string][]entities.UploadedDocument) []entities.Conversation {
	out := make([]entities.Conversation, 0, len(remote))
	for _, rc := range remote {
		attached := docs[rc.ID]
		if attached == nil {
			attached = []entities.UploadedDocument{}
		}
		messages := rc.Messages
		if messages == nil {
			messages = []entities.Message{}
		}
		out = append(out, entities.Conversation{
			ID:          rc.ID,
			Title:       rc.Title,
			Messages:    messages,
			Documents:   attached,
			CreatedAt:   rc.CreatedAt,
			UpdatedAt:   rc.UpdatedAt,
			IndexHandle: rc.IndexHandle,
		})
	}
	return out
}

// MergeConversations reconciles local conversations with a backend listing.
// Backend order wins for known conversations; local-only conversations are
// kept in front, since they were created here and not pushed yet. A local
// message list that is non-empty is never overwritten by the listing.
func MergeConversations(local, remote []entities.Conversation) []entities.Conversation {
	localByID := make(map[string]entities.Conversation, len(local))
	for _, c := range local {
		localByID[c.ID] = c
	}
	remoteIDs := make(map[string]bool, len(remote))

	merged := make([]entities.Conversation, 0, len(local)+len(remote))
	for _, rc := range remote {
		remoteIDs[rc.ID] = true
		lc, ok := localByID[rc.ID]
		if !ok {
			merged = append(merged, rc)
			continue
		}

		c := rc
		if len(lc.Messages) > 0 {
			c.Messages = lc.Messages
		}
		if c.IndexHandle == "" {
			c.IndexHandle = lc.IndexHandle
		}
		if c.Title == "" {
			c.Title = lc.Title
		}
		if lc.UpdatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = lc.UpdatedAt
		}
		c.Documents = MergeDocuments(lc.Documents, rc.Documents)
		merged = append(merged, c)
	}

	localOnly := make([]entities.Conversation, 0)
	for _, lc := range local {
		if !remoteIDs[lc.ID] {
			localOnly = append(localOnly, lc)
		}
	}
	return append(localOnly, merged...)
}

// MergeDocuments returns the union of two document sets by ID. Entries from
// local come first and win on conflict.
func MergeDocuments(local, remote []entities.UploadedDocument) []entities.UploadedDocument {
	seen := make(map[string]bool, len(local))
	out := make([]entities.UploadedDocument, 0, len(local)+len(remote))
	for _, d := range local {
		seen[d.ID] = true
		out = append(out, d)
	}
	for _, d := range remote {
		if !seen[d.ID] {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

// ExpandHistory turns (human, ai) pairs into an ordered message list.
// IDs and timestamps depend only on the inputs, so expanding the same payload
// twice yields identical messages. Every pair yields two messages, even when
// one side is empty.
func ExpandHistory(conversationID string, base time.Time, pairs []entities.HistoryPair) []entities.Message {
	messages := make([]entities.Message, 0, len(pairs)*2)
	position := 0
	add := func(role entities.Role, content string) {
		messages = append(messages, entities.Message{
			ID:        fmt.Sprintf("%s-%s-%d", conversationID, role, position),
			Role:      role,
			Content:   content,
			Timestamp: base.Add(time.Duration(position) * historySpacing).UTC(),
		})
		position++
	}

	for _, p := range pairs {
		add(entities.RoleUser, p.Human)
		add(entities.RoleAssistant, p.AI)
	}
	return messages
}
