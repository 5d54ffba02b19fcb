package usecases

import (
	"reflect"
	"testing"
	"time"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

func TestPartitionDocuments_SplitsByType(t *testing.T) {
	docs := []entities.RemoteDocument{
		{ID: "d1", Name: "a.pdf", Type: entities.ProjectDoc, ConversationID: "c1"},
		{ID: "d2", Name: "b.pdf", Type: entities.UserDoc, ConversationID: "c1"},
		{ID: "d3", Name: "c.pdf", Type: entities.ProjectDoc, ConversationID: "c2"},
		{ID: "d4", Name: "orphan.pdf", Type: entities.ProjectDoc},
	}

	byConv, profile := PartitionDocuments(docs)

	if len(byConv["c1"]) != 1 || byConv["c1"][0].ID != "d1" {
		t.Errorf("expected d1 under c1, got %v", byConv["c1"])
	}
	if len(byConv["c2"]) != 1 || byConv["c2"][0].ID != "d3" {
		t.Errorf("expected d3 under c2, got %v", byConv["c2"])
	}
	if len(profile) != 1 || profile[0].ID != "d2" {
		t.Fatalf("expected only d2 in profile, got %v", profile)
	}
	if profile[0].ConversationID != "" {
		t.Error("user documents must not be conversation-scoped")
	}
	for _, list := range byConv {
		for _, d := range list {
			if d.ID == "d4" {
				t.Error("project document without owner must be dropped")
			}
		}
	}
}

func TestBuildConversations_AttachesDocuments(t *testing.T) {
	remote := []entities.RemoteConversation{
		{ID: "c1", Title: "First", IndexHandle: "vs_1"},
		{ID: "c2", Title: "Second"},
	}
	docs := map[string][]entities.UploadedDocument{
		"c1": {{ID: "d1"}},
	}

	convs := BuildConversations(remote, docs)

	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if len(convs[0].Documents) != 1 || convs[0].IndexHandle != "vs_1" {
		t.Errorf("unexpected first conversation %+v", convs[0])
	}
	if convs[1].Documents == nil || convs[1].Messages == nil {
		t.Error("empty lists must be non-nil")
	}
}

func TestMergeConversations_KeepsLocalData(t *testing.T) {
	local := []entities.Conversation{
		{ID: "local-only", Title: "Draft"},
		{
			ID:          "c1",
			Title:       "Local title",
			Messages:    []entities.Message{{ID: "m1", Content: "in flight"}},
			Documents:   []entities.UploadedDocument{{ID: "d-local"}},
			IndexHandle: "vs_local",
		},
	}
	remote := []entities.Conversation{
		{
			ID:        "c1",
			Title:     "Remote title",
			Documents: []entities.UploadedDocument{{ID: "d-local"}, {ID: "d-remote"}},
		},
		{ID: "c2", Title: "New from backend"},
	}

	merged := MergeConversations(local, remote)

	if len(merged) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(merged))
	}
	if merged[0].ID != "local-only" {
		t.Errorf("local-only conversation must be kept first, got %s", merged[0].ID)
	}

	c1 := merged[1]
	if c1.Title != "Remote title" {
		t.Errorf("expected remote title, got %s", c1.Title)
	}
	if len(c1.Messages) != 1 || c1.Messages[0].ID != "m1" {
		t.Errorf("local messages must survive, got %v", c1.Messages)
	}
	if len(c1.Documents) != 2 {
		t.Errorf("expected document union of 2, got %d", len(c1.Documents))
	}
	if c1.IndexHandle != "vs_local" {
		t.Errorf("expected local index handle to be kept, got %q", c1.IndexHandle)
	}
	if merged[2].ID != "c2" {
		t.Errorf("expected c2 last, got %s", merged[2].ID)
	}
}

func TestExpandHistory_OrderAndIDs(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pairs := []entities.HistoryPair{
		{Human: "hi", AI: "hello"},
		{Human: "how?", AI: "like this"},
	}

	msgs := ExpandHistory("c1", base, pairs)

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	wantRoles := []entities.Role{entities.RoleUser, entities.RoleAssistant, entities.RoleUser, entities.RoleAssistant}
	seen := make(map[string]bool)
	for i, m := range msgs {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, wantRoles[i], m.Role)
		}
		if seen[m.ID] {
			t.Errorf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
		if i > 0 && !m.Timestamp.After(msgs[i-1].Timestamp) {
			t.Errorf("timestamps must increase at %d", i)
		}
	}
	if msgs[0].ID != "c1-user-0" || msgs[3].ID != "c1-assistant-3" {
		t.Errorf("unexpected ids %s, %s", msgs[0].ID, msgs[3].ID)
	}
}

func TestExpandHistory_KeepsEmptyTurns(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pairs := []entities.HistoryPair{
		{Human: "hi", AI: ""},
		{Human: "", AI: "hello"},
	}

	msgs := ExpandHistory("c1", base, pairs)

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[1].Role != entities.RoleAssistant || msgs[1].Content != "" {
		t.Errorf("expected empty assistant turn at 1, got %+v", msgs[1])
	}
	if msgs[2].Role != entities.RoleUser || msgs[3].Content != "hello" {
		t.Errorf("unexpected second pair %+v, %+v", msgs[2], msgs[3])
	}
}

func TestExpandHistory_Idempotent(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pairs := []entities.HistoryPair{{Human: "q", AI: "a"}}

	first := ExpandHistory("c1", base, pairs)
	second := ExpandHistory("c1", base, pairs)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expansion must be deterministic:\n%v\n%v", first, second)
	}
}
