package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// Keys of the persisted assistant state.
const (
	KeySettings      = "settings"
	KeyConversations = "conversations"
	KeyUserDocuments = "userDocuments"
	KeySession       = "session"
)

// StateStore implements ports.StateStore with one value per key.
type StateStore struct {
	settings      *Value[entities.AppSettings]
	conversations *Value[[]entities.Conversation]
	userDocuments *Value[[]entities.UploadedDocument]
}

// NewStateStore creates a StateStore on top of kv.
func NewStateStore(kv ports.KeyValueStore) *StateStore {
	return &StateStore{
		settings:      NewValue(kv, KeySettings, entities.AppSettings{}),
		conversations: NewValue(kv, KeyConversations, []entities.Conversation{}),
		userDocuments: NewValue(kv, KeyUserDocuments, []entities.UploadedDocument{}),
	}
}

// LoadState restores every key, falling back to empty values.
func (s *StateStore) LoadState(ctx context.Context) (*entities.PersistedState, error) {
	return &entities.PersistedState{
		Settings:         s.settings.Load(ctx),
		Conversations:    s.conversations.Load(ctx),
		ProfileDocuments: s.userDocuments.Load(ctx),
	}, nil
}

// SaveState writes the keys whose content changed.
func (s *StateStore) SaveState(ctx context.Context, state entities.PersistedState) error {
	var errs []error
	if err := s.settings.Save(ctx, state.Settings); err != nil {
		errs = append(errs, fmt.Errorf("saving %s: %w", KeySettings, err))
	}
	if err := s.conversations.Save(ctx, state.Conversations); err != nil {
		errs = append(errs, fmt.Errorf("saving %s: %w", KeyConversations, err))
	}
	if err := s.userDocuments.Save(ctx, state.ProfileDocuments); err != nil {
		errs = append(errs, fmt.Errorf("saving %s: %w", KeyUserDocuments, err))
	}
	return errors.Join(errs...)
}
