package store

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// Value is a typed value persisted under one key.
type Value[T any] struct {
	kv       ports.KeyValueStore
	key      string
	fallback T

	mu   sync.Mutex
	last []byte
}

// NewValue binds key of kv to type T. fallback is returned whenever nothing
// usable is stored.
func NewValue[T any](kv ports.KeyValueStore, key string, fallback T) *Value[T] {
	return &Value[T]{kv: kv, key: key, fallback: fallback}
}

// Load returns the stored value, or the fallback when the key is missing or
// unreadable. Read failures are logged, never returned.
func (v *Value[T]) Load(ctx context.Context) T {
	data, ok, err := v.kv.Get(ctx, v.key)
	if err != nil {
		slog.Error("failed to read stored value", "key", v.key, "error", err)
		return v.fallback
	}
	if !ok {
		return v.fallback
	}

	var out T
	if err := Decode(data, &out); err != nil {
		slog.Error("failed to decode stored value", "key", v.key, "error", err)
		return v.fallback
	}

	v.mu.Lock()
	v.last = data
	v.mu.Unlock()
	return out
}

// Save stores val. Writing the same encoding twice in a row is skipped.
func (v *Value[T]) Save(ctx context.Context, val T) error {
	data, err := Encode(val)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last != nil && bytes.Equal(v.last, data) {
		return nil
	}
	if err := v.kv.Set(ctx, v.key, data); err != nil {
		return err
	}
	v.last = data
	return nil
}

// Clear removes the stored value.
func (v *Value[T]) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = nil
	return v.kv.Delete(ctx, v.key)
}
