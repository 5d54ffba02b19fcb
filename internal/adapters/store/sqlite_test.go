package store

import (
	"context"
	"testing"
)

func TestSQLiteStore_SetAndGet(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "settings", []byte(`{"openaiToken":"sk"}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "settings")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"openaiToken":"sk"}` {
		t.Errorf("unexpected value %s", got)
	}
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "k", []byte("one"))
	store.Set(ctx, "k", []byte("two"))

	got, _, _ := store.Get(ctx, "k")
	if string(got) != "two" {
		t.Errorf("expected overwrite, got %s", got)
	}
}

func TestSQLiteStore_Missing(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "k", []byte("v"))
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("expected key to be gone")
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key must succeed, got %v", err)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	first.Set(ctx, "conversations", []byte("[]"))
	first.Close()

	second, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer second.Close()

	got, ok, err := second.Get(ctx, "conversations")
	if err != nil || !ok || string(got) != "[]" {
		t.Errorf("expected persisted value, got %q ok=%v err=%v", got, ok, err)
	}
}
