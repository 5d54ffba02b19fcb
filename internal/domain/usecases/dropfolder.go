package usecases

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// Uploader is the part of the Workspace the drop folder needs.
type Uploader interface {
	UploadDocument(ctx context.Context, conversationID string, file entities.FilePayload) (*entities.UploadedDocument, error)
	UploadProfileDocument(ctx context.Context, file entities.FilePayload) (*entities.UploadedDocument, error)
}

// DropFolder uploads files that appear in a watched directory.
type DropFolder struct {
	watcher  ports.FileWatcher
	loader   ports.FileLoader
	uploader Uploader
}

// NewDropFolder creates a DropFolder with injected dependencies.
func NewDropFolder(watcher ports.FileWatcher, loader ports.FileLoader, uploader Uploader) *DropFolder {
	return &DropFolder{
		watcher:  watcher,
		loader:   loader,
		uploader: uploader,
	}
}

// Run watches dir until ctx is done. New files go to conversationID as
// project documents, or to the profile when conversationID is empty.
// Failures are logged per file and never stop the loop.
func (d *DropFolder) Run(ctx context.Context, dir, conversationID string) error {
	events, err := d.watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}
	defer d.watcher.Stop()

	slog.Info("watching drop folder", "dir", dir, "conversation", conversationID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation != ports.FileCreated {
				continue
			}
			d.ingest(ctx, ev.Path, conversationID)
		}
	}
}

func (d *DropFolder) ingest(ctx context.Context, path, conversationID string) {
	file, err := d.loader.Load(ctx, path)
	if errors.Is(err, entities.ErrUnsupportedFileType) {
		slog.Debug("ignoring unsupported file", "path", path)
		return
	}
	if err != nil {
		slog.Warn("failed to read dropped file", "path", path, "error", err)
		return
	}

	if conversationID == "" {
		_, err = d.uploader.UploadProfileDocument(ctx, *file)
	} else {
		_, err = d.uploader.UploadDocument(ctx, conversationID, *file)
	}
	if err != nil {
		slog.Error("failed to upload dropped file", "file", filepath.Base(path), "error", err)
		return
	}
	slog.Info("uploaded dropped file", "file", filepath.Base(path))
}
