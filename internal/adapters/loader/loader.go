// Package loader reads local files into upload payloads.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// contentTypes maps every accepted extension to the MIME type sent with it.
var contentTypes = map[string]string{
	".c":    "text/x-c",
	".cpp":  "text/x-c++",
	".cs":   "text/x-csharp",
	".css":  "text/css",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".go":   "text/x-golang",
	".html": "text/html",
	".java": "text/x-java",
	".js":   "text/javascript",
	".json": "application/json",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".php":  "text/x-php",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".py":   "text/x-python",
	".rb":   "text/x-ruby",
	".sh":   "application/x-sh",
	".tex":  "text/x-tex",
	".ts":   "application/typescript",
	".txt":  "text/plain",
}

// FileLoader implements ports.FileLoader for the upload whitelist.
type FileLoader struct{}

// NewFileLoader creates a new file loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads the file at path. Files outside the whitelist fail with
// entities.ErrUnsupportedFileType.
func (l *FileLoader) Load(ctx context.Context, path string) (*entities.FilePayload, error) {
	if !Allowed(path) {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnsupportedFileType, filepath.Base(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return &entities.FilePayload{
		Name:        filepath.Base(path),
		Size:        int64(len(data)),
		ContentType: ContentType(path),
		Data:        data,
	}, nil
}

// LoadAll reads every allowed file of paths. Unsupported or unreadable files
// are logged and skipped; when nothing is left the error is
// entities.ErrUnsupportedFileType.
func (l *FileLoader) LoadAll(ctx context.Context, paths []string) ([]entities.FilePayload, error) {
	files := make([]entities.FilePayload, 0, len(paths))
	for _, p := range paths {
		f, err := l.Load(ctx, p)
		if err != nil {
			slog.Warn("skipping file", "path", p, "error", err)
			continue
		}
		files = append(files, *f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no usable file among %d", entities.ErrUnsupportedFileType, len(paths))
	}
	return files, nil
}

// SupportedExtensions returns the accepted extensions, sorted.
func (l *FileLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(contentTypes))
	for ext := range contentTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Allowed reports whether name has an accepted extension.
func Allowed(name string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FilterAllowed keeps the names with an accepted extension.
func FilterAllowed(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if Allowed(n) {
			out = append(out, n)
		}
	}
	return out
}

// ContentType returns the MIME type for name.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
