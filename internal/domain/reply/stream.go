// Package reply turns raw backend output into assistant messages: it decodes
// newline-delimited JSON reply streams and rebuilds inline citation markers.
package reply

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// Frame types of the reply stream.
const (
	FrameBegin = "begin"
	FrameItem  = "item"
	FrameEnd   = "end"
)

type frame struct {
	Type     string          `json:"type"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Stream decodes a newline-delimited JSON reply body into text increments.
// It is finite and cannot be restarted.
type Stream struct {
	reader *bufio.Reader
	closer io.Closer
	text   strings.Builder
	eof    bool
}

// NewStream wraps body. Closing the Stream closes body when it is an io.Closer.
func NewStream(body io.Reader) *Stream {
	s := &Stream{reader: bufio.NewReader(body)}
	if c, ok := body.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Recv blocks until the next item frame and returns the full reply text
// accumulated so far. It returns io.EOF once the body is exhausted.
func (s *Stream) Recv() (string, error) {
	for !s.eof {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("reading reply stream: %w", err)
			}
			// The trailing fragment goes through the same line handling.
			s.eof = true
		}

		if delta, ok := handleLine(line); ok {
			s.text.WriteString(delta)
			return s.text.String(), nil
		}
	}
	return "", io.EOF
}

// Text returns the reply accumulated so far.
func (s *Stream) Text() string {
	return s.text.String()
}

// Close releases the underlying body.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// handleLine returns the content fragment carried by an item frame.
// Anything that is not a JSON frame is keep-alive noise and is skipped.
func handleLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	var f frame
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		slog.Debug("skipping non-JSON stream line", "line", line, "error", err)
		return "", false
	}

	switch f.Type {
	case FrameBegin:
		slog.Debug("reply stream started", "metadata", string(f.Metadata))
	case FrameItem:
		if f.Content != "" {
			return f.Content, true
		}
	case FrameEnd:
		slog.Debug("reply stream ended", "metadata", string(f.Metadata))
	}
	return "", false
}

// Assemble drains s, calling onProgress with the complete text so far after
// every increment, and returns the final assistant message. A stream that
// yields no text fails with entities.ErrEmptyResponse.
func Assemble(s *Stream, onProgress func(content string)) (*entities.Message, error) {
	defer s.Close()

	for {
		content, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(content)
		}
	}

	content := s.Text()
	if strings.TrimSpace(content) == "" {
		slog.Warn("reply stream carried no content")
		return nil, entities.ErrEmptyResponse
	}

	slog.Debug("assistant reply assembled", "chars", len(content))
	return &entities.Message{
		ID:        uuid.NewString(),
		Role:      entities.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}
