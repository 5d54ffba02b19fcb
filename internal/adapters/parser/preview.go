// Package parser derives short text previews from uploaded files.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// PreviewLimit caps a preview, in characters.
const PreviewLimit = 2000

// ErrNoPreview is returned for formats that have no local extraction.
var ErrNoPreview = errors.New("no preview available for this format")

var plainTextExtensions = map[string]bool{
	".c": true, ".cpp": true, ".cs": true, ".css": true, ".go": true,
	".java": true, ".js": true, ".json": true, ".md": true, ".php": true,
	".py": true, ".rb": true, ".sh": true, ".tex": true, ".ts": true,
	".txt": true,
}

// Extractor implements ports.PreviewExtractor. HTML is reduced to its
// visible text, source and text files are read as-is, and PDFs go to the
// optional extraction service.
type Extractor struct {
	pdf *PDFService
}

// NewExtractor creates an Extractor. pdf may be nil.
func NewExtractor(pdf *PDFService) *Extractor {
	return &Extractor{pdf: pdf}
}

// Preview returns at most PreviewLimit characters of text for file.
func (e *Extractor) Preview(ctx context.Context, file entities.FilePayload) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Name))

	var (
		text string
		err  error
	)
	switch {
	case ext == ".html" || ext == ".htm":
		text, err = htmlText(file.Data)
	case plainTextExtensions[ext]:
		if !utf8.Valid(file.Data) {
			return "", fmt.Errorf("%s is not valid UTF-8", file.Name)
		}
		text = string(file.Data)
	case ext == ".pdf" && e.pdf != nil:
		text, err = e.pdf.Parse(ctx, file.Data, file.Name)
	default:
		return "", ErrNoPreview
	}
	if err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(text), PreviewLimit), nil
}

// htmlText returns the visible text of an HTML document with whitespace
// collapsed.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if title != "" && !strings.HasPrefix(body, title) {
		return title + "\n" + body, nil
	}
	return body, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
