package reply

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// AnnotationFileCitation is the only annotation type turned into citations.
const AnnotationFileCitation = "file_citation"

const defaultSource = "Document"

var (
	// The raw annotation text looks like 【4:0†report.pdf】.
	filenamePattern = regexp.MustCompile(`†([^】]+)】$`)
	markerPattern   = regexp.MustCompile(`【(\d+):0†source】`)
)

// Annotation is a backend-supplied source reference located by character
// offsets into the original reply text.
type Annotation struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	StartIndex   int           `json:"start_index"`
	EndIndex     int           `json:"end_index"`
	FileCitation *FileCitation `json:"file_citation,omitempty"`
}

// FileCitation references the uploaded file an annotation points at.
type FileCitation struct {
	FileID string `json:"file_id"`
}

// Marker returns the inline marker for the n-th citation (1-based).
func Marker(n int) string {
	return fmt.Sprintf("【%d:0†source】", n)
}

// ReconstructCitations replaces every file-citation span of text with a
// numbered marker and returns the edited text with the matching citation
// list, both in left-to-right order. Offsets count Unicode code points.
func ReconstructCitations(text string, annotations []Annotation) (string, []entities.Citation) {
	sorted := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		if a.Type == AnnotationFileCitation {
			sorted = append(sorted, a)
		}
	}
	if len(sorted) == 0 {
		return text, []entities.Citation{}
	}

	// Offsets refer to the unmodified text, so replacements must run left to right.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartIndex < sorted[j].StartIndex
	})

	citations := make([]entities.Citation, len(sorted))
	for i, a := range sorted {
		citations[i] = toCitation(i+1, a)
	}

	runes := []rune(text)
	shift := 0
	for i, a := range sorted {
		marker := []rune(Marker(i + 1))
		start := clamp(a.StartIndex+shift, 0, len(runes))
		end := clamp(a.EndIndex+shift, start, len(runes))

		edited := make([]rune, 0, len(runes)-(end-start)+len(marker))
		edited = append(edited, runes[:start]...)
		edited = append(edited, marker...)
		edited = append(edited, runes[end:]...)
		runes = edited

		shift += len(marker) - (end - start)
	}

	return string(runes), citations
}

func toCitation(n int, a Annotation) entities.Citation {
	text := a.Text
	if text == "" {
		text = fmt.Sprintf("Citation %d", n)
	}

	filename := defaultSource
	if m := filenamePattern.FindStringSubmatch(a.Text); m != nil {
		filename = m[1]
	}

	source := defaultSource
	if a.FileCitation != nil && a.FileCitation.FileID != "" {
		source = a.FileCitation.FileID
	}

	return entities.Citation{
		ID:       "cite-" + strconv.Itoa(n),
		Text:     text,
		Source:   source,
		Filename: filename,
		// The backend exposes no page metadata.
		Page:       1,
		StartIndex: a.StartIndex,
		EndIndex:   a.EndIndex,
	}
}

// RenderMarkers rewrites markers that have a matching citation as "(n)" for
// display. Markers without a citation are left untouched.
func RenderMarkers(content string, citations []entities.Citation) string {
	if len(citations) == 0 {
		return content
	}
	return markerPattern.ReplaceAllStringFunc(content, func(m string) string {
		n, err := strconv.Atoi(markerPattern.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > len(citations) {
			return m
		}
		return "(" + strconv.Itoa(n) + ")"
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
