package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PreviewLength is the number of runes kept in a passage preview.
const PreviewLength = 200

// Passage is an immutable unit of evidence text.
type Passage struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Preview string `json:"preview"`
}

// NewPassage validates the id and derives the preview from text.
func NewPassage(id string, text string) (*Passage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &InvalidInputError{Field: "passage_id", Reason: "must not be empty"}
	}
	if !utf8.ValidString(text) {
		return nil, &InvalidInputError{Field: "text", Reason: fmt.Sprintf("passage %s is not valid utf-8", id)}
	}

	return &Passage{
		ID:      id,
		Text:    text,
		Preview: previewOf(text),
	}, nil
}

// IsBlank reports whether the passage has no indexable text.
func (p *Passage) IsBlank() bool {
	return strings.TrimSpace(p.Text) == ""
}

// SameContent reports whether two passages carry identical text.
func (p *Passage) SameContent(other *Passage) bool {
	return other != nil && p.Text == other.Text
}

func previewOf(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
