package model

import (
	"os"
	"path/filepath"
	"strings"
)

// Document is a titled source text before it becomes a passage.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Source   string   `json:"source,omitempty"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewDocumentFromFile reads a text file into a Document.
// The id and title default to the filename without extension.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(filePath)
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if title == "" {
		title = filename
	}

	return &Document{
		ID:       title,
		Title:    title,
		Source:   filePath,
		Content:  string(content),
		Metadata: metadata,
	}, nil
}

// Passage turns the document into a passage. Titled documents are
// rendered as "title: content" so the title stays searchable.
func (d *Document) Passage() (*Passage, error) {
	text := d.Content
	if d.Title != "" && d.Title != d.ID {
		text = d.Title + ": " + d.Content
	}
	return NewPassage(d.ID, text)
}
