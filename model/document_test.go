package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentFromFile(t *testing.T) {
	t.Run("Successfully reads file and creates document", func(t *testing.T) {
		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "curie.txt")
		content := "Marie Curie discovered radium."
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

		doc, err := NewDocumentFromFile(filePath, Metadata{"author": "test"})

		require.NoError(t, err)
		assert.Equal(t, "curie", doc.ID, "ID should be filename without extension")
		assert.Equal(t, "curie", doc.Title, "Title should be filename without extension")
		assert.Equal(t, filePath, doc.Source, "Source should be file path")
		assert.Equal(t, content, doc.Content, "Content should match file content")
		assert.Equal(t, "test", doc.Metadata["author"])
	})

	t.Run("Returns error for non-existent file", func(t *testing.T) {
		doc, err := NewDocumentFromFile("/non/existent/file.txt", nil)

		require.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("Handles file without extension", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "README")
		require.NoError(t, os.WriteFile(filePath, []byte("Readme content"), 0644))

		doc, err := NewDocumentFromFile(filePath, nil)

		require.NoError(t, err)
		assert.Equal(t, "README", doc.Title)
	})

	t.Run("Handles file with multiple dots in name", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "pierre.curie.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("content"), 0644))

		doc, err := NewDocumentFromFile(filePath, nil)

		require.NoError(t, err)
		assert.Equal(t, "pierre.curie", doc.Title)
	})
}

func TestDocumentPassage(t *testing.T) {
	t.Run("Untitled document keeps its content", func(t *testing.T) {
		doc := &Document{ID: "p1", Title: "p1", Content: "Radium glows."}

		p, err := doc.Passage()

		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, "Radium glows.", p.Text)
	})

	t.Run("Titled document prefixes the title", func(t *testing.T) {
		doc := &Document{ID: "d1", Title: "Radium", Content: "A chemical element."}

		p, err := doc.Passage()

		require.NoError(t, err)
		assert.Equal(t, "Radium: A chemical element.", p.Text)
	})
}
