package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCorpus(t *testing.T) {
	t.Run("Plain passage list", func(t *testing.T) {
		path := writeFile(t, "corpus.json", `[
			{"id": "p1", "text": "Marie Curie discovered radium."},
			{"id": "p2", "text": "Radium is used in medicine."}
		]`)

		passages, err := LoadCorpus(path)

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "p1", passages[0].ID)
		assert.Equal(t, "Radium is used in medicine.", passages[1].Text)
	})

	t.Run("QA items are flattened into titled passages", func(t *testing.T) {
		path := writeFile(t, "hotpot.json", `[
			{"_id": "q1", "question": "Who?", "answer": "Curie",
			 "context": [["Marie Curie", ["Marie Curie was a physicist.", " She discovered radium."]],
			             ["Radium", ["Radium is an element."]]]},
			{"_id": "q2", "question": "What?", "answer": "element",
			 "context": [["Radium", ["Radium is an element."]]]}
		]`)

		passages, err := LoadCorpus(path)

		require.NoError(t, err)
		require.Len(t, passages, 2, "Expected shared paragraphs to be loaded once")
		assert.Equal(t, "Marie Curie", passages[0].ID)
		assert.Equal(t, "Marie Curie: Marie Curie was a physicist. She discovered radium.", passages[0].Text)
	})

	t.Run("Conflicting duplicate ids fail", func(t *testing.T) {
		path := writeFile(t, "dup.json", `[{"id": "p1", "text": "a"}, {"id": "p1", "text": "b"}]`)

		_, err := LoadCorpus(path)

		var dup *DuplicatePassageError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "p1", dup.ID)
	})

	t.Run("Directory of text files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0600))

		passages, err := LoadCorpus(dir)

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "a", passages[0].ID, "Expected files in sorted order")
		assert.Equal(t, "first", passages[0].Text)
	})

	t.Run("Missing path fails", func(t *testing.T) {
		_, err := LoadCorpus(filepath.Join(t.TempDir(), "none.json"))
		assert.Error(t, err)
	})
}

func TestLoadQuestions(t *testing.T) {
	path := writeFile(t, "qa.json", `[
		{"_id": "q1", "question": "Who discovered radium?", "answer": "Marie Curie"},
		{"id": "p1", "text": "not a question"}
	]`)

	questions, err := LoadQuestions(path)

	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "Marie Curie", questions[0].GoldAnswer)
}
