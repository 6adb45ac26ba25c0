package pipeline

import (
	"testing"

	"github.com/siherrmann/hoprag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunker(t *testing.T) {
	doc := &model.Document{
		ID:      "curie",
		Title:   "curie",
		Content: "Marie Curie was born in Warsaw. She discovered radium! Did she win two Nobel prizes? Yes.",
	}

	t.Run("Split into passages of two sentences", func(t *testing.T) {
		passages, err := SentenceChunker(2)(doc)

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "curie#0", passages[0].ID)
		assert.Equal(t, "Marie Curie was born in Warsaw. She discovered radium!", passages[0].Text)
		assert.Equal(t, "curie#1", passages[1].ID)
		assert.Equal(t, "Did she win two Nobel prizes? Yes.", passages[1].Text)
	})

	t.Run("Short document keeps its id", func(t *testing.T) {
		passages, err := SentenceChunker(10)(doc)

		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.Equal(t, "curie", passages[0].ID)
	})

	t.Run("Titled documents prefix every passage", func(t *testing.T) {
		titled := &model.Document{ID: "d1", Title: "Radium", Content: "It glows. It is rare. It is dense."}

		passages, err := SentenceChunker(1)(titled)

		require.NoError(t, err)
		require.Len(t, passages, 3)
		assert.Equal(t, "Radium: It is rare.", passages[1].Text)
	})

	t.Run("Invalid sentence count", func(t *testing.T) {
		_, err := SentenceChunker(0)(doc)
		assert.Error(t, err)
	})

	t.Run("Abbreviation without space does not split", func(t *testing.T) {
		assert.Equal(t, []string{"Version 1.5 is out."}, splitSentences("Version 1.5 is out."))
	})
}
