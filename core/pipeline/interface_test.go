package pipeline

import (
	"context"
	"testing"

	"github.com/siherrmann/hoprag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelinePassages(t *testing.T) {
	docs := []*model.Document{
		{ID: "d1", Title: "d1", Content: "One. Two. Three."},
		{ID: "d2", Title: "Radium", Content: "Radium glows."},
	}

	t.Run("Without chunker every document is one passage", func(t *testing.T) {
		p := NewPipeline(nil, nil, nil)

		passages, err := p.Passages(docs)

		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "Radium: Radium glows.", passages[1].Text)
	})

	t.Run("With chunker documents are split", func(t *testing.T) {
		p := NewPipeline(nil, nil, nil)
		p.SetChunker(SentenceChunker(1))

		passages, err := p.Passages(docs)

		require.NoError(t, err)
		require.Len(t, passages, 4)
		assert.Equal(t, "d1#2", passages[2].ID)
		assert.Equal(t, "d2", passages[3].ID)
	})
}

func TestPipelineExtractMentions(t *testing.T) {
	ner := fakeNER(map[string][]RawEntity{
		"Marie Curie discovered radium.": {{Word: "Marie Curie", Label: "PER", End: 11}},
	})
	p := NewPipeline(ner, nil, nil)
	passage, err := model.NewPassage("p1", "Marie Curie discovered radium.")
	require.NoError(t, err)

	mentions, err := p.ExtractMentions(context.Background(), []*model.Passage{passage})

	require.NoError(t, err)
	require.Len(t, mentions["p1"], 1)
	assert.Equal(t, "Marie Curie", mentions["p1"][0].SurfaceText)
}
