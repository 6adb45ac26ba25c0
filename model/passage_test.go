package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPassage(t *testing.T) {
	t.Run("Valid passage keeps full text", func(t *testing.T) {
		p, err := NewPassage(" p1 ", "Marie Curie discovered radium.")

		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID, "Expected id to be trimmed")
		assert.Equal(t, "Marie Curie discovered radium.", p.Text)
		assert.Equal(t, p.Text, p.Preview, "Short passages should preview in full")
	})

	t.Run("Long passage is previewed by runes", func(t *testing.T) {
		text := strings.Repeat("é", PreviewLength+50)

		p, err := NewPassage("p2", text)

		require.NoError(t, err)
		assert.Equal(t, PreviewLength, utf8.RuneCountInString(p.Preview))
		assert.Equal(t, text, p.Text)
	})

	t.Run("Empty id is rejected", func(t *testing.T) {
		_, err := NewPassage("  ", "text")

		var invalid *InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "passage_id", invalid.Field)
	})

	t.Run("Blank text is allowed but reported", func(t *testing.T) {
		p, err := NewPassage("p3", " \n\t")

		require.NoError(t, err)
		assert.True(t, p.IsBlank())
	})
}

func TestMentionValidate(t *testing.T) {
	t.Run("Valid mention", func(t *testing.T) {
		m := Mention{SurfaceText: "Marie Curie", TypeLabel: "PERSON", PassageID: "p1", CharStart: 0, CharEnd: 11}
		assert.NoError(t, m.Validate())
	})

	t.Run("Empty surface text", func(t *testing.T) {
		m := Mention{SurfaceText: " ", PassageID: "p1"}
		assert.Error(t, m.Validate())
	})

	t.Run("Inverted span", func(t *testing.T) {
		m := Mention{SurfaceText: "Curie", PassageID: "p1", CharStart: 5, CharEnd: 2}
		assert.Error(t, m.Validate())
	})
}

func TestEdgeKey(t *testing.T) {
	t.Run("Endpoint order does not matter", func(t *testing.T) {
		assert.Equal(t, NewEdgeKey(EdgeTypeCoOccurs, "a", "b"), NewEdgeKey(EdgeTypeCoOccurs, "b", "a"))
	})

	t.Run("Kinds are distinct", func(t *testing.T) {
		assert.NotEqual(t, NewEdgeKey(EdgeTypeCoOccurs, "a", "b"), NewEdgeKey(EdgeTypeContains, "a", "b"))
	})

	t.Run("Co-occurrence weight grows and stays bounded", func(t *testing.T) {
		assert.InDelta(t, 0.7, CoOccurrenceWeight(1), 1e-9)
		assert.InDelta(t, 0.91, CoOccurrenceWeight(2), 1e-9)
		assert.Less(t, CoOccurrenceWeight(10), 1.0)
		assert.Equal(t, 0.0, CoOccurrenceWeight(0))
	})

	t.Run("Other returns the opposite endpoint", func(t *testing.T) {
		e := &Edge{Source: "passage:p1", Target: "entity:curie"}
		assert.Equal(t, "entity:curie", e.Other("passage:p1"))
		assert.Equal(t, "passage:p1", e.Other("entity:curie"))
	})
}
