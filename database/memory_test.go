package database

import (
	"context"
	"testing"

	"github.com/siherrmann/hoprag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call Replace and Query", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c", curieRecords()))

		matches, err := store.Query(ctx, "c", []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "p1", matches[0].ID)
		assert.InDelta(t, 0.0, matches[0].Distance, 1e-6)
		assert.Equal(t, "p2", matches[1].ID)
		assert.InDelta(t, 0.2, matches[1].Distance, 1e-6)
	})

	t.Run("Equal distances keep insertion order", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c", []*model.VectorRecord{
			{ID: "b", Vector: []float32{0, 1}},
			{ID: "a", Vector: []float32{0, 1}},
		}))

		matches, err := store.Query(ctx, "c", []float32{0, 1}, 2)
		require.NoError(t, err)
		assert.Equal(t, "b", matches[0].ID)
		assert.Equal(t, "a", matches[1].ID)
	})

	t.Run("Failed Replace keeps previous vectors", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c", curieRecords()))

		err := store.Replace(ctx, "c", []*model.VectorRecord{
			{ID: "x", Vector: []float32{1, 0}},
			{ID: "y", Vector: []float32{1, 0, 0}},
		})
		require.Error(t, err)

		ids, err := store.IDs(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
	})

	t.Run("Upsert keeps first position", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Upsert(ctx, "c", curieRecords()))
		require.NoError(t, store.Upsert(ctx, "c", []*model.VectorRecord{{ID: "p1", Vector: []float32{0, 0, 0, 1}, Document: "new"}}))

		ids, err := store.IDs(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids)

		matches, err := store.Query(ctx, "c", []float32{0, 0, 0, 1}, 1)
		require.NoError(t, err)
		assert.Equal(t, "new", matches[0].Document)
	})

	t.Run("Delete and unknown collection", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c", curieRecords()))
		require.NoError(t, store.Delete(ctx, "c", []string{"p2"}))
		require.NoError(t, store.Delete(ctx, "missing", []string{"p2"}))

		ids, err := store.IDs(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p3"}, ids)

		matches, err := store.Query(ctx, "missing", []float32{1, 0, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Valid call Drop keeps other collections", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c@1", curieRecords()))
		require.NoError(t, store.Replace(ctx, "c@2", curieRecords()[:1]))
		require.NoError(t, store.Drop(ctx, "c@1"))
		require.NoError(t, store.Drop(ctx, "missing"))

		ids, err := store.IDs(ctx, "c@1")
		require.NoError(t, err)
		assert.Empty(t, ids)

		ids, err = store.IDs(ctx, "c@2")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, ids)
	})

	t.Run("Query with mismatched dimensions", func(t *testing.T) {
		store := NewMemoryVectorStore()
		require.NoError(t, store.Replace(ctx, "c", curieRecords()))

		_, err := store.Query(ctx, "c", []float32{1, 0}, 1)
		assert.Error(t, err)
	})
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
}
