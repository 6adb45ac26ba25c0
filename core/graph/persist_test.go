package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/hoprag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	g := chainGraph(t)
	dir := t.TempDir()

	path, err := Save(g, dir, "curie", "curie@build-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "curie.graph.json"), path)

	loaded, collection, err := Load(dir, "curie")
	require.NoError(t, err)

	t.Run("Collection is recorded", func(t *testing.T) {
		assert.Equal(t, "curie@build-1", collection)
	})

	t.Run("Counts are identical", func(t *testing.T) {
		assert.Equal(t, g.NumNodes(), loaded.NumNodes())
		assert.Equal(t, g.NumEdges(), loaded.NumEdges())
	})

	t.Run("Find by text results are identical", func(t *testing.T) {
		for _, text := range []string{"curie", "polonium", "person", "radium", "org", "missing"} {
			assert.Equal(t, g.FindByText(text, 10), loaded.FindByText(text, 10), "Text %q", text)
		}
	})

	t.Run("Neighbors are identical", func(t *testing.T) {
		for _, n := range g.Nodes() {
			expected, err := g.Neighbors(n.ID)
			require.NoError(t, err)
			actual, err := loaded.Neighbors(n.ID)
			require.NoError(t, err)
			assert.Equal(t, expected, actual)
		}
	})

	t.Run("No temp files are left behind", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("Missing snapshot", func(t *testing.T) {
		_, _, err := Load(t.TempDir(), "missing")
		assert.Error(t, err)
	})

	t.Run("Invalid snapshot name", func(t *testing.T) {
		_, err := Save(Empty(), t.TempDir(), "../escape", "")
		var invalid *model.InvalidInputError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("Dangling edge endpoint", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"version":1,"snapshot":"bad","nodes":[{"id":"passage:p1","kind":"passage","key":"p1","text":"x"}],
			"edges":[{"source":"passage:p1","target":"entity:ghost","edge_type":"contains","weight":0.9,"count":1}]}`
		require.NoError(t, os.WriteFile(SnapshotPath(dir, "bad"), []byte(content), 0600))

		_, _, err := Load(dir, "bad")
		var unknown *model.UnknownNodeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "entity:ghost", unknown.ID)
	})

	t.Run("Null edge", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"version":1,"snapshot":"bad","nodes":[{"id":"passage:p1","kind":"passage","key":"p1","text":"x"}],"edges":[null]}`
		require.NoError(t, os.WriteFile(SnapshotPath(dir, "bad"), []byte(content), 0600))

		var g *Graph
		var err error
		require.NotPanics(t, func() {
			g, _, err = Load(dir, "bad")
		})
		assert.Error(t, err)
		assert.Nil(t, g)
	})

	t.Run("Snapshot without collection", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"version":1,"snapshot":"old","nodes":[],"edges":[]}`
		require.NoError(t, os.WriteFile(SnapshotPath(dir, "old"), []byte(content), 0600))

		g, collection, err := Load(dir, "old")
		require.NoError(t, err)
		assert.Empty(t, collection)
		assert.Equal(t, 0, g.NumNodes())
	})
}
