package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		err = Init(db.Instance)
		assert.NoError(t, err)
	})
}

func TestLoadVectorsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	assertFunctionsExist := func(t *testing.T) {
		for _, funcName := range VectorsFunctions {
			var exists bool
			err := db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	}

	t.Run("Load vectors SQL functions", func(t *testing.T) {
		err := LoadVectorsSql(db.Instance, false)
		assert.NoError(t, err)
		assertFunctionsExist(t)
	})

	t.Run("Load vectors SQL is idempotent without force", func(t *testing.T) {
		err := LoadVectorsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load vectors SQL with force reloads", func(t *testing.T) {
		err := LoadVectorsSql(db.Instance, true)
		assert.NoError(t, err)
		assertFunctionsExist(t)
	})

	t.Run("Init vectors table", func(t *testing.T) {
		_, err := db.Instance.Exec(`SELECT init_vectors($1);`, 8)
		require.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'vectors');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "vectors table should be created")
	})
}
