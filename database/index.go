package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

const vectorIndexName = "idx_vectors_embedding"

// ChangeIndexType rebuilds the vector index as HNSW or IVFFlat.
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
//
// The old index is dropped and the new one created in one transaction,
// an invalid type or failing creation keeps the old index.
func (h *VectorsDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	createIndexSQL, err := vectorIndexSQL(indexType, params)
	if err != nil {
		return helper.NewError("change index type", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	err = h.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS `+vectorIndexName+`;`)
		if err != nil {
			return helper.NewError("drop index", err)
		}
		_, err = tx.ExecContext(ctx, createIndexSQL)
		if err != nil {
			return helper.NewError("create index", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.db.Logger.Info("Changed vector index",
		slog.String("type", indexType),
		slog.Any("params", params),
	)
	return nil
}

func vectorIndexSQL(indexType string, params map[string]interface{}) (string, error) {
	switch indexType {
	case model.IndexTypeHNSW:
		m, err := intParam(params, "m", 16)
		if err != nil {
			return "", err
		}
		efConstruction, err := intParam(params, "ef_construction", 64)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON vectors USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			vectorIndexName, m, efConstruction,
		), nil

	case model.IndexTypeIVFFlat:
		lists, err := intParam(params, "lists", 100)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			`CREATE INDEX %s ON vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			vectorIndexName, lists,
		), nil

	default:
		return "", fmt.Errorf("unsupported index type: %s (use '%s' or '%s')", indexType, model.IndexTypeHNSW, model.IndexTypeIVFFlat)
	}
}

func intParam(params map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return defaultValue, nil
	}
	value, ok := raw.(int)
	if !ok || value <= 0 {
		return 0, fmt.Errorf("index parameter %s must be a positive int, got %v", key, raw)
	}
	return value, nil
}
