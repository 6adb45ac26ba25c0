package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
	loadSql "github.com/siherrmann/hoprag/sql"
)

// VectorsDBHandlerFunctions defines the interface for vector database operations.
type VectorsDBHandlerFunctions interface {
	Upsert(ctx context.Context, collection string, records []*model.VectorRecord) error
	Replace(ctx context.Context, collection string, records []*model.VectorRecord) error
	Query(ctx context.Context, collection string, vector []float32, k int) ([]*model.VectorMatch, error)
	IDs(ctx context.Context, collection string) ([]string, error)
	Delete(ctx context.Context, collection string, ids []string) error
	Drop(ctx context.Context, collection string) error
}

// VectorsDBHandler stores passage vectors in a pgvector table
type VectorsDBHandler struct {
	db         *helper.Database
	dimensions int
}

// NewVectorsDBHandler creates a new vectors database handler.
// It loads the vector SQL functions and creates the table for the given dimensions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewVectorsDBHandler(db *helper.Database, dimensions int, force bool) (*VectorsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimensions <= 0 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("dimensions must be positive, got %d", dimensions))
	}

	vectorsDbHandler := &VectorsDBHandler{
		db:         db,
		dimensions: dimensions,
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("init extensions", err)
	}

	err = loadSql.LoadVectorsSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load vectors sql", err)
	}

	err = vectorsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized VectorsDBHandler")

	return vectorsDbHandler, nil
}

// CreateTable creates the 'vectors' table and its indexes if they do not exist.
func (h *VectorsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_vectors($1);`, h.dimensions)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Info("Checked/created table vectors")

	return nil
}

// Upsert inserts or updates records in one transaction.
func (h *VectorsDBHandler) Upsert(ctx context.Context, collection string, records []*model.VectorRecord) error {
	return h.inTx(ctx, func(tx *sql.Tx) error {
		return h.upsertRecords(ctx, tx, collection, records)
	})
}

// Replace deletes all vectors of the collection and writes the records in one
// transaction. Readers see either the old or the new set.
func (h *VectorsDBHandler) Replace(ctx context.Context, collection string, records []*model.VectorRecord) error {
	err := h.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `SELECT delete_vectors($1, NULL)`, collection)
		if err != nil {
			return helper.NewError("clear collection", err)
		}
		return h.upsertRecords(ctx, tx, collection, records)
	})
	if err != nil {
		return err
	}

	h.db.Logger.Info("Replaced collection vectors", "collection", collection, "count", len(records))

	return nil
}

func (h *VectorsDBHandler) upsertRecords(ctx context.Context, tx *sql.Tx, collection string, records []*model.VectorRecord) error {
	for i, record := range records {
		if len(record.Vector) != h.dimensions {
			return helper.NewError("upsert "+record.ID, fmt.Errorf("vector has %d dimensions, table has %d", len(record.Vector), h.dimensions))
		}
		_, err := tx.ExecContext(ctx,
			`SELECT upsert_vector($1, $2, $3, $4, $5, $6)`,
			collection,
			record.ID,
			i,
			record.Document,
			pgvector.NewVector(record.Vector),
			record.Metadata,
		)
		if err != nil {
			return helper.NewError("upsert "+record.ID, err)
		}
	}
	return nil
}

func (h *VectorsDBHandler) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}

	err = fn(tx)
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			h.db.Logger.Error("Rollback failed", "error", rollbackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}
	return nil
}

// Query performs a cosine similarity search within the collection
func (h *VectorsDBHandler) Query(ctx context.Context, collection string, vector []float32, k int) ([]*model.VectorMatch, error) {
	if k <= 0 {
		return []*model.VectorMatch{}, nil
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM query_vectors($1, $2, $3)`,
		collection,
		pgvector.NewVector(vector),
		k,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	matches := []*model.VectorMatch{}
	for rows.Next() {
		match := &model.VectorMatch{}
		err := rows.Scan(
			&match.ID,
			&match.Document,
			&match.Distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		matches = append(matches, match)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return matches, nil
}

// IDs returns the passage ids of the collection in insertion order
func (h *VectorsDBHandler) IDs(ctx context.Context, collection string) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_vector_ids($1)`,
		collection,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return ids, nil
}

// Delete removes the given ids from the collection. An empty id list deletes nothing.
func (h *VectorsDBHandler) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := h.db.Instance.ExecContext(ctx,
		`SELECT delete_vectors($1, $2)`,
		collection,
		pq.Array(ids),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// Drop removes all vectors of the collection.
func (h *VectorsDBHandler) Drop(ctx context.Context, collection string) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_vectors($1, NULL)`, collection)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Info("Dropped collection vectors", "collection", collection)

	return nil
}
