package retrieval

import (
	"context"

	"github.com/siherrmann/hoprag/model"
)

// VectorStore persists passage vectors per collection. A collection holds
// the vectors of one snapshot build.
type VectorStore interface {
	// Replace atomically swaps all vectors of the collection for the given records.
	// On error the previous vectors stay in place.
	Replace(ctx context.Context, collection string, records []*model.VectorRecord) error
	// Query returns up to k nearest records ordered by ascending cosine distance.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]*model.VectorMatch, error)
	// IDs lists the ids stored in the collection.
	IDs(ctx context.Context, collection string) ([]string, error)
	// Delete removes the given ids from the collection.
	Delete(ctx context.Context, collection string, ids []string) error
	// Drop removes the collection with all its vectors.
	Drop(ctx context.Context, collection string) error
}
