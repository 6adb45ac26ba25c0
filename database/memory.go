package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// MemoryVectorStore keeps vectors in process memory and searches them by brute force.
type MemoryVectorStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	order   []string
	records map[string]*model.VectorRecord
}

func newMemoryCollection() *memoryCollection {
	return &memoryCollection{records: map[string]*model.VectorRecord{}}
}

// NewMemoryVectorStore creates an empty in-memory vector store
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{collections: map[string]*memoryCollection{}}
}

// Upsert inserts or replaces records, keeping the first insertion position of each id.
func (s *MemoryVectorStore) Upsert(ctx context.Context, collection string, records []*model.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = newMemoryCollection()
	}
	next, err := c.with(records)
	if err != nil {
		return err
	}
	s.collections[collection] = next
	return nil
}

// Replace swaps the whole collection for the records.
func (s *MemoryVectorStore) Replace(ctx context.Context, collection string, records []*model.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := newMemoryCollection().with(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.collections[collection] = next
	s.mu.Unlock()
	return nil
}

// with returns a copy of the collection with the records applied.
func (c *memoryCollection) with(records []*model.VectorRecord) (*memoryCollection, error) {
	next := &memoryCollection{
		order:   append([]string(nil), c.order...),
		records: make(map[string]*model.VectorRecord, len(c.records)+len(records)),
	}
	for id, r := range c.records {
		next.records[id] = r
	}

	dimensions := 0
	for _, r := range next.records {
		dimensions = len(r.Vector)
		break
	}
	for _, r := range records {
		if r == nil || r.ID == "" {
			return nil, helper.NewError("upsert", fmt.Errorf("record without id"))
		}
		if dimensions == 0 {
			dimensions = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dimensions {
			return nil, helper.NewError("upsert "+r.ID, fmt.Errorf("vector has %d dimensions, expected %d", len(r.Vector), dimensions))
		}
		if _, exists := next.records[r.ID]; !exists {
			next.order = append(next.order, r.ID)
		}
		next.records[r.ID] = &model.VectorRecord{
			ID:       r.ID,
			Vector:   append([]float32(nil), r.Vector...),
			Document: r.Document,
			Metadata: r.Metadata,
		}
	}
	return next, nil
}

// Query returns the k nearest records by cosine distance, ties in insertion order.
func (s *MemoryVectorStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]*model.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	c, ok := s.collections[collection]
	s.mu.RUnlock()

	matches := []*model.VectorMatch{}
	if !ok || k <= 0 {
		return matches, nil
	}

	for _, id := range c.order {
		r := c.records[id]
		if len(r.Vector) != len(vector) {
			return nil, helper.NewError("query", fmt.Errorf("query has %d dimensions, collection has %d", len(vector), len(r.Vector)))
		}
		matches = append(matches, &model.VectorMatch{
			ID:       r.ID,
			Document: r.Document,
			Distance: CosineDistance(vector, r.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// IDs returns the ids of the collection in insertion order.
func (s *MemoryVectorStore) IDs(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, c.order...), nil
}

// Delete removes the ids from the collection. Unknown ids are ignored.
func (s *MemoryVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok || len(ids) == 0 {
		return nil
	}

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	next := newMemoryCollection()
	for _, id := range c.order {
		if remove[id] {
			continue
		}
		next.order = append(next.order, id)
		next.records[id] = c.records[id]
	}
	s.collections[collection] = next
	return nil
}

// Drop removes the collection. Unknown collections are ignored.
func (s *MemoryVectorStore) Drop(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.collections, collection)
	s.mu.Unlock()
	return nil
}

// CosineDistance returns 1 - cosine similarity, in [0, 2]. Zero vectors have distance 1.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}

	distance := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	return math.Max(0, math.Min(2, distance))
}
