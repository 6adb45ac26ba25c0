package model

import (
	"github.com/google/uuid"
)

// EdgeType represents the kind of relationship between two nodes
type EdgeType string

const (
	EdgeTypeContains EdgeType = "contains"
	EdgeTypeCoOccurs EdgeType = "co_occurs"
)

const (
	// ContainsWeight is the fixed weight of passage to entity edges.
	ContainsWeight = 0.9
	// CoOccurrenceDecay sets how fast co-occurrence weight approaches 1.
	CoOccurrenceDecay = 0.3
)

// Edge is an undirected, typed and weighted relation.
// Count records how often the relation was observed.
type Edge struct {
	ID       uuid.UUID `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	EdgeType EdgeType  `json:"edge_type"`
	Weight   float64   `json:"weight"`
	Count    int       `json:"count"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// EdgeKey identifies an edge by kind and unordered endpoint pair.
type EdgeKey struct {
	EdgeType EdgeType
	A        string
	B        string
}

// NewEdgeKey orders the endpoints so (a, b) and (b, a) map to the same key.
func NewEdgeKey(edgeType EdgeType, a string, b string) EdgeKey {
	if b < a {
		a, b = b, a
	}
	return EdgeKey{EdgeType: edgeType, A: a, B: b}
}

// Key returns the edge's identity key.
func (e *Edge) Key() EdgeKey {
	return NewEdgeKey(e.EdgeType, e.Source, e.Target)
}

// Other returns the endpoint opposite to nodeID.
func (e *Edge) Other(nodeID string) string {
	if e.Source == nodeID {
		return e.Target
	}
	return e.Source
}

// CoOccurrenceWeight returns 1 - decay^count, 0.7 for the first co-mention.
func CoOccurrenceWeight(count int) float64 {
	if count <= 0 {
		return 0
	}
	w := 1.0
	for i := 0; i < count; i++ {
		w *= CoOccurrenceDecay
	}
	return 1 - w
}
