package graph

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/hoprag/model"
)

// Graph is an adjacency-list knowledge graph of passage and entity nodes.
// A Graph returned by Builder.Freeze is never mutated and is safe for
// concurrent readers.
type Graph struct {
	nodes     map[string]*model.Node
	nodeOrder []string
	edges     map[model.EdgeKey]*model.Edge
	edgeOrder []model.EdgeKey
	adjacency map[string][]model.EdgeKey
}

// Match is a node found by FindByText with its score.
type Match struct {
	Node  *model.Node `json:"node"`
	Score float64     `json:"score"`
}

func newGraph() *Graph {
	return &Graph{
		nodes:     map[string]*model.Node{},
		edges:     map[model.EdgeKey]*model.Edge{},
		adjacency: map[string][]model.EdgeKey{},
	}
}

// Empty returns a graph without nodes.
func Empty() *Graph {
	return newGraph()
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodeOrder)
}

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int {
	return len(g.edgeOrder)
}

// HasNode reports whether id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*model.Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &model.UnknownNodeError{ID: id}
	}
	return n, nil
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*model.Node {
	nodes := make([]*model.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// EntityNodes returns entity nodes in insertion order.
func (g *Graph) EntityNodes() []*model.Node {
	var nodes []*model.Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.IsEntity() {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*model.Edge {
	edges := make([]*model.Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		edges = append(edges, g.edges[key])
	}
	return edges
}

// Edge returns the edge of the given kind between a and b, if any.
func (g *Graph) Edge(edgeType model.EdgeType, a string, b string) (*model.Edge, bool) {
	e, ok := g.edges[model.NewEdgeKey(edgeType, a, b)]
	return e, ok
}

// Neighbors returns the one-hop adjacency of id in edge insertion order.
func (g *Graph) Neighbors(id string) ([]string, error) {
	return g.neighbors(id, nil)
}

func (g *Graph) neighbors(id string, edgeTypes []model.EdgeType) ([]string, error) {
	if !g.HasNode(id) {
		return nil, &model.UnknownNodeError{ID: id}
	}

	keys := g.adjacency[id]
	seen := make(map[string]bool, len(keys))
	neighbors := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(edgeTypes) > 0 && !containsEdgeType(edgeTypes, key.EdgeType) {
			continue
		}
		other := g.edges[key].Other(id)
		if seen[other] {
			continue
		}
		seen[other] = true
		neighbors = append(neighbors, other)
	}
	return neighbors, nil
}

// FindByText returns nodes whose text or type label contains query, case-insensitively.
// A text match scores 1 + len(query)/len(text), so an exact match scores 2 and
// shorter matching texts rank higher. A type label match adds 0.5. Ties keep
// insertion order. A limit <= 0 returns nothing.
func (g *Graph) FindByText(query string, limit int) []*Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	qLen := float64(utf8.RuneCountInString(q))

	var matches []*Match
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		score := 0.0
		text := strings.ToLower(n.Text)
		if strings.Contains(text, q) {
			score += 1 + qLen/float64(utf8.RuneCountInString(text))
		}
		if n.TypeLabel != "" && strings.Contains(strings.ToLower(n.TypeLabel), q) {
			score += 0.5
		}
		if score > 0 {
			matches = append(matches, &Match{Node: n, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// clone returns a deep copy so a frozen graph never shares state with its builder.
func (g *Graph) clone() *Graph {
	c := newGraph()
	c.nodeOrder = append([]string(nil), g.nodeOrder...)
	for id, n := range g.nodes {
		copied := *n
		copied.SourcePassageIDs = append([]string(nil), n.SourcePassageIDs...)
		c.nodes[id] = &copied
	}
	c.edgeOrder = append([]model.EdgeKey(nil), g.edgeOrder...)
	for key, e := range g.edges {
		copied := *e
		c.edges[key] = &copied
	}
	for id, keys := range g.adjacency {
		c.adjacency[id] = append([]model.EdgeKey(nil), keys...)
	}
	return c
}

func containsEdgeType(edgeTypes []model.EdgeType, t model.EdgeType) bool {
	for _, et := range edgeTypes {
		if et == t {
			return true
		}
	}
	return false
}
