package graph

import (
	"context"

	"github.com/siherrmann/hoprag/model"
)

// TraversalResult contains a node and its distance from the source
type TraversalResult struct {
	Node     *model.Node
	Distance int
	Path     []string // Node ids from source to this node
}

// BFS performs breadth-first search from a source node.
// An empty edgeTypes slice follows every edge kind.
func BFS(ctx context.Context, g *Graph, sourceID string, maxHops int, edgeTypes []model.EdgeType) ([]*TraversalResult, error) {
	source, err := g.Node(sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{sourceID: true}
	queue := []*TraversalResult{{
		Node:     source,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, current)

		if current.Distance >= maxHops {
			continue
		}

		neighbors, err := g.neighbors(current.Node.ID, edgeTypes)
		if err != nil {
			return nil, err
		}

		for _, targetID := range neighbors {
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			newPath := make([]string, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, &TraversalResult{
				Node:     g.nodes[targetID],
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source node
func DFS(ctx context.Context, g *Graph, sourceID string, maxHops int, edgeTypes []model.EdgeType) ([]*TraversalResult, error) {
	source, err := g.Node(sourceID)
	if err != nil {
		return nil, err
	}

	var results []*TraversalResult
	visited := map[string]bool{}
	if err := dfsRecursive(ctx, g, source, 0, maxHops, []string{sourceID}, edgeTypes, visited, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	g *Graph,
	current *model.Node,
	distance int,
	maxHops int,
	path []string,
	edgeTypes []model.EdgeType,
	visited map[string]bool,
	results *[]*TraversalResult,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	visited[current.ID] = true
	pathCopy := make([]string, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Node:     current,
		Distance: distance,
		Path:     pathCopy,
	})

	if distance >= maxHops {
		return nil
	}

	neighbors, err := g.neighbors(current.ID, edgeTypes)
	if err != nil {
		return err
	}

	for _, targetID := range neighbors {
		if visited[targetID] {
			continue
		}
		newPath := append(append([]string(nil), path...), targetID)
		if err := dfsRecursive(ctx, g, g.nodes[targetID], distance+1, maxHops, newPath, edgeTypes, visited, results); err != nil {
			return err
		}
	}
	return nil
}

// GetNeighbors returns the immediate neighbors (1-hop) of a node.
func GetNeighbors(ctx context.Context, g *Graph, nodeID string, edgeTypes []model.EdgeType) ([]*model.Node, error) {
	results, err := BFS(ctx, g, nodeID, 1, edgeTypes)
	if err != nil {
		return nil, err
	}

	// Skip the source node itself (first result)
	neighbors := make([]*model.Node, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Node)
	}
	return neighbors, nil
}
