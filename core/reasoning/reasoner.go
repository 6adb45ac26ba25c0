package reasoning

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/hoprag/core/graph"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// Retriever returns the topK passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error)
}

// Reasoner assembles evidence for a question from the retriever and the
// entity graph. It holds no state of its own.
type Reasoner struct {
	graph     *graph.Graph
	retriever Retriever
	config    model.ReasoningConfig
}

// NewReasoner creates a reasoner over one graph and retriever pair.
func NewReasoner(g *graph.Graph, retriever Retriever, config model.ReasoningConfig) *Reasoner {
	if g == nil {
		g = graph.Empty()
	}
	return &Reasoner{
		graph:     g,
		retriever: retriever,
		config:    config,
	}
}

// MatchEntities returns the entity nodes whose normalized text
// occurs in the normalized question, in graph insertion order.
func (r *Reasoner) MatchEntities(question string) []*model.Node {
	q := graph.NormalizeKey(question)
	if q == "" {
		return nil
	}

	var matched []*model.Node
	for _, node := range r.graph.EntityNodes() {
		if node.Key != "" && strings.Contains(q, node.Key) {
			matched = append(matched, node)
		}
	}
	return matched
}

// DiscoverGraphContext collects the passage text around the entities named in
// the question. Each matched entity contributes at most NeighborsPerEntity
// neighbors, passages are deduplicated and the result is cut at MaxContextChars runes.
func (r *Reasoner) DiscoverGraphContext(question string) (string, []string) {
	matched := r.MatchEntities(question)
	if len(matched) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(matched))
	seen := map[string]bool{}
	var parts []string
	for _, entity := range matched {
		keys = append(keys, entity.Key)

		neighbors, err := graph.GetNeighbors(context.Background(), r.graph, entity.ID, nil)
		if err != nil {
			continue
		}
		limit := max(r.config.NeighborsPerEntity, 0)
		if len(neighbors) > limit {
			neighbors = neighbors[:limit]
		}
		for _, n := range neighbors {
			if !n.IsPassage() || seen[n.ID] || n.FullText == "" {
				continue
			}
			seen[n.ID] = true
			parts = append(parts, n.FullText)
		}
	}

	return truncateRunes(strings.Join(parts, "\n"), r.config.MaxContextChars), keys
}

// AssembleEvidence retrieves the topK passages and the graph context for the question.
func (r *Reasoner) AssembleEvidence(ctx context.Context, question string, topK int) (*model.Evidence, error) {
	evidence := &model.Evidence{Results: []*model.RetrievalResult{}}

	if r.retriever != nil {
		results, err := r.retriever.Retrieve(ctx, question, topK)
		if err != nil {
			return nil, helper.NewError("retrieve", err)
		}
		texts := make([]string, len(results))
		for i, res := range results {
			texts[i] = res.Text
		}
		evidence.Results = results
		evidence.VectorContext = strings.Join(texts, "\n")
	}

	evidence.GraphContext, evidence.MatchedEntities = r.DiscoverGraphContext(question)
	return evidence, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
