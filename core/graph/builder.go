package graph

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// Builder constructs a Graph. It embeds the graph under construction so
// lookups work while building. Builders are not safe for concurrent use.
type Builder struct {
	*Graph
	log *slog.Logger
}

// NewBuilder creates a builder for an empty graph.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	return &Builder{
		Graph: newGraph(),
		log:   logger,
	}
}

// Freeze returns an immutable copy of the graph built so far.
func (b *Builder) Freeze() *Graph {
	return b.Graph.clone()
}

// AddPassage inserts a passage node and returns its id. Re-inserting the
// same id with identical text is a no-op, different text fails with
// DuplicatePassageError.
func (b *Builder) AddPassage(p *model.Passage) (string, error) {
	if err := b.checkPassage(p); err != nil {
		return "", err
	}

	id := model.PassageNodeID(p.ID)
	if b.HasNode(id) {
		return id, nil
	}

	b.addNode(&model.Node{
		ID:       id,
		Kind:     model.NodeKindPassage,
		Key:      p.ID,
		Text:     p.Preview,
		FullText: p.Text,
	})
	return id, nil
}

// AddEntity merges the mention into the entity node of its normalized
// surface text and returns the node id. The first seen type label wins.
func (b *Builder) AddEntity(m model.Mention) (string, error) {
	key, err := mentionKey(m)
	if err != nil {
		return "", err
	}

	id := model.EntityNodeID(key)
	if n, ok := b.nodes[id]; ok {
		if !n.HasSource(m.PassageID) {
			n.SourcePassageIDs = append(n.SourcePassageIDs, m.PassageID)
		}
		return id, nil
	}

	b.addNode(&model.Node{
		ID:               id,
		Kind:             model.NodeKindEntity,
		Key:              key,
		Text:             canonicalSurface(m.SurfaceText),
		TypeLabel:        m.TypeLabel,
		SourcePassageIDs: []string{m.PassageID},
	})
	return id, nil
}

// Link inserts or updates the undirected edge of kind between a and b.
// Re-linking increments the edge count and sets the new weight.
func (b *Builder) Link(nodeA string, nodeB string, edgeType model.EdgeType, weight float64) error {
	if !b.HasNode(nodeA) {
		return &model.UnknownNodeError{ID: nodeA}
	}
	if !b.HasNode(nodeB) {
		return &model.UnknownNodeError{ID: nodeB}
	}
	if nodeA == nodeB {
		return &model.InvalidInputError{Field: "edge", Reason: fmt.Sprintf("self loop on %s", nodeA)}
	}

	key := model.NewEdgeKey(edgeType, nodeA, nodeB)
	if e, ok := b.edges[key]; ok {
		e.Count++
		e.Weight = weight
		return nil
	}

	b.edges[key] = &model.Edge{
		ID:       uuid.New(),
		Source:   key.A,
		Target:   key.B,
		EdgeType: edgeType,
		Weight:   weight,
		Count:    1,
	}
	b.edgeOrder = append(b.edgeOrder, key)
	b.adjacency[key.A] = append(b.adjacency[key.A], key)
	b.adjacency[key.B] = append(b.adjacency[key.B], key)
	return nil
}

// BuildFromPassages adds every passage with a contains edge to each of its
// entities and a co-occurs edge between every distinct entity pair of the
// passage. Each passage is validated completely before the graph is touched,
// so a failing passage leaves no partial nodes or edges behind.
func (b *Builder) BuildFromPassages(passages []*model.Passage, mentionsByPassage map[string][]model.Mention) error {
	for _, p := range passages {
		mentions, err := b.preparePassage(p, mentionsByPassage[passageKey(p)])
		if err != nil {
			return helper.NewError(fmt.Sprintf("build passage %s", passageKey(p)), err)
		}
		if err := b.insertPassage(p, mentions); err != nil {
			return helper.NewError(fmt.Sprintf("insert passage %s", p.ID), err)
		}
	}

	b.log.Info("Built knowledge graph",
		slog.Int("passages", len(passages)),
		slog.Int("nodes", b.NumNodes()),
		slog.Int("edges", b.NumEdges()),
	)
	return nil
}

// preparePassage validates p and its mentions without mutating the graph.
func (b *Builder) preparePassage(p *model.Passage, mentions []model.Mention) ([]model.Mention, error) {
	if err := b.checkPassage(p); err != nil {
		return nil, err
	}

	prepared := make([]model.Mention, 0, len(mentions))
	for _, m := range mentions {
		if m.PassageID == "" {
			m.PassageID = p.ID
		}
		if m.PassageID != p.ID {
			return nil, &model.InvalidInputError{Field: "source_passage_id", Reason: fmt.Sprintf("mention of %s listed under %s", m.PassageID, p.ID)}
		}
		if _, err := mentionKey(m); err != nil {
			return nil, err
		}
		prepared = append(prepared, m)
	}
	return prepared, nil
}

// insertPassage only runs on validated input. A passage that is already in
// the graph was linked when it was first inserted.
func (b *Builder) insertPassage(p *model.Passage, mentions []model.Mention) error {
	if b.HasNode(model.PassageNodeID(p.ID)) {
		return nil
	}
	passageID, err := b.AddPassage(p)
	if err != nil {
		return err
	}

	var entityIDs []string
	seen := map[string]bool{}
	for _, m := range mentions {
		entityID, err := b.AddEntity(m)
		if err != nil {
			return err
		}
		if err := b.Link(passageID, entityID, model.EdgeTypeContains, model.ContainsWeight); err != nil {
			return err
		}
		if !seen[entityID] {
			seen[entityID] = true
			entityIDs = append(entityIDs, entityID)
		}
	}

	for i := 0; i < len(entityIDs); i++ {
		for j := i + 1; j < len(entityIDs); j++ {
			count := 0
			if e, ok := b.Edge(model.EdgeTypeCoOccurs, entityIDs[i], entityIDs[j]); ok {
				count = e.Count
			}
			if err := b.Link(entityIDs[i], entityIDs[j], model.EdgeTypeCoOccurs, model.CoOccurrenceWeight(count+1)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) checkPassage(p *model.Passage) error {
	if p == nil {
		return &model.InvalidInputError{Field: "passage", Reason: "must not be nil"}
	}
	if p.ID == "" {
		return &model.InvalidInputError{Field: "passage_id", Reason: "must not be empty"}
	}
	if n, ok := b.nodes[model.PassageNodeID(p.ID)]; ok && n.FullText != p.Text {
		return &model.DuplicatePassageError{ID: p.ID}
	}
	return nil
}

func (b *Builder) addNode(n *model.Node) {
	b.nodes[n.ID] = n
	b.nodeOrder = append(b.nodeOrder, n.ID)
}

func mentionKey(m model.Mention) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	key := NormalizeKey(m.SurfaceText)
	if key == "" {
		return "", &model.InvalidInputError{Field: "surface_text", Reason: "empty after normalization"}
	}
	return key, nil
}

func passageKey(p *model.Passage) string {
	if p == nil {
		return "<nil>"
	}
	return p.ID
}
