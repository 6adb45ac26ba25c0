package model

// NodeKind distinguishes passage nodes from entity nodes.
type NodeKind string

const (
	NodeKindPassage NodeKind = "passage"
	NodeKindEntity  NodeKind = "entity"
)

const (
	passageNodePrefix = "passage:"
	entityNodePrefix  = "entity:"
)

// Node is a vertex of the knowledge graph.
// For passages Text holds the preview and FullText the whole passage.
// For entities Text holds the canonical surface text.
type Node struct {
	ID               string   `json:"id"`
	Kind             NodeKind `json:"kind"`
	Key              string   `json:"key"`
	Text             string   `json:"text"`
	FullText         string   `json:"full_text,omitempty"`
	TypeLabel        string   `json:"type_label,omitempty"`
	SourcePassageIDs []string `json:"source_passage_ids,omitempty"`
}

// PassageNodeID returns the node id for a passage id.
func PassageNodeID(passageID string) string {
	return passageNodePrefix + passageID
}

// EntityNodeID returns the node id for a normalized entity key.
func EntityNodeID(key string) string {
	return entityNodePrefix + key
}

// IsPassage reports whether the node is a passage node.
func (n *Node) IsPassage() bool {
	return n.Kind == NodeKindPassage
}

// IsEntity reports whether the node is an entity node.
func (n *Node) IsEntity() bool {
	return n.Kind == NodeKindEntity
}

// HasSource reports whether passageID is already recorded as a source.
func (n *Node) HasSource(passageID string) bool {
	for _, id := range n.SourcePassageIDs {
		if id == passageID {
			return true
		}
	}
	return false
}
