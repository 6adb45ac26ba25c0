package model

import "strings"

// Mention is a typed entity span found in a passage.
// It is consumed once by the graph builder.
type Mention struct {
	SurfaceText string  `json:"surface_text"`
	TypeLabel   string  `json:"type_label"`
	PassageID   string  `json:"source_passage_id"`
	CharStart   int     `json:"char_start"`
	CharEnd     int     `json:"char_end"`
	Confidence  float32 `json:"confidence,omitempty"`
}

// Validate checks the span and the surface text.
func (m *Mention) Validate() error {
	if strings.TrimSpace(m.SurfaceText) == "" {
		return &InvalidInputError{Field: "surface_text", Reason: "must not be empty"}
	}
	if strings.TrimSpace(m.PassageID) == "" {
		return &InvalidInputError{Field: "source_passage_id", Reason: "must not be empty"}
	}
	if m.CharStart < 0 || m.CharEnd < m.CharStart {
		return &InvalidInputError{Field: "char_span", Reason: "start must be non-negative and not after end"}
	}
	return nil
}
