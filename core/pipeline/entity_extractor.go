package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// defaultLabelMap maps CoNLL and OntoNotes style labels onto the closed label set.
var defaultLabelMap = map[string]model.EntityType{
	"PER":         model.EntityTypePerson,
	"PERSON":      model.EntityTypePerson,
	"ORG":         model.EntityTypeOrg,
	"LOC":         model.EntityTypeGPE,
	"GPE":         model.EntityTypeGPE,
	"DATE":        model.EntityTypeDate,
	"EVENT":       model.EntityTypeEvent,
	"WORK_OF_ART": model.EntityTypeWorkOfArt,
}

// EntityExtractor turns NER output into validated mentions of the closed label set.
// Labels outside the set are dropped.
type EntityExtractor struct {
	ner    NERFunc
	labels map[string]model.EntityType
	log    *slog.Logger
}

// NewEntityExtractor wraps a NER function with the default label map.
func NewEntityExtractor(ner NERFunc, logger *slog.Logger) *EntityExtractor {
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	return &EntityExtractor{
		ner:    ner,
		labels: defaultLabelMap,
		log:    logger,
	}
}

// Extract returns the mentions of a single passage in model output order.
func (e *EntityExtractor) Extract(p *model.Passage) ([]model.Mention, error) {
	if p == nil {
		return nil, &model.InvalidInputError{Field: "passage", Reason: "must not be nil"}
	}
	if p.IsBlank() {
		return nil, nil
	}
	if e.ner == nil {
		return nil, &model.ExternalProviderError{Provider: "ner", Operation: "extract", Err: fmt.Errorf("no NER function configured")}
	}

	raw, err := e.ner(p.Text)
	if err != nil {
		return nil, &model.ExternalProviderError{Provider: "ner", Operation: "extract", Err: err}
	}

	var mentions []model.Mention
	for _, r := range raw {
		label, ok := e.labels[normalizeEntityType(r.Label)]
		if !ok {
			continue
		}
		surface := strings.TrimSpace(r.Word)
		if surface == "" {
			continue
		}
		m := model.Mention{
			SurfaceText: surface,
			TypeLabel:   string(label),
			PassageID:   p.ID,
			CharStart:   r.Start,
			CharEnd:     r.End,
			Confidence:  r.Score,
		}
		if err := m.Validate(); err != nil {
			e.log.Debug("Dropped invalid mention", slog.String("passage_id", p.ID), slog.String("surface", surface), slog.String("error", err.Error()))
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}

// ExtractAll extracts mentions for every passage, keyed by passage id.
// Nil passages are skipped. The first NER failure aborts extraction.
func (e *EntityExtractor) ExtractAll(ctx context.Context, passages []*model.Passage) (map[string][]model.Mention, error) {
	result := make(map[string][]model.Mention, len(passages))
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		mentions, err := e.Extract(p)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("extract passage %s", p.ID), err)
		}
		result[p.ID] = mentions

		if (i+1)%100 == 0 {
			e.log.Info("Extracting entities", slog.Int("done", i+1), slog.Int("total", len(passages)))
		}
	}
	return result, nil
}

// DefaultEntityExtractor creates a NER function using distilbert-NER.
// It detects PER, ORG, LOC and MISC spans. MISC is outside the closed set.
func DefaultEntityExtractor() (NERFunc, error) {
	modelPath, err := helper.PrepareModel("KnightsAnalytics/distilbert-NER", "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]RawEntity, error) {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}

		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}
		if len(result.Entities) == 0 {
			return nil, nil
		}

		entities := make([]RawEntity, 0, len(result.Entities[0]))
		for _, entity := range result.Entities[0] {
			entities = append(entities, RawEntity{
				Word:  entity.Word,
				Label: entity.Entity,
				Score: entity.Score,
				Start: int(entity.Start),
				End:   int(entity.End),
			})
		}
		return entities, nil
	}, nil
}

// normalizeEntityType removes BIO prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
