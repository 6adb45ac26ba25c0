package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// ChunkFunc splits a document into passages
type ChunkFunc func(doc *model.Document) ([]*model.Passage, error)

// EmbedFunc embeds texts in one call. It returns one vector per text in input order.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// NERFunc runs named entity recognition on a single text.
type NERFunc func(text string) ([]RawEntity, error)

// RawEntity is a span as reported by a NER model, before label filtering.
type RawEntity struct {
	Word  string
	Label string
	Score float32
	Start int
	End   int
}

// Pipeline bundles the external capabilities needed to build a snapshot
type Pipeline struct {
	Chunker   ChunkFunc // Optional
	Embedder  EmbedFunc
	Extractor *EntityExtractor
	log       *slog.Logger
}

// NewPipeline creates a new processing pipeline
func NewPipeline(ner NERFunc, embedder EmbedFunc, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	return &Pipeline{
		Embedder:  embedder,
		Extractor: NewEntityExtractor(ner, logger),
		log:       logger,
	}
}

// SetChunker sets the function used to split documents into passages
func (p *Pipeline) SetChunker(chunker ChunkFunc) {
	p.Chunker = chunker
}

// Passages turns documents into passages, using the chunker when one is set.
func (p *Pipeline) Passages(docs []*model.Document) ([]*model.Passage, error) {
	var passages []*model.Passage
	for _, doc := range docs {
		if p.Chunker == nil {
			passage, err := doc.Passage()
			if err != nil {
				return nil, helper.NewError("create passage", err)
			}
			passages = append(passages, passage)
			continue
		}

		chunks, err := p.Chunker(doc)
		if err != nil {
			return nil, helper.NewError("chunk document "+doc.ID, err)
		}
		passages = append(passages, chunks...)
	}
	return passages, nil
}

// ExtractMentions runs the entity extraction adapter over all passages.
func (p *Pipeline) ExtractMentions(ctx context.Context, passages []*model.Passage) (map[string][]model.Mention, error) {
	start := time.Now()
	mentions, err := p.Extractor.ExtractAll(ctx, passages)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, m := range mentions {
		total += len(m)
	}
	p.log.Info("Extracted entity mentions",
		slog.Int("passages", len(passages)),
		slog.Int("mentions", total),
		slog.Duration("duration", time.Since(start)),
	)
	return mentions, nil
}
