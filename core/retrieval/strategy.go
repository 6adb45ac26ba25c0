package retrieval

import (
	"sort"

	"github.com/siherrmann/hoprag/model"
)

// Candidate is a passage that reached the fusion step.
type Candidate struct {
	Passage  *model.Passage
	Position int
	Dense    float64
	Lexical  float64 // raw BM25
	InDense  bool
}

// Strategy turns scored candidates into ranked retrieval results.
type Strategy interface {
	Fuse(candidates []*Candidate, topK int) []*model.RetrievalResult
}

// NewStrategy returns the fusion strategy for a lexical weight.
func NewStrategy(lexicalWeight float64) Strategy {
	if lexicalWeight <= 0 {
		return &DenseOnlyStrategy{}
	}
	return &WeightedSumStrategy{LexicalWeight: lexicalWeight}
}

// DenseOnlyStrategy ranks by dense similarity alone
type DenseOnlyStrategy struct{}

// Fuse ranks the dense candidates, lexical-only candidates are ignored
func (s *DenseOnlyStrategy) Fuse(candidates []*Candidate, topK int) []*model.RetrievalResult {
	results := make([]*ranked, 0, len(candidates))
	for _, c := range candidates {
		if !c.InDense {
			continue
		}
		results = append(results, &ranked{
			position: c.Position,
			result: &model.RetrievalResult{
				PassageID:       c.Passage.ID,
				Text:            c.Passage.Text,
				Score:           c.Dense,
				DenseScore:      c.Dense,
				RetrievalMethod: model.RetrievalMethodDense,
			},
		})
	}
	return rank(results, topK)
}

// WeightedSumStrategy mixes dense similarity with max-normalized BM25
type WeightedSumStrategy struct {
	LexicalWeight float64
}

// Fuse scores each candidate with (1-w)*dense + w*bm25/max
func (s *WeightedSumStrategy) Fuse(candidates []*Candidate, topK int) []*model.RetrievalResult {
	maxLexical := 0.0
	for _, c := range candidates {
		if c.Lexical > maxLexical {
			maxLexical = c.Lexical
		}
	}

	results := make([]*ranked, 0, len(candidates))
	for _, c := range candidates {
		lexical := 0.0
		if maxLexical > 0 {
			lexical = c.Lexical / maxLexical
		}
		dense := 0.0
		if c.InDense {
			dense = c.Dense
		}

		method := model.RetrievalMethodHybrid
		switch {
		case !c.InDense:
			method = model.RetrievalMethodLexical
		case lexical == 0:
			method = model.RetrievalMethodDense
		}

		results = append(results, &ranked{
			position: c.Position,
			result: &model.RetrievalResult{
				PassageID:       c.Passage.ID,
				Text:            c.Passage.Text,
				Score:           clamp((1-s.LexicalWeight)*dense + s.LexicalWeight*lexical),
				DenseScore:      dense,
				LexicalScore:    lexical,
				RetrievalMethod: method,
			},
		})
	}
	return rank(results, topK)
}

type ranked struct {
	position int
	result   *model.RetrievalResult
}

// rank sorts by score descending, ties by passage position, and truncates to topK.
func rank(results []*ranked, topK int) []*model.RetrievalResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].result.Score != results[j].result.Score {
			return results[i].result.Score > results[j].result.Score
		}
		return results[i].position < results[j].position
	})

	if topK < len(results) {
		results = results[:topK]
	}
	out := make([]*model.RetrievalResult, len(results))
	for i, r := range results {
		out[i] = r.result
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
