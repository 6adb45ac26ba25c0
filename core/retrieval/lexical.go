package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize lowercases the text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// LexicalIndex is an Okapi BM25 index over a fixed set of passages.
// Document positions match the order the passages were indexed in.
type LexicalIndex struct {
	k1        float64
	b         float64
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	docFreqs  map[string]int
}

// NewLexicalIndex builds a BM25 index over the given texts.
func NewLexicalIndex(texts []string, k1, b float64) *LexicalIndex {
	l := &LexicalIndex{
		k1:        k1,
		b:         b,
		termFreqs: make([]map[string]int, len(texts)),
		docLens:   make([]int, len(texts)),
		docFreqs:  map[string]int{},
	}

	total := 0
	for i, text := range texts {
		tokens := Tokenize(text)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for token := range tf {
			l.docFreqs[token]++
		}
		l.termFreqs[i] = tf
		l.docLens[i] = len(tokens)
		total += len(tokens)
	}
	if len(texts) > 0 {
		l.avgDocLen = float64(total) / float64(len(texts))
	}
	return l
}

// Len returns the number of indexed documents.
func (l *LexicalIndex) Len() int {
	return len(l.docLens)
}

// Scores returns the BM25 score of every indexed document for the query.
func (l *LexicalIndex) Scores(query string) []float64 {
	scores := make([]float64, len(l.docLens))
	if len(scores) == 0 {
		return scores
	}

	seen := map[string]bool{}
	for _, term := range Tokenize(query) {
		if seen[term] {
			continue
		}
		seen[term] = true

		df := l.docFreqs[term]
		if df == 0 {
			continue
		}
		idf := l.idf(df)
		for i, tf := range l.termFreqs {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			norm := 1 - l.b
			if l.avgDocLen > 0 {
				norm += l.b * float64(l.docLens[i]) / l.avgDocLen
			}
			scores[i] += idf * freq * (l.k1 + 1) / (freq + l.k1*norm)
		}
	}
	return scores
}

// idf uses the shifted form so that terms occurring in every document never score negative.
func (l *LexicalIndex) idf(df int) float64 {
	n := float64(len(l.docLens))
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}
