package pipeline

import (
	"fmt"
	"strings"

	"github.com/siherrmann/hoprag/model"
)

// SentenceChunker creates a chunker that splits documents into passages of
// at most maxSentencesPerPassage sentences. Passage ids are "<doc id>#<n>",
// a document that fits in one passage keeps its own id.
func SentenceChunker(maxSentencesPerPassage int) ChunkFunc {
	return func(doc *model.Document) ([]*model.Passage, error) {
		if maxSentencesPerPassage <= 0 {
			return nil, fmt.Errorf("max sentences per passage must be positive")
		}

		sentences := splitSentences(doc.Content)
		if len(sentences) <= maxSentencesPerPassage {
			p, err := doc.Passage()
			if err != nil {
				return nil, err
			}
			return []*model.Passage{p}, nil
		}

		var passages []*model.Passage
		for start, idx := 0, 0; start < len(sentences); start, idx = start+maxSentencesPerPassage, idx+1 {
			end := start + maxSentencesPerPassage
			if end > len(sentences) {
				end = len(sentences)
			}
			text := strings.Join(sentences[start:end], " ")
			if doc.Title != "" && doc.Title != doc.ID {
				text = doc.Title + ": " + text
			}
			p, err := model.NewPassage(fmt.Sprintf("%s#%d", doc.ID, idx), text)
			if err != nil {
				return nil, err
			}
			passages = append(passages, p)
		}
		return passages, nil
	}
}

// splitSentences splits on sentence terminators followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		isEnd := r == '.' || r == '!' || r == '?'
		if isEnd && (i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t') {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
