package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siherrmann/hoprag/helper"
)

// corpusRecord accepts both plain passage lists and multi-hop QA items
// whose context is a list of [title, [sentences]] pairs.
type corpusRecord struct {
	ID       string              `json:"id"`
	QAID     string              `json:"_id"`
	Title    string              `json:"title"`
	Text     string              `json:"text"`
	Question string              `json:"question"`
	Answer   string              `json:"answer"`
	Context  [][]json.RawMessage `json:"context"`
}

// LoadCorpus reads passages from a JSON file or from a directory of .txt files.
// Passages with the same id and text are loaded once.
func LoadCorpus(path string) ([]*Passage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, helper.NewError("stat corpus", err)
	}
	if info.IsDir() {
		return loadCorpusDir(path)
	}

	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	var passages []*Passage
	seen := map[string]string{}
	add := func(id string, text string) error {
		if prev, ok := seen[id]; ok {
			if prev != text {
				return &DuplicatePassageError{ID: id}
			}
			return nil
		}
		p, err := NewPassage(id, text)
		if err != nil {
			return err
		}
		seen[id] = text
		passages = append(passages, p)
		return nil
	}

	for i, r := range records {
		if len(r.Context) == 0 {
			id := r.ID
			if id == "" {
				id = fmt.Sprintf("p%d", i)
			}
			text := r.Text
			if r.Title != "" {
				text = r.Title + ": " + r.Text
			}
			if err := add(id, text); err != nil {
				return nil, helper.NewError("load corpus", err)
			}
			continue
		}

		for _, pair := range r.Context {
			title, sentences, err := decodeContextPair(pair)
			if err != nil {
				return nil, helper.NewError("load corpus", err)
			}
			if err := add(title, title+": "+strings.Join(sentences, "")); err != nil {
				return nil, helper.NewError("load corpus", err)
			}
		}
	}

	return passages, nil
}

// LoadQuestions reads question items from a QA JSON file.
func LoadQuestions(path string) ([]*Question, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	var questions []*Question
	for i, r := range records {
		if strings.TrimSpace(r.Question) == "" {
			continue
		}
		id := r.QAID
		if id == "" {
			id = r.ID
		}
		if id == "" {
			id = fmt.Sprintf("q%d", i)
		}
		questions = append(questions, &Question{ID: id, Question: r.Question, GoldAnswer: r.Answer})
	}
	return questions, nil
}

func readRecords(path string) ([]corpusRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read corpus", err)
	}
	var records []corpusRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, helper.NewError("parse corpus", err)
	}
	return records, nil
}

func decodeContextPair(pair []json.RawMessage) (string, []string, error) {
	if len(pair) != 2 {
		return "", nil, fmt.Errorf("context entry must be [title, sentences], got %d elements", len(pair))
	}
	var title string
	if err := json.Unmarshal(pair[0], &title); err != nil {
		return "", nil, fmt.Errorf("context title: %w", err)
	}
	var sentences []string
	if err := json.Unmarshal(pair[1], &sentences); err != nil {
		return "", nil, fmt.Errorf("context sentences: %w", err)
	}
	return title, sentences, nil
}

func loadCorpusDir(dir string) ([]*Passage, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, helper.NewError("list corpus", err)
	}
	sort.Strings(files)

	passages := make([]*Passage, 0, len(files))
	for _, f := range files {
		doc, err := NewDocumentFromFile(f, Metadata{"source": f})
		if err != nil {
			return nil, helper.NewError("read document", err)
		}
		p, err := doc.Passage()
		if err != nil {
			return nil, helper.NewError("create passage", err)
		}
		passages = append(passages, p)
	}
	return passages, nil
}
