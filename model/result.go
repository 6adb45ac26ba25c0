package model

type RetrievalMethod string

const (
	RetrievalMethodDense   RetrievalMethod = "dense"
	RetrievalMethodLexical RetrievalMethod = "lexical"
	RetrievalMethodHybrid  RetrievalMethod = "hybrid"
)

// RetrievalResult is a passage ranked by the hybrid retriever
type RetrievalResult struct {
	PassageID       string          `json:"passage_id"`
	Text            string          `json:"text"`
	Score           float64         `json:"score"`         // Fused score used for ranking
	DenseScore      float64         `json:"dense_score"`   // 1 - normalized distance
	LexicalScore    float64         `json:"lexical_score"` // BM25 normalized by the best candidate
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
}

// Evidence is the bounded context handed to the answer generator.
type Evidence struct {
	VectorContext   string             `json:"vector_context"`
	GraphContext    string             `json:"graph_context"`
	MatchedEntities []string           `json:"matched_entities"`
	Results         []*RetrievalResult `json:"results,omitempty"`
}

// Answer is the detailed outcome of one question.
type Answer struct {
	Question        string   `json:"question"`
	FinalAnswer     string   `json:"final_answer"`
	VectorContext   string   `json:"vector_context"`
	GraphContext    string   `json:"graph_context"`
	MatchedEntities []string `json:"matched_entities"`
	Failed          bool     `json:"failed"`
	Error           string   `json:"error,omitempty"`
}

// Question is one item of a question batch.
type Question struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	GoldAnswer string `json:"gold_answer,omitempty"`
}

// BatchItem is the per-question output of a batch run.
// Failed marks items whose answer is the generation failure placeholder.
type BatchItem struct {
	ID              string `json:"id"`
	Question        string `json:"question"`
	GoldAnswer      string `json:"gold_answer,omitempty"`
	PredictedAnswer string `json:"predicted_answer"`
	Failed          bool   `json:"failed"`
	Error           string `json:"error,omitempty"`
}

// VectorRecord is one passage vector persisted in a vector store.
type VectorRecord struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Document string    `json:"document"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// VectorMatch is a nearest neighbor hit. Distance is the cosine distance
// in [0, 2], smaller is more similar.
type VectorMatch struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Distance float64 `json:"distance"`
}
