package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/hoprag/core/pipeline"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// maxDistance is the largest cosine distance, used to map distances onto [0, 1].
const maxDistance = 2.0

// BuildReport summarizes an index build.
type BuildReport struct {
	BuildID    uuid.UUID
	Collection string
	Indexed    int
	Skipped    []string
	Duration   time.Duration
}

// Index is an immutable lexical and dense index state over one passage set.
// The lexical positions and the dense ids cover exactly the same passages.
// Every build writes its vectors into its own collection, so a served index
// is never changed by a later build.
type Index struct {
	BuildID    uuid.UUID
	collection string
	passages   []*model.Passage
	positions  map[string]int
	lexical    *LexicalIndex
	dimensions int
}

func emptyIndex(collection string) *Index {
	return &Index{
		collection: collection,
		positions:  map[string]int{},
		lexical:    NewLexicalIndex(nil, 0, 0),
	}
}

// Collection returns the vector collection the index queries.
func (i *Index) Collection() string {
	return i.collection
}

// Len returns the number of indexed passages.
func (i *Index) Len() int {
	return len(i.passages)
}

// IDs returns the indexed passage ids in insertion order.
func (i *Index) IDs() []string {
	ids := make([]string, len(i.passages))
	for n, p := range i.passages {
		ids[n] = p.ID
	}
	return ids
}

// Passage returns the indexed passage with the given id.
func (i *Index) Passage(id string) (*model.Passage, bool) {
	pos, ok := i.positions[id]
	if !ok {
		return nil, false
	}
	return i.passages[pos], true
}

// Retriever builds and queries the hybrid lexical and dense index.
type Retriever struct {
	store      VectorStore
	embed      pipeline.EmbedFunc
	collection string
	config     model.RetrievalConfig
	log        *slog.Logger

	mu    sync.RWMutex
	index *Index
}

// NewRetriever creates a retriever. Builds write their vectors into
// collections named <collection>@<build id>.
func NewRetriever(store VectorStore, embed pipeline.EmbedFunc, collection string, config model.RetrievalConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	if config.CandidateMultiplier < 1 {
		config.CandidateMultiplier = 1
	}
	if config.EmbedBatchSize < 1 {
		config.EmbedBatchSize = 1
	}
	return &Retriever{
		store:      store,
		embed:      embed,
		collection: collection,
		config:     config,
		log:        logger,
		index:      emptyIndex(collection),
	}
}

// Current returns the index state queries are served from.
func (r *Retriever) Current() *Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// Swap replaces the served index state and returns the previous one.
func (r *Retriever) Swap(index *Index) *Index {
	if index == nil {
		index = emptyIndex(r.collection)
	}
	r.mu.Lock()
	previous := r.index
	r.index = index
	r.mu.Unlock()
	return previous
}

// BuildIndices indexes the passages and starts serving the new state.
// On failure the previous state keeps being served.
func (r *Retriever) BuildIndices(ctx context.Context, passages []*model.Passage) (*BuildReport, error) {
	index, report, err := r.Prepare(ctx, passages)
	if err != nil {
		return report, err
	}
	previous := r.Swap(index)
	if err := r.Release(ctx, previous, index); err != nil {
		r.log.Warn("Failed to drop replaced vectors", slog.String("collection", previous.collection), slog.String("error", err.Error()))
	}
	return report, nil
}

// Release drops the vectors of an index that is no longer served. Nothing
// is dropped if the index shares its collection with keep.
func (r *Retriever) Release(ctx context.Context, index *Index, keep *Index) error {
	if index == nil || index.collection == "" {
		return nil
	}
	if keep != nil && keep.collection == index.collection {
		return nil
	}
	err := r.store.Drop(ctx, index.collection)
	if err != nil {
		return &model.ExternalProviderError{Provider: "vector_store", Operation: "drop", Err: err}
	}
	r.log.Debug("Dropped replaced vectors", slog.String("collection", index.collection))
	return nil
}

func (r *Retriever) buildCollection(buildID uuid.UUID) string {
	return r.collection + "@" + buildID.String()
}

// Prepare builds a new index state without serving it. The vectors are
// written into a new collection for this build, blank passages are skipped.
// A failed build leaves no vectors behind.
func (r *Retriever) Prepare(ctx context.Context, passages []*model.Passage) (*Index, *BuildReport, error) {
	start := time.Now()
	report := &BuildReport{
		BuildID: uuid.New(),
	}
	report.Collection = r.buildCollection(report.BuildID)

	index := emptyIndex(report.Collection)
	index.BuildID = report.BuildID
	for _, p := range passages {
		if p == nil {
			continue
		}
		if p.IsBlank() {
			report.Skipped = append(report.Skipped, p.ID)
			continue
		}
		if pos, ok := index.positions[p.ID]; ok {
			if index.passages[pos].SameContent(p) {
				continue
			}
			return nil, report, &model.IndexBuildError{Reason: "duplicate passage", Err: &model.DuplicatePassageError{ID: p.ID}}
		}
		index.positions[p.ID] = len(index.passages)
		index.passages = append(index.passages, p)
	}

	vectors, err := r.embedPassages(ctx, index.passages)
	if err != nil {
		return nil, report, err
	}

	records := make([]*model.VectorRecord, len(index.passages))
	for i, p := range index.passages {
		if i == 0 {
			index.dimensions = len(vectors[i])
		}
		if len(vectors[i]) == 0 || len(vectors[i]) != index.dimensions {
			return nil, report, &model.IndexBuildError{
				Reason: fmt.Sprintf("embedding for passage %q has %d dimensions, expected %d", p.ID, len(vectors[i]), index.dimensions),
			}
		}
		records[i] = &model.VectorRecord{
			ID:       p.ID,
			Vector:   vectors[i],
			Document: p.Text,
			Metadata: model.Metadata{"build_id": report.BuildID.String()},
		}
	}

	err = r.store.Replace(ctx, index.collection, records)
	if err != nil {
		if dropErr := r.store.Drop(ctx, index.collection); dropErr != nil {
			r.log.Warn("Failed to drop partial vectors", slog.String("collection", index.collection), slog.String("error", dropErr.Error()))
		}
		return nil, report, &model.IndexBuildError{
			Reason: "persist vectors",
			Err:    &model.ExternalProviderError{Provider: "vector_store", Operation: "replace", Err: err},
		}
	}

	texts := make([]string, len(index.passages))
	for i, p := range index.passages {
		texts[i] = p.Text
	}
	index.lexical = NewLexicalIndex(texts, r.config.BM25K1, r.config.BM25B)

	report.Indexed = len(index.passages)
	report.Duration = time.Since(start)
	r.log.Info("Built retrieval indices",
		slog.String("build_id", report.BuildID.String()),
		slog.String("collection", index.collection),
		slog.Int("indexed", report.Indexed),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration),
	)
	if len(report.Skipped) > 0 {
		r.log.Warn("Skipped blank passages", slog.Any("ids", report.Skipped))
	}
	return index, report, nil
}

func (r *Retriever) embedPassages(ctx context.Context, passages []*model.Passage) ([][]float32, error) {
	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += r.config.EmbedBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, &model.IndexBuildError{Reason: "canceled", Err: err}
		}

		end := min(start+r.config.EmbedBatchSize, len(passages))
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}

		batch, err := r.embed(ctx, texts)
		if err != nil {
			return nil, &model.IndexBuildError{
				Reason: "embedding failed",
				Err:    &model.ExternalProviderError{Provider: "embedding", Operation: "embed passages", Err: err},
			}
		}
		if len(batch) != len(texts) {
			return nil, &model.IndexBuildError{
				Reason: fmt.Sprintf("embedder returned %d vectors for %d passages", len(batch), len(texts)),
			}
		}
		vectors = append(vectors, batch...)
		r.log.Debug("Embedded passage batch", slog.Int("done", end), slog.Int("total", len(passages)))
	}
	return vectors, nil
}

// Restore rebuilds the index state for passages whose vectors are already
// persisted in the given collection, without calling the embedder.
func (r *Retriever) Restore(ctx context.Context, collection string, passages []*model.Passage) (*Index, error) {
	if collection == "" {
		return nil, &model.IndexBuildError{Reason: "no vector collection recorded"}
	}
	ids, err := r.store.IDs(ctx, collection)
	if err != nil {
		return nil, &model.ExternalProviderError{Provider: "vector_store", Operation: "list ids", Err: err}
	}
	stored := make(map[string]bool, len(ids))
	for _, id := range ids {
		stored[id] = true
	}

	index := emptyIndex(collection)
	if _, id, ok := strings.Cut(collection, "@"); ok {
		index.BuildID, _ = uuid.Parse(id)
	}
	texts := []string{}
	for _, p := range passages {
		if p == nil || p.IsBlank() {
			continue
		}
		if _, ok := index.positions[p.ID]; ok {
			continue
		}
		if !stored[p.ID] {
			return nil, &model.IndexBuildError{Reason: fmt.Sprintf("no persisted vector for passage %q", p.ID)}
		}
		index.positions[p.ID] = len(index.passages)
		index.passages = append(index.passages, p)
		texts = append(texts, p.Text)
	}
	if len(index.passages) != len(ids) {
		return nil, &model.IndexBuildError{
			Reason: fmt.Sprintf("collection %q holds %d vectors for %d passages", collection, len(ids), len(index.passages)),
		}
	}
	index.lexical = NewLexicalIndex(texts, r.config.BM25K1, r.config.BM25B)
	return index, nil
}

// Reset drops the vectors of the served index and serves an empty index.
func (r *Retriever) Reset(ctx context.Context) error {
	err := r.Release(ctx, r.Current(), nil)
	if err != nil {
		return err
	}
	r.Swap(nil)
	return nil
}

// Retrieve returns the topK passages for the query from the served index.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error) {
	return r.Search(ctx, r.Current(), query, topK)
}

// Search returns the topK passages for the query from the given index state.
// An empty index, a blank query or topK <= 0 give an empty result.
func (r *Retriever) Search(ctx context.Context, index *Index, query string, topK int) ([]*model.RetrievalResult, error) {
	results := []*model.RetrievalResult{}
	if index == nil || index.Len() == 0 || topK <= 0 || strings.TrimSpace(query) == "" {
		return results, nil
	}

	pool := min(topK*r.config.CandidateMultiplier, index.Len())

	vectors, err := r.embed(ctx, []string{query})
	if err != nil {
		return nil, &model.ExternalProviderError{Provider: "embedding", Operation: "embed query", Err: err}
	}
	if len(vectors) != 1 {
		return nil, &model.ExternalProviderError{Provider: "embedding", Operation: "embed query", Err: fmt.Errorf("expected 1 vector, got %d", len(vectors))}
	}
	if index.dimensions > 0 && len(vectors[0]) != index.dimensions {
		return nil, &model.ExternalProviderError{
			Provider:  "embedding",
			Operation: "embed query",
			Err:       fmt.Errorf("query has %d dimensions, index has %d", len(vectors[0]), index.dimensions),
		}
	}

	matches, err := r.store.Query(ctx, index.collection, vectors[0], pool)
	if err != nil {
		return nil, &model.ExternalProviderError{Provider: "vector_store", Operation: "query", Err: err}
	}

	candidates := []*Candidate{}
	byID := map[string]*Candidate{}
	for _, m := range matches {
		pos, ok := index.positions[m.ID]
		if !ok {
			continue
		}
		if _, seen := byID[m.ID]; seen {
			continue
		}
		c := &Candidate{
			Passage:  index.passages[pos],
			Position: pos,
			Dense:    clamp(1 - m.Distance/maxDistance),
			InDense:  true,
		}
		byID[m.ID] = c
		candidates = append(candidates, c)
	}

	if r.config.LexicalWeight > 0 {
		scores := index.lexical.Scores(query)
		for _, c := range candidates {
			c.Lexical = scores[c.Position]
		}
		for _, pos := range topPositions(scores, pool) {
			id := index.passages[pos].ID
			if _, ok := byID[id]; ok {
				continue
			}
			c := &Candidate{
				Passage:  index.passages[pos],
				Position: pos,
				Lexical:  scores[pos],
			}
			byID[id] = c
			candidates = append(candidates, c)
		}
	}

	return NewStrategy(r.config.LexicalWeight).Fuse(candidates, topK), nil
}

// topPositions returns up to k positions with a positive score, best first.
func topPositions(scores []float64, k int) []int {
	positions := []int{}
	for pos, score := range scores {
		if score > 0 {
			positions = append(positions, pos)
		}
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return scores[positions[i]] > scores[positions[j]]
	})
	if k < len(positions) {
		positions = positions[:k]
	}
	return positions
}

// View serves queries from one fixed index state.
type View struct {
	retriever *Retriever
	index     *Index
}

// View binds the retriever to the given index state.
func (r *Retriever) View(index *Index) *View {
	return &View{retriever: r, index: index}
}

// Retrieve returns the topK passages for the query from the bound index.
func (v *View) Retrieve(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error) {
	return v.retriever.Search(ctx, v.index, query, topK)
}
