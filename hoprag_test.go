package hoprag

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/siherrmann/hoprag/core/generation"
	"github.com/siherrmann/hoprag/core/graph"
	"github.com/siherrmann/hoprag/core/pipeline"
	"github.com/siherrmann/hoprag/core/retrieval"
	"github.com/siherrmann/hoprag/database"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimensions = 64

// testEmbedder assigns every distinct token its own dimension, so texts
// sharing words are close and unrelated texts are orthogonal.
type testEmbedder struct {
	mu     sync.Mutex
	vocab  map[string]int
	calls  int
	failed bool
}

func newTestEmbedder() *testEmbedder {
	return &testEmbedder{vocab: map[string]int{}}
}

func (e *testEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.failed {
		return nil, errors.New("embedding service down")
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, testDimensions)
		for _, token := range retrieval.Tokenize(text) {
			idx, ok := e.vocab[token]
			if !ok {
				idx = len(e.vocab) % testDimensions
				e.vocab[token] = idx
			}
			v[idx] += 1
		}
		var norm float64
		for _, x := range v {
			norm += float64(x * x)
		}
		if norm > 0 {
			for j := range v {
				v[j] = float32(float64(v[j]) / math.Sqrt(norm))
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *testEmbedder) setFailing(failing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = failing
}

func (e *testEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// testNER reports every occurrence of the known names.
func testNER(names map[string]string) pipeline.NERFunc {
	return func(text string) ([]pipeline.RawEntity, error) {
		var entities []pipeline.RawEntity
		for name, label := range names {
			offset := 0
			for {
				idx := strings.Index(text[offset:], name)
				if idx < 0 {
					break
				}
				start := offset + idx
				entities = append(entities, pipeline.RawEntity{Word: name, Label: label, Score: 0.99, Start: start, End: start + len(name)})
				offset = start + len(name)
			}
		}
		return entities, nil
	}
}

// testGenerator always answers "Marie Curie" and fails for prompts
// containing FAIL.
type testGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *testGenerator) Generate(ctx context.Context, system string, user string, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, user)
	if strings.Contains(user, "FAIL") {
		return "", errors.New("provider unavailable")
	}
	return "Marie Curie", nil
}

func (g *testGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func curieCorpus(t *testing.T) []*model.Passage {
	t.Helper()

	texts := [][2]string{
		{"p1", "Marie Curie discovered radium in Paris."},
		{"p2", "Radium is a radioactive element."},
		{"p3", "Pierre Curie was married to Marie Curie."},
	}
	passages := make([]*model.Passage, 0, len(texts))
	for _, text := range texts {
		p, err := model.NewPassage(text[0], text[1])
		require.NoError(t, err)
		passages = append(passages, p)
	}
	return passages
}

func testConfig(t *testing.T) model.Config {
	t.Helper()

	config := model.DefaultConfig()
	config.DataDir = t.TempDir()
	config.Snapshot = "curie"
	config.Embedding.Dimensions = testDimensions
	config.Generation.MaxRetries = 1
	config.Generation.MinInterval = 0
	config.Generation.Timeout = time.Second
	return config
}

type testSetup struct {
	rag       *HopRAG
	embedder  *testEmbedder
	generator *testGenerator
	store     retrieval.VectorStore
}

func newTestHopRAG(t *testing.T, config model.Config, store retrieval.VectorStore) *testSetup {
	t.Helper()

	if store == nil {
		store = database.NewMemoryVectorStore()
	}
	setup := &testSetup{
		embedder:  newTestEmbedder(),
		generator: &testGenerator{},
		store:     store,
	}

	rag, err := New(config, Options{
		NER: testNER(map[string]string{
			"Marie Curie":  "PER",
			"Pierre Curie": "PER",
			"Paris":        "LOC",
		}),
		Embedder:  setup.embedder.embed,
		Generator: setup.generator,
		Limiter:   generation.NoopLimiter{},
		Store:     store,
		Logger:    helper.NewLogger(slog.LevelError),
	})
	require.NoError(t, err)
	t.Cleanup(func() { rag.Close() })

	setup.rag = rag
	return setup
}

func TestNew(t *testing.T) {
	t.Run("Invalid config is rejected", func(t *testing.T) {
		config := testConfig(t)
		config.Retrieval.LexicalWeight = 2

		_, err := New(config, Options{Logger: helper.NewLogger(slog.LevelError)})

		var invalid *model.InvalidInputError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("Valid call New serves an empty snapshot", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)

		assert.Equal(t, 0, setup.rag.Graph().NumNodes())
		results, err := setup.rag.Retrieve(context.Background(), "radium", 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid call Build", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)

		report, err := setup.rag.Build(ctx, curieCorpus(t))

		require.NoError(t, err)
		assert.Equal(t, "curie", report.Snapshot)
		assert.Equal(t, 3, report.Passages)
		assert.Equal(t, 4, report.Mentions, "Expected Marie Curie twice plus Paris and Pierre Curie")
		assert.Equal(t, 6, report.Nodes, "Expected 3 passages and 3 entities")
		assert.FileExists(t, report.GraphPath)
		require.NotNil(t, report.Index)
		assert.Equal(t, 3, report.Index.Indexed)

		assert.Equal(t, "curie@"+report.Index.BuildID.String(), report.Index.Collection)
		ids, err := setup.store.IDs(ctx, report.Index.Collection)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, ids)
	})

	t.Run("Nil passage is rejected without serving it", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)

		var err error
		require.NotPanics(t, func() {
			_, err = setup.rag.Build(ctx, []*model.Passage{nil})
		})

		var invalid *model.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 0, setup.rag.Graph().NumNodes())
	})

	t.Run("Failed build keeps serving the previous snapshot", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)
		_, err := setup.rag.Build(ctx, curieCorpus(t))
		require.NoError(t, err)
		before := setup.rag.Graph()

		setup.embedder.setFailing(true)
		extra, err := model.NewPassage("p4", "Irene Curie was born in Paris.")
		require.NoError(t, err)
		_, err = setup.rag.Build(ctx, append(curieCorpus(t), extra))

		var buildErr *model.IndexBuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Same(t, before, setup.rag.Graph())

		setup.embedder.setFailing(false)
		results, err := setup.rag.Retrieve(ctx, "radium", 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.NotEqual(t, "p4", r.PassageID)
		}
	})

	t.Run("Conflicting duplicate passage aborts the build", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)
		duplicate, err := model.NewPassage("p1", "Something else entirely.")
		require.NoError(t, err)

		_, err = setup.rag.Build(ctx, append(curieCorpus(t), duplicate))

		var dupErr *model.DuplicatePassageError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, 0, setup.rag.Graph().NumNodes())
		assert.Equal(t, 0, setup.embedder.callCount())
	})

	t.Run("Valid call BuildFromDocuments", func(t *testing.T) {
		setup := newTestHopRAG(t, testConfig(t), nil)
		docs := []*model.Document{
			{ID: "d1", Content: "Marie Curie discovered radium in Paris."},
			{ID: "d2", Content: "Radium is a radioactive element."},
		}

		report, err := setup.rag.BuildFromDocuments(ctx, docs)

		require.NoError(t, err)
		assert.Equal(t, 2, report.Passages)
	})
}

// searchingStore runs a search against the served snapshot right after a
// build has written its vectors and before the build is swapped in.
type searchingStore struct {
	*database.MemoryVectorStore
	rag     *HopRAG
	results []*model.RetrievalResult
	err     error
}

func (s *searchingStore) Replace(ctx context.Context, collection string, records []*model.VectorRecord) error {
	err := s.MemoryVectorStore.Replace(ctx, collection, records)
	if err != nil {
		return err
	}
	if s.rag != nil {
		s.results, s.err = s.rag.Retrieve(ctx, "Marie Curie radium", 3)
	}
	return nil
}

func TestBuildIsolation(t *testing.T) {
	ctx := context.Background()
	store := &searchingStore{MemoryVectorStore: database.NewMemoryVectorStore()}
	setup := newTestHopRAG(t, testConfig(t), store)

	first, err := setup.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)
	store.rag = setup.rag

	p9, err := model.NewPassage("p9", "The Vistula flows through Warsaw.")
	require.NoError(t, err)
	second, err := setup.rag.Build(ctx, []*model.Passage{p9})
	require.NoError(t, err)

	t.Run("Served snapshot answers from its own vectors during a rebuild", func(t *testing.T) {
		require.NoError(t, store.err)
		require.NotEmpty(t, store.results, "Expected the served snapshot to keep its vectors")
		for _, r := range store.results {
			assert.Contains(t, []string{"p1", "p2", "p3"}, r.PassageID)
		}
	})

	t.Run("Replaced vectors are dropped after the swap", func(t *testing.T) {
		assert.NotEqual(t, first.Index.Collection, second.Index.Collection)

		ids, err := store.IDs(ctx, first.Index.Collection)
		require.NoError(t, err)
		assert.Empty(t, ids)

		ids, err = store.IDs(ctx, second.Index.Collection)
		require.NoError(t, err)
		assert.Equal(t, []string{"p9"}, ids)
	})

	t.Run("Reload restores the collection recorded with the graph", func(t *testing.T) {
		loaded := newTestHopRAG(t, setup.rag.Config, store.MemoryVectorStore)

		require.NoError(t, loaded.rag.Load(ctx))
		assert.Equal(t, 0, loaded.embedder.callCount())
		results, err := loaded.rag.Retrieve(ctx, "Vistula", 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "p9", results[0].PassageID)
	})
}

func TestNeighbors(t *testing.T) {
	ctx := context.Background()
	setup := newTestHopRAG(t, testConfig(t), nil)
	_, err := setup.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	marie := model.EntityNodeID("marie curie")
	oneHop := []string{marie, "passage:p1", "passage:p3", model.EntityNodeID("paris"), model.EntityNodeID("pierre curie")}

	nodeIDs := func(results []*graph.TraversalResult) []string {
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.Node.ID
		}
		return ids
	}

	t.Run("Valid call Neighbors breadth first by entity text", func(t *testing.T) {
		results, err := setup.rag.Neighbors(ctx, "Marie Curie", 1, false)

		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, marie, results[0].Node.ID)
		assert.Equal(t, 0, results[0].Distance)
		assert.ElementsMatch(t, oneHop, nodeIDs(results))
	})

	t.Run("Valid call Neighbors depth first by node id", func(t *testing.T) {
		results, err := setup.rag.Neighbors(ctx, marie, 1, true)

		require.NoError(t, err)
		assert.ElementsMatch(t, oneHop, nodeIDs(results))
		for _, r := range results {
			assert.Len(t, r.Path, r.Distance+1)
		}
	})

	t.Run("Edge type filter", func(t *testing.T) {
		results, err := setup.rag.Neighbors(ctx, marie, 2, true, model.EdgeTypeCoOccurs)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{marie, model.EntityNodeID("paris"), model.EntityNodeID("pierre curie")}, nodeIDs(results))
	})

	t.Run("Unknown node", func(t *testing.T) {
		_, err := setup.rag.Neighbors(ctx, "Albert Einstein", 1, false)

		var unknown *model.UnknownNodeError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("Negative hops", func(t *testing.T) {
		_, err := setup.rag.Neighbors(ctx, marie, -1, false)

		var invalid *model.InvalidInputError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	store := database.NewMemoryVectorStore()

	built := newTestHopRAG(t, config, store)
	_, err := built.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	t.Run("Valid call Load restores without embedding passages", func(t *testing.T) {
		loaded := newTestHopRAG(t, config, store)

		err := loaded.rag.Load(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, loaded.embedder.callCount())
		assert.Equal(t, built.rag.Graph().NumNodes(), loaded.rag.Graph().NumNodes())
		assert.Equal(t, built.rag.Graph().NumEdges(), loaded.rag.Graph().NumEdges())
	})

	t.Run("Missing vectors are embedded again", func(t *testing.T) {
		loaded := newTestHopRAG(t, config, database.NewMemoryVectorStore())

		err := loaded.rag.Load(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, loaded.embedder.callCount())
		results, err := loaded.rag.Retrieve(ctx, "radium", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Missing snapshot file", func(t *testing.T) {
		other := testConfig(t)
		loaded := newTestHopRAG(t, other, nil)

		err := loaded.rag.Load(ctx)
		assert.Error(t, err)
	})
}

func TestAnswerDetailed(t *testing.T) {
	ctx := context.Background()
	setup := newTestHopRAG(t, testConfig(t), nil)
	_, err := setup.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	t.Run("Valid call AnswerDetailed", func(t *testing.T) {
		answer, err := setup.rag.AnswerDetailed(ctx, "Where did Marie Curie discover radium?")

		require.NoError(t, err)
		assert.Equal(t, "Marie Curie", answer.FinalAnswer)
		assert.False(t, answer.Failed)
		assert.Equal(t, []string{"marie curie"}, answer.MatchedEntities)
		assert.Contains(t, answer.GraphContext, "Marie Curie discovered radium in Paris.")
		assert.Contains(t, answer.GraphContext, "Pierre Curie was married to Marie Curie.")
		assert.NotEmpty(t, answer.VectorContext)
	})

	t.Run("Question without entity match has no graph context", func(t *testing.T) {
		answer, err := setup.rag.AnswerDetailed(ctx, "Who discovered radium?")

		require.NoError(t, err)
		assert.Empty(t, answer.GraphContext)
		assert.Empty(t, answer.MatchedEntities)
		assert.Contains(t, answer.VectorContext, "radium")
	})

	t.Run("Generation failure yields the placeholder answer", func(t *testing.T) {
		before := setup.generator.count()

		answer, err := setup.rag.AnswerDetailed(ctx, "FAIL: who was married to Marie Curie?")

		var providerErr *model.ExternalProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.True(t, answer.Failed)
		assert.Equal(t, model.GenerationFailedAnswer, answer.FinalAnswer)
		assert.NotEmpty(t, answer.Error)
		assert.Equal(t, 2, setup.generator.count()-before, "Expected one try plus one retry")
	})

	t.Run("Blank question is rejected", func(t *testing.T) {
		answer, err := setup.rag.AnswerDetailed(ctx, "   ")

		var invalid *model.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.True(t, answer.Failed)
	})

	t.Run("Valid call Answer", func(t *testing.T) {
		answer, err := setup.rag.Answer(ctx, "Who discovered radium in Paris?")

		require.NoError(t, err)
		assert.Equal(t, "Marie Curie", answer)
	})
}

func TestAnswerBatchFailure(t *testing.T) {
	ctx := context.Background()
	setup := newTestHopRAG(t, testConfig(t), nil)
	_, err := setup.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	questions := []*model.Question{
		{ID: "q1", Question: "Who discovered radium?", GoldAnswer: "Marie Curie"},
		{ID: "q2", Question: "FAIL: what is radium?", GoldAnswer: "a radioactive element"},
		{ID: "q3", Question: "Who was married to Marie Curie?", GoldAnswer: "Pierre Curie"},
	}

	items := setup.rag.AnswerBatch(ctx, questions)

	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, questions[i].ID, item.ID, "Expected input order")
		assert.Equal(t, questions[i].GoldAnswer, item.GoldAnswer)
	}
	assert.False(t, items[0].Failed)
	assert.Equal(t, "Marie Curie", items[0].PredictedAnswer)
	assert.True(t, items[1].Failed)
	assert.Equal(t, model.GenerationFailedAnswer, items[1].PredictedAnswer)
	assert.NotEmpty(t, items[1].Error)
	assert.False(t, items[2].Failed)
	assert.Equal(t, "Marie Curie", items[2].PredictedAnswer)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	setup := newTestHopRAG(t, testConfig(t), nil)
	report, err := setup.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	err = setup.rag.Reset(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, setup.rag.Graph().NumNodes())
	ids, err := setup.store.IDs(ctx, report.Index.Collection)
	require.NoError(t, err)
	assert.Empty(t, ids)
	results, err := setup.rag.Retrieve(ctx, "radium", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResetWithoutLoad(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	store := database.NewMemoryVectorStore()
	built := newTestHopRAG(t, config, store)
	report, err := built.rag.Build(ctx, curieCorpus(t))
	require.NoError(t, err)

	fresh := newTestHopRAG(t, config, store)
	err = fresh.rag.Reset(ctx)

	require.NoError(t, err)
	ids, err := store.IDs(ctx, report.Index.Collection)
	require.NoError(t, err)
	assert.Empty(t, ids, "Expected the collection recorded with the graph to be dropped")
}
