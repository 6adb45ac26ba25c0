package hoprag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/siherrmann/hoprag/core/generation"
	"github.com/siherrmann/hoprag/core/graph"
	"github.com/siherrmann/hoprag/core/pipeline"
	"github.com/siherrmann/hoprag/core/reasoning"
	"github.com/siherrmann/hoprag/core/retrieval"
	"github.com/siherrmann/hoprag/database"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
	loadSql "github.com/siherrmann/hoprag/sql"
)

// Options holds the providers of a HopRAG instance. Nil fields are created
// from the configuration.
type Options struct {
	NER       pipeline.NERFunc
	Embedder  pipeline.EmbedFunc
	Generator generation.Generator
	Limiter   generation.Limiter
	Store     retrieval.VectorStore
	Logger    *slog.Logger
}

// HopRAG answers multi-hop questions from a snapshot made of an entity graph
// and a hybrid passage index.
type HopRAG struct {
	Config    model.Config
	DB        *helper.Database // Only set for the postgres store
	Store     retrieval.VectorStore
	Pipeline  *pipeline.Pipeline
	Retriever *retrieval.Retriever
	Answerer  *generation.Answerer
	// Logging
	log *slog.Logger

	// The graph and index are swapped together under mu.
	mu    sync.RWMutex
	graph *graph.Graph
	index *retrieval.Index
}

// BuildReport summarizes a snapshot build.
type BuildReport struct {
	Snapshot  string
	GraphPath string
	Passages  int
	Mentions  int
	Nodes     int
	Edges     int
	Index     *retrieval.BuildReport
	Duration  time.Duration
}

// New creates a HopRAG instance for the configuration.
func New(config model.Config, opts Options) (*HopRAG, error) {
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate config", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelInfo,
			},
		}))
	}

	h := &HopRAG{
		Config: config,
		Store:  opts.Store,
		log:    logger,
		graph:  graph.Empty(),
	}

	if h.Store == nil {
		err := h.openStore()
		if err != nil {
			return nil, err
		}
	}

	embed := opts.Embedder
	if embed == nil {
		var err error
		embed, err = generation.NewEmbedFunc(config.Embedding)
		if err != nil {
			h.Close()
			return nil, helper.NewError("create embedder", err)
		}
	}

	ner := opts.NER
	if ner == nil {
		ner = lazyNER()
	}

	generator := opts.Generator
	if generator == nil {
		var err error
		generator, err = generation.NewGenerator(config.Generation)
		if err != nil {
			// Building does not need a generator, answering reports the error.
			logger.Warn("Generation unavailable", slog.String("provider", config.Generation.Provider), slog.String("error", err.Error()))
			generator = unavailableGenerator{err: err}
		}
	}

	h.Pipeline = pipeline.NewPipeline(ner, embed, logger)
	h.Retriever = retrieval.NewRetriever(h.Store, embed, config.Snapshot, config.Retrieval, logger)
	h.Answerer = generation.NewAnswerer(generator, opts.Limiter, config.Generation, logger)
	h.index = h.Retriever.Current()

	logger.Info("Initialized HopRAG",
		slog.String("snapshot", config.Snapshot),
		slog.String("store", config.Store.Backend),
		slog.String("embedding", config.Embedding.Provider),
		slog.String("generation", config.Generation.Provider),
	)
	return h, nil
}

// openStore connects the configured vector store.
func (h *HopRAG) openStore() error {
	switch h.Config.Store.Backend {
	case model.StoreMemory:
		h.Store = database.NewMemoryVectorStore()
		return nil
	case model.StorePostgres:
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return err
		}

		db := helper.NewDatabase("hoprag", dbConfig, h.log)
		err = loadSql.Init(db.Instance)
		if err != nil {
			db.Close()
			return helper.NewError("initialize database extensions", err)
		}

		vectors, err := database.NewVectorsDBHandler(db, h.Config.Embedding.Dimensions, false)
		if err != nil {
			db.Close()
			return helper.NewError("create vectors handler", err)
		}
		if h.Config.Store.IndexType != model.IndexTypeHNSW {
			err = vectors.ChangeIndexType(context.Background(), h.Config.Store.IndexType, nil)
			if err != nil {
				db.Close()
				return helper.NewError("change index type", err)
			}
		}

		h.DB = db
		h.Store = vectors
		return nil
	default:
		return &model.InvalidInputError{Field: "store.backend", Reason: fmt.Sprintf("unsupported backend %q", h.Config.Store.Backend)}
	}
}

// Close closes the database connection if there is one.
func (h *HopRAG) Close() error {
	if h.DB == nil {
		return nil
	}
	return h.DB.Close()
}

// Graph returns the graph of the served snapshot.
func (h *HopRAG) Graph() *graph.Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph
}

// Build replaces the served snapshot with one built from passages. The new
// graph and index only become visible once everything was built and
// persisted, a failed build keeps serving the previous snapshot. The vectors
// of the replaced snapshot are dropped after the swap.
func (h *HopRAG) Build(ctx context.Context, passages []*model.Passage) (*BuildReport, error) {
	start := time.Now()

	mentions, err := h.Pipeline.ExtractMentions(ctx, passages)
	if err != nil {
		return nil, helper.NewError("extract mentions", err)
	}

	builder := graph.NewBuilder(h.log)
	err = builder.BuildFromPassages(passages, mentions)
	if err != nil {
		return nil, helper.NewError("build graph", err)
	}
	g := builder.Freeze()

	report := &BuildReport{
		Snapshot: h.Config.Snapshot,
		Passages: len(passages),
		Nodes:    g.NumNodes(),
		Edges:    g.NumEdges(),
	}
	for _, m := range mentions {
		report.Mentions += len(m)
	}

	index, indexReport, err := h.Retriever.Prepare(ctx, passages)
	if err != nil {
		return nil, err
	}
	report.Index = indexReport

	if h.Config.DataDir != "" {
		report.GraphPath, err = graph.Save(g, h.Config.DataDir, h.Config.Snapshot, index.Collection())
		if err != nil {
			h.release(ctx, index, nil)
			return nil, helper.NewError("save graph", err)
		}
	}

	previous := h.swap(g, index)
	h.release(ctx, previous, index)

	report.Duration = time.Since(start)
	h.log.Info("Built snapshot",
		slog.String("snapshot", report.Snapshot),
		slog.Int("passages", report.Passages),
		slog.Int("mentions", report.Mentions),
		slog.Int("nodes", report.Nodes),
		slog.Int("edges", report.Edges),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// BuildFromDocuments turns documents into passages with the pipeline and builds them.
func (h *HopRAG) BuildFromDocuments(ctx context.Context, docs []*model.Document) (*BuildReport, error) {
	passages, err := h.Pipeline.Passages(docs)
	if err != nil {
		return nil, err
	}
	return h.Build(ctx, passages)
}

// Load serves the persisted snapshot. The passage index is restored from
// the stored vectors, if they do not match the graph the passages are
// embedded again.
func (h *HopRAG) Load(ctx context.Context) error {
	g, collection, err := graph.Load(h.Config.DataDir, h.Config.Snapshot)
	if err != nil {
		return helper.NewError("load graph", err)
	}

	passages := []*model.Passage{}
	for _, n := range g.Nodes() {
		if !n.IsPassage() {
			continue
		}
		p, err := model.NewPassage(n.Key, n.FullText)
		if err != nil {
			return helper.NewError("load passage", err)
		}
		passages = append(passages, p)
	}

	index, err := h.Retriever.Restore(ctx, collection, passages)
	if err != nil {
		h.log.Warn("Stored vectors do not match the graph, embedding again",
			slog.String("snapshot", h.Config.Snapshot),
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		index, _, err = h.Retriever.Prepare(ctx, passages)
		if err != nil {
			return err
		}
		_, err = graph.Save(g, h.Config.DataDir, h.Config.Snapshot, index.Collection())
		if err != nil {
			h.release(ctx, index, nil)
			return helper.NewError("save graph", err)
		}
	}

	previous := h.swap(g, index)
	h.release(ctx, previous, index)
	if collection != "" && collection != index.Collection() && collection != previous.Collection() {
		if err := h.Store.Drop(ctx, collection); err != nil {
			h.log.Warn("Failed to drop stale vectors", slog.String("collection", collection), slog.String("error", err.Error()))
		}
	}

	h.log.Info("Loaded snapshot",
		slog.String("snapshot", h.Config.Snapshot),
		slog.Int("passages", index.Len()),
		slog.Int("nodes", g.NumNodes()),
		slog.Int("edges", g.NumEdges()),
	)
	return nil
}

// Reset drops the vectors of the served snapshot and of the collection
// recorded in the graph file, then serves an empty snapshot. The graph file
// on disk is kept.
func (h *HopRAG) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	served := h.index.Collection()
	err := h.Retriever.Reset(ctx)
	if err != nil {
		return err
	}
	if _, recorded, err := graph.Load(h.Config.DataDir, h.Config.Snapshot); err == nil && recorded != "" && recorded != served {
		err = h.Store.Drop(ctx, recorded)
		if err != nil {
			return &model.ExternalProviderError{Provider: "vector_store", Operation: "drop", Err: err}
		}
	}
	h.graph = graph.Empty()
	h.index = h.Retriever.Current()
	return nil
}

// swap serves the graph and index pair and returns the replaced index.
func (h *HopRAG) swap(g *graph.Graph, index *retrieval.Index) *retrieval.Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	previous := h.index
	h.graph = g
	h.index = index
	h.Retriever.Swap(index)
	return previous
}

// release drops the vectors of an index that is not served anymore. A failed
// drop only leaves unused vectors behind, so it is logged.
func (h *HopRAG) release(ctx context.Context, index *retrieval.Index, keep *retrieval.Index) {
	err := h.Retriever.Release(ctx, index, keep)
	if err != nil {
		h.log.Warn("Failed to drop unused vectors",
			slog.String("collection", index.Collection()),
			slog.String("error", err.Error()),
		)
	}
}

// reasoner binds a reasoner to the served graph and index pair.
func (h *HopRAG) reasoner() *reasoning.Reasoner {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return reasoning.NewReasoner(h.graph, h.Retriever.View(h.index), h.Config.Reasoning)
}

// Retrieve returns the topK passages for the query from the served snapshot.
func (h *HopRAG) Retrieve(ctx context.Context, query string, topK int) ([]*model.RetrievalResult, error) {
	h.mu.RLock()
	index := h.index
	h.mu.RUnlock()
	return h.Retriever.Search(ctx, index, query, topK)
}

// Neighbors walks the served graph up to hops edges away from the node,
// breadth first or depth first. The node is a node id or the text of an
// entity. Empty edgeTypes follow every edge kind.
func (h *HopRAG) Neighbors(ctx context.Context, node string, hops int, depthFirst bool, edgeTypes ...model.EdgeType) ([]*graph.TraversalResult, error) {
	if hops < 0 {
		return nil, &model.InvalidInputError{Field: "hops", Reason: "must not be negative"}
	}

	g := h.Graph()
	id := node
	if !g.HasNode(id) {
		id = model.EntityNodeID(graph.NormalizeKey(node))
	}
	if depthFirst {
		return graph.DFS(ctx, g, id, hops, edgeTypes)
	}
	return graph.BFS(ctx, g, id, hops, edgeTypes)
}

// Evidence assembles the vector and graph context for the question.
func (h *HopRAG) Evidence(ctx context.Context, question string) (*model.Evidence, error) {
	return h.reasoner().AssembleEvidence(ctx, question, h.Config.Retrieval.TopK)
}

// Answer returns the final answer for the question.
func (h *HopRAG) Answer(ctx context.Context, question string) (string, error) {
	answer, err := h.AnswerDetailed(ctx, question)
	if err != nil {
		return answer.FinalAnswer, err
	}
	return answer.FinalAnswer, nil
}

// AnswerDetailed returns the answer together with the evidence it was
// generated from. A failed generation is marked and carries the
// placeholder answer, the error is returned as well.
func (h *HopRAG) AnswerDetailed(ctx context.Context, question string) (*model.Answer, error) {
	answer := &model.Answer{
		Question:        question,
		MatchedEntities: []string{},
	}
	if strings.TrimSpace(question) == "" {
		err := &model.InvalidInputError{Field: "question", Reason: "must not be empty"}
		answer.FinalAnswer = model.GenerationFailedAnswer
		answer.Failed = true
		answer.Error = err.Error()
		return answer, err
	}

	evidence, err := h.Evidence(ctx, question)
	if err != nil {
		answer.FinalAnswer = model.GenerationFailedAnswer
		answer.Failed = true
		answer.Error = err.Error()
		return answer, err
	}
	answer.VectorContext = evidence.VectorContext
	answer.GraphContext = evidence.GraphContext
	if evidence.MatchedEntities != nil {
		answer.MatchedEntities = evidence.MatchedEntities
	}

	answer.FinalAnswer, err = h.Answerer.Answer(ctx, question, evidence)
	if err != nil {
		answer.Failed = true
		answer.Error = err.Error()
		return answer, err
	}
	return answer, nil
}

// AnswerBatch answers the questions in order. A failing question is marked
// in its item and does not stop the batch.
func (h *HopRAG) AnswerBatch(ctx context.Context, questions []*model.Question) []*model.BatchItem {
	items := make([]*model.BatchItem, 0, len(questions))
	failed := 0
	for i, q := range questions {
		if q == nil {
			continue
		}
		item := &model.BatchItem{
			ID:         q.ID,
			Question:   q.Question,
			GoldAnswer: q.GoldAnswer,
		}

		answer, err := h.AnswerDetailed(ctx, q.Question)
		item.PredictedAnswer = answer.FinalAnswer
		if err != nil {
			failed++
			item.Failed = true
			item.Error = err.Error()
			h.log.Warn("Question failed", slog.Int("index", i), slog.String("id", q.ID), slog.String("error", err.Error()))
		}
		items = append(items, item)

		h.log.Debug("Answered question", slog.Int("done", i+1), slog.Int("total", len(questions)))
	}

	h.log.Info("Answered batch", slog.Int("questions", len(items)), slog.Int("failed", failed))
	return items
}

// lazyNER loads the default NER model on first use, so instances that only
// answer questions never download it.
func lazyNER() pipeline.NERFunc {
	var once sync.Once
	var ner pipeline.NERFunc
	var err error
	return func(text string) ([]pipeline.RawEntity, error) {
		once.Do(func() {
			ner, err = pipeline.DefaultEntityExtractor()
		})
		if err != nil {
			return nil, err
		}
		return ner(text)
	}
}

// unavailableGenerator fails every call with the error that prevented
// creating the configured generator.
type unavailableGenerator struct {
	err error
}

func (g unavailableGenerator) Generate(ctx context.Context, system string, user string, temperature float64) (string, error) {
	return "", g.err
}
