package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/siherrmann/hoprag"
	"github.com/siherrmann/hoprag/core/evaluation"
	"github.com/siherrmann/hoprag/core/pipeline"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

const curieBiography = `Marie Curie was a physicist and chemist born in Warsaw.
She moved to Paris to study at the Sorbonne. In Paris she met Pierre Curie.
Marie Curie and Pierre Curie discovered polonium and radium.
Marie Curie received the Nobel Prize in Chemistry in 1911.`

const warsawArticle = `Warsaw is the capital of Poland. The city lies on the Vistula river.
Warsaw was heavily destroyed during the Second World War and rebuilt afterwards.`

var questions = []*model.Question{
	{ID: "q1", Question: "In which city was the discoverer of polonium born?", GoldAnswer: "Warsaw"},
	{ID: "q2", Question: "Which river flows through the birthplace of Marie Curie?", GoldAnswer: "Vistula"},
	{ID: "q3", Question: "Where did Pierre Curie meet Marie Curie?", GoldAnswer: "Paris"},
}

func main() {
	ctx := context.Background()

	dataDir, err := os.MkdirTemp("", "hoprag-advanced")
	if err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	defer os.RemoveAll(dataDir)

	// In-memory vectors, hybrid fusion and a local Ollama server for generation
	config := model.DefaultConfig()
	config.Snapshot = "curie_advanced"
	config.DataDir = dataDir
	config.Store.Backend = model.StoreMemory
	config.Retrieval.TopK = 2
	config.Retrieval.LexicalWeight = 0.3
	config.Generation.Provider = model.ProviderOllama
	config.Generation.Model = "llama3.2"
	config.Generation.MinInterval = 500 * time.Millisecond
	config.ApplyEnv()

	rag, err := hoprag.New(config, hoprag.Options{Logger: helper.NewLogger(slog.LevelDebug)})
	if err != nil {
		log.Fatalf("Failed to create hoprag: %v", err)
	}
	defer rag.Close()

	// Split documents into passages of two sentences each
	rag.Pipeline.SetChunker(pipeline.SentenceChunker(2))

	docs := []*model.Document{
		{ID: "curie", Title: "Marie Curie", Content: curieBiography},
		{ID: "warsaw", Title: "Warsaw", Content: warsawArticle},
	}
	report, err := rag.BuildFromDocuments(ctx, docs)
	if err != nil {
		log.Fatalf("Failed to build snapshot: %v", err)
	}
	fmt.Printf("Built %d passages with %d mentions into %d nodes and %d edges\n",
		report.Passages, report.Mentions, report.Nodes, report.Edges)

	// Show the entities the graph knows about
	fmt.Println("\nEntities:")
	for _, n := range rag.Graph().EntityNodes() {
		fmt.Printf("  - %s (%s, %d passages)\n", n.Text, n.TypeLabel, len(n.SourcePassageIDs))
	}

	// Hybrid retrieval with per-passage score breakdown
	fmt.Println("\nRetrieval for 'Vistula river':")
	results, err := rag.Retrieve(ctx, "Vistula river", 3)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}
	for _, r := range results {
		fmt.Printf("  %s score=%.3f dense=%.3f lexical=%.3f method=%s\n",
			r.PassageID, r.Score, r.DenseScore, r.LexicalScore, r.RetrievalMethod)
	}

	// Answer a small batch and score it against the gold answers
	items := rag.AnswerBatch(ctx, questions)
	for _, item := range items {
		status := "ok"
		if item.Failed {
			status = "failed: " + item.Error
		}
		fmt.Printf("\n%s: %s\n  predicted: %s\n  gold: %s\n  %s\n", item.ID, item.Question, item.PredictedAnswer, item.GoldAnswer, status)
	}

	metrics := evaluation.EvaluateBatch(items)
	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode metrics: %v", err)
	}
	fmt.Printf("\nMetrics:\n%s\n", out)
}
