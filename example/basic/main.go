package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/hoprag"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

var corpus = []*model.Document{
	{ID: "curie_1", Title: "Marie Curie", Content: "Marie Curie discovered radium in Paris together with Pierre Curie."},
	{ID: "curie_2", Title: "Radium", Content: "Radium is a radioactive element that glows faintly in the dark."},
	{ID: "curie_3", Title: "Pierre Curie", Content: "Pierre Curie was married to Marie Curie and taught at the Sorbonne."},
	{ID: "curie_4", Title: "Sorbonne", Content: "The Sorbonne is a university in Paris founded in the 13th century."},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// The postgres store reads its connection from HOPRAG_DB_* variables
	os.Setenv("HOPRAG_DB_HOST", "localhost")
	os.Setenv("HOPRAG_DB_PORT", dbPort)
	os.Setenv("HOPRAG_DB_DATABASE", "database")
	os.Setenv("HOPRAG_DB_USERNAME", "user")
	os.Setenv("HOPRAG_DB_PASSWORD", "password")

	config := model.DefaultConfig()
	config.Snapshot = "curie"
	config.DataDir = os.TempDir()
	config.Store.Backend = model.StorePostgres
	config.ApplyEnv()

	// Embeddings and NER run locally with hugot, answers need OPENAI_API_KEY
	rag, err := hoprag.New(config, hoprag.Options{})
	if err != nil {
		log.Fatalf("Failed to create hoprag: %v", err)
	}
	defer rag.Close()

	fmt.Println("Building snapshot...")
	report, err := rag.BuildFromDocuments(ctx, corpus)
	if err != nil {
		log.Fatalf("Failed to build snapshot: %v", err)
	}
	fmt.Printf("Graph with %d nodes and %d edges saved to %s\n", report.Nodes, report.Edges, report.GraphPath)

	question := "Which university did the husband of the discoverer of radium teach at?"
	fmt.Printf("\nQuestion: %s\n", question)

	answer, err := rag.AnswerDetailed(ctx, question)
	if err != nil {
		fmt.Printf("Generation failed: %v\n", err)
	}

	fmt.Printf("Matched entities: %v\n", answer.MatchedEntities)
	fmt.Printf("\nVector context:\n%s\n", answer.VectorContext)
	fmt.Printf("\nGraph context:\n%s\n", answer.GraphContext)
	fmt.Printf("\nAnswer: %s\n", answer.FinalAnswer)
}
