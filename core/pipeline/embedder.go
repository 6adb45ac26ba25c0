package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/hoprag/helper"
)

// DefaultEmbeddingModel produces 384-dimensional sentence embeddings
const DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultEmbedder creates a batch embedder running a sentence transformer locally.
// An empty modelName selects DefaultEmbeddingModel.
func DefaultEmbedder(modelName string) (EmbedFunc, error) {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(result.Embeddings), len(texts))
		}
		return result.Embeddings, nil
	}, nil
}
