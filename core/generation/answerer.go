package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
)

// BuildPrompt lays out the evidence and the question for the generator.
func BuildPrompt(vectorContext string, graphContext string, question string) string {
	return fmt.Sprintf("CONTEXT:\n%s\n\nRELATED:\n%s\n\nQ: %s\nA:", vectorContext, graphContext, question)
}

// Answerer turns evidence into an answer through a rate limited generator.
type Answerer struct {
	generator Generator
	limiter   Limiter
	config    model.GenerationConfig
	log       *slog.Logger
}

// NewAnswerer creates an answerer. A nil limiter spaces calls by config.MinInterval.
func NewAnswerer(generator Generator, limiter Limiter, config model.GenerationConfig, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	if limiter == nil {
		limiter = NewMinIntervalLimiter(config.MinInterval)
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = model.DefaultSystemPrompt
	}
	return &Answerer{
		generator: generator,
		limiter:   limiter,
		config:    config,
		log:       logger,
	}
}

// Answer generates the answer for the question from the evidence. Every
// attempt waits for the limiter first. When all attempts fail the answer is
// model.GenerationFailedAnswer together with an ExternalProviderError.
func (a *Answerer) Answer(ctx context.Context, question string, evidence *model.Evidence) (string, error) {
	if evidence == nil {
		evidence = &model.Evidence{}
	}
	prompt := BuildPrompt(evidence.VectorContext, evidence.GraphContext, question)

	answer, err := helper.RetryWithContext(ctx, a.config.MaxRetries+1, a.log, func(ctx context.Context, attempt int) (string, error) {
		waitStart := time.Now()
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if waited := time.Since(waitStart); waited > 10*time.Millisecond {
			a.log.Debug("Waited for rate limit", slog.Duration("waited", waited), slog.Int("attempt", attempt))
		}

		callCtx := ctx
		if a.config.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
			defer cancel()
		}

		answer, err := a.generator.Generate(callCtx, a.config.SystemPrompt, prompt, a.config.Temperature)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			// An attempt timeout is retried, only the caller's deadline stops the loop.
			return "", fmt.Errorf("attempt timed out after %s", a.config.Timeout)
		}
		return answer, err
	})
	if err != nil {
		a.log.Error("Generation failed", slog.String("question", question), slog.String("error", err.Error()))
		return model.GenerationFailedAnswer, &model.ExternalProviderError{Provider: a.config.Provider, Operation: "generate", Err: err}
	}
	return answer, nil
}
