package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/prachwal/rag07/internal/logging"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/model"
	"github.com/prachwal/rag07/storage"
)

// fallback answers with one retrieval and one GenerateText call.
// The result has the same shape as a loop run: no calls, one iteration.
func (a *Agent) fallback(ctx context.Context, question string, meta Metadata, reason string) (*Result, error) {
	logger := logging.FromCtx(ctx)
	logger.Info().Str("llm_provider", a.gen.Name()).Str("reason", reason).Msg("function_calling_fallback")

	passages, err := a.retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("fallback retrieval: %w", err)
	}

	answer, err := a.gen.GenerateText(ctx, buildFallbackPrompt(question, passages), llm.GenerateOptions{Model: a.config.Model})
	if err != nil {
		return nil, fmt.Errorf("fallback generation: %w", err)
	}

	logger.Debug().
		Int("question_length", len(question)).
		Int("context_count", len(passages)).
		Int("answer_length", len(answer)).
		Msg("rag_query_completed")

	meta.FallbackUsed = true
	meta.FallbackReason = reason
	return &Result{
		Answer:         answer,
		FunctionCalls:  []model.ToolCallRecord{},
		Conversation:   []llm.ChatMessage{},
		IterationsUsed: 1,
		SourcesUsed:    []string{},
		Steps:          []model.Step{{Iteration: 1, Action: "answer", Status: "fallback"}},
		Metadata:       meta,
	}, nil
}

// retrieve returns up to ContextLimit passages for question. A missing
// collection or a provider without embeddings yields no context.
func (a *Agent) retrieve(ctx context.Context, question string) ([]string, error) {
	logger := logging.FromCtx(ctx)

	vector, err := llm.NewClient(a.gen).Embed(ctx, question)
	if errors.Is(err, llm.ErrUnsupported) {
		logger.Warn().Err(err).Msg("fallback_without_context")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits, err := a.store.SearchVectors(ctx, a.config.Collection, vector, a.config.ContextLimit)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		logger.Debug().Str("collection", a.config.Collection).Msg("fallback_collection_missing")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = hit.Text
	}
	return passages, nil
}
