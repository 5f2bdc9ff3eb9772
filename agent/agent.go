// Bounded tool-calling loop.
//
// All question answering goes through Ask: it either drives the loop
// (model reply -> tool call -> function result -> model reply ...) or,
// when the provider cannot call tools, the single-shot fallback in fallback.go.
//
// Information Hiding:
// - Conversation bookkeeping hidden
// - Tool execution coordination hidden
// - Source attribution derived from the call log

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prachwal/rag07/internal/logging"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/model"
	"github.com/prachwal/rag07/storage"
	"github.com/prachwal/rag07/tools"
)

// Agent answers questions against one vector store with one provider.
// It keeps no per-question state and is safe for concurrent use.
type Agent struct {
	config   Config
	gen      llm.TextGenerator
	store    storage.VectorStore
	executor *tools.Executor
	logger   zerolog.Logger
}

// New creates an agent. The search tools are bound to store and gen,
// searching config.Collection unless the model names another one.
func New(config Config, gen llm.TextGenerator, store storage.VectorStore, logger zerolog.Logger) (*Agent, error) {
	config = config.withDefaults()

	registry, err := tools.NewSearchRegistry(store, gen, config.Collection)
	if err != nil {
		return nil, err
	}
	for _, tool := range config.Tools {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	return &Agent{
		config:   config,
		gen:      gen,
		store:    store,
		executor: tools.NewExecutor(registry, config.ToolConfig, logger),
		logger:   logger,
	}, nil
}

// Config returns the effective configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Ask answers question. Provider and store failures abort the run; problems
// with individual tool calls are fed back to the model instead.
func (a *Agent) Ask(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &llm.ValidationError{Field: "question", Message: "Question cannot be empty"}
	}

	runID := uuid.NewString()
	logger := a.logger.With().Str("run_id", runID).Logger()
	ctx = logging.WithLogger(ctx, logger)

	meta := Metadata{
		RunID:          runID,
		LLMProvider:    a.gen.Name(),
		VectorProvider: a.store.Name(),
		Collection:     a.config.Collection,
		MaxIterations:  a.config.MaxIterations,
	}
	startTime := time.Now()

	var (
		result *Result
		err    error
	)
	switch {
	case a.config.DisableTools:
		result, err = a.fallback(ctx, question, meta, "tools_disabled")
	case !a.gen.SupportsToolCalling():
		result, err = a.fallback(ctx, question, meta, "no_function_calling_support")
	default:
		result, err = a.run(ctx, question, meta)
	}
	if err != nil {
		logger.Error().Err(err).Msg("question_failed")
		return nil, err
	}

	result.Metadata.ExecutionTimeMs = uint64(time.Since(startTime).Milliseconds())
	logger.Info().
		Int("question_length", len(question)).
		Int("iterations_used", result.IterationsUsed).
		Int("function_calls_count", len(result.FunctionCalls)).
		Int("sources_count", len(result.SourcesUsed)).
		Bool("fallback_used", result.Metadata.FallbackUsed).
		Msg("question_completed")
	return result, nil
}

// run drives the loop until the model answers without a tool call or the
// iteration budget is spent. Hitting the budget is not an error: the last
// reply's content is the answer.
func (a *Agent) run(ctx context.Context, question string, meta Metadata) (*Result, error) {
	logger := logging.FromCtx(ctx)

	conversation := []llm.ChatMessage{
		llm.SystemMessage(a.config.SystemPrompt),
		llm.UserMessage(question),
	}
	definitions := a.executor.Registry().Definitions()
	opts := llm.ChatOptions{
		Model:       a.config.Model,
		Temperature: llm.Float32(a.config.Temperature),
		Mode:        llm.ToolChoiceAuto,
	}

	var (
		reply     llm.ChatReply
		calls     = []model.ToolCallRecord{}
		steps     []model.Step
		usage     llm.TokenUsage
		iteration int
	)

	for iteration < a.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		iteration++

		logger.Debug().
			Int("iteration", iteration).
			Int("max_iterations", a.config.MaxIterations).
			Msg("function_calling_iteration_started")

		var err error
		reply, err = a.gen.ChatWithTools(ctx, conversation, definitions, opts)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iteration, err)
		}
		usage.Add(reply.Usage)

		if !reply.HasToolCall() {
			conversation = append(conversation, llm.AssistantMessage(reply.Content, nil))
			steps = append(steps, model.Step{Iteration: iteration, Action: "answer"})
			logger.Debug().
				Int("total_iterations", iteration).
				Int("function_calls_made", len(calls)).
				Msg("function_calling_completed")
			break
		}

		// Only the first call is executed; the assistant message carries that
		// call alone so every function message answers exactly one call.
		call := *reply.ToolCall
		if len(reply.ToolCalls) > 1 {
			names := make([]string, len(reply.ToolCalls))
			for i, c := range reply.ToolCalls {
				names[i] = c.Name
			}
			logger.Warn().
				Int("count", len(reply.ToolCalls)).
				Strs("functions", names).
				Msg("extra_tool_calls_ignored")
		}
		conversation = append(conversation, llm.AssistantMessage(reply.Content, &call))

		args, err := parseArguments(call.Arguments)
		if err != nil {
			msg := fmt.Sprintf("Invalid JSON in function arguments: %v", err)
			logger.Warn().Str("function", call.Name).Str("error", msg).Msg("function_calling_json_error")
			conversation = append(conversation, llm.FunctionMessage(call, invalidJSONContent(msg)))
			steps = append(steps, model.Step{Iteration: iteration, Action: call.Name, Status: "invalid_arguments"})
			continue
		}

		calls = append(calls, model.ToolCallRecord{
			Iteration: iteration,
			Function:  call.Name,
			Arguments: args,
			Timestamp: time.Now(),
		})
		logger.Info().
			Str("function", call.Name).
			Int("iteration", iteration).
			Interface("args_summary", logging.Summarize(args)).
			Msg("function_called")

		result := a.executor.Execute(ctx, call.Name, call.Arguments)
		conversation = append(conversation, llm.FunctionMessage(call, result.Content()))

		status := string(result.Status)
		if result.ErrorType != "" {
			status = string(result.ErrorType)
		}
		steps = append(steps, model.Step{Iteration: iteration, Action: call.Name, Status: status})
	}

	answer := reply.Content
	if strings.TrimSpace(answer) == "" {
		answer = noAnswer
	}
	if reply.HasToolCall() {
		logger.Warn().Int("max_iterations", a.config.MaxIterations).Msg("max_iterations_reached")
	}

	meta.FunctionCallingUsed = true
	meta.Usage = usage
	return &Result{
		Answer:         answer,
		FunctionCalls:  calls,
		Conversation:   conversation,
		IterationsUsed: iteration,
		SourcesUsed:    extractSources(calls),
		Steps:          steps,
		Metadata:       meta,
	}, nil
}

// parseArguments decodes a call's arguments into an object. JSON null counts as no arguments.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func invalidJSONContent(msg string) string {
	b, _ := json.Marshal(map[string]string{"status": "error", "message": msg})
	return string(b)
}
