// Question answering and search commands.
//
// Information Hiding:
// - Agent construction from settings hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prachwal/rag07/agent"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
	"github.com/prachwal/rag07/tools"
)

const maxPreviewLen = 200

// AskOptions controls a single question.
type AskOptions struct {
	MaxIterations int // zero uses the configured value
	NoTools       bool
	JSON          bool
	ShowSteps     bool
}

// Ask answers question with the agent and prints the result.
func Ask(ctx context.Context, app *App, question string, opts AskOptions) error {
	gen, err := app.Generator()
	if err != nil {
		return err
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = app.Settings.Agent.MaxIterations
	}

	a, err := agent.NewBuilder(gen, app.Store).
		MaxIterations(maxIter).
		Temperature(app.Settings.Agent.Temperature).
		ContextLimit(app.Settings.Agent.ContextLimit).
		Collection(app.Collection).
		DisableTools(opts.NoTools).
		Logger(app.Logger).
		Build()
	if err != nil {
		return err
	}

	result, err := a.Ask(app.Context(ctx), question)
	if err != nil {
		return err
	}

	if opts.JSON {
		return writeJSON(app.Out, result)
	}
	printResult(app.Out, result, opts.ShowSteps)
	return nil
}

func printResult(out io.Writer, result *agent.Result, showSteps bool) {
	if showSteps && len(result.Steps) > 0 {
		printAgentSteps(out, result.Steps)
	}

	fmt.Fprintf(out, "%s\n\n", result.Answer)

	if len(result.SourcesUsed) > 0 {
		fmt.Fprintln(out, "Sources:")
		for _, s := range result.SourcesUsed {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}

	meta := result.Metadata
	mode := "function calling"
	if meta.FallbackUsed {
		mode = "fallback (" + meta.FallbackReason + ")"
	}
	fmt.Fprintf(out, "(%d/%d iterations, %s, %s/%s, %dms)\n",
		result.IterationsUsed, meta.MaxIterations, mode, meta.LLMProvider, meta.VectorProvider, meta.ExecutionTimeMs)
	if meta.Usage.TotalTokens > 0 {
		fmt.Fprintf(out, "Tokens: %d prompt + %d completion = %d\n",
			meta.Usage.PromptTokens, meta.Usage.CompletionTokens, meta.Usage.TotalTokens)
	}
}

func printAgentSteps(out io.Writer, steps []agent.Step) {
	fmt.Fprintln(out, "--- Steps ---")
	for _, step := range steps {
		fmt.Fprintf(out, "[%d] %s", step.Iteration, step.Action)
		if step.Status != "" {
			fmt.Fprintf(out, " (%s)", step.Status)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "-------------")
	fmt.Fprintln(out)
}

// Search embeds query and prints the closest passages.
func Search(ctx context.Context, app *App, query string, limit int, asJSON bool) error {
	gen, err := app.Generator()
	if err != nil {
		return err
	}
	limit = tools.ClampMaxResults(limit)

	vector, err := llm.NewClient(gen).Embed(app.Context(ctx), query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := app.Store.SearchVectors(ctx, app.Collection, vector, limit)
	if err != nil {
		return err
	}

	if asJSON {
		if hits == nil {
			hits = []storage.SearchResult{}
		}
		return writeJSON(app.Out, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintf(app.Out, "No results in collection %q.\n", app.Collection)
		return nil
	}
	for i, hit := range hits {
		source, _ := hit.Metadata["source"].(string)
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(app.Out, "%d. [%.4f] %s (%s)\n   %s\n\n", i+1, hit.Score, hit.ID, source, truncateString(hit.Text, maxPreviewLen))
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
