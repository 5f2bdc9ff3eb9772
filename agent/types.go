// Package agent answers questions with a bounded tool-calling loop over a
// vector store, falling back to single-shot retrieval when the provider
// cannot call tools.
//
// Contains all types returned by a run.
package agent

import (
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/model"
	"github.com/prachwal/rag07/tools"
)

// Step is an alias for model.Step for loop iterations.
type Step = model.Step

// ToolCallRecord is an alias for model.ToolCallRecord.
type ToolCallRecord = model.ToolCallRecord

// Metadata contains metadata about a run.
type Metadata struct {
	RunID               string         `json:"run_id"`
	LLMProvider         string         `json:"llm_provider"`
	VectorProvider      string         `json:"vector_provider"`
	Collection          string         `json:"collection"`
	MaxIterations       int            `json:"max_iterations"`
	FunctionCallingUsed bool           `json:"function_calling_used"`
	FallbackUsed        bool           `json:"fallback_used"`
	FallbackReason      string         `json:"fallback_reason,omitempty"`
	Usage               llm.TokenUsage `json:"usage"`
	ExecutionTimeMs     uint64         `json:"execution_time_ms"`
}

// Result is the uniform outcome of Ask, whichever path produced it.
type Result struct {
	Answer         string            `json:"answer"`
	FunctionCalls  []ToolCallRecord  `json:"function_calls"`
	Conversation   []llm.ChatMessage `json:"conversation_history"`
	IterationsUsed int               `json:"iterations_used"`
	SourcesUsed    []string          `json:"sources_used"`
	Steps          []Step            `json:"steps,omitempty"`
	Metadata       Metadata          `json:"metadata"`
}

// extractSources lists "Search: <query>" for each distinct non-empty search, in call order.
func extractSources(calls []ToolCallRecord) []string {
	sources := []string{}
	seen := make(map[string]bool)

	for _, call := range calls {
		if call.Function != tools.SearchDocumentsName {
			continue
		}
		query, _ := call.Arguments["query"].(string)
		if query == "" {
			continue
		}
		source := "Search: " + query
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
	}
	return sources
}
