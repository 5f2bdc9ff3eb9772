// Package llm provides the text-generation capability contract and its vendor adapters.
//
// Each adapter hides:
// - API client initialization and authentication
// - Request/response format conversion, including tool schemas
// - Mapping of vendor errors onto the shared taxonomy
// - Rate limiting and retry logic (see transport.go)

package llm

import (
	"context"
)

// TextGenerator is the capability contract every provider adapter implements.
type TextGenerator interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the default model used when options leave it empty.
	Model() string

	// GenerateText answers a single prompt. A reply without content is a *ProviderError.
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateEmbeddings returns one vector per text. Providers without an
	// embedding endpoint return *UnsupportedOperationError.
	GenerateEmbeddings(ctx context.Context, texts []string, model string) ([][]float32, error)

	// ChatWithTools sends the conversation with tool definitions. Providers without
	// native tool calling flatten the conversation and never signal a tool call.
	ChatWithTools(ctx context.Context, conversation []ChatMessage, tools []ToolDefinition, opts ChatOptions) (ChatReply, error)

	// SupportsToolCalling is a pure predicate used to pick a code path up front.
	SupportsToolCalling() bool

	// ListModels returns the model catalog. On fetch failure it degrades to the
	// configured static list instead of returning an error.
	ListModels(ctx context.Context, useCache bool) (ModelCatalog, error)

	// HealthCheck never fails; any error is reported as false.
	HealthCheck(ctx context.Context) bool
}

// ModelCache stores model catalogs per provider. Expired entries are reported as absent.
type ModelCache interface {
	Get(ctx context.Context, provider string) (ModelCatalog, bool)
	Store(ctx context.Context, catalog ModelCatalog) error
	Clear(ctx context.Context, provider string) error
}
