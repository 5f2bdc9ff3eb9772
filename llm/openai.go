// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Chat Completions with function tools, Embeddings and Models endpoints

package llm

// OpenAIProvider implements TextGenerator for OpenAI.
type OpenAIProvider struct {
	*openAICompatible
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg ProviderConfig, deps Deps) *OpenAIProvider {
	cfg = cfg.withDefaults(ProviderOpenAI)
	return &OpenAIProvider{openAICompatible: newOpenAICompatible(cfg, deps, true, true)}
}

// Verify OpenAIProvider implements TextGenerator
var _ TextGenerator = (*OpenAIProvider)(nil)
