// LM Studio Provider implementation using go-openai library.
//
// Information Hiding:
// - Local OpenAI-compatible server, API key optional
// - Same model serves chat and embeddings unless configured otherwise

package llm

// LMStudioProvider implements TextGenerator for a local LM Studio server.
type LMStudioProvider struct {
	*openAICompatible
}

// NewLMStudioProvider creates a new LM Studio provider.
func NewLMStudioProvider(cfg ProviderConfig, deps Deps) *LMStudioProvider {
	cfg = cfg.withDefaults(ProviderLMStudio)
	if cfg.APIKey == "" {
		cfg.APIKey = "lm-studio"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = cfg.DefaultModel
	}
	return &LMStudioProvider{openAICompatible: newOpenAICompatible(cfg, deps, true, true)}
}

// Verify LMStudioProvider implements TextGenerator
var _ TextGenerator = (*LMStudioProvider)(nil)
