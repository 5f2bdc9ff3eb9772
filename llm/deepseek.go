// DeepSeek Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with different base URL
// - DeepSeek has no embeddings endpoint

package llm

// DeepSeekProvider implements TextGenerator for DeepSeek.
type DeepSeekProvider struct {
	*openAICompatible
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(cfg ProviderConfig, deps Deps) *DeepSeekProvider {
	cfg = cfg.withDefaults(ProviderDeepSeek)
	return &DeepSeekProvider{openAICompatible: newOpenAICompatible(cfg, deps, true, false)}
}

// Verify DeepSeekProvider implements TextGenerator
var _ TextGenerator = (*DeepSeekProvider)(nil)
