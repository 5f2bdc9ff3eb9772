// LLM Provider Factory - explicit registry plus a builder for one-off providers.
//
// Quick Start:
//
//	// One-off: use defaults, read API key from environment
//	openai, err := llm.ProviderOpenAI.FromEnv()
//
//	// Full configuration
//	claude, err := llm.ProviderAnthropic.
//	    Model(llm.ModelAnthropicClaude3Haiku).
//	    MaxTokens(2048).
//	    Temperature(0.1).
//	    FromEnv()
//
//	// Application wiring: one Factory per process, passed to whoever needs it
//	factory := llm.NewFactory(configs, llm.Deps{Cache: cache, Logger: logger})
//	gen, err := factory.Create("openrouter")

package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
	// ProviderOpenRouter is the OpenRouter aggregator.
	ProviderOpenRouter
	// ProviderOllama is a local Ollama server.
	ProviderOllama
	// ProviderLMStudio is a local LM Studio server.
	ProviderLMStudio
)

// AllProviderTypes lists the built-in providers in registration order.
var AllProviderTypes = []ProviderType{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderDeepSeek,
	ProviderGemini,
	ProviderOpenRouter,
	ProviderOllama,
	ProviderLMStudio,
}

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	case ProviderOpenRouter:
		return "openrouter"
	case ProviderOllama:
		return "ollama"
	case ProviderLMStudio:
		return "lmstudio"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderLMStudio:
		return "LMSTUDIO_API_KEY"
	default:
		return ""
	}
}

// RequiresKey reports whether Create fails without a credential.
// Local servers accept requests without one.
func (p ProviderType) RequiresKey() bool {
	switch p {
	case ProviderOllama, ProviderLMStudio:
		return false
	default:
		return true
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4oMini
	case ProviderAnthropic:
		return ModelAnthropicClaude3Haiku
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash2
	case ProviderOpenRouter:
		return ModelOpenRouterClaude3Sonnet
	case ProviderOllama:
		return ModelOllamaLlama2
	case ProviderLMStudio:
		return ModelLMStudioLocal
	default:
		return ""
	}
}

// DefaultEmbeddingModel returns the embedding model, or "" when the provider
// has no embedding endpoint or embeds with its chat model.
func (p ProviderType) DefaultEmbeddingModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIEmbeddingAda002
	case ProviderGemini:
		return ModelGeminiEmbedding004
	case ProviderOpenRouter:
		return "openai/" + ModelOpenAIEmbeddingAda002
	default:
		return ""
	}
}

// DefaultBaseURL returns the vendor endpoint.
func (p ProviderType) DefaultBaseURL() string {
	switch p {
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderAnthropic:
		return "https://api.anthropic.com"
	case ProviderDeepSeek:
		return "https://api.deepseek.com/v1"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com"
	case ProviderOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderOllama:
		return "http://127.0.0.1:11434"
	case ProviderLMStudio:
		return "http://localhost:1234/v1"
	default:
		return ""
	}
}

// DefaultTimeout is longer for local servers, which may load a model on first use.
func (p ProviderType) DefaultTimeout() time.Duration {
	switch p {
	case ProviderOllama, ProviderLMStudio:
		return 60 * time.Second
	default:
		return 30 * time.Second
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "openrouter":
		return ProviderOpenRouter, nil
	case "ollama":
		return ProviderOllama, nil
	case "lmstudio", "lm_studio", "lm-studio":
		return ProviderLMStudio, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// constructor returns the adapter constructor for a built-in provider.
func (p ProviderType) constructor() Constructor {
	switch p {
	case ProviderOpenAI:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewOpenAIProvider(cfg, deps) }
	case ProviderAnthropic:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewAnthropicProvider(cfg, deps) }
	case ProviderDeepSeek:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewDeepSeekProvider(cfg, deps) }
	case ProviderGemini:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewGeminiProvider(cfg, deps) }
	case ProviderOpenRouter:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewOpenRouterProvider(cfg, deps) }
	case ProviderOllama:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewOllamaProvider(cfg, deps) }
	case ProviderLMStudio:
		return func(cfg ProviderConfig, deps Deps) TextGenerator { return NewLMStudioProvider(cfg, deps) }
	default:
		return nil
	}
}

// FromEnv creates a provider with defaults, reading API key from environment.
func (p ProviderType) FromEnv() (TextGenerator, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (TextGenerator, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder is a builder for configuring a single provider.
type ProviderBuilder struct {
	providerType ProviderType
	cfg          ProviderConfig
	deps         Deps
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.cfg.DefaultModel = model
	return b
}

// BaseURL points the adapter at a different endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.cfg.BaseURL = url
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens int) *ProviderBuilder {
	b.cfg.MaxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.cfg.Temperature = Float32(temp)
	return b
}

// Deps sets the model cache and logger.
func (b *ProviderBuilder) Deps(deps Deps) *ProviderBuilder {
	b.deps = deps
	return b
}

// FromEnv builds the provider, reading API key from environment.
func (b *ProviderBuilder) FromEnv() (TextGenerator, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" && b.providerType.RequiresKey() {
		return nil, NewConfigurationError("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (TextGenerator, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (TextGenerator, error) {
	construct := b.providerType.constructor()
	if construct == nil {
		return nil, NewConfigurationError("unknown provider type: %v", b.providerType)
	}
	cfg := b.cfg
	cfg.APIKey = apiKey
	return construct(cfg, b.deps), nil
}

// Constructor builds an adapter from its resolved configuration.
type Constructor func(cfg ProviderConfig, deps Deps) TextGenerator

// Factory creates adapters by provider name. Build one per process and pass it
// to whatever needs to create providers.
type Factory struct {
	mu           sync.RWMutex
	configs      map[string]ProviderConfig
	constructors map[string]Constructor
	deps         Deps
	lookupEnv    func(string) (string, bool)
}

// NewFactory returns a factory with every built-in provider registered.
// configs is keyed by canonical provider name; missing entries use defaults.
func NewFactory(configs map[string]ProviderConfig, deps Deps) *Factory {
	f := &Factory{
		configs:      make(map[string]ProviderConfig, len(configs)),
		constructors: make(map[string]Constructor, len(AllProviderTypes)),
		deps:         deps,
		lookupEnv:    os.LookupEnv,
	}
	for name, cfg := range configs {
		f.configs[canonicalName(name)] = cfg
	}
	for _, p := range AllProviderTypes {
		f.constructors[p.String()] = p.constructor()
	}
	return f
}

func canonicalName(name string) string {
	if p, err := ParseProviderType(name); err == nil {
		return p.String()
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a vendor constructor.
func (f *Factory) Register(name string, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[canonicalName(name)] = c
}

// Names lists registered providers, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the configuration registered for name, if any.
func (f *Factory) Config(name string) (ProviderConfig, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cfg, ok := f.configs[canonicalName(name)]
	return cfg, ok
}

// Create resolves aliases, reads the credential and builds the adapter.
// A missing required credential is a *ConfigurationError naming the variable.
func (f *Factory) Create(name string) (TextGenerator, error) {
	key := canonicalName(name)

	f.mu.RLock()
	construct, ok := f.constructors[key]
	cfg := f.configs[key]
	f.mu.RUnlock()
	if !ok {
		return nil, NewConfigurationError("unknown provider %q (available: %s)", name, strings.Join(f.Names(), ", "))
	}
	if cfg.Name == "" {
		cfg.Name = key
	}

	requiresKey := cfg.APIKeyEnv != ""
	if builtin, err := ParseProviderType(key); err == nil {
		if cfg.APIKeyEnv == "" {
			cfg.APIKeyEnv = builtin.EnvVar()
		}
		requiresKey = builtin.RequiresKey()
	}

	if cfg.APIKey == "" && cfg.APIKeyEnv != "" {
		if v, ok := f.lookupEnv(cfg.APIKeyEnv); ok {
			cfg.APIKey = strings.TrimSpace(v)
		}
	}
	if cfg.APIKey == "" && requiresKey {
		return nil, NewConfigurationError("%s: %s environment variable not set", key, cfg.APIKeyEnv)
	}

	gen := construct(cfg, f.deps)
	f.deps.Logger.Debug().Str("provider", key).Str("model", gen.Model()).Msg("created provider")
	return gen, nil
}

// Model identifier constants for the built-in defaults.

// OpenAI model identifiers
const (
	// ModelOpenAIGPT4oMini is GPT-4o-mini: fast and cheap, supports tools.
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	// ModelOpenAIGPT4o is GPT-4o.
	ModelOpenAIGPT4o = "gpt-4o"
	// ModelOpenAIEmbeddingAda002 is the 1536-dimension embedding model.
	ModelOpenAIEmbeddingAda002 = "text-embedding-ada-002"
)

// Anthropic model identifiers
const (
	// ModelAnthropicClaude3Haiku is Claude 3 Haiku: fast and efficient.
	ModelAnthropicClaude3Haiku = "claude-3-haiku-20240307"
	// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4: balanced performance.
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
)

// DeepSeek model identifiers
const (
	// ModelDeepSeekChat is the general chat model.
	ModelDeepSeekChat = "deepseek-chat"
	// ModelDeepSeekReasoner is the reasoning model.
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers
const (
	// ModelGeminiFlash2 is Gemini 2.0 Flash.
	ModelGeminiFlash2 = "gemini-2.0-flash"
	// ModelGeminiEmbedding004 is the 768-dimension embedding model.
	ModelGeminiEmbedding004 = "text-embedding-004"
)

// Other defaults
const (
	ModelOpenRouterClaude3Sonnet = "anthropic/claude-3-sonnet"
	ModelOllamaLlama2            = "llama2"
	ModelLMStudioLocal           = "local-model"
)
