package llm

import (
	"time"

	"github.com/rs/zerolog"
)

// ProviderConfig configures one adapter. It is immutable once the adapter is built.
type ProviderConfig struct {
	Name              string
	APIKeyEnv         string
	APIKey            string
	BaseURL           string
	DefaultModel      string
	EmbeddingModel    string
	AvailableModels   []string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	MaxTokens         int
	Temperature       *float32 // nil means 0.7; an explicit 0 is kept
	Headers           map[string]string
}

// Deps are the collaborators shared by adapters built from one Factory.
type Deps struct {
	Cache  ModelCache
	Logger zerolog.Logger
}

// withDefaults fills zero fields from the provider type's defaults.
func (c ProviderConfig) withDefaults(p ProviderType) ProviderConfig {
	if c.Name == "" {
		c.Name = p.String()
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = p.EnvVar()
	}
	if c.BaseURL == "" {
		c.BaseURL = p.DefaultBaseURL()
	}
	if c.DefaultModel == "" {
		c.DefaultModel = p.DefaultModel()
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = p.DefaultEmbeddingModel()
	}
	if c.Timeout <= 0 {
		c.Timeout = p.DefaultTimeout()
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	if c.Temperature == nil {
		c.Temperature = Float32(0.7)
	}
	if len(c.AvailableModels) == 0 {
		c.AvailableModels = []string{c.DefaultModel}
	}
	return c
}

func (c ProviderConfig) modelOr(model string) string {
	if model != "" {
		return model
	}
	return c.DefaultModel
}

func (c ProviderConfig) temperatureOr(t *float32) float32 {
	if t != nil {
		return *t
	}
	if c.Temperature == nil {
		return 0.7
	}
	return *c.Temperature
}

func (c ProviderConfig) maxTokensOr(n int) int {
	if n > 0 {
		return n
	}
	return c.MaxTokens
}
