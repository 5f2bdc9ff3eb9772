package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Capability is a model feature flag.
type Capability string

const (
	CapabilityTextGeneration  Capability = "text_generation"
	CapabilityEmbeddings      Capability = "embeddings"
	CapabilityTools           Capability = "tools"
	CapabilityVision          Capability = "vision"
	CapabilityCode            Capability = "code"
	CapabilityFunctionCalling Capability = "function_calling"
)

// Pricing is expressed per million tokens so vendors can be compared.
type Pricing struct {
	InputPerMillion  *float64 `json:"input_price_per_million,omitempty"`
	OutputPerMillion *float64 `json:"output_price_per_million,omitempty"`
	Currency         string   `json:"currency"`
}

// PerMillion converts a per-token price to a per-million-token price.
func PerMillion(perToken float64) float64 {
	return perToken * 1_000_000
}

// ModelInfo describes one model. It holds no reference to the adapter that produced it.
type ModelInfo struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Provider          string       `json:"provider"`
	Description       string       `json:"description,omitempty"`
	MaxTokens         int          `json:"max_tokens,omitempty"`
	Capabilities      []Capability `json:"capabilities"`
	Pricing           *Pricing     `json:"pricing,omitempty"`
	Multimodal        bool         `json:"multimodal"`
	SupportsTools     bool         `json:"supports_tools"`
	SupportsStreaming bool         `json:"supports_streaming"`
	Deprecated        bool         `json:"deprecated"`
}

// HasCapability reports whether c is listed.
func (m ModelInfo) HasCapability(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// ModelCatalog is a provider's model list.
type ModelCatalog struct {
	Provider       string      `json:"provider"`
	Models         []ModelInfo `json:"models"`
	TotalCount     int         `json:"total_count"`
	Cached         bool        `json:"cached"`
	CacheTimestamp time.Time   `json:"cache_timestamp,omitempty"`
	Error          string      `json:"error,omitempty"`
}

func newCatalog(provider string, models []ModelInfo) ModelCatalog {
	if models == nil {
		models = []ModelInfo{}
	}
	return ModelCatalog{Provider: provider, Models: models, TotalCount: len(models)}
}

// staticCatalog builds a catalog from configured model ids.
func staticCatalog(provider string, ids []string, toolCapable bool) ModelCatalog {
	models := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		models = append(models, ModelInfo{
			ID:            id,
			Name:          id,
			Provider:      provider,
			Capabilities:  []Capability{CapabilityTextGeneration},
			SupportsTools: toolCapable,
		})
	}
	return newCatalog(provider, models)
}

// catalogLister holds the cache-or-fetch-or-static policy shared by all adapters.
type catalogLister struct {
	provider    string
	static      []string
	toolCapable bool
	cache       ModelCache
	logger      zerolog.Logger
}

func (c catalogLister) list(ctx context.Context, useCache bool, fetch func(context.Context) ([]ModelInfo, error)) ModelCatalog {
	if useCache && c.cache != nil {
		if cached, ok := c.cache.Get(ctx, c.provider); ok {
			c.logger.Debug().Str("provider", c.provider).Int("count", len(cached.Models)).Msg("model catalog cache hit")
			cached.Cached = true
			return cached
		}
	}

	models, err := fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("provider", c.provider).Msg("model listing failed, using configured models")
		catalog := staticCatalog(c.provider, c.static, c.toolCapable)
		catalog.Error = err.Error()
		return catalog
	}

	catalog := newCatalog(c.provider, models)
	if c.cache != nil {
		if err := c.cache.Store(ctx, catalog); err != nil {
			c.logger.Warn().Err(err).Str("provider", c.provider).Msg("failed to cache model catalog")
		}
	}
	return catalog
}
