// LLMClient - Simple wrapper around providers.

package llm

import (
	"context"
	"strings"
)

// Client wraps a TextGenerator with single-value helpers.
type Client struct {
	provider TextGenerator
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider TextGenerator) *Client {
	return &Client{provider: provider}
}

// Ask answers a prompt with the provider defaults.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	return c.provider.GenerateText(ctx, prompt, GenerateOptions{})
}

// Embed returns the embedding of a single text with the default embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.provider.GenerateEmbeddings(ctx, []string{text}, "")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, emptyReply(c.provider.Name(), "embedding")
	}
	return vectors[0], nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() TextGenerator {
	return c.provider
}
