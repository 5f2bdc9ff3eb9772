// Ollama Provider implementation over its native HTTP API.
//
// Information Hiding:
// - /api/generate, /api/embeddings and /api/tags endpoints
// - No native tool calling: ChatWithTools flattens the conversation
// - One embeddings request per text

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OllamaProvider implements TextGenerator for a local Ollama server.
type OllamaProvider struct {
	cfg        ProviderConfig
	httpClient *http.Client
	lister     catalogLister
	logger     zerolog.Logger
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg ProviderConfig, deps Deps) *OllamaProvider {
	cfg = cfg.withDefaults(ProviderOllama)
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = cfg.DefaultModel
	}
	logger := deps.Logger.With().Str("provider", cfg.Name).Logger()

	return &OllamaProvider{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg, logger),
		logger:     logger,
		lister: catalogLister{
			provider: cfg.Name,
			static:   cfg.AvailableModels,
			cache:    deps.Cache,
			logger:   logger,
		},
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return p.cfg.Name
}

// Model returns the default model.
func (p *OllamaProvider) Model() string {
	return p.cfg.DefaultModel
}

// SupportsToolCalling is false; the engine uses the fallback path.
func (p *OllamaProvider) SupportsToolCalling() bool {
	return false
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Model   string `json:"model"`
		Size    int64  `json:"size"`
		Details struct {
			Family        string `json:"family"`
			ParameterSize string `json:"parameter_size"`
		} `json:"details"`
	} `json:"models"`
}

// GenerateText calls /api/generate without streaming.
func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := p.cfg.modelOr(opts.Model)
	req := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: p.cfg.temperatureOr(opts.Temperature),
			NumPredict:  p.cfg.maxTokensOr(opts.MaxTokens),
		},
	}

	var resp ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Response == "" {
		return "", emptyReply(p.cfg.Name, "generated content")
	}

	p.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(resp.Response)).
		Msg("generated text")
	return resp.Response, nil
}

// GenerateEmbeddings calls /api/embeddings once per text, in order.
func (p *OllamaProvider) GenerateEmbeddings(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if model == "" {
		model = p.cfg.EmbeddingModel
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		var resp ollamaEmbeddingResponse
		if err := p.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{Model: model, Prompt: text}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embedding) == 0 {
			return nil, emptyReply(p.cfg.Name, "embedding")
		}
		vectors = append(vectors, resp.Embedding)
	}
	return vectors, nil
}

// ChatWithTools flattens the conversation; tools are ignored.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, conversation []ChatMessage, _ []ToolDefinition, opts ChatOptions) (ChatReply, error) {
	return chatByFlattening(ctx, p.GenerateText, conversation, opts)
}

// ListModels returns cached, fetched, or configured models, in that order.
func (p *OllamaProvider) ListModels(ctx context.Context, useCache bool) (ModelCatalog, error) {
	return p.lister.list(ctx, useCache, p.listRemoteModels), nil
}

func (p *OllamaProvider) listRemoteModels(ctx context.Context) ([]ModelInfo, error) {
	var tags ollamaTagsResponse
	if err := p.get(ctx, "/api/tags", &tags); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		desc := m.Details.Family
		if m.Details.ParameterSize != "" {
			desc = strings.TrimSpace(desc + " " + m.Details.ParameterSize)
		}
		capabilities := []Capability{CapabilityTextGeneration, CapabilityEmbeddings}
		if strings.Contains(m.Name, "code") {
			capabilities = append(capabilities, CapabilityCode)
		}
		models = append(models, ModelInfo{
			ID:                m.Name,
			Name:              m.Name,
			Provider:          p.cfg.Name,
			Description:       desc,
			Capabilities:      capabilities,
			SupportsStreaming: true,
		})
	}
	return models, nil
}

// HealthCheck reports whether /api/tags answers 200 within ten seconds.
func (p *OllamaProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url("/api/tags"), nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Msg("health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (p *OllamaProvider) url(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

func (p *OllamaProvider) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *OllamaProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return p.do(req, out)
}

func (p *OllamaProvider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: "request failed", Provider: p.cfg.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: "read response", StatusCode: resp.StatusCode, Provider: p.cfg.Name, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Message: msg, StatusCode: resp.StatusCode, Provider: p.cfg.Name}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: p.cfg.Name, Message: "invalid response payload: " + err.Error()}
	}
	return nil
}

// Verify OllamaProvider implements TextGenerator
var _ TextGenerator = (*OllamaProvider)(nil)
