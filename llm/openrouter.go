// OpenRouter Provider implementation using go-openai library.
//
// Information Hiding:
// - OpenAI-compatible API with attribution headers
// - Model catalog with per-token pricing normalized to per-million

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// OpenRouterProvider implements TextGenerator for OpenRouter.
type OpenRouterProvider struct {
	*openAICompatible
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(cfg ProviderConfig, deps Deps) *OpenRouterProvider {
	cfg = cfg.withDefaults(ProviderOpenRouter)
	headers := map[string]string{
		"HTTP-Referer": "http://localhost:8000",
		"X-Title":      "RAG_07",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	cfg.Headers = headers

	p := &OpenRouterProvider{openAICompatible: newOpenAICompatible(cfg, deps, true, true)}
	p.fetchModels = p.listOpenRouterModels
	return p
}

type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContextLength int    `json:"context_length"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	Architecture struct {
		Modality string `json:"modality"`
	} `json:"architecture"`
	SupportedParameters []string `json:"supported_parameters"`
}

func (p *OpenRouterProvider) listOpenRouterModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: "list models request failed", Provider: p.cfg.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Message: strings.TrimSpace(string(body)), StatusCode: resp.StatusCode, Provider: p.cfg.Name}
	}

	var payload struct {
		Data []openRouterModel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.cfg.Name, Message: "invalid models payload: " + err.Error()}
	}

	models := make([]ModelInfo, 0, len(payload.Data))
	for _, m := range payload.Data {
		models = append(models, m.toModelInfo(p.cfg.Name))
	}
	return models, nil
}

func (m openRouterModel) toModelInfo(provider string) ModelInfo {
	name := m.Name
	if name == "" {
		name = m.ID
	}
	info := ModelInfo{
		ID:                m.ID,
		Name:              name,
		Provider:          provider,
		Description:       m.Description,
		MaxTokens:         m.ContextLength,
		Capabilities:      []Capability{CapabilityTextGeneration},
		SupportsStreaming: true,
	}

	for _, param := range m.SupportedParameters {
		if param == "tools" {
			info.SupportsTools = true
			info.Capabilities = append(info.Capabilities, CapabilityTools, CapabilityFunctionCalling)
			break
		}
	}
	if strings.Contains(m.Architecture.Modality, "image") {
		info.Multimodal = true
		info.Capabilities = append(info.Capabilities, CapabilityVision)
	}

	pricing := &Pricing{Currency: "USD"}
	if v, err := strconv.ParseFloat(m.Pricing.Prompt, 64); err == nil {
		in := PerMillion(v)
		pricing.InputPerMillion = &in
	}
	if v, err := strconv.ParseFloat(m.Pricing.Completion, 64); err == nil {
		out := PerMillion(v)
		pricing.OutputPerMillion = &out
	}
	if pricing.InputPerMillion != nil || pricing.OutputPerMillion != nil {
		info.Pricing = pricing
	}
	return info
}

// Verify OpenRouterProvider implements TextGenerator
var _ TextGenerator = (*OpenRouterProvider)(nil)
