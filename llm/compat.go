// OpenAI-compatible adapter core using go-openai library.
//
// Information Hiding:
// - Chat Completions, Embeddings and Models endpoints
// - Base URL override for vendors speaking the same wire format
// - Conversion between neutral tool schemas and OpenAI function tools

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// openAICompatible implements TextGenerator for any Chat Completions endpoint.
// Vendor types embed it and override what differs.
type openAICompatible struct {
	cfg        ProviderConfig
	client     *openai.Client
	httpClient *http.Client
	tools      bool
	embeddings bool
	lister     catalogLister
	logger     zerolog.Logger

	// fetchModels replaces the /models listing when set.
	fetchModels func(ctx context.Context) ([]ModelInfo, error)
}

func newOpenAICompatible(cfg ProviderConfig, deps Deps, tools, embeddings bool) *openAICompatible {
	logger := deps.Logger.With().Str("provider", cfg.Name).Logger()
	httpClient := newHTTPClient(cfg, logger)

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = httpClient

	return &openAICompatible{
		cfg:        cfg,
		client:     openai.NewClientWithConfig(config),
		httpClient: httpClient,
		tools:      tools,
		embeddings: embeddings,
		logger:     logger,
		lister: catalogLister{
			provider:    cfg.Name,
			static:      cfg.AvailableModels,
			toolCapable: tools,
			cache:       deps.Cache,
			logger:      logger,
		},
	}
}

// Name returns the provider name.
func (p *openAICompatible) Name() string {
	return p.cfg.Name
}

// Model returns the default model.
func (p *openAICompatible) Model() string {
	return p.cfg.DefaultModel
}

// SupportsToolCalling reports native function calling.
func (p *openAICompatible) SupportsToolCalling() bool {
	return p.tools
}

// GenerateText sends the prompt as a single user message.
func (p *openAICompatible) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := p.cfg.modelOr(opts.Model)
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		MaxTokens:   p.cfg.maxTokensOr(opts.MaxTokens),
		Temperature: p.cfg.temperatureOr(opts.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapOpenAIError(p.cfg.Name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", emptyReply(p.cfg.Name, "generated content")
	}

	content := resp.Choices[0].Message.Content
	p.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(content)).
		Msg("generated text")
	return content, nil
}

// GenerateEmbeddings calls the embeddings endpoint once for all texts.
func (p *openAICompatible) GenerateEmbeddings(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if !p.embeddings {
		return nil, &UnsupportedOperationError{Provider: p.cfg.Name, Operation: "embeddings"}
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if model == "" {
		model = p.cfg.EmbeddingModel
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, mapOpenAIError(p.cfg.Name, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{
			Provider: p.cfg.Name,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, emptyReply(p.cfg.Name, "embedding")
		}
		vectors[i] = d.Embedding
	}

	p.logger.Debug().Int("texts_count", len(texts)).Int("embedding_dimension", len(vectors[0])).Msg("generated embeddings")
	return vectors, nil
}

// ChatWithTools sends a chat completion request with tool definitions.
func (p *openAICompatible) ChatWithTools(ctx context.Context, conversation []ChatMessage, tools []ToolDefinition, opts ChatOptions) (ChatReply, error) {
	if !p.tools {
		return chatByFlattening(ctx, p.GenerateText, conversation, opts)
	}

	req := openai.ChatCompletionRequest{
		Model:       p.cfg.modelOr(opts.Model),
		Messages:    convertToOpenAIMessages(conversation),
		MaxTokens:   p.cfg.maxTokensOr(opts.MaxTokens),
		Temperature: p.cfg.temperatureOr(opts.Temperature),
	}
	if len(tools) > 0 {
		req.Tools = convertToOpenAITools(tools)
		if opts.Mode != "" {
			req.ToolChoice = string(opts.Mode)
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ChatReply{}, mapOpenAIError(p.cfg.Name, err)
	}
	if len(resp.Choices) == 0 {
		return ChatReply{}, emptyReply(p.cfg.Name, "choices")
	}

	msg := resp.Choices[0].Message
	var calls []ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return newChatReply(msg.Content, calls, usage), nil
}

// ListModels returns cached, fetched, or configured models, in that order.
func (p *openAICompatible) ListModels(ctx context.Context, useCache bool) (ModelCatalog, error) {
	fetch := p.fetchModels
	if fetch == nil {
		fetch = p.listRemoteModels
	}
	return p.lister.list(ctx, useCache, fetch), nil
}

func (p *openAICompatible) listRemoteModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, mapOpenAIError(p.cfg.Name, err)
	}

	models := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		info := ModelInfo{ID: m.ID, Name: m.ID, Provider: p.cfg.Name}
		if strings.Contains(m.ID, "embedding") {
			info.Capabilities = []Capability{CapabilityEmbeddings}
		} else {
			info.Capabilities = []Capability{CapabilityTextGeneration}
			if p.tools {
				info.Capabilities = append(info.Capabilities, CapabilityTools, CapabilityFunctionCalling)
				info.SupportsTools = true
			}
			info.SupportsStreaming = true
		}
		models = append(models, info)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// HealthCheck lists models with a short deadline.
func (p *openAICompatible) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		p.logger.Debug().Err(err).Msg("health check failed")
		return false
	}
	return true
}

// mapOpenAIError converts go-openai errors into the shared taxonomy.
func mapOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Message: apiErr.Message, StatusCode: apiErr.HTTPStatusCode, Provider: provider, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{Message: msg, StatusCode: reqErr.HTTPStatusCode, Provider: provider, Err: err}
	}
	return &APIError{Message: err.Error(), Provider: provider, Err: err}
}

// convertToOpenAIMessages handles tool calls and function results.
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleFunction:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		case RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			if msg.ToolCall != nil {
				oaiMsg.ToolCalls = []openai.ToolCall{{
					ID:   msg.ToolCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      msg.ToolCall.Name,
						Arguments: string(msg.ToolCall.Arguments),
					},
				}}
			}
			result = append(result, oaiMsg)
		default:
			result = append(result, openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}
	return result
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// toolDefinitionFromOpenAI is the inverse of convertToOpenAITools.
func toolDefinitionFromOpenAI(t openai.Tool) (ToolDefinition, error) {
	if t.Function == nil {
		return ToolDefinition{}, fmt.Errorf("tool has no function definition")
	}
	def := ToolDefinition{Name: t.Function.Name, Description: t.Function.Description}
	switch params := t.Function.Parameters.(type) {
	case map[string]interface{}:
		def.Parameters = params
	default:
		raw, err := json.Marshal(params)
		if err != nil {
			return ToolDefinition{}, fmt.Errorf("marshal parameters: %w", err)
		}
		if err := json.Unmarshal(raw, &def.Parameters); err != nil {
			return ToolDefinition{}, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	return def, nil
}
