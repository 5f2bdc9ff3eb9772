// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - System prompt lifted out of the message list into the top-level field
// - tool_use / tool_result content blocks
// - Anthropic has no embeddings endpoint

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// AnthropicProvider implements TextGenerator for Anthropic Claude.
type AnthropicProvider struct {
	cfg    ProviderConfig
	client anthropic.Client
	lister catalogLister
	logger zerolog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg ProviderConfig, deps Deps) *AnthropicProvider {
	cfg = cfg.withDefaults(ProviderAnthropic)
	logger := deps.Logger.With().Str("provider", cfg.Name).Logger()

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(newHTTPClient(cfg, logger)),
		option.WithMaxRetries(0), // retries live in the shared transport
	)

	return &AnthropicProvider{
		cfg:    cfg,
		client: client,
		logger: logger,
		lister: catalogLister{
			provider:    cfg.Name,
			static:      cfg.AvailableModels,
			toolCapable: true,
			cache:       deps.Cache,
			logger:      logger,
		},
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return p.cfg.Name
}

// Model returns the default model.
func (p *AnthropicProvider) Model() string {
	return p.cfg.DefaultModel
}

// SupportsToolCalling reports native tool use.
func (p *AnthropicProvider) SupportsToolCalling() bool {
	return true
}

// GenerateText sends the prompt as a single user turn.
func (p *AnthropicProvider) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := p.cfg.modelOr(opts.Model)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(p.cfg.maxTokensOr(opts.MaxTokens)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(float64(p.cfg.temperatureOr(opts.Temperature))),
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapAnthropicError(p.cfg.Name, err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}
	if content == "" {
		return "", emptyReply(p.cfg.Name, "generated content")
	}

	p.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(content)).
		Msg("generated text")
	return content, nil
}

// GenerateEmbeddings is not offered by Anthropic.
func (p *AnthropicProvider) GenerateEmbeddings(_ context.Context, _ []string, _ string) ([][]float32, error) {
	return nil, &UnsupportedOperationError{Provider: p.cfg.Name, Operation: "embeddings"}
}

// ChatWithTools sends a messages request with tool definitions.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, conversation []ChatMessage, tools []ToolDefinition, opts ChatOptions) (ChatReply, error) {
	messages, systemPrompt := convertToAnthropicMessages(conversation)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.modelOr(opts.Model)),
		MaxTokens:   int64(p.cfg.maxTokensOr(opts.MaxTokens)),
		Messages:    messages,
		Temperature: anthropic.Float(float64(p.cfg.temperatureOr(opts.Temperature))),
	}
	if len(tools) > 0 {
		params.Tools = convertToAnthropicTools(tools)
		if opts.Mode == ToolChoiceNone {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ChatReply{}, mapAnthropicError(p.cfg.Name, err)
	}

	content := ""
	var calls []ToolCall
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		case anthropic.ToolUseBlock:
			calls = append(calls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.Input),
			})
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return newChatReply(content, calls, usage), nil
}

// ListModels returns cached, fetched, or configured models, in that order.
func (p *AnthropicProvider) ListModels(ctx context.Context, useCache bool) (ModelCatalog, error) {
	return p.lister.list(ctx, useCache, p.listRemoteModels), nil
}

func (p *AnthropicProvider) listRemoteModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, mapAnthropicError(p.cfg.Name, err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:                m.ID,
			Name:              m.DisplayName,
			Provider:          p.cfg.Name,
			MaxTokens:         200000,
			Capabilities:      []Capability{CapabilityTextGeneration, CapabilityTools, CapabilityVision},
			Multimodal:        true,
			SupportsTools:     true,
			SupportsStreaming: true,
		})
	}
	return models, nil
}

// HealthCheck lists a single model with a short deadline.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		p.logger.Debug().Err(err).Msg("health check failed")
		return false
	}
	return true
}

// mapAnthropicError converts SDK errors into the shared taxonomy.
func mapAnthropicError(provider string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{Message: apiErr.Error(), StatusCode: apiErr.StatusCode, Provider: provider, Err: err}
	}
	return &APIError{Message: err.Error(), Provider: provider, Err: err}
}

// convertToAnthropicMessages extracts the system prompt and maps tool traffic
// onto tool_use / tool_result blocks.
func convertToAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var result []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			param := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
			if msg.Content != "" {
				param.Content = append(param.Content, anthropic.NewTextBlock(msg.Content))
			}
			if msg.ToolCall != nil {
				input := map[string]interface{}{}
				_ = json.Unmarshal(msg.ToolCall.Arguments, &input) // malformed arguments are sent as {}
				param.Content = append(param.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    msg.ToolCall.ID,
						Name:  msg.ToolCall.Name,
						Input: input,
					},
				})
			}
			if len(param.Content) > 0 {
				result = append(result, param)
			}
		case RoleFunction:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	return result, systemPrompt
}

// convertToAnthropicTools converts tool definitions to Anthropic format.
func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]interface{})

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   requiredFields(t.Parameters),
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// toolDefinitionFromAnthropic is the inverse of convertToAnthropicTools.
func toolDefinitionFromAnthropic(u anthropic.ToolUnionParam) ToolDefinition {
	tp := u.OfTool
	if tp == nil {
		return ToolDefinition{}
	}
	params := map[string]interface{}{"type": "object"}
	if tp.InputSchema.Properties != nil {
		params["properties"] = tp.InputSchema.Properties
	}
	if len(tp.InputSchema.Required) > 0 {
		params["required"] = tp.InputSchema.Required
	}
	return ToolDefinition{
		Name:        tp.Name,
		Description: tp.Description.Value,
		Parameters:  params,
	}
}

// requiredFields reads the "required" list whether it was built in Go or decoded from JSON.
func requiredFields(params map[string]interface{}) []string {
	switch req := params["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Verify AnthropicProvider implements TextGenerator
var _ TextGenerator = (*AnthropicProvider)(nil)
