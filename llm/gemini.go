// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function declarations and their schema dialect

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GeminiProvider implements TextGenerator for Google Gemini.
type GeminiProvider struct {
	cfg     ProviderConfig
	client  *genai.Client
	lister  catalogLister
	logger  zerolog.Logger
	initErr error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(cfg ProviderConfig, deps Deps) *GeminiProvider {
	cfg = cfg.withDefaults(ProviderGemini)
	logger := deps.Logger.With().Str("provider", cfg.Name).Logger()

	p := &GeminiProvider{
		cfg:    cfg,
		logger: logger,
		lister: catalogLister{
			provider:    cfg.Name,
			static:      cfg.AvailableModels,
			toolCapable: true,
			cache:       deps.Cache,
			logger:      logger,
		},
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  newHTTPClient(cfg, logger),
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		p.initErr = NewConfigurationError("failed to initialize Gemini client: %v", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return p.cfg.Name
}

// Model returns the default model.
func (p *GeminiProvider) Model() string {
	return p.cfg.DefaultModel
}

// SupportsToolCalling reports native function calling.
func (p *GeminiProvider) SupportsToolCalling() bool {
	return true
}

func (p *GeminiProvider) ready() error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.client == nil {
		return NewConfigurationError("gemini client not initialized")
	}
	return nil
}

// GenerateText sends the prompt as a single user turn.
func (p *GeminiProvider) GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}

	model := p.cfg.modelOr(opts.Model)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.cfg.temperatureOr(opts.Temperature)),
		MaxOutputTokens: int32(p.cfg.maxTokensOr(opts.MaxTokens)),
	}

	response, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", mapGeminiError(p.cfg.Name, err)
	}

	content := response.Text()
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

// GenerateEmbeddings embeds all texts in one batch request.
func (p *GeminiProvider) GenerateEmbeddings(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if model == "" {
		model = p.cfg.EmbeddingModel
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := p.client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{})
	if err != nil {
		return nil, mapGeminiError(p.cfg.Name, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &ProviderError{
			Provider: p.cfg.Name,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, emptyReply(p.cfg.Name, "embedding")
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// ChatWithTools sends a generateContent request with function declarations.
func (p *GeminiProvider) ChatWithTools(ctx context.Context, conversation []ChatMessage, tools []ToolDefinition, opts ChatOptions) (ChatReply, error) {
	if err := p.ready(); err != nil {
		return ChatReply{}, err
	}

	contents, systemInstruction := convertToGeminiMessages(conversation)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.cfg.temperatureOr(opts.Temperature)),
		MaxOutputTokens: int32(p.cfg.maxTokensOr(opts.MaxTokens)),
		Tools:           convertToGeminiTools(tools),
	}
	if len(tools) > 0 {
		mode := genai.FunctionCallingConfigModeAuto
		if opts.Mode == ToolChoiceNone {
			mode = genai.FunctionCallingConfigModeNone
		}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.cfg.modelOr(opts.Model), contents, config)
	if err != nil {
		return ChatReply{}, mapGeminiError(p.cfg.Name, err)
	}

	content := ""
	var calls []ToolCall
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for _, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return ChatReply{}, &ProviderError{Provider: p.cfg.Name, Message: "unencodable function arguments: " + err.Error()}
				}
				id := part.FunctionCall.ID
				if id == "" {
					id = part.FunctionCall.Name // Gemini may omit call ids
				}
				calls = append(calls, ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}

	var usage *TokenUsage
	if response.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     uint32(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return newChatReply(content, calls, usage), nil
}

// ListModels returns cached, fetched, or configured models, in that order.
func (p *GeminiProvider) ListModels(ctx context.Context, useCache bool) (ModelCatalog, error) {
	return p.lister.list(ctx, useCache, p.listRemoteModels), nil
}

func (p *GeminiProvider) listRemoteModels(ctx context.Context) ([]ModelInfo, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	page, err := p.client.Models.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, mapGeminiError(p.cfg.Name, err)
	}

	models := make([]ModelInfo, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		info := ModelInfo{
			ID:          id,
			Name:        m.DisplayName,
			Provider:    p.cfg.Name,
			Description: m.Description,
			MaxTokens:   int(m.InputTokenLimit),
		}
		for _, action := range m.SupportedActions {
			switch action {
			case "generateContent":
				info.Capabilities = append(info.Capabilities, CapabilityTextGeneration, CapabilityTools, CapabilityFunctionCalling)
				info.SupportsTools = true
				info.Multimodal = true
			case "streamGenerateContent":
				info.SupportsStreaming = true
			case "embedContent":
				info.Capabilities = append(info.Capabilities, CapabilityEmbeddings)
			}
		}
		if info.Name == "" {
			info.Name = id
		}
		models = append(models, info)
	}
	return models, nil
}

// HealthCheck lists models with a short deadline.
func (p *GeminiProvider) HealthCheck(ctx context.Context) bool {
	if p.ready() != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		p.logger.Debug().Err(err).Msg("health check failed")
		return false
	}
	return true
}

// mapGeminiError converts SDK errors into the shared taxonomy.
func mapGeminiError(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Message: apiErr.Message, StatusCode: apiErr.Code, Provider: provider, Err: err}
	}
	return &APIError{Message: err.Error(), Provider: provider, Err: err}
}

// convertToGeminiMessages extracts the system instruction and maps tool traffic
// onto function call / function response parts.
func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemInstruction = msg.Content
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			if msg.ToolCall == nil {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			var args map[string]any
			_ = json.Unmarshal(msg.ToolCall.Arguments, &args)
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   msg.ToolCall.ID,
					Name: msg.ToolCall.Name,
					Args: args,
				},
			})
			contents = append(contents, content)
		case RoleFunction:
			var result map[string]any
			_ = json.Unmarshal([]byte(msg.Content), &result)
			if result == nil {
				result = map[string]any{"result": msg.Content}
			}
			name := msg.Name
			if name == "" {
				name = msg.ToolCallID
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser, // Gemini expects tool results as user
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     name,
						Response: result,
					},
				}},
			})
		}
	}

	return contents, systemInstruction
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema recursively converts a JSON schema object to Gemini format.
// Arrays always get an items schema because Gemini rejects them otherwise.
func convertToGeminiSchema(params map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := params["description"].(string); ok {
		schema.Description = d
	}
	schema.Required = requiredFields(params)
	if v, ok := toFloat(params["minimum"]); ok {
		schema.Minimum = &v
	}
	if v, ok := toFloat(params["maximum"]); ok {
		schema.Maximum = &v
	}
	if d, ok := params["default"]; ok {
		schema.Default = d
	}

	if schema.Type == genai.TypeArray {
		if items, ok := params["items"].(map[string]interface{}); ok {
			schema.Items = convertToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}

	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				schema.Properties[name] = convertToGeminiSchema(propMap)
			}
		}
	}

	return schema
}

// schemaFromGemini is the inverse of convertToGeminiSchema.
func schemaFromGemini(schema *genai.Schema) map[string]interface{} {
	if schema == nil {
		return nil
	}
	out := map[string]interface{}{"type": strings.ToLower(string(schema.Type))}
	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	if schema.Minimum != nil {
		out["minimum"] = *schema.Minimum
	}
	if schema.Maximum != nil {
		out["maximum"] = *schema.Maximum
	}
	if schema.Default != nil {
		out["default"] = schema.Default
	}
	if schema.Items != nil {
		out["items"] = schemaFromGemini(schema.Items)
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]interface{}, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = schemaFromGemini(prop)
		}
		out["properties"] = props
	}
	return out
}

// toolDefinitionFromGemini is the inverse of convertToGeminiTools for one declaration.
func toolDefinitionFromGemini(decl *genai.FunctionDeclaration) ToolDefinition {
	if decl == nil {
		return ToolDefinition{}
	}
	return ToolDefinition{
		Name:        decl.Name,
		Description: decl.Description,
		Parameters:  schemaFromGemini(decl.Parameters),
	}
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Verify GeminiProvider implements TextGenerator
var _ TextGenerator = (*GeminiProvider)(nil)
