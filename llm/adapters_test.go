package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterModelsPricingAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "RAG_07", r.Header.Get("X-Title"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": []any{
				map[string]any{
					"id":                   "anthropic/claude-3-sonnet",
					"name":                 "Claude 3 Sonnet",
					"context_length":       200000,
					"pricing":              map[string]any{"prompt": "0.000003", "completion": "0.000015"},
					"architecture":         map[string]any{"modality": "text+image->text"},
					"supported_parameters": []string{"temperature", "tools"},
				},
				map[string]any{
					"id":      "free/model",
					"pricing": map[string]any{"prompt": "n/a"},
				},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(testConfig(srv.URL), Deps{})
	catalog, err := p.ListModels(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, catalog.Error)
	require.Len(t, catalog.Models, 2)

	sonnet := catalog.Models[0]
	assert.Equal(t, "Claude 3 Sonnet", sonnet.Name)
	assert.Equal(t, 200000, sonnet.MaxTokens)
	assert.True(t, sonnet.SupportsTools)
	assert.True(t, sonnet.Multimodal)
	assert.True(t, sonnet.HasCapability(CapabilityVision))
	require.NotNil(t, sonnet.Pricing)
	assert.InDelta(t, 3.0, *sonnet.Pricing.InputPerMillion, 1e-9)
	assert.InDelta(t, 15.0, *sonnet.Pricing.OutputPerMillion, 1e-9)

	free := catalog.Models[1]
	assert.Equal(t, "free/model", free.Name)
	assert.Nil(t, free.Pricing)
	assert.False(t, free.SupportsTools)
}

func TestOllamaGenerateText(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{"response": "42", "done": true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(testConfig(srv.URL), Deps{})
	text, err := p.GenerateText(context.Background(), "answer?", GenerateOptions{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "42", text)
	assert.Equal(t, ModelOllamaLlama2, got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 64, got.Options.NumPredict)
	assert.InDelta(t, 0.7, got.Options.Temperature, 1e-6)
}

func TestConfiguredZeroTemperatureIsSent(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{"response": "ok", "done": true})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Temperature = Float32(0)
	_, err := NewOllamaProvider(cfg, Deps{}).GenerateText(context.Background(), "x", GenerateOptions{})
	require.NoError(t, err)
	assert.Zero(t, got.Options.Temperature)

	_, err = NewOllamaProvider(cfg, Deps{}).GenerateText(context.Background(), "x", GenerateOptions{Temperature: Float32(0.4)})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.Options.Temperature, 1e-6, "per-call temperature wins")
}

func TestOllamaErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"error": "model 'llama2' not found"})
	}))
	defer srv.Close()

	p := NewOllamaProvider(testConfig(srv.URL), Deps{})
	_, err := p.GenerateText(context.Background(), "x", GenerateOptions{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "model 'llama2' not found", apiErr.Message)
}

func TestOllamaEmbeddingsOnePerText(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Prompt)
		writeJSON(t, w, http.StatusOK, map[string]any{"embedding": []float32{float32(len(req.Prompt)), 1}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(testConfig(srv.URL), Deps{})
	vecs, err := p.GenerateEmbeddings(context.Background(), []string{"a", "bbb"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bbb"}, prompts)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, vecs)
}

func TestOllamaChatFlattensAndNeverCallsTools(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{"response": "plain answer"})
	}))
	defer srv.Close()

	p := NewOllamaProvider(testConfig(srv.URL), Deps{})
	assert.False(t, p.SupportsToolCalling())

	reply, err := p.ChatWithTools(context.Background(),
		[]ChatMessage{SystemMessage("be brief"), UserMessage("hi")},
		[]ToolDefinition{{Name: "search_documents"}},
		ChatOptions{},
	)
	require.NoError(t, err)
	assert.False(t, reply.HasToolCall())
	assert.Equal(t, "plain answer", reply.Content)
	assert.Equal(t, "System: be brief\nUser: hi", got.Prompt)
}

func TestOllamaHealthAndModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"models": []any{
				map[string]any{"name": "codellama:7b", "details": map[string]any{"family": "llama", "parameter_size": "7B"}},
			},
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(testConfig(srv.URL), Deps{})
	assert.True(t, p.HealthCheck(context.Background()))
	assert.True(t, p.HealthCheck(context.Background()), "second check must agree with the first")

	catalog, err := p.ListModels(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, catalog.Models, 1)
	assert.Equal(t, "codellama:7b", catalog.Models[0].ID)
	assert.Equal(t, "llama 7B", catalog.Models[0].Description)
	assert.True(t, catalog.Models[0].HasCapability(CapabilityCode))
}

func TestOllamaHealthCheckDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider(testConfig(url), Deps{})
	assert.False(t, p.HealthCheck(context.Background()))
	assert.False(t, p.HealthCheck(context.Background()), "second check must agree with the first")
}

func TestAnthropicChatWithTools(t *testing.T) {
	var got struct {
		System   []map[string]any `json:"system"`
		Messages []struct {
			Role    string           `json:"role"`
			Content []map[string]any `json:"content"`
		} `json:"messages"`
		Tools      []map[string]any `json:"tools"`
		ToolChoice map[string]any   `json:"tool_choice"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "sk-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": ModelAnthropicClaude3Haiku,
			"content": []any{
				map[string]any{"type": "text", "text": "Let me search."},
				map[string]any{"type": "tool_use", "id": "toolu_2", "name": "search_documents", "input": map[string]any{"query": "Y"}},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 7, "output_tokens": 3},
		})
	}))
	defer srv.Close()

	first := ToolCall{ID: "toolu_1", Name: "search_documents", Arguments: json.RawMessage(`{"query":"X"}`)}
	conv := []ChatMessage{
		SystemMessage("sys prompt"),
		UserMessage("question"),
		AssistantMessage("", &first),
		FunctionMessage(first, `{"status":"success"}`),
	}
	tools := []ToolDefinition{{
		Name:        "search_documents",
		Description: "search",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"query": map[string]interface{}{"type": "string"}},
			"required":   []string{"query"},
		},
	}}

	p := NewAnthropicProvider(testConfig(srv.URL), Deps{})
	reply, err := p.ChatWithTools(context.Background(), conv, tools, ChatOptions{})
	require.NoError(t, err)

	require.Len(t, got.System, 1)
	assert.Equal(t, "sys prompt", got.System[0]["text"])
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "tool_use", got.Messages[1].Content[0]["type"])
	assert.Equal(t, "user", got.Messages[2].Role)
	assert.Equal(t, "tool_result", got.Messages[2].Content[0]["type"])
	assert.Equal(t, "toolu_1", got.Messages[2].Content[0]["tool_use_id"])
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "auto", got.ToolChoice["type"])

	assert.Equal(t, "Let me search.", reply.Content)
	require.True(t, reply.HasToolCall())
	assert.Equal(t, "toolu_2", reply.ToolCall.ID)
	assert.JSONEq(t, `{"query":"Y"}`, string(reply.ToolCall.Arguments))
	assert.Equal(t, uint32(10), reply.Usage.TotalTokens)
}

func TestGeminiChatWithTools(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ModelGeminiFlash2+":generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"functionCall": map[string]any{"name": "search_documents", "args": map[string]any{"query": "X"}}}},
				},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 4, "candidatesTokenCount": 2, "totalTokenCount": 6},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(testConfig(srv.URL), Deps{})
	reply, err := p.ChatWithTools(context.Background(),
		[]ChatMessage{SystemMessage("sys"), UserMessage("q")},
		[]ToolDefinition{{Name: "search_documents", Parameters: map[string]interface{}{"type": "object"}}},
		ChatOptions{},
	)
	require.NoError(t, err)

	assert.Contains(t, got, "systemInstruction")
	assert.Contains(t, got, "tools")
	require.True(t, reply.HasToolCall())
	assert.Equal(t, "search_documents", reply.ToolCall.Name)
	assert.Equal(t, "search_documents", reply.ToolCall.ID)
	assert.JSONEq(t, `{"query":"X"}`, string(reply.ToolCall.Arguments))
	assert.Equal(t, uint32(6), reply.Usage.TotalTokens)
}
