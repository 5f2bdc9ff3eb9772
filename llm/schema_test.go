package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "search_documents",
		Description: "Search for relevant documents in the knowledge base.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query":       map[string]interface{}{"type": "string", "description": "Search query"},
				"max_results": map[string]interface{}{"type": "integer", "default": 5, "minimum": 1, "maximum": 20},
				"strict":      map[string]interface{}{"type": "boolean"},
				"tags":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			},
			"required": []string{"query"},
		},
	}
}

func propertyTypes(t *testing.T, def ToolDefinition) map[string]string {
	t.Helper()
	props, ok := def.Parameters["properties"].(map[string]interface{})
	require.True(t, ok, "properties missing")
	out := make(map[string]string, len(props))
	for name, p := range props {
		pm, ok := p.(map[string]interface{})
		require.True(t, ok)
		out[name] = fmt.Sprint(pm["type"])
	}
	return out
}

func TestToolDefinitionRoundTrip(t *testing.T) {
	def := searchToolDefinition()
	wantTypes := propertyTypes(t, def)

	tests := []struct {
		name string
		back func(ToolDefinition) (ToolDefinition, error)
	}{
		{"openai", func(d ToolDefinition) (ToolDefinition, error) {
			return toolDefinitionFromOpenAI(convertToOpenAITools([]ToolDefinition{d})[0])
		}},
		{"anthropic", func(d ToolDefinition) (ToolDefinition, error) {
			return toolDefinitionFromAnthropic(convertToAnthropicTools([]ToolDefinition{d})[0]), nil
		}},
		{"gemini", func(d ToolDefinition) (ToolDefinition, error) {
			return toolDefinitionFromGemini(convertToGeminiTools([]ToolDefinition{d})[0].FunctionDeclarations[0]), nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back, err := tt.back(def)
			require.NoError(t, err)
			assert.Equal(t, def.Name, back.Name)
			assert.Equal(t, def.Description, back.Description)
			assert.ElementsMatch(t, []string{"query"}, requiredFields(back.Parameters))
			assert.Equal(t, wantTypes, propertyTypes(t, back))
		})
	}
}

func TestGeminiSchemaTypes(t *testing.T) {
	schema := convertToGeminiSchema(searchToolDefinition().Parameters)

	assert.Equal(t, "INTEGER", string(schema.Properties["max_results"].Type))
	assert.Equal(t, "BOOLEAN", string(schema.Properties["strict"].Type))
	require.NotNil(t, schema.Properties["max_results"].Maximum)
	assert.Equal(t, 20.0, *schema.Properties["max_results"].Maximum)
	require.NotNil(t, schema.Properties["tags"].Items)
	assert.Equal(t, "STRING", string(schema.Properties["tags"].Items.Type))

	untyped := convertToGeminiSchema(map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"ids": map[string]interface{}{"type": "array"}},
	})
	require.NotNil(t, untyped.Properties["ids"].Items, "arrays always carry items")
}

func TestRequiredFieldsFromDecodedJSON(t *testing.T) {
	params := map[string]interface{}{"required": []interface{}{"a", 3, "b"}}
	assert.Equal(t, []string{"a", "b"}, requiredFields(params))
	assert.Nil(t, requiredFields(map[string]interface{}{}))
}

func TestFlattenConversation(t *testing.T) {
	call := ToolCall{ID: "1", Name: "search_documents"}
	conv := []ChatMessage{
		SystemMessage("rules"),
		UserMessage("question"),
		AssistantMessage("thinking", &call),
		FunctionMessage(call, `{"status":"success"}`),
		AssistantMessage("answer", nil),
	}

	got := FlattenConversation(conv)
	assert.Equal(t, "System: rules\nUser: question\nAssistant: thinking\nAssistant: answer", got)
	assert.NotContains(t, got, "status")
}

func TestNewChatReplyKeepsFirstCall(t *testing.T) {
	calls := []ToolCall{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}
	reply := newChatReply("", calls, nil)
	require.True(t, reply.HasToolCall())
	assert.Equal(t, "one", reply.ToolCall.Name)
	assert.Len(t, reply.ToolCalls, 2)

	assert.False(t, newChatReply("text", nil, nil).HasToolCall())
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"configuration", NewConfigurationError("missing %s", "KEY"), ErrConfiguration},
		{"api", &APIError{Message: "boom", StatusCode: 500, Provider: "openai"}, ErrAPI},
		{"provider", emptyReply("openai", "choices"), ErrProvider},
		{"unsupported", &UnsupportedOperationError{Provider: "deepseek", Operation: "embeddings"}, ErrUnsupported},
		{"validation", &ValidationError{Field: "question", Message: "empty"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			for _, other := range []error{ErrConfiguration, ErrAPI, ErrProvider, ErrUnsupported, ErrValidation} {
				if other != tt.sentinel {
					assert.False(t, errors.Is(wrapped, other), "%v matched %v", tt.err, other)
				}
			}
		})
	}

	assert.Equal(t, "openai api error (status 500): boom", (&APIError{Message: "boom", StatusCode: 500, Provider: "openai"}).Error())
	assert.Equal(t, "openai api error: boom", (&APIError{Message: "boom", Provider: "openai"}).Error())
	assert.Equal(t, "no choices in response", emptyReply("openai", "choices").(*ProviderError).Message)
}
