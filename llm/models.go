// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ToolCall   *ToolCall `json:"tool_call,omitempty"`    // For assistant messages requesting a tool
	Name       string    `json:"name,omitempty"`         // Function name, for function results
	ToolCallID string    `json:"tool_call_id,omitempty"` // For function result messages
}

// ToolCall represents a tool call from the LLM.
// Arguments are kept raw; parsing them is the caller's job.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type wireToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MarshalJSON encodes Arguments as a string, so malformed arguments still serialize.
func (c ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireToolCall{ID: c.ID, Name: c.Name, Arguments: string(c.Arguments)})
}

// UnmarshalJSON accepts arguments either as a string or as a JSON object.
func (c *ToolCall) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID, c.Name, c.Arguments = raw.ID, raw.Name, raw.Arguments

	var s string
	if json.Unmarshal(raw.Arguments, &s) == nil {
		c.Arguments = json.RawMessage(s)
	}
	return nil
}

// ToolDefinition defines a tool that the LLM can call.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema, type "object"
}

// ToolChoiceMode controls whether the model may call tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceNone ToolChoiceMode = "none"
)

// GenerateOptions tune a single GenerateText call. Zero values use adapter defaults.
type GenerateOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float32
}

// ChatOptions tune a ChatWithTools call.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float32
	Mode        ToolChoiceMode
}

// Float32 returns a pointer to v, for option structs.
func Float32(v float32) *float32 { return &v }

// ChatReply is the unified reply of ChatWithTools.
// ToolCall is the first requested call; ToolCalls holds all of them.
type ChatReply struct {
	Content   string
	ToolCall  *ToolCall
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// HasToolCall reports whether the model asked for a tool.
func (r ChatReply) HasToolCall() bool {
	return r.ToolCall != nil
}

func newChatReply(content string, calls []ToolCall, usage *TokenUsage) ChatReply {
	reply := ChatReply{Content: content, ToolCalls: calls, Usage: usage}
	if len(calls) > 0 {
		first := calls[0]
		reply.ToolCall = &first
	}
	return reply
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// AssistantMessage creates an assistant message, optionally carrying a tool call.
func AssistantMessage(content string, call *ToolCall) ChatMessage {
	return ChatMessage{
		Role:     RoleAssistant,
		Content:  content,
		ToolCall: call,
	}
}

// FunctionMessage creates a function-result message answering call.
func FunctionMessage(call ToolCall, content string) ChatMessage {
	return ChatMessage{
		Role:       RoleFunction,
		Content:    content,
		Name:       call.Name,
		ToolCallID: call.ID,
	}
}
