// Package tools provides the retrieval functions an agent may call.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Argument decoding and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Failures are reported as tagged results, never as panics
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prachwal/rag07/llm"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	ParamType   string   `json:"param_type"` // JSON schema type: string, integer, number, boolean
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Definition renders the metadata in the vendor-neutral function schema.
func (m ToolMetadata) Definition() llm.ToolDefinition {
	properties := make(map[string]interface{}, len(m.Parameters))
	required := []string{}
	for _, p := range m.Parameters {
		prop := map[string]interface{}{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return llm.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// Status is the outcome tag of a ToolResult.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorType tells a bad call apart from a failing tool.
// Errors a tool reports about its own input (e.g. an empty query) carry no type.
type ErrorType string

const (
	ErrorInvalidArguments ErrorType = "invalid_arguments"
	ErrorExecutionFailed  ErrorType = "execution_failed"
	ErrorUnknownFunction  ErrorType = "unknown_function"
)

// ToolResult is the tagged outcome of a tool call. It is what the model sees,
// serialized by MarshalJSON into the function-result message.
type ToolResult struct {
	Status       Status
	Data         map[string]any
	Message      string
	FunctionName string
	ErrorType    ErrorType
}

// MarshalJSON flattens Data next to the status fields:
// {"status":"success",...data} or {"status":"error","message":...,...}.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Data)+4)
	for k, v := range t.Data {
		out[k] = v
	}

	if t.Success() {
		out["status"] = string(StatusSuccess)
		return json.Marshal(out)
	}

	out["status"] = string(StatusError)
	out["message"] = t.Message
	if t.FunctionName != "" {
		out["function_name"] = t.FunctionName
	}
	if t.ErrorType != "" {
		out["error_type"] = string(t.ErrorType)
	}
	return json.Marshal(out)
}

// Content renders the result for a function-result message.
func (t ToolResult) Content() string {
	b, err := json.Marshal(t)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"status": string(StatusError), "message": err.Error()})
	}
	return string(b)
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Status == StatusSuccess
}

// SuccessResult creates a successful tool result.
func SuccessResult(data map[string]any) ToolResult {
	return ToolResult{Status: StatusSuccess, Data: data}
}

// FailureResult creates a failed tool result with extra fields for the model.
func FailureResult(message string, data map[string]any) ToolResult {
	return ToolResult{Status: StatusError, Message: message, Data: data}
}

// FailureResultf creates a failed tool result with a formatted message.
func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments. Problems the model can act on
	// are failure results; a returned error means the tool itself broke.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate checks argument shape before execution.
	Validate(args json.RawMessage) error
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(args json.RawMessage) error {
	return nil
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s and retries to 3.
type ToolConfig struct {
	TimeoutSecs uint64
	// MaxRetries is the number of retries after the first attempt; nil means 3.
	MaxRetries *uint32
}

// Timeout returns the per-call timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Retries returns the configured max retries, defaulting to 3 if unset.
func (c *ToolConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == nil {
		return 3
	}
	return *c.MaxRetries
}

// RetryLimit returns a MaxRetries value; RetryLimit(0) disables retries.
func RetryLimit(n uint32) *uint32 { return &n }

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		TimeoutSecs: 30,
		MaxRetries:  RetryLimit(3),
	}
}

func float(v float64) *float64 { return &v }
