// Agent configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import (
	"github.com/prachwal/rag07/tools"
)

// Defaults for a question-answering run.
const (
	DefaultMaxIterations = 5
	DefaultTemperature   = 0.1
	DefaultContextLimit  = 3
	DefaultCollection    = "default"
)

// Config holds agent configuration.
type Config struct {
	// MaxIterations bounds the number of ChatWithTools calls per question.
	MaxIterations int

	// Temperature used for every tool-calling turn.
	Temperature float32

	// ContextLimit is the number of passages the fallback path retrieves.
	ContextLimit int

	// Collection searched when the model does not name one.
	Collection string

	// Model overrides the provider's default model. Empty uses the default.
	Model string

	// DisableTools forces the single-shot fallback path.
	DisableTools bool

	// SystemPrompt seeds every conversation. Empty uses the built-in prompt.
	SystemPrompt string

	// Tools are registered after search_documents and get_document_details.
	Tools []tools.Tool

	// ToolConfig controls timeouts and retries of tool execution.
	ToolConfig tools.ToolConfig
}

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		Temperature:   DefaultTemperature,
		ContextLimit:  DefaultContextLimit,
		Collection:    DefaultCollection,
		SystemPrompt:  SystemPrompt,
		ToolConfig:    tools.DefaultToolConfig(),
	}
}

// withDefaults fills zero fields. A zero Temperature is kept: it is a valid setting.
func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ContextLimit <= 0 {
		c.ContextLimit = DefaultContextLimit
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = SystemPrompt
	}
	return c
}

// HasTools returns true if extra tools are configured.
func (c *Config) HasTools() bool {
	return len(c.Tools) > 0
}
