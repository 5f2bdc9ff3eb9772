// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"github.com/rs/zerolog"

	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
	"github.com/prachwal/rag07/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder(gen, store).MaxIterations(3).Build()
type Builder struct {
	gen    llm.TextGenerator
	store  storage.VectorStore
	config Config
	logger zerolog.Logger
}

// NewBuilder creates a builder with DefaultConfig.
func NewBuilder(gen llm.TextGenerator, store storage.VectorStore) *Builder {
	return &Builder{
		gen:    gen,
		store:  store,
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// MaxIterations sets the loop bound.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// Collection sets the default collection.
func (b *Builder) Collection(name string) *Builder {
	b.config.Collection = name
	return b
}

// Model overrides the provider's default model.
func (b *Builder) Model(model string) *Builder {
	b.config.Model = model
	return b
}

// Temperature sets the sampling temperature of tool-calling turns.
func (b *Builder) Temperature(t float32) *Builder {
	b.config.Temperature = t
	return b
}

// ContextLimit sets how many passages the fallback path uses.
func (b *Builder) ContextLimit(n int) *Builder {
	b.config.ContextLimit = n
	return b
}

// DisableTools forces the fallback path.
func (b *Builder) DisableTools(disabled bool) *Builder {
	b.config.DisableTools = disabled
	return b
}

// SystemPrompt replaces the built-in system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// Tool adds a tool next to the search tools.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.config.Tools = append(b.config.Tools, tool)
	return b
}

// ToolConfig sets tool timeouts and retries.
func (b *Builder) ToolConfig(cfg tools.ToolConfig) *Builder {
	b.config.ToolConfig = cfg
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() Config {
	return b.config
}

// Build creates the agent.
func (b *Builder) Build() (*Agent, error) {
	return New(b.config, b.gen, b.store, b.logger)
}
