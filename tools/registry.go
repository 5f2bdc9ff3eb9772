// Tool registration and the function-definition catalog.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration order preserved for the catalog sent to providers

package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
)

// Registry holds the tools offered to the model. Names are unique.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register appends tool to the catalog. Duplicate names are rejected.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("duplicate tool name %q", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Names lists tool names alphabetically, for error messages.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// List returns tool metadata in registration order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.order))
	for _, name := range r.order {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Definitions returns the catalog in the neutral schema, in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	list := r.List()
	defs := make([]llm.ToolDefinition, len(list))
	for i, meta := range list {
		defs[i] = meta.Definition()
	}
	return defs
}

// NewSearchRegistry creates a registry holding search_documents and
// get_document_details bound to store and gen.
func NewSearchRegistry(store storage.VectorStore, gen llm.TextGenerator, defaultCollection string) (*Registry, error) {
	r := NewRegistry()
	for _, t := range []Tool{NewSearchTool(store, gen, defaultCollection), NewDocumentTool(store)} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
