// Vector search tools.
//
// Information Hiding:
// - Query embedding through the TextGenerator capability
// - Result shaping (rank, score rounding, previews) for model consumption
// - Store failures reported as failure results carrying the query

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/prachwal/rag07/internal/logging"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
)

const (
	SearchDocumentsName    = "search_documents"
	GetDocumentDetailsName = "get_document_details"

	DefaultMaxResults = 5
	MaxSearchResults  = 20

	previewLength = 200
)

// SearchTool implements search_documents.
type SearchTool struct {
	store      storage.VectorStore
	embedder   *llm.Client
	collection string
}

// NewSearchTool creates a search tool. Calls without a collection search defaultCollection.
func NewSearchTool(store storage.VectorStore, gen llm.TextGenerator, defaultCollection string) *SearchTool {
	if defaultCollection == "" {
		defaultCollection = "default"
	}
	return &SearchTool{
		store:      store,
		embedder:   llm.NewClient(gen),
		collection: defaultCollection,
	}
}

// Metadata returns the tool metadata.
func (t *SearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: SearchDocumentsName,
		Description: "Search for relevant documents in the knowledge base. " +
			"Use this function to find information related to the user's question.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				ParamType:   "string",
				Description: "Search query for finding relevant documents. Should be descriptive and specific.",
				Required:    true,
			},
			{
				Name:        "max_results",
				ParamType:   "integer",
				Description: "Maximum number of results to return (default: 5, max: 20)",
				Default:     DefaultMaxResults,
				Minimum:     float(1),
				Maximum:     float(MaxSearchResults),
			},
			{
				Name:        "collection",
				ParamType:   "string",
				Description: "Collection name to search in. Leave empty for default collection.",
			},
		},
	}
}

type searchArgs struct {
	Query      *string  `json:"query"`
	MaxResults *float64 `json:"max_results"`
	Collection *string  `json:"collection"`
}

func (t *SearchTool) parse(args json.RawMessage) (searchArgs, error) {
	var a searchArgs
	if err := decodeArgs(args, &a); err != nil {
		return a, err
	}
	if a.Query == nil {
		return a, &ArgumentError{Err: errors.New("missing required argument 'query'")}
	}
	return a, nil
}

// Validate checks that query is present and every field has the right type.
func (t *SearchTool) Validate(args json.RawMessage) error {
	_, err := t.parse(args)
	return err
}

// ClampMaxResults forces n into [1, MaxSearchResults].
func ClampMaxResults(n int) int {
	return min(max(n, 1), MaxSearchResults)
}

// Execute embeds the query and searches the store.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := t.parse(args)
	if err != nil {
		return ToolResult{}, err
	}

	query := *a.Query
	if strings.TrimSpace(query) == "" {
		return FailureResultf("Query cannot be empty"), nil
	}

	limit := DefaultMaxResults
	if a.MaxResults != nil {
		limit = int(math.Min(math.Max(*a.MaxResults, 1), MaxSearchResults))
	}

	collection := t.collection
	if a.Collection != nil && *a.Collection != "" {
		collection = *a.Collection
	}

	logger := logging.FromCtx(ctx)
	logger.Debug().
		Int("query_length", len(query)).
		Int("max_results", limit).
		Str("collection", collection).
		Msg("search_documents_started")

	hits, err := t.search(ctx, query, collection, limit)
	if err != nil {
		msg := fmt.Sprintf("Search error: %v", err)
		logger.Warn().Str("query", query).Str("error", msg).Msg("search_documents_error")
		return FailureResult(msg, map[string]any{"query": query}), nil
	}

	results := make([]map[string]any, len(hits))
	for i, hit := range hits {
		results[i] = formatHit(i, hit)
	}

	logger.Debug().
		Str("query", query).
		Int("results_found", len(results)).
		Str("collection", collection).
		Msg("search_documents_completed")

	return SuccessResult(map[string]any{
		"query":       query,
		"results":     results,
		"total_found": len(results),
		"collection":  collection,
		"search_metadata": map[string]any{
			"embedding_model": "default",
			"search_type":     "vector_similarity",
		},
	}), nil
}

func (t *SearchTool) search(ctx context.Context, query, collection string, limit int) ([]storage.SearchResult, error) {
	vector, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := t.store.SearchVectors(ctx, collection, vector, limit)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		return nil, nil
	}
	return hits, err
}

func formatHit(i int, hit storage.SearchResult) map[string]any {
	source := "unknown"
	if s, ok := hit.Metadata["source"]; ok && s != nil {
		source = fmt.Sprint(s)
	}
	id := hit.ID
	if id == "" {
		id = fmt.Sprintf("doc_%d", i)
	}

	out := map[string]any{
		"rank":            i + 1,
		"content":         hit.Text,
		"relevance_score": math.Round(hit.Score*10000) / 10000,
		"document_id":     id,
		"source":          source,
	}

	if runes := []rune(hit.Text); len(runes) > previewLength {
		out["content_preview"] = string(runes[:previewLength]) + "..."
		out["full_content"] = hit.Text
	} else {
		out["content_preview"] = hit.Text
	}
	return out
}

// DocumentTool implements get_document_details.
type DocumentTool struct {
	store storage.VectorStore
}

// NewDocumentTool creates a document lookup tool.
func NewDocumentTool(store storage.VectorStore) *DocumentTool {
	return &DocumentTool{store: store}
}

// Metadata returns the tool metadata.
func (t *DocumentTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: GetDocumentDetailsName,
		Description: "Get detailed information about a specific document by its ID. " +
			"Use this to get more context about a document found in search results.",
		Parameters: []ToolParameter{
			{
				Name:        "document_id",
				ParamType:   "string",
				Description: "Document ID to get details for",
				Required:    true,
			},
			{
				Name:        "include_metadata",
				ParamType:   "boolean",
				Description: "Whether to include document metadata (default: true)",
				Default:     true,
			},
		},
	}
}

type documentArgs struct {
	DocumentID      *string `json:"document_id"`
	IncludeMetadata *bool   `json:"include_metadata"`
}

func (t *DocumentTool) parse(args json.RawMessage) (documentArgs, error) {
	var a documentArgs
	if err := decodeArgs(args, &a); err != nil {
		return a, err
	}
	if a.DocumentID == nil {
		return a, &ArgumentError{Err: errors.New("missing required argument 'document_id'")}
	}
	return a, nil
}

// Validate checks that document_id is present.
func (t *DocumentTool) Validate(args json.RawMessage) error {
	_, err := t.parse(args)
	return err
}

// Execute looks the document up by id.
func (t *DocumentTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	a, err := t.parse(args)
	if err != nil {
		return ToolResult{}, err
	}

	id := *a.DocumentID
	if strings.TrimSpace(id) == "" {
		return FailureResultf("Document ID cannot be empty"), nil
	}
	includeMetadata := a.IncludeMetadata == nil || *a.IncludeMetadata

	logger := logging.FromCtx(ctx)
	logger.Debug().Str("document_id", id).Bool("include_metadata", includeMetadata).Msg("get_document_details_started")

	doc, err := t.store.GetDocumentByID(ctx, id, "")
	if err != nil {
		msg := fmt.Sprintf("Document retrieval error: %v", err)
		logger.Warn().Str("document_id", id).Str("error", msg).Msg("get_document_details_error")
		return FailureResult(msg, map[string]any{"document_id": id}), nil
	}
	if doc == nil {
		return FailureResultf("Document not found: %s", id), nil
	}

	data := map[string]any{
		"document_id": id,
		"content":     doc.Text,
		"found":       true,
	}
	if includeMetadata {
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		data["metadata"] = metadata
	}

	logger.Debug().Str("document_id", id).Msg("get_document_details_completed")
	return SuccessResult(data), nil
}

var (
	_ Tool = (*SearchTool)(nil)
	_ Tool = (*DocumentTool)(nil)
)
