// In-memory vector store.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryCollection struct {
	dimension int
	vectors   [][]float32
	texts     []string
	metadata  []map[string]any
}

// MemoryStore implements VectorStore using in-memory maps.
// Data is lost when process terminates.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

// Name returns the backend name.
func (s *MemoryStore) Name() string {
	return "memory"
}

// CreateCollection creates an empty collection if it does not exist.
func (s *MemoryStore) CreateCollection(_ context.Context, name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &memoryCollection{dimension: dimension}
	}
	return nil
}

// AddVectors appends a batch, creating the collection on first use.
func (s *MemoryStore) AddVectors(_ context.Context, collection string, vectors [][]float32, texts []string, metadata []map[string]any) ([]string, error) {
	if err := validateBatch(vectors, texts, metadata); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		c = &memoryCollection{}
		s.collections[collection] = c
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}
	if c.dimension == 0 {
		c.dimension = len(vectors[0])
	}
	if len(vectors[0]) != c.dimension {
		return nil, fmt.Errorf("%w: collection %s has %d dimensions, got %d", ErrDimensionMismatch, collection, c.dimension, len(vectors[0]))
	}

	ids := make([]string, len(vectors))
	for i, v := range vectors {
		ids[i] = DocumentID(collection, len(c.vectors))

		// Copy to avoid external mutations
		vec := make([]float32, len(v))
		copy(vec, v)
		c.vectors = append(c.vectors, vec)
		c.texts = append(c.texts, texts[i])
		if metadata != nil {
			c.metadata = append(c.metadata, copyMetadata(metadata[i]))
		} else {
			c.metadata = append(c.metadata, map[string]any{})
		}
	}
	return ids, nil
}

// SearchVectors performs an exact L2 scan.
func (s *MemoryStore) SearchVectors(_ context.Context, collection string, query []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if limit <= 0 || len(c.vectors) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("%w: collection %s has %d dimensions, query has %d", ErrDimensionMismatch, collection, c.dimension, len(query))
	}

	return rankByDistance(query, limit, len(c.vectors),
		func(i int) []float32 { return c.vectors[i] },
		func(i int) SearchResult {
			return SearchResult{
				ID:       DocumentID(collection, i),
				Text:     c.texts[i],
				Metadata: copyMetadata(c.metadata[i]),
			}
		},
	), nil
}

// GetDocumentByID returns a copy of the document, or nil if absent.
func (s *MemoryStore) GetDocumentByID(_ context.Context, id, collection string) (*Document, error) {
	name, n, ok := ParseDocumentID(id)
	if !ok || (collection != "" && collection != name) {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok || n >= len(c.texts) {
		return nil, nil
	}
	return s.document(name, c, n), nil
}

// BrowseVectors pages through a collection in insertion order.
func (s *MemoryStore) BrowseVectors(_ context.Context, collection string, offset, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if offset < 0 {
		offset = 0
	}
	docs := []Document{}
	for i := offset; i < len(c.texts) && len(docs) < limit; i++ {
		docs = append(docs, *s.document(collection, c, i))
	}
	return docs, nil
}

func (s *MemoryStore) document(name string, c *memoryCollection, i int) *Document {
	return &Document{
		ID:         DocumentID(name, i),
		Collection: name,
		Index:      i,
		Text:       c.texts[i],
		Metadata:   copyMetadata(c.metadata[i]),
	}
}

// DeleteCollection removes a collection. Deleting a missing collection is not an error.
func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)
	return nil
}

// ListCollections lists collection names, sorted.
func (s *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetCollectionInfo reports size and dimension.
func (s *MemoryStore) GetCollectionInfo(_ context.Context, name string) (CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return CollectionInfo{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return CollectionInfo{Name: name, Count: len(c.vectors), Dimension: c.dimension}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements VectorStore
var _ VectorStore = (*MemoryStore)(nil)
