// Package storage provides vector persistence and the model-catalog cache.
//
// Information Hiding:
// - Vector encoding and distance computation
// - Id assignment (<collection>_<n>, n counting insertions from zero)
// - Collection lifecycle: created on first insert, dimension fixed by the first vector
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrCollectionNotFound is returned for reads against a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch is returned when a vector's length differs from the collection's.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// SearchResult is one hit of a similarity search.
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Distance float64        `json:"distance"`
	Score    float64        `json:"score"` // 1/(1+Distance), higher is closer
	Metadata map[string]any `json:"metadata"`
}

// Document is a stored text with its metadata.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Index      int            `json:"index"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

// CollectionInfo summarizes a collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
}

// VectorStore persists embedded texts and answers nearest-neighbour queries.
// Implementations are safe for concurrent use.
type VectorStore interface {
	// Name identifies the backend in logs and result metadata.
	Name() string

	// CreateCollection is a no-op if the collection exists. A dimension of zero
	// defers fixing it to the first insert.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// AddVectors appends texts with their vectors and returns their ids.
	// metadata may be nil or must have one entry per text.
	AddVectors(ctx context.Context, collection string, vectors [][]float32, texts []string, metadata []map[string]any) ([]string, error)

	// SearchVectors returns at most limit results ordered by ascending distance.
	SearchVectors(ctx context.Context, collection string, query []float32, limit int) ([]SearchResult, error)

	// GetDocumentByID returns nil, nil when the document does not exist.
	// An empty collection is derived from the id prefix.
	GetDocumentByID(ctx context.Context, id, collection string) (*Document, error)

	// BrowseVectors pages through a collection in insertion order.
	BrowseVectors(ctx context.Context, collection string, offset, limit int) ([]Document, error)

	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	Close() error
}

// DocumentID formats the id of the n-th document inserted into collection.
func DocumentID(collection string, n int) string {
	return collection + "_" + strconv.Itoa(n)
}

// ParseDocumentID splits an id produced by DocumentID. Collection names may
// themselves contain underscores, so the split is on the last one.
func ParseDocumentID(id string) (collection string, n int, ok bool) {
	i := strings.LastIndexByte(id, '_')
	if i <= 0 || i == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}

// L2Distance is the Euclidean distance between equal-length vectors.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Score maps a distance to a similarity in (0, 1].
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}

func validateBatch(vectors [][]float32, texts []string, metadata []map[string]any) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts))
	}
	if metadata != nil && len(metadata) != len(texts) {
		return fmt.Errorf("got %d metadata entries for %d texts", len(metadata), len(texts))
	}
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// rankByDistance computes distances for candidates and keeps the closest limit.
func rankByDistance(query []float32, limit int, n int, vectorAt func(int) []float32, resultAt func(int) SearchResult) []SearchResult {
	type scored struct {
		idx  int
		dist float64
	}
	all := make([]scored, n)
	for i := 0; i < n; i++ {
		all[i] = scored{idx: i, dist: L2Distance(query, vectorAt(i))}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if limit < len(all) {
		all = all[:limit]
	}

	results := make([]SearchResult, len(all))
	for i, s := range all {
		r := resultAt(s.idx)
		r.Distance = s.dist
		r.Score = Score(s.dist)
		results[i] = r
	}
	return results
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
