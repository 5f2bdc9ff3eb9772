package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

func storesUnderTest(t *testing.T) map[string]VectorStore {
	t.Helper()
	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]VectorStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store VectorStore)) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) { fn(t, store) })
	}
}

func TestAddVectorsAssignsSequentialIDs(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()

		ids, err := store.AddVectors(ctx, "docs", [][]float32{{1, 0}, {0, 1}}, []string{"a", "b"}, nil)
		if err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "docs_0" || ids[1] != "docs_1" {
			t.Errorf("unexpected ids: %v", ids)
		}

		ids, err = store.AddVectors(ctx, "docs", [][]float32{{1, 1}}, []string{"c"}, []map[string]any{{"source": "c.txt"}})
		if err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}
		if ids[0] != "docs_2" {
			t.Errorf("expected docs_2, got %s", ids[0])
		}

		info, err := store.GetCollectionInfo(ctx, "docs")
		if err != nil {
			t.Fatalf("GetCollectionInfo failed: %v", err)
		}
		if info.Count != 3 || info.Dimension != 2 || info.Name != "docs" {
			t.Errorf("unexpected info: %+v", info)
		}
	})
}

func TestAddVectorsRejectsDimensionMismatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()

		if _, err := store.AddVectors(ctx, "docs", [][]float32{{1, 0, 0}}, []string{"a"}, nil); err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}
		_, err := store.AddVectors(ctx, "docs", [][]float32{{1, 0}}, []string{"b"}, nil)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
		_, err = store.AddVectors(ctx, "other", [][]float32{{1, 0}, {1}}, []string{"a", "b"}, nil)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch for ragged batch, got %v", err)
		}
		if _, err := store.AddVectors(ctx, "docs", [][]float32{{1, 0, 0}}, []string{"a", "b"}, nil); err == nil {
			t.Error("expected error for vectors/texts length mismatch")
		}
	})
}

func TestSearchVectorsOrdersByDistance(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()

		_, err := store.AddVectors(ctx, "docs",
			[][]float32{{10, 10}, {1, 0}, {0, 0}},
			[]string{"far", "near", "exact"},
			[]map[string]any{{"source": "far.txt"}, {"source": "near.txt"}, {}},
		)
		if err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}

		results, err := store.SearchVectors(ctx, "docs", []float32{0, 0}, 2)
		if err != nil {
			t.Fatalf("SearchVectors failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Text != "exact" || results[0].ID != "docs_2" {
			t.Errorf("expected exact match first, got %+v", results[0])
		}
		if results[0].Distance != 0 || results[0].Score != 1 {
			t.Errorf("expected distance 0 and score 1, got %f / %f", results[0].Distance, results[0].Score)
		}
		if results[1].Text != "near" || results[1].Metadata["source"] != "near.txt" {
			t.Errorf("unexpected second result: %+v", results[1])
		}
		if math.Abs(results[1].Score-0.5) > 1e-9 {
			t.Errorf("expected score 0.5, got %f", results[1].Score)
		}

		all, err := store.SearchVectors(ctx, "docs", []float32{0, 0}, 50)
		if err != nil {
			t.Fatalf("SearchVectors failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("limit above count should return all 3, got %d", len(all))
		}
	})
}

func TestSearchVectorsMissingCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		_, err := store.SearchVectors(context.Background(), "nope", []float32{1}, 3)
		if !errors.Is(err, ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound, got %v", err)
		}
	})
}

func TestSearchVectorsEmptyCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()
		if err := store.CreateCollection(ctx, "empty", 0); err != nil {
			t.Fatalf("CreateCollection failed: %v", err)
		}
		results, err := store.SearchVectors(ctx, "empty", []float32{1, 2}, 5)
		if err != nil {
			t.Fatalf("SearchVectors failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}

func TestGetDocumentByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()
		_, err := store.AddVectors(ctx, "my_docs", [][]float32{{1}}, []string{"hello"}, []map[string]any{{"source": "a.md"}})
		if err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}

		doc, err := store.GetDocumentByID(ctx, "my_docs_0", "")
		if err != nil {
			t.Fatalf("GetDocumentByID failed: %v", err)
		}
		if doc == nil {
			t.Fatal("expected document, got nil")
		}
		if doc.Text != "hello" || doc.Collection != "my_docs" || doc.Metadata["source"] != "a.md" {
			t.Errorf("unexpected document: %+v", doc)
		}

		for _, tc := range []struct{ id, collection string }{
			{"my_docs_9", ""},
			{"my_docs_0", "other"},
			{"garbage", ""},
		} {
			doc, err := store.GetDocumentByID(ctx, tc.id, tc.collection)
			if err != nil || doc != nil {
				t.Errorf("GetDocumentByID(%q, %q) = %v, %v; want nil, nil", tc.id, tc.collection, doc, err)
			}
		}
	})
}

func TestBrowseVectors(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()
		texts := []string{"t0", "t1", "t2", "t3", "t4"}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{float32(i)}
		}
		if _, err := store.AddVectors(ctx, "docs", vectors, texts, nil); err != nil {
			t.Fatalf("AddVectors failed: %v", err)
		}

		page, err := store.BrowseVectors(ctx, "docs", 3, 10)
		if err != nil {
			t.Fatalf("BrowseVectors failed: %v", err)
		}
		if len(page) != 2 || page[0].Text != "t3" || page[0].Index != 3 || page[1].ID != "docs_4" {
			t.Errorf("unexpected page: %+v", page)
		}

		page, err = store.BrowseVectors(ctx, "docs", 10, 10)
		if err != nil || len(page) != 0 {
			t.Errorf("expected empty page past the end, got %v, %v", page, err)
		}
	})
}

func TestDeleteAndListCollections(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()
		for _, name := range []string{"b", "a"} {
			if _, err := store.AddVectors(ctx, name, [][]float32{{1}}, []string{"x"}, nil); err != nil {
				t.Fatalf("AddVectors failed: %v", err)
			}
		}

		names, err := store.ListCollections(ctx)
		if err != nil {
			t.Fatalf("ListCollections failed: %v", err)
		}
		if fmt.Sprint(names) != "[a b]" {
			t.Errorf("expected [a b], got %v", names)
		}

		if err := store.DeleteCollection(ctx, "a"); err != nil {
			t.Fatalf("DeleteCollection failed: %v", err)
		}
		if err := store.DeleteCollection(ctx, "never-existed"); err != nil {
			t.Errorf("deleting a missing collection should succeed, got %v", err)
		}
		if _, err := store.GetCollectionInfo(ctx, "a"); !errors.Is(err, ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound after delete, got %v", err)
		}
		if doc, _ := store.GetDocumentByID(ctx, "a_0", ""); doc != nil {
			t.Errorf("documents should be deleted with their collection")
		}
	})
}

func TestConcurrentAddVectors(t *testing.T) {
	forEachStore(t, func(t *testing.T, store VectorStore) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := store.AddVectors(ctx, "docs", [][]float32{{float32(i), 0}}, []string{fmt.Sprint(i)}, nil); err != nil {
					t.Errorf("AddVectors failed: %v", err)
				}
			}(i)
		}
		wg.Wait()

		info, err := store.GetCollectionInfo(ctx, "docs")
		if err != nil {
			t.Fatalf("GetCollectionInfo failed: %v", err)
		}
		if info.Count != 8 {
			t.Errorf("expected 8 documents, got %d", info.Count)
		}
		for i := 0; i < 8; i++ {
			if doc, _ := store.GetDocumentByID(ctx, DocumentID("docs", i), "docs"); doc == nil {
				t.Errorf("missing docs_%d", i)
			}
		}
	})
}

func TestParseDocumentID(t *testing.T) {
	tests := []struct {
		id         string
		collection string
		n          int
		ok         bool
	}{
		{"default_0", "default", 0, true},
		{"my_docs_12", "my_docs", 12, true},
		{"nounderscore", "", 0, false},
		{"trailing_", "", 0, false},
		{"_5", "", 0, false},
		{"docs_x", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c, n, ok := ParseDocumentID(tt.id)
			if c != tt.collection || n != tt.n || ok != tt.ok {
				t.Errorf("ParseDocumentID(%q) = %q, %d, %v", tt.id, c, n, ok)
			}
		})
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	v := []float32{0, -1.5, 3.25, float32(math.Pi)}
	got, err := decodeVector(encodeVector(v))
	if err != nil {
		t.Fatalf("decodeVector failed: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: got %v want %v", i, got[i], v[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
