// SQLite vector store.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Vectors stored as little-endian float32 blobs, searched by exact scan
// - Thread-safe via sql.DB's built-in connection pooling; batch inserts are serialized

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements VectorStore using SQLite.
// The same database also backs SqliteModelCache.
type SqliteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes id assignment across batches
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	// Create parent directory if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Name returns the backend name.
func (s *SqliteStore) Name() string {
	return "sqlite"
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// ModelCache returns a model-catalog cache stored in the same database.
func (s *SqliteStore) ModelCache(ttl time.Duration) *SqliteModelCache {
	return NewSqliteModelCache(s.db, ttl)
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL DEFAULT 0,
			next_index INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding BLOB NOT NULL,
			UNIQUE(collection, position)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_collection
		ON documents(collection, position);

		CREATE TABLE IF NOT EXISTS model_cache (
			provider TEXT PRIMARY KEY,
			catalog TEXT NOT NULL,
			cached_at INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateCollection creates an empty collection if it does not exist.
func (s *SqliteStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, dimension) VALUES (?, ?)",
		name, dimension,
	)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// AddVectors inserts a batch in one transaction, creating the collection on first use.
func (s *SqliteStore) AddVectors(ctx context.Context, collection string, vectors [][]float32, texts []string, metadata []map[string]any) ([]string, error) {
	if err := validateBatch(vectors, texts, metadata); err != nil {
		return nil, err
	}
	if err := s.CreateCollection(ctx, collection, 0); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	var dimension, next int
	err = tx.QueryRowContext(ctx,
		"SELECT dimension, next_index FROM collections WHERE name = ?", collection,
	).Scan(&dimension, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	if dimension == 0 {
		dimension = len(vectors[0])
	}
	if len(vectors[0]) != dimension {
		return nil, fmt.Errorf("%w: collection %s has %d dimensions, got %d", ErrDimensionMismatch, collection, dimension, len(vectors[0]))
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (id, collection, position, content, metadata, embedding) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, len(vectors))
	for i, v := range vectors {
		meta := map[string]any{}
		if metadata != nil && metadata[i] != nil {
			meta = metadata[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}

		position := next + i
		ids[i] = DocumentID(collection, position)
		if _, err := stmt.ExecContext(ctx, ids[i], collection, position, texts[i], string(metaJSON), encodeVector(v)); err != nil {
			return nil, fmt.Errorf("failed to insert document: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE collections SET dimension = ?, next_index = ? WHERE name = ?",
		dimension, next+len(vectors), collection)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

type storedRow struct {
	doc    Document
	vector []float32
}

// SearchVectors performs an exact L2 scan over the collection.
func (s *SqliteStore) SearchVectors(ctx context.Context, collection string, query []float32, limit int) ([]SearchResult, error) {
	info, err := s.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || info.Count == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != info.Dimension {
		return nil, fmt.Errorf("%w: collection %s has %d dimensions, query has %d", ErrDimensionMismatch, collection, info.Dimension, len(query))
	}

	rows, err := s.queryRows(ctx,
		"SELECT id, position, content, metadata, embedding FROM documents WHERE collection = ? ORDER BY position",
		collection)
	if err != nil {
		return nil, err
	}

	return rankByDistance(query, limit, len(rows),
		func(i int) []float32 { return rows[i].vector },
		func(i int) SearchResult {
			return SearchResult{ID: rows[i].doc.ID, Text: rows[i].doc.Text, Metadata: rows[i].doc.Metadata}
		},
	), nil
}

// GetDocumentByID returns the document, or nil if absent.
func (s *SqliteStore) GetDocumentByID(ctx context.Context, id, collection string) (*Document, error) {
	if collection == "" {
		name, _, ok := ParseDocumentID(id)
		if !ok {
			return nil, nil
		}
		collection = name
	}

	rows, err := s.queryRows(ctx,
		"SELECT id, position, content, metadata, embedding FROM documents WHERE id = ? AND collection = ?",
		id, collection)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	doc := rows[0].doc
	return &doc, nil
}

// BrowseVectors pages through a collection in insertion order.
func (s *SqliteStore) BrowseVectors(ctx context.Context, collection string, offset, limit int) ([]Document, error) {
	if _, err := s.GetCollectionInfo(ctx, collection); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []Document{}, nil
	}

	rows, err := s.queryRows(ctx,
		"SELECT id, position, content, metadata, embedding FROM documents WHERE collection = ? ORDER BY position LIMIT ? OFFSET ?",
		collection, limit, offset)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(rows))
	for i, r := range rows {
		docs[i] = r.doc
	}
	return docs, nil
}

func (s *SqliteStore) queryRows(ctx context.Context, query string, args ...any) ([]storedRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var out []storedRow
	for rows.Next() {
		var (
			r        storedRow
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&r.doc.ID, &r.doc.Index, &r.doc.Text, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		if r.doc.Metadata == nil {
			r.doc.Metadata = map[string]any{}
		}
		if r.doc.Collection, _, _ = ParseDocumentID(r.doc.ID); r.doc.Collection == "" {
			return nil, fmt.Errorf("malformed document id %q", r.doc.ID)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		r.vector = vec
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return out, nil
}

// DeleteCollection removes a collection and its documents.
// Deleting a missing collection is not an error.
func (s *SqliteStore) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", name); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return tx.Commit()
}

// ListCollections lists collection names, sorted.
func (s *SqliteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetCollectionInfo reports size and dimension.
func (s *SqliteStore) GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info := CollectionInfo{Name: name}
	err := s.db.QueryRowContext(ctx,
		"SELECT c.dimension, (SELECT COUNT(*) FROM documents d WHERE d.collection = c.name) FROM collections c WHERE c.name = ?",
		name,
	).Scan(&info.Dimension, &info.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return CollectionInfo{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("failed to read collection: %w", err)
	}
	return info, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// Verify SqliteStore implements VectorStore
var _ VectorStore = (*SqliteStore)(nil)
