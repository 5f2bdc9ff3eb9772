// Model catalog caches.
//
// Information Hiding:
// - Catalog serialization
// - TTL expiry: stale entries read as absent and are never returned

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prachwal/rag07/llm"
)

// DefaultModelCacheTTL is how long a fetched catalog stays fresh.
const DefaultModelCacheTTL = 24 * time.Hour

// SqliteModelCache implements llm.ModelCache on the model_cache table.
type SqliteModelCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSqliteModelCache creates a cache over db. A non-positive ttl uses DefaultModelCacheTTL.
// The model_cache table must exist; SqliteStore creates it.
func NewSqliteModelCache(db *sql.DB, ttl time.Duration) *SqliteModelCache {
	if ttl <= 0 {
		ttl = DefaultModelCacheTTL
	}
	return &SqliteModelCache{db: db, ttl: ttl, now: time.Now}
}

// Get returns the cached catalog if it is younger than the TTL.
func (c *SqliteModelCache) Get(ctx context.Context, provider string) (llm.ModelCatalog, bool) {
	var (
		payload  string
		cachedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT catalog, cached_at FROM model_cache WHERE provider = ?", provider,
	).Scan(&payload, &cachedAt)
	if err != nil {
		return llm.ModelCatalog{}, false
	}

	ts := time.Unix(cachedAt, 0)
	if c.now().Sub(ts) >= c.ttl {
		return llm.ModelCatalog{}, false
	}

	var catalog llm.ModelCatalog
	if err := json.Unmarshal([]byte(payload), &catalog); err != nil {
		return llm.ModelCatalog{}, false
	}
	catalog.CacheTimestamp = ts
	return catalog, true
}

// Store replaces the provider's cached catalog.
func (c *SqliteModelCache) Store(ctx context.Context, catalog llm.ModelCatalog) error {
	if catalog.Provider == "" {
		return errors.New("catalog has no provider")
	}
	payload, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO model_cache (provider, catalog, cached_at) VALUES (?, ?, ?)",
		catalog.Provider, string(payload), c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store catalog: %w", err)
	}
	return nil
}

// Clear removes one provider's entry, or all entries when provider is empty.
func (c *SqliteModelCache) Clear(ctx context.Context, provider string) error {
	var err error
	if provider == "" {
		_, err = c.db.ExecContext(ctx, "DELETE FROM model_cache")
	} else {
		_, err = c.db.ExecContext(ctx, "DELETE FROM model_cache WHERE provider = ?", provider)
	}
	if err != nil {
		return fmt.Errorf("failed to clear model cache: %w", err)
	}
	return nil
}

type cachedCatalog struct {
	catalog  llm.ModelCatalog
	cachedAt time.Time
}

// MemoryModelCache implements llm.ModelCache in process memory.
type MemoryModelCache struct {
	mu      sync.RWMutex
	entries map[string]cachedCatalog
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryModelCache creates an empty cache. A non-positive ttl uses DefaultModelCacheTTL.
func NewMemoryModelCache(ttl time.Duration) *MemoryModelCache {
	if ttl <= 0 {
		ttl = DefaultModelCacheTTL
	}
	return &MemoryModelCache{entries: make(map[string]cachedCatalog), ttl: ttl, now: time.Now}
}

// Get returns the cached catalog if it is younger than the TTL.
func (c *MemoryModelCache) Get(_ context.Context, provider string) (llm.ModelCatalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[provider]
	if !ok || c.now().Sub(entry.cachedAt) >= c.ttl {
		return llm.ModelCatalog{}, false
	}
	catalog := entry.catalog
	catalog.Models = append([]llm.ModelInfo(nil), entry.catalog.Models...)
	catalog.CacheTimestamp = entry.cachedAt
	return catalog, true
}

// Store replaces the provider's cached catalog.
func (c *MemoryModelCache) Store(_ context.Context, catalog llm.ModelCatalog) error {
	if catalog.Provider == "" {
		return errors.New("catalog has no provider")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	catalog.Models = append([]llm.ModelInfo(nil), catalog.Models...)
	c.entries[catalog.Provider] = cachedCatalog{catalog: catalog, cachedAt: c.now()}
	return nil
}

// Clear removes one provider's entry, or all entries when provider is empty.
func (c *MemoryModelCache) Clear(_ context.Context, provider string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if provider == "" {
		c.entries = make(map[string]cachedCatalog)
		return nil
	}
	delete(c.entries, provider)
	return nil
}

var (
	_ llm.ModelCache = (*SqliteModelCache)(nil)
	_ llm.ModelCache = (*MemoryModelCache)(nil)
)
