// Package prefix provides a radix-tree index for prefix lookups, used for
// shell completion of provider and collection names.
package prefix

import (
	"github.com/armon/go-radix"
)

// Index maps string keys to values and answers prefix queries.
// It is not safe for concurrent mutation.
type Index[V any] struct {
	tree *radix.Tree
}

// New returns an empty index.
func New[V any]() *Index[V] {
	return &Index[V]{tree: radix.New()}
}

// FromKeys indexes keys, each mapped to itself.
func FromKeys(keys ...string) *Index[string] {
	idx := New[string]()
	for _, k := range keys {
		idx.Insert(k, k)
	}
	return idx
}

// Insert adds or replaces key.
func (i *Index[V]) Insert(key string, value V) {
	i.tree.Insert(key, value)
}

// Get returns the value stored under key.
func (i *Index[V]) Get(key string) (V, bool) {
	val, found := i.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Complete returns the keys starting with p in lexical order.
func (i *Index[V]) Complete(p string) []string {
	var keys []string
	i.tree.WalkPrefix(p, func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

// Resolve returns the value of key, or of the only key starting with it.
// Ambiguous or unknown prefixes report false.
func (i *Index[V]) Resolve(p string) (V, bool) {
	if v, ok := i.Get(p); ok {
		return v, true
	}
	keys := i.Complete(p)
	if len(keys) != 1 {
		var zero V
		return zero, false
	}
	return i.Get(keys[0])
}

// Len is the number of keys.
func (i *Index[V]) Len() int {
	return i.tree.Len()
}
