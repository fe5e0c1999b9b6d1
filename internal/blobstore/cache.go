package blobstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgraph-io/ristretto"
)

// CachedStore wraps a Store with a ristretto admission-policy cache over
// fully-read blobs, replacing the teacher's hand-rolled mutex+slice LRU
// (internal/cog/tilecache.go). The cache is filled only by Open: a blob's
// bytes are cached the first time it is read through, and later Opens of
// the same name may be served from memory. Bytes written through Create
// are not cached, so the orchestrator's read-back of a shard it has just
// written (Refine's readShard call) still reads from the inner store.
type CachedStore struct {
	inner Store
	cache *ristretto.Cache
}

// NewCachedStore wraps inner with a cache sized by maxCostBytes.
func NewCachedStore(inner Store, maxCostBytes int64) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCostBytes / 100 * 10, // ~10x entries expected, ristretto's own sizing rule of thumb
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: ristretto cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// Open returns a cached copy of name's bytes if present, otherwise reads
// through to inner and admits the result.
func (c *CachedStore) Open(name string) (io.ReadCloser, error) {
	if v, ok := c.cache.Get(name); ok {
		return io.NopCloser(bytes.NewReader(v.([]byte))), nil
	}

	rc, err := c.inner.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("blobstore: reading %s for cache: %w", name, err)
	}
	c.cache.Set(name, data, int64(len(data)))
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create writes straight through to inner and invalidates any cached copy,
// so a later Open never returns the blob's previous contents; the new
// bytes are not put in the cache.
func (c *CachedStore) Create(name string) (io.WriteCloser, error) {
	c.cache.Del(name)
	return c.inner.Create(name)
}
