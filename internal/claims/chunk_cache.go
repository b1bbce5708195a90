package claims

import (
	"context"
	"sync"

	"github.com/mroshb/chunkclaim/pkg/errors"
)

var errLoadAborted = errors.New(errors.ErrCodeInternalError, "chunk load aborted")

type chunkEntry struct {
	ready chan struct{}
	chunk *ClaimedChunk
	err   error
}

// ChunkCache maps chunk keys to loaded chunks. The first caller for a key
// runs the load; later callers wait for it. Evict may race an in-flight
// load: the load still completes for its waiters but is not kept.
type ChunkCache struct {
	mu      sync.Mutex
	entries map[ChunkKey]*chunkEntry
}

func NewChunkCache() *ChunkCache {
	return &ChunkCache{entries: make(map[ChunkKey]*chunkEntry)}
}

type chunkLoader func(ctx context.Context) (*ClaimedChunk, error)

func (c *ChunkCache) Load(ctx context.Context, key ChunkKey, load chunkLoader) (*ClaimedChunk, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.ready:
			return e.chunk, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &chunkEntry{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	defer close(e.ready)
	// A failed or panicking load must not stay cached.
	e.err = errLoadAborted
	defer func() {
		if e.err != nil {
			c.mu.Lock()
			if c.entries[key] == e {
				delete(c.entries, key)
			}
			c.mu.Unlock()
		}
	}()

	// Waiters share this load, so one caller giving up must not fail it for
	// the rest. The gateway timeout still bounds it.
	e.chunk, e.err = load(context.WithoutCancel(ctx))
	return e.chunk, e.err
}

// Peek returns a chunk whose load has completed successfully.
func (c *ChunkCache) Peek(key ChunkKey) (*ClaimedChunk, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
		return e.chunk, e.err == nil
	default:
		return nil, false
	}
}

func (c *ChunkCache) Evict(key ChunkKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

func (c *ChunkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ChunkCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[ChunkKey]*chunkEntry)
	c.mu.Unlock()
}
