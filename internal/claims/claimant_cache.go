package claims

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ClaimantCache holds one Claimant per id for the lifetime of a session.
// Concurrent misses for the same id share a single gateway query.
type ClaimantCache struct {
	gw       Gateway
	defaults Defaults

	mu      sync.RWMutex
	entries map[uuid.UUID]*Claimant
	// gens is bumped by Invalidate; epoch by Clear. A load only caches its
	// result if neither moved while it ran.
	gens  map[uuid.UUID]uint64
	epoch uint64
	group singleflight.Group
}

func NewClaimantCache(gw Gateway, defaults Defaults) *ClaimantCache {
	return &ClaimantCache{
		gw:       gw,
		defaults: defaults,
		entries:  make(map[uuid.UUID]*Claimant),
		gens:     make(map[uuid.UUID]uint64),
	}
}

// Get returns the claimant for id. A player without a record is a fresh
// default player; a town without a record does not exist and yields a
// NOT_FOUND error.
func (c *ClaimantCache) Get(ctx context.Context, id uuid.UUID, kind ClaimantKind) (*Claimant, error) {
	if cl, ok := c.Peek(id); ok {
		return checkKind(cl, kind)
	}

	// The shared load runs without the caller's cancellation; each caller
	// stops waiting on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id.String(), func() (interface{}, error) {
		if cl, ok := c.Peek(id); ok {
			return cl, nil
		}
		return c.load(loadCtx, id, kind)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return checkKind(res.Val.(*Claimant), kind)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ClaimantCache) Player(ctx context.Context, id uuid.UUID) (*Claimant, error) {
	return c.Get(ctx, id, KindPlayer)
}

func (c *ClaimantCache) Town(ctx context.Context, id uuid.UUID) (*Claimant, error) {
	return c.Get(ctx, id, KindTown)
}

// Create caches a brand-new claimant and persists it.
func (c *ClaimantCache) Create(ctx context.Context, id uuid.UUID, fields ClaimantFields) (*Claimant, error) {
	if !fields.Kind.Valid() {
		return nil, errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("invalid claimant kind %q", fields.Kind))
	}
	cl := newClaimant(id, fields.Kind, fields, c.gw, c.defaults)
	if err := c.gw.UpsertClaimant(ctx, id, cl.Fields()); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to create claimant")
	}

	c.mu.Lock()
	c.entries[id] = cl
	c.mu.Unlock()
	return cl, nil
}

func (c *ClaimantCache) Peek(id uuid.UUID) (*Claimant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.entries[id]
	return cl, ok
}

// Invalidate drops the cached claimant; the next Get reloads it. A load
// already in flight for id still answers its waiters but is not cached.
func (c *ClaimantCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.gens[id]++
	c.mu.Unlock()
	c.group.Forget(id.String())
}

// Remove deletes the claimant from storage and from the cache.
func (c *ClaimantCache) Remove(ctx context.Context, id uuid.UUID) error {
	if err := c.gw.DeleteClaimant(ctx, id); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete claimant")
	}
	c.Invalidate(id)
	return nil
}

func (c *ClaimantCache) Reload(ctx context.Context, id uuid.UUID, kind ClaimantKind) (*Claimant, error) {
	c.Invalidate(id)
	return c.Get(ctx, id, kind)
}

func (c *ClaimantCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ClaimantCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[uuid.UUID]*Claimant)
	c.gens = make(map[uuid.UUID]uint64)
	c.epoch++
	c.mu.Unlock()
}

func (c *ClaimantCache) load(ctx context.Context, id uuid.UUID, kind ClaimantKind) (*Claimant, error) {
	c.mu.RLock()
	gen, epoch := c.gens[id], c.epoch
	c.mu.RUnlock()

	fields, err := c.gw.QueryClaimant(ctx, id)
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		if kind == KindTown {
			return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("town %s not found", id))
		}
		fields = ClaimantFields{}
	case err != nil:
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to load claimant")
	}

	stored := fields.Kind
	if !stored.Valid() {
		stored = kind
	}
	cl := newClaimant(id, stored, fields, c.gw, c.defaults)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] != gen || c.epoch != epoch {
		return cl, nil
	}
	if existing, ok := c.entries[id]; ok {
		return existing, nil
	}
	c.entries[id] = cl
	return cl, nil
}

func checkKind(cl *Claimant, kind ClaimantKind) (*Claimant, error) {
	if cl.Kind() != kind {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("claimant %s is a %s, not a %s", cl.ID(), cl.Kind(), kind))
	}
	return cl, nil
}
