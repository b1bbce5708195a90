package claims

import (
	"context"
	"fmt"

	"github.com/mroshb/chunkclaim/pkg/errors"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

type Options struct {
	// Enabled false makes every chunk resolve as unclaimed.
	Enabled        bool
	WildernessName string
	Defaults       Defaults
	// Strict reports invariant violations as errors instead of repairing them.
	Strict bool
}

// Session owns the caches for one server run. Create one per server start
// and drop it on shutdown.
type Session struct {
	gw        Gateway
	opts      Options
	chunks    *ChunkCache
	claimants *ClaimantCache
}

func NewSession(gw Gateway, opts Options) *Session {
	if opts.WildernessName == "" {
		opts.WildernessName = "Wilderness"
	}
	return &Session{
		gw:        gw,
		opts:      opts,
		chunks:    NewChunkCache(),
		claimants: NewClaimantCache(gw, opts.Defaults),
	}
}

func (s *Session) Enabled() bool {
	return s.opts.Enabled
}

func (s *Session) WildernessName() string {
	return s.opts.WildernessName
}

func (s *Session) Gateway() Gateway {
	return s.gw
}

func (s *Session) Chunks() *ChunkCache {
	return s.chunks
}

func (s *Session) Claimants() *ClaimantCache {
	return s.claimants
}

// Resolve returns the cached chunk for key, loading it from storage on the
// first access. Storage failures carry the STORAGE_ERROR code.
func (s *Session) Resolve(ctx context.Context, key ChunkKey) (*ClaimedChunk, error) {
	return s.chunks.Load(ctx, key, func(ctx context.Context) (*ClaimedChunk, error) {
		return s.loadChunk(ctx, key)
	})
}

// Lookup is Resolve for callers that cannot handle errors: when claims are
// disabled or storage fails it returns an uncached, unclaimed chunk.
func (s *Session) Lookup(ctx context.Context, key ChunkKey) *ClaimedChunk {
	if !s.opts.Enabled {
		return newChunk(s, key)
	}
	c, err := s.Resolve(ctx, key)
	if err != nil {
		logger.Error("Failed to resolve chunk claim, treating as unclaimed", "chunk", key.String(), "error", err)
		return newChunk(s, key)
	}
	return c
}

// Evict drops key from the chunk cache. Called when the engine unloads the
// chunk.
func (s *Session) Evict(key ChunkKey) bool {
	return s.chunks.Evict(key)
}

func (s *Session) loadChunk(ctx context.Context, key ChunkKey) (*ClaimedChunk, error) {
	owner, found, err := s.gw.QueryChunkOwner(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to query owner of chunk "+key.String())
	}

	c := newChunk(s, key)
	if !found {
		return c, nil
	}
	c.SetOwner(ctx, owner.Player)
	if owner.Town.Valid {
		if err := c.SetTownOwner(ctx, owner.Town); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FindClaimsNear returns the owned chunks in the square of side 2*radius+1
// centred on the chunk containing pos. Chunks already cached are returned
// as-is; the rest are detached copies that the cache does not track.
func (s *Session) FindClaimsNear(ctx context.Context, world int, pos BlockPos, radius int) ([]*ClaimedChunk, error) {
	if radius < 0 {
		return nil, errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("radius must not be negative, got %d", radius))
	}
	center := ChunkOf(world, pos)
	xs := SpanAround(center.X, radius)
	zs := SpanAround(center.Z, radius)

	records, err := s.gw.QueryChunksInBox(ctx, world, xs, zs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claims near "+center.String())
	}

	out := make([]*ClaimedChunk, 0, len(records))
	for _, rec := range records {
		if rec.Key.World != world || !xs.Contains(rec.Key.X) || !zs.Contains(rec.Key.Z) {
			continue
		}
		if cached, ok := s.chunks.Peek(rec.Key); ok {
			if cached.IsClaimed() {
				out = append(out, cached)
			}
			continue
		}
		if !rec.Owner.Player.Valid {
			continue
		}
		c := newChunk(s, rec.Key)
		c.restore(rec.Owner)
		out = append(out, c)
	}
	return out, nil
}

// IsOwnedAround reports whether any chunk within radius of pos is claimed.
// Storage failures are logged and reported as false.
func (s *Session) IsOwnedAround(ctx context.Context, world int, pos BlockPos, radius int) bool {
	if !s.opts.Enabled {
		return false
	}
	found, err := s.FindClaimsNear(ctx, world, pos, radius)
	if err != nil {
		logger.Error("Failed to scan nearby claims", "world", world, "x", pos.X, "z", pos.Z, "radius", radius, "error", err)
		return false
	}
	return len(found) > 0
}

// Reset empties both caches.
func (s *Session) Reset() {
	s.chunks.Clear()
	s.claimants.Clear()
}
