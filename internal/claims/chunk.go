package claims

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

// ClaimedChunk is the claim state of one chunk. An unclaimed chunk has no
// owner and never a town.
type ClaimedChunk struct {
	key     ChunkKey
	session *Session

	mu    sync.RWMutex
	owner uuid.NullUUID
	town  uuid.NullUUID
}

func newChunk(s *Session, key ChunkKey) *ClaimedChunk {
	return &ClaimedChunk{key: key, session: s}
}

func (c *ClaimedChunk) Key() ChunkKey {
	return c.key
}

func (c *ClaimedChunk) BlockOrigin() BlockPos {
	return c.key.BlockOrigin()
}

func (c *ClaimedChunk) Owner() uuid.NullUUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Town is the stored town id. It performs no lookups; see ReconcileTown.
func (c *ClaimedChunk) Town() uuid.NullUUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.town
}

func (c *ClaimedChunk) IsClaimed() bool {
	return c.Owner().Valid
}

// SetOwner changes the owning player. Clearing the owner also clears the
// town. The new owner is loaded into the claimant cache.
func (c *ClaimedChunk) SetOwner(ctx context.Context, player uuid.NullUUID) {
	c.mu.Lock()
	c.owner = player
	if !player.Valid {
		c.town = uuid.NullUUID{}
	}
	c.mu.Unlock()

	if player.Valid {
		c.warm(ctx, player.UUID, KindPlayer)
	}
}

// SetTownOwner changes the owning town. A town on an unowned chunk is an
// invariant violation: strict sessions report it, others clear the town.
func (c *ClaimedChunk) SetTownOwner(ctx context.Context, town uuid.NullUUID) error {
	c.mu.Lock()
	if town.Valid && !c.owner.Valid {
		c.town = uuid.NullUUID{}
		c.mu.Unlock()
		if c.session.opts.Strict {
			return errors.New(errors.ErrCodeInvariantViolation, "town set on unowned chunk "+c.key.String())
		}
		logger.Warn("Dropped town on unowned chunk", "chunk", c.key.String(), "town", town.UUID.String())
		return nil
	}
	c.town = town
	c.mu.Unlock()

	if town.Valid {
		c.warm(ctx, town.UUID, KindTown)
	}
	return nil
}

func (c *ClaimedChunk) warm(ctx context.Context, id uuid.UUID, kind ClaimantKind) {
	if _, err := c.session.claimants.Get(ctx, id, kind); err != nil {
		logger.Warn("Failed to warm claimant cache", "chunk", c.key.String(), "claimant", id.String(), "kind", string(kind), "error", err)
	}
}

// restore sets stored ownership without warming caches.
func (c *ClaimedChunk) restore(owner ChunkOwner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner.Player
	c.town = uuid.NullUUID{}
	if owner.Player.Valid {
		c.town = owner.Town
	}
}

// EffectiveTown returns the town the chunk belongs to without recording
// anything on the chunk.
func (c *ClaimedChunk) EffectiveTown(ctx context.Context) (*Claimant, error) {
	owner, town := c.Owner(), c.Town()
	res, err := reconcileTown(ctx, owner, town, c.session.claimants)
	if err != nil {
		return nil, err
	}
	return res.town, nil
}

// ReconcileTown resolves the chunk's town like EffectiveTown and then
// records the outcome: a town id that no longer resolves is cleared, and a
// chunk whose owner owns their own town is adopted by that town.
func (c *ClaimedChunk) ReconcileTown(ctx context.Context) (*Claimant, error) {
	owner, town := c.Owner(), c.Town()
	res, err := reconcileTown(ctx, owner, town, c.session.claimants)
	if err != nil {
		return nil, err
	}
	if res.rewrite {
		c.mu.Lock()
		// Skip the write-back if the chunk changed hands meanwhile.
		if c.owner == owner && c.town == town {
			c.town = res.next
		}
		c.mu.Unlock()
	}
	return res.town, nil
}

type townLookup interface {
	Player(ctx context.Context, id uuid.UUID) (*Claimant, error)
	Town(ctx context.Context, id uuid.UUID) (*Claimant, error)
}

type townReconciliation struct {
	town    *Claimant
	rewrite bool
	next    uuid.NullUUID
}

// reconcileTown derives the effective town from the stored ids alone. It
// never mutates; rewrite/next describe the single write-back, if any.
func reconcileTown(ctx context.Context, owner, town uuid.NullUUID, lookup townLookup) (townReconciliation, error) {
	if !owner.Valid {
		return townReconciliation{rewrite: town.Valid}, nil
	}

	if town.Valid {
		t, err := lookup.Town(ctx, town.UUID)
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return townReconciliation{rewrite: true}, nil
		}
		if err != nil {
			return townReconciliation{}, err
		}
		return townReconciliation{town: t}, nil
	}

	player, err := lookup.Player(ctx, owner.UUID)
	if err != nil {
		return townReconciliation{}, err
	}
	membership := player.Town()
	if !membership.Valid {
		return townReconciliation{}, nil
	}

	t, err := lookup.Town(ctx, membership.UUID)
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		return townReconciliation{}, nil
	}
	if err != nil {
		return townReconciliation{}, err
	}

	res := townReconciliation{town: t}
	if o := t.Owner(); o.Valid && o.UUID == owner.UUID {
		res.rewrite = true
		res.next = membership
	}
	return res, nil
}

// CanPerform reports whether actor may do p inside this chunk. Owners and
// the owning town's owner always may; everyone else needs the owner's
// required rank. Any failure to resolve the owner denies.
func (c *ClaimedChunk) CanPerform(ctx context.Context, actor uuid.UUID, p Permission) bool {
	owner := c.Owner()
	if !owner.Valid || owner.UUID == actor {
		return true
	}

	town, err := c.ReconcileTown(ctx)
	if err != nil {
		logger.Warn("Failed to resolve chunk town", "chunk", c.key.String(), "error", err)
	} else if town != nil {
		if o := town.Owner(); o.Valid && o.UUID == actor {
			return true
		}
	}

	claimant, err := c.session.claimants.Player(ctx, owner.UUID)
	if err != nil {
		logger.Warn("Denied action, chunk owner unresolved", "chunk", c.key.String(), "owner", owner.UUID.String(), "error", err)
		return false
	}
	return CanPerform(claimant.RankRequirement(p), claimant.FriendRank(actor))
}

// IsSettingEnabled uses the wilderness default outside claims and the
// owner's value inside them.
func (c *ClaimedChunk) IsSettingEnabled(ctx context.Context, s Setting) bool {
	owner := c.Owner()
	if !owner.Valid {
		return c.session.opts.Defaults.Wilderness(s)
	}
	claimant, err := c.session.claimants.Player(ctx, owner.UUID)
	if err != nil {
		logger.Warn("Chunk owner unresolved, using wilderness setting", "chunk", c.key.String(), "setting", string(s), "error", err)
		return c.session.opts.Defaults.Wilderness(s)
	}
	return claimant.Setting(s)
}

func (c *ClaimedChunk) OwnerName(ctx context.Context) string {
	owner := c.Owner()
	if !owner.Valid {
		return c.session.opts.WildernessName
	}
	claimant, err := c.session.claimants.Player(ctx, owner.UUID)
	if err != nil {
		logger.Warn("Chunk owner unresolved, using wilderness name", "chunk", c.key.String(), "error", err)
		return c.session.opts.WildernessName
	}
	return claimant.Name()
}
