package claims

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/security"
	"github.com/mroshb/chunkclaim/pkg/errors"
)

// Claimant is a player or town that can own chunks. Reads never fail;
// mutators write through to the gateway and keep the previous state when
// the write fails.
type Claimant struct {
	id       uuid.UUID
	gw       Gateway
	defaults Defaults

	mu     sync.RWMutex
	fields ClaimantFields
}

func newClaimant(id uuid.UUID, kind ClaimantKind, fields ClaimantFields, gw Gateway, defaults Defaults) *Claimant {
	fields = fields.clone()
	fields.Kind = kind
	return &Claimant{id: id, gw: gw, defaults: defaults, fields: fields}
}

func (c *Claimant) ID() uuid.UUID {
	return c.id
}

func (c *Claimant) Kind() ClaimantKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.Kind
}

// Name falls back to the id for claimants that never set one.
func (c *Claimant) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fields.Name == "" {
		return c.id.String()
	}
	return c.fields.Name
}

// Town is the town a player belongs to.
func (c *Claimant) Town() uuid.NullUUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.Town
}

// Owner is the player owning a town.
func (c *Claimant) Owner() uuid.NullUUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.Owner
}

func (c *Claimant) FriendRank(player uuid.UUID) Rank {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.fields.Friends[player]; ok {
		return r
	}
	return StrangerRank
}

func (c *Claimant) Friends() map[uuid.UUID]Rank {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.clone().Friends
}

func (c *Claimant) RankRequirement(p Permission) Rank {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.fields.Ranks[p]; ok {
		return r
	}
	return c.defaults.RankRequirement(p)
}

func (c *Claimant) Setting(s Setting) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.fields.Settings[s]; ok {
		return v
	}
	return c.defaults.ClaimSetting(s)
}

// Fields returns a copy of the stored state.
func (c *Claimant) Fields() ClaimantFields {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fields.clone()
}

func (c *Claimant) Rename(ctx context.Context, name string) error {
	clean := security.SanitizeName(name)
	if clean == "" {
		return errors.New(errors.ErrCodeValidationFailed, "name must not be empty")
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Name = clean
	})
}

func (c *Claimant) SetFriendRank(ctx context.Context, player uuid.UUID, rank Rank) error {
	if !rank.Valid() {
		return errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("invalid rank %d", int(rank)))
	}
	if player == c.id {
		return errors.New(errors.ErrCodeValidationFailed, "claimant cannot rank itself")
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Friends[player] = rank
	})
}

func (c *Claimant) RemoveFriend(ctx context.Context, player uuid.UUID) error {
	return c.mutate(ctx, func(f *ClaimantFields) {
		delete(f.Friends, player)
	})
}

func (c *Claimant) SetRankRequirement(ctx context.Context, p Permission, rank Rank) error {
	if !p.Valid() {
		return errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("unknown permission %q", p))
	}
	if !rank.Valid() {
		return errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("invalid rank %d", int(rank)))
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Ranks[p] = rank
	})
}

func (c *Claimant) SetSetting(ctx context.Context, s Setting, enabled bool) error {
	if !s.Valid() {
		return errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("unknown setting %q", s))
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Settings[s] = enabled
	})
}

// SetTown records a player's town membership.
func (c *Claimant) SetTown(ctx context.Context, town uuid.NullUUID) error {
	if c.Kind() != KindPlayer {
		return errors.New(errors.ErrCodeValidationFailed, "only players join towns")
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Town = town
	})
}

// SetOwner transfers a town to another player.
func (c *Claimant) SetOwner(ctx context.Context, owner uuid.UUID) error {
	if c.Kind() != KindTown {
		return errors.New(errors.ErrCodeValidationFailed, "only towns have owners")
	}
	return c.mutate(ctx, func(f *ClaimantFields) {
		f.Owner = uuid.NullUUID{UUID: owner, Valid: true}
	})
}

// mutate holds the write lock across the gateway call so concurrent
// mutations of one claimant are applied in order.
func (c *Claimant) mutate(ctx context.Context, apply func(f *ClaimantFields)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.fields.clone()
	apply(&c.fields)

	if err := c.gw.UpsertClaimant(ctx, c.id, c.fields.clone()); err != nil {
		c.fields = prev
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to save claimant")
	}
	return nil
}
