package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/middleware"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

// ClaimService is the surface the game engine talks to.
type ClaimService struct {
	session *claims.Session
	limiter *middleware.RateLimiter

	// serializes claim/unclaim so two players cannot take the same chunk
	mu sync.Mutex
}

func NewClaimService(session *claims.Session, limiter *middleware.RateLimiter) *ClaimService {
	return &ClaimService{
		session: session,
		limiter: limiter,
	}
}

// OnChunkUnload drops the chunk from the cache.
func (s *ClaimService) OnChunkUnload(world, x, z int) {
	s.session.Evict(claims.ChunkKey{World: world, X: x, Z: z})
}

// OnPlayerAction reports whether actor may perform p in the given chunk.
func (s *ClaimService) OnPlayerAction(ctx context.Context, actor uuid.UUID, world, x, z int, p claims.Permission) bool {
	if !s.session.Enabled() {
		return true
	}
	return s.session.Lookup(ctx, claims.ChunkKey{World: world, X: x, Z: z}).CanPerform(ctx, actor, p)
}

// IsSettingEnabled reports a setting for the chunk, falling back to the
// wilderness default when the claim is unknown.
func (s *ClaimService) IsSettingEnabled(ctx context.Context, world, x, z int, setting claims.Setting) bool {
	return s.session.Lookup(ctx, claims.ChunkKey{World: world, X: x, Z: z}).IsSettingEnabled(ctx, setting)
}

func (s *ClaimService) OwnerName(ctx context.Context, key claims.ChunkKey) string {
	return s.session.Lookup(ctx, key).OwnerName(ctx)
}

func (s *ClaimService) IsOwnedAround(ctx context.Context, world int, pos claims.BlockPos, radius int) bool {
	return s.session.IsOwnedAround(ctx, world, pos, radius)
}

func (s *ClaimService) FindClaimsNear(ctx context.Context, world int, pos claims.BlockPos, radius int) ([]*claims.ClaimedChunk, error) {
	if !s.session.Enabled() {
		return nil, errors.New(errors.ErrCodeClaimsDisabled, "claims are disabled")
	}
	return s.session.FindClaimsNear(ctx, world, pos, radius)
}

// ClaimChunk gives an unclaimed chunk to actor. When actor owns their town
// the chunk joins it straight away.
func (s *ClaimService) ClaimChunk(ctx context.Context, actor uuid.UUID, key claims.ChunkKey) (*claims.ClaimedChunk, error) {
	if !s.session.Enabled() {
		return nil, errors.New(errors.ErrCodeClaimsDisabled, "claims are disabled")
	}
	if s.limiter != nil && !s.limiter.Allow(actor) {
		return nil, errors.New(errors.ErrCodeRateLimitExceeded, "too many claims, try again later")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, err := s.session.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if chunk.IsClaimed() {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "chunk "+key.String()+" is already claimed")
	}

	town := s.ownedTown(ctx, actor)
	owner := claims.ChunkOwner{
		Player: uuid.NullUUID{UUID: actor, Valid: true},
		Town:   town,
	}
	if err := s.session.Gateway().SaveChunkOwner(ctx, key, owner); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to save claim")
	}

	chunk.SetOwner(ctx, owner.Player)
	if err := chunk.SetTownOwner(ctx, town); err != nil {
		return nil, err
	}

	logger.Info("Chunk claimed", "chunk", key.String(), "player", actor.String(), "town", town.UUID.String(), "in_town", town.Valid)
	return chunk, nil
}

// ownedTown is the actor's town when the actor owns it.
func (s *ClaimService) ownedTown(ctx context.Context, actor uuid.UUID) uuid.NullUUID {
	player, err := s.session.Claimants().Player(ctx, actor)
	if err != nil {
		logger.Warn("Claiming without town, player unresolved", "player", actor.String(), "error", err)
		return uuid.NullUUID{}
	}
	membership := player.Town()
	if !membership.Valid {
		return uuid.NullUUID{}
	}
	town, err := s.session.Claimants().Town(ctx, membership.UUID)
	if err != nil {
		return uuid.NullUUID{}
	}
	if o := town.Owner(); o.Valid && o.UUID == actor {
		return membership
	}
	return uuid.NullUUID{}
}

// UnclaimChunk releases a chunk. Only its owner or the owner of its town may.
func (s *ClaimService) UnclaimChunk(ctx context.Context, actor uuid.UUID, key claims.ChunkKey) error {
	if !s.session.Enabled() {
		return errors.New(errors.ErrCodeClaimsDisabled, "claims are disabled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, err := s.session.Resolve(ctx, key)
	if err != nil {
		return err
	}
	owner := chunk.Owner()
	if !owner.Valid {
		return errors.New(errors.ErrCodeNotFound, "chunk "+key.String()+" is not claimed")
	}

	if owner.UUID != actor {
		town, err := chunk.EffectiveTown(ctx)
		if err != nil {
			return err
		}
		if town == nil || !town.Owner().Valid || town.Owner().UUID != actor {
			return errors.New(errors.ErrCodeForbidden, "only the owner can unclaim this chunk")
		}
	}

	if err := s.session.Gateway().DeleteChunkOwner(ctx, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete claim")
	}
	chunk.SetOwner(ctx, uuid.NullUUID{})

	logger.Info("Chunk unclaimed", "chunk", key.String(), "player", actor.String())
	return nil
}
