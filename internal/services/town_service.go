package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/security"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

// MemberRank is the friend rank a town grants on joining.
const MemberRank = claims.RankFriend

type TownService struct {
	claimants *claims.ClaimantCache

	// held across each membership check and its writes
	mu sync.Mutex
}

func NewTownService(session *claims.Session) *TownService {
	return &TownService{claimants: session.Claimants()}
}

// CreateTown founds a town owned by founder. The founder must not be in a
// town already.
func (s *TownService) CreateTown(ctx context.Context, founder uuid.UUID, name string) (*claims.Claimant, error) {
	clean := security.SanitizeName(name)
	if clean == "" {
		return nil, errors.New(errors.ErrCodeValidationFailed, "town name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.claimants.Player(ctx, founder)
	if err != nil {
		return nil, err
	}
	current, err := s.currentTown(ctx, player)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "you are already in a town")
	}

	town, err := s.claimants.Create(ctx, uuid.New(), claims.ClaimantFields{
		Kind:  claims.KindTown,
		Name:  clean,
		Owner: uuid.NullUUID{UUID: founder, Valid: true},
	})
	if err != nil {
		return nil, err
	}
	if err := player.SetTown(ctx, uuid.NullUUID{UUID: town.ID(), Valid: true}); err != nil {
		return nil, err
	}

	logger.Info("Town created", "town", town.ID().String(), "name", clean, "owner", founder.String())
	return town, nil
}

// AddMember puts member into the town. The actor must own the town or hold
// at least manager rank in it.
func (s *TownService) AddMember(ctx context.Context, actor, townID, member uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	town, err := s.claimants.Town(ctx, townID)
	if err != nil {
		return err
	}
	if !s.canManage(town, actor) {
		return errors.New(errors.ErrCodeForbidden, "you cannot add members to this town")
	}
	if o := town.Owner(); o.Valid && o.UUID == member {
		return errors.New(errors.ErrCodeAlreadyExists, "player already owns this town")
	}

	player, err := s.claimants.Player(ctx, member)
	if err != nil {
		return err
	}
	current, err := s.currentTown(ctx, player)
	if err != nil {
		return err
	}
	if current != nil {
		return errors.New(errors.ErrCodeAlreadyExists, "player is already in a town")
	}

	if err := town.SetFriendRank(ctx, member, MemberRank); err != nil {
		return err
	}
	if err := player.SetTown(ctx, uuid.NullUUID{UUID: townID, Valid: true}); err != nil {
		if rbErr := town.RemoveFriend(ctx, member); rbErr != nil {
			logger.Error("Failed to roll back town membership", "town", townID.String(), "player", member.String(), "error", rbErr)
		}
		return err
	}

	logger.Info("Town member added", "town", townID.String(), "player", member.String())
	return nil
}

// LeaveTown removes player from their town. An owner may only leave once
// every member is gone, and leaving disbands the town: the record is deleted
// and its chunks fall back to their owners.
func (s *TownService) LeaveTown(ctx context.Context, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.claimants.Player(ctx, playerID)
	if err != nil {
		return err
	}
	membership := player.Town()
	if !membership.Valid {
		return errors.New(errors.ErrCodeNotFound, "you are not in a town")
	}

	town, err := s.claimants.Town(ctx, membership.UUID)
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		// the town is gone; only the membership is left to clear
	case err != nil:
		return err
	default:
		if o := town.Owner(); o.Valid && o.UUID == playerID {
			if len(town.Friends()) > 0 {
				return errors.New(errors.ErrCodeForbidden, "remove all members before leaving your town")
			}
			if err := s.claimants.Remove(ctx, town.ID()); err != nil {
				return err
			}
			logger.Info("Town disbanded", "town", town.ID().String(), "owner", playerID.String())
		} else if err := town.RemoveFriend(ctx, playerID); err != nil {
			return err
		}
	}

	if err := player.SetTown(ctx, uuid.NullUUID{}); err != nil {
		return err
	}
	logger.Info("Player left town", "town", membership.UUID.String(), "player", playerID.String())
	return nil
}

// Members lists the town's members with their ranks.
func (s *TownService) Members(ctx context.Context, townID uuid.UUID) (map[uuid.UUID]claims.Rank, error) {
	town, err := s.claimants.Town(ctx, townID)
	if err != nil {
		return nil, err
	}
	return town.Friends(), nil
}

func (s *TownService) canManage(town *claims.Claimant, actor uuid.UUID) bool {
	if o := town.Owner(); o.Valid && o.UUID == actor {
		return true
	}
	return claims.CanPerform(claims.RankManager, town.FriendRank(actor))
}

// currentTown returns the player's town, or nil if they have none or it no
// longer exists.
func (s *TownService) currentTown(ctx context.Context, player *claims.Claimant) (*claims.Claimant, error) {
	membership := player.Town()
	if !membership.Valid {
		return nil, nil
	}
	town, err := s.claimants.Town(ctx, membership.UUID)
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return town, nil
}
