package repositories

import (
	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/models"
	"github.com/mroshb/chunkclaim/pkg/logger"
)

// claimantRows is the relational form of one claimant.
type claimantRows struct {
	claimant models.Claimant
	ranks    []models.ClaimantRank
	friends  []models.ClaimantFriend
	settings []models.ClaimantSetting
}

func toRows(id uuid.UUID, f claims.ClaimantFields) claimantRows {
	rows := claimantRows{
		claimant: models.Claimant{
			ID:   id,
			Kind: string(f.Kind),
			Name: f.Name,
		},
	}
	switch f.Kind {
	case claims.KindPlayer:
		rows.claimant.TownID = f.Town
	case claims.KindTown:
		rows.claimant.OwnerID = f.Owner
	}

	for perm, rank := range f.Ranks {
		rows.ranks = append(rows.ranks, models.ClaimantRank{
			ClaimantID:   id,
			Permission:   string(perm),
			RequiredRank: rank.String(),
		})
	}
	for friend, rank := range f.Friends {
		rows.friends = append(rows.friends, models.ClaimantFriend{
			ClaimantID: id,
			FriendID:   friend,
			FriendRank: rank.String(),
		})
	}
	for setting, enabled := range f.Settings {
		rows.settings = append(rows.settings, models.ClaimantSetting{
			ClaimantID: id,
			Setting:    string(setting),
			Enabled:    enabled,
		})
	}
	return rows
}

// fromRows rebuilds claimant fields, skipping rows that name unknown
// permissions, settings or ranks.
func fromRows(rows claimantRows) claims.ClaimantFields {
	f := claims.ClaimantFields{
		Kind:     claims.ClaimantKind(rows.claimant.Kind),
		Name:     rows.claimant.Name,
		Town:     rows.claimant.TownID,
		Owner:    rows.claimant.OwnerID,
		Ranks:    make(map[claims.Permission]claims.Rank, len(rows.ranks)),
		Friends:  make(map[uuid.UUID]claims.Rank, len(rows.friends)),
		Settings: make(map[claims.Setting]bool, len(rows.settings)),
	}

	for _, r := range rows.ranks {
		perm := claims.Permission(r.Permission)
		rank, err := claims.ParseRank(r.RequiredRank)
		if !perm.Valid() || err != nil {
			logger.Warn("Skipping stored rank requirement", "claimant", rows.claimant.ID, "permission", r.Permission, "rank", r.RequiredRank)
			continue
		}
		f.Ranks[perm] = rank
	}
	for _, r := range rows.friends {
		rank, err := claims.ParseRank(r.FriendRank)
		if err != nil {
			logger.Warn("Skipping stored friend rank", "claimant", rows.claimant.ID, "friend", r.FriendID, "rank", r.FriendRank)
			continue
		}
		f.Friends[r.FriendID] = rank
	}
	for _, s := range rows.settings {
		setting := claims.Setting(s.Setting)
		if !setting.Valid() {
			logger.Warn("Skipping stored setting", "claimant", rows.claimant.ID, "setting", s.Setting)
			continue
		}
		f.Settings[setting] = s.Enabled
	}
	return f
}

func toChunkOwner(row models.ChunkClaim) claims.ChunkOwner {
	return claims.ChunkOwner{
		Player: uuid.NullUUID{UUID: row.Owner, Valid: true},
		Town:   row.Town,
	}
}
