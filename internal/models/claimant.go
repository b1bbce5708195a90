package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Claimant struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Kind      string        `gorm:"type:varchar(10);not null;index"`
	Name      string        `gorm:"type:varchar(64);not null;default:''"`
	TownID    uuid.NullUUID `gorm:"type:uuid;index"` // player: town membership
	OwnerID   uuid.NullUUID `gorm:"type:uuid;index"` // town: owning player
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
}

// Claimant kind constants
const (
	ClaimantKindPlayer = "player"
	ClaimantKindTown   = "town"
)

// BeforeSave hook for validation
func (c *Claimant) BeforeSave(tx *gorm.DB) error {
	switch c.Kind {
	case ClaimantKindPlayer:
		if c.OwnerID.Valid {
			return gorm.ErrInvalidData
		}
	case ClaimantKindTown:
		if !c.OwnerID.Valid || c.TownID.Valid {
			return gorm.ErrInvalidData
		}
	default:
		return gorm.ErrInvalidData
	}
	if c.ID == uuid.Nil {
		return gorm.ErrInvalidData
	}
	return nil
}

func (Claimant) TableName() string {
	return "claimants"
}

// ClaimantRank is the minimum rank a claimant requires for one permission.
type ClaimantRank struct {
	ClaimantID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Permission   string    `gorm:"type:varchar(20);primaryKey"`
	RequiredRank string    `gorm:"type:varchar(20);not null"`
}

func (ClaimantRank) TableName() string {
	return "claimant_ranks"
}

// ClaimantFriend is the rank a claimant grants to another player.
type ClaimantFriend struct {
	ClaimantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	FriendID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	FriendRank string    `gorm:"type:varchar(20);not null"`
}

func (ClaimantFriend) TableName() string {
	return "claimant_friends"
}

type ClaimantSetting struct {
	ClaimantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Setting    string    `gorm:"type:varchar(30);primaryKey"`
	Enabled    bool      `gorm:"not null"`
}

func (ClaimantSetting) TableName() string {
	return "claimant_settings"
}
