package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChunkClaim is one claimed chunk. Unclaimed chunks have no row.
type ChunkClaim struct {
	World     int           `gorm:"column:chunk_world;primaryKey;autoIncrement:false"`
	X         int           `gorm:"column:chunk_x;primaryKey;autoIncrement:false"`
	Z         int           `gorm:"column:chunk_z;primaryKey;autoIncrement:false"`
	Owner     uuid.UUID     `gorm:"column:chunk_owner;type:uuid;not null;index"`
	Town      uuid.NullUUID `gorm:"column:chunk_town;type:uuid;index"`
	ClaimedAt time.Time     `gorm:"autoCreateTime"`
}

// BeforeSave rejects rows without an owner
func (c *ChunkClaim) BeforeSave(tx *gorm.DB) error {
	if c.Owner == uuid.Nil {
		return gorm.ErrInvalidData
	}
	return nil
}

func (ChunkClaim) TableName() string {
	return "chunk_claimed"
}
