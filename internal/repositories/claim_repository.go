package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/models"
	"github.com/mroshb/chunkclaim/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRepository is the Postgres claims.Gateway.
type ClaimRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewClaimRepository(db *gorm.DB, timeout time.Duration) *ClaimRepository {
	return &ClaimRepository{db: db, timeout: timeout}
}

func (r *ClaimRepository) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if r.timeout <= 0 {
		return r.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

// QueryChunkOwner retrieves the owner of one chunk
func (r *ClaimRepository) QueryChunkOwner(ctx context.Context, key claims.ChunkKey) (claims.ChunkOwner, bool, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var row models.ChunkClaim
	result := db.Where("chunk_world = ? AND chunk_x = ? AND chunk_z = ?", key.World, key.X, key.Z).First(&row)
	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return claims.ChunkOwner{}, false, nil
	}
	if result.Error != nil {
		return claims.ChunkOwner{}, false, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to query chunk owner")
	}
	return toChunkOwner(row), true, nil
}

// QueryChunksInBox lists owned chunks inside the inclusive ranges
func (r *ClaimRepository) QueryChunksInBox(ctx context.Context, world int, xRange, zRange claims.Span) ([]claims.ChunkRecord, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var rows []models.ChunkClaim
	result := db.
		Where("chunk_world = ?", world).
		Where("chunk_x BETWEEN ? AND ?", xRange.Min, xRange.Max).
		Where("chunk_z BETWEEN ? AND ?", zRange.Min, zRange.Max).
		Order("chunk_x ASC, chunk_z ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to query chunks in box")
	}

	records := make([]claims.ChunkRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, claims.ChunkRecord{
			Key:   claims.ChunkKey{World: row.World, X: row.X, Z: row.Z},
			Owner: toChunkOwner(row),
		})
	}
	return records, nil
}

// SaveChunkOwner inserts or replaces a claim. An absent player deletes it.
func (r *ClaimRepository) SaveChunkOwner(ctx context.Context, key claims.ChunkKey, owner claims.ChunkOwner) error {
	if !owner.Player.Valid {
		return r.DeleteChunkOwner(ctx, key)
	}

	db, cancel := r.withTimeout(ctx)
	defer cancel()

	row := models.ChunkClaim{
		World: key.World,
		X:     key.X,
		Z:     key.Z,
		Owner: owner.Player.UUID,
		Town:  owner.Town,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_world"}, {Name: "chunk_x"}, {Name: "chunk_z"}},
		DoUpdates: clause.AssignmentColumns([]string{"chunk_owner", "chunk_town"}),
	}).Create(&row)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to save chunk owner")
	}
	return nil
}

func (r *ClaimRepository) DeleteChunkOwner(ctx context.Context, key claims.ChunkKey) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	result := db.Where("chunk_world = ? AND chunk_x = ? AND chunk_z = ?", key.World, key.X, key.Z).Delete(&models.ChunkClaim{})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to delete chunk owner")
	}
	return nil
}

// QueryClaimant loads a claimant with its ranks, friends and settings
func (r *ClaimRepository) QueryClaimant(ctx context.Context, id uuid.UUID) (claims.ClaimantFields, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var rows claimantRows
	result := db.Where("id = ?", id).First(&rows.claimant)
	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return claims.ClaimantFields{}, errors.New(errors.ErrCodeNotFound, "claimant not found")
	}
	if result.Error != nil {
		return claims.ClaimantFields{}, errors.Wrap(result.Error, errors.ErrCodeStorage, "failed to query claimant")
	}

	if err := db.Where("claimant_id = ?", id).Find(&rows.ranks).Error; err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant ranks")
	}
	if err := db.Where("claimant_id = ?", id).Find(&rows.friends).Error; err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant friends")
	}
	if err := db.Where("claimant_id = ?", id).Find(&rows.settings).Error; err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant settings")
	}

	return fromRows(rows), nil
}

// UpsertClaimant replaces the stored claimant in one transaction
func (r *ClaimRepository) UpsertClaimant(ctx context.Context, id uuid.UUID, fields claims.ClaimantFields) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	rows := toRows(id, fields)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "name", "town_id", "owner_id", "updated_at"}),
		}).Create(&rows.claimant).Error; err != nil {
			return err
		}

		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantRank{}).Error; err != nil {
			return err
		}
		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantFriend{}).Error; err != nil {
			return err
		}
		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantSetting{}).Error; err != nil {
			return err
		}

		if len(rows.ranks) > 0 {
			if err := tx.Create(&rows.ranks).Error; err != nil {
				return err
			}
		}
		if len(rows.friends) > 0 {
			if err := tx.Create(&rows.friends).Error; err != nil {
				return err
			}
		}
		if len(rows.settings) > 0 {
			if err := tx.Create(&rows.settings).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to upsert claimant")
	}
	return nil
}

// DeleteClaimant removes a claimant, its child rows and any chunk references
// to it as a town
func (r *ClaimRepository) DeleteClaimant(ctx context.Context, id uuid.UUID) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE chunk_claimed SET chunk_town = NULL WHERE chunk_town = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantRank{}).Error; err != nil {
			return err
		}
		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantFriend{}).Error; err != nil {
			return err
		}
		if err := tx.Where("claimant_id = ?", id).Delete(&models.ClaimantSetting{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Claimant{}).Error
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete claimant")
	}
	return nil
}
