package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/internal/claims"
	"github.com/mroshb/chunkclaim/internal/models"
	"github.com/mroshb/chunkclaim/pkg/errors"
)

var (
	_ claims.Gateway = (*ClaimRepository)(nil)
	_ claims.Gateway = (*SQLiteClaimRepository)(nil)
)

// SQLiteClaimRepository is the single-file claims.Gateway used for local
// servers and tests. The handle must come from database.OpenSQLite.
type SQLiteClaimRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLiteClaimRepository(db *sql.DB, timeout time.Duration) *SQLiteClaimRepository {
	return &SQLiteClaimRepository{db: db, timeout: timeout}
}

func (r *SQLiteClaimRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SQLiteClaimRepository) QueryChunkOwner(ctx context.Context, key claims.ChunkKey) (claims.ChunkOwner, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var row models.ChunkClaim
	err := r.db.QueryRowContext(ctx,
		`SELECT chunk_owner, chunk_town FROM chunk_claimed WHERE chunk_world = ? AND chunk_x = ? AND chunk_z = ?`,
		key.World, key.X, key.Z,
	).Scan(&row.Owner, &row.Town)
	if stderrors.Is(err, sql.ErrNoRows) {
		return claims.ChunkOwner{}, false, nil
	}
	if err != nil {
		return claims.ChunkOwner{}, false, errors.Wrap(err, errors.ErrCodeStorage, "failed to query chunk owner")
	}
	return toChunkOwner(row), true, nil
}

func (r *SQLiteClaimRepository) QueryChunksInBox(ctx context.Context, world int, xRange, zRange claims.Span) ([]claims.ChunkRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT chunk_x, chunk_z, chunk_owner, chunk_town FROM chunk_claimed
		WHERE chunk_world = ? AND chunk_x BETWEEN ? AND ? AND chunk_z BETWEEN ? AND ?
		ORDER BY chunk_x, chunk_z`,
		world, xRange.Min, xRange.Max, zRange.Min, zRange.Max,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to query chunks in box")
	}
	defer rows.Close()

	var records []claims.ChunkRecord
	for rows.Next() {
		row := models.ChunkClaim{World: world}
		if err := rows.Scan(&row.X, &row.Z, &row.Owner, &row.Town); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to scan chunk claim")
		}
		records = append(records, claims.ChunkRecord{
			Key:   claims.ChunkKey{World: world, X: row.X, Z: row.Z},
			Owner: toChunkOwner(row),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to query chunks in box")
	}
	return records, nil
}

func (r *SQLiteClaimRepository) SaveChunkOwner(ctx context.Context, key claims.ChunkKey, owner claims.ChunkOwner) error {
	if !owner.Player.Valid {
		return r.DeleteChunkOwner(ctx, key)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunk_claimed (chunk_world, chunk_x, chunk_z, chunk_owner, chunk_town)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chunk_world, chunk_x, chunk_z)
		DO UPDATE SET chunk_owner = excluded.chunk_owner, chunk_town = excluded.chunk_town`,
		key.World, key.X, key.Z, owner.Player.UUID.String(), nullString(owner.Town),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to save chunk owner")
	}
	return nil
}

func (r *SQLiteClaimRepository) DeleteChunkOwner(ctx context.Context, key claims.ChunkKey) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM chunk_claimed WHERE chunk_world = ? AND chunk_x = ? AND chunk_z = ?`,
		key.World, key.X, key.Z,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete chunk owner")
	}
	return nil
}

func (r *SQLiteClaimRepository) QueryClaimant(ctx context.Context, id uuid.UUID) (claims.ClaimantFields, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows := claimantRows{claimant: models.Claimant{ID: id}}
	err := r.db.QueryRowContext(ctx,
		`SELECT kind, name, town_id, owner_id FROM claimants WHERE id = ?`, id.String(),
	).Scan(&rows.claimant.Kind, &rows.claimant.Name, &rows.claimant.TownID, &rows.claimant.OwnerID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return claims.ClaimantFields{}, errors.New(errors.ErrCodeNotFound, "claimant not found")
	}
	if err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant")
	}

	if rows.ranks, err = r.queryRanks(ctx, id); err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant ranks")
	}
	if rows.friends, err = r.queryFriends(ctx, id); err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant friends")
	}
	if rows.settings, err = r.querySettings(ctx, id); err != nil {
		return claims.ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "failed to query claimant settings")
	}
	return fromRows(rows), nil
}

func (r *SQLiteClaimRepository) queryRanks(ctx context.Context, id uuid.UUID) ([]models.ClaimantRank, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT permission, required_rank FROM claimant_ranks WHERE claimant_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClaimantRank
	for rows.Next() {
		rank := models.ClaimantRank{ClaimantID: id}
		if err := rows.Scan(&rank.Permission, &rank.RequiredRank); err != nil {
			return nil, err
		}
		out = append(out, rank)
	}
	return out, rows.Err()
}

func (r *SQLiteClaimRepository) queryFriends(ctx context.Context, id uuid.UUID) ([]models.ClaimantFriend, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT friend_id, friend_rank FROM claimant_friends WHERE claimant_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClaimantFriend
	for rows.Next() {
		friend := models.ClaimantFriend{ClaimantID: id}
		if err := rows.Scan(&friend.FriendID, &friend.FriendRank); err != nil {
			return nil, err
		}
		out = append(out, friend)
	}
	return out, rows.Err()
}

func (r *SQLiteClaimRepository) querySettings(ctx context.Context, id uuid.UUID) ([]models.ClaimantSetting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting, enabled FROM claimant_settings WHERE claimant_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClaimantSetting
	for rows.Next() {
		setting := models.ClaimantSetting{ClaimantID: id}
		if err := rows.Scan(&setting.Setting, &setting.Enabled); err != nil {
			return nil, err
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}

// UpsertClaimant replaces the claimant and its child rows in one transaction.
// Every statement goes through tx: the pool holds a single connection.
func (r *SQLiteClaimRepository) UpsertClaimant(ctx context.Context, id uuid.UUID, fields claims.ClaimantFields) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows := toRows(id, fields)
	if err := rows.claimant.BeforeSave(nil); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to upsert claimant")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claimants (id, kind, name, town_id, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind, name = excluded.name, town_id = excluded.town_id,
			owner_id = excluded.owner_id, updated_at = excluded.updated_at`,
		id.String(), rows.claimant.Kind, rows.claimant.Name,
		nullString(rows.claimant.TownID), nullString(rows.claimant.OwnerID), now, now,
	); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to upsert claimant")
	}

	for _, table := range []string{"claimant_ranks", "claimant_friends", "claimant_settings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE claimant_id = ?`, id.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to clear "+table)
		}
	}
	for _, rank := range rows.ranks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claimant_ranks (claimant_id, permission, required_rank) VALUES (?, ?, ?)`,
			id.String(), rank.Permission, rank.RequiredRank,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to insert claimant rank")
		}
	}
	for _, friend := range rows.friends {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claimant_friends (claimant_id, friend_id, friend_rank) VALUES (?, ?, ?)`,
			id.String(), friend.FriendID.String(), friend.FriendRank,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to insert claimant friend")
		}
	}
	for _, setting := range rows.settings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claimant_settings (claimant_id, setting, enabled) VALUES (?, ?, ?)`,
			id.String(), setting.Setting, setting.Enabled,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to insert claimant setting")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to commit claimant")
	}
	return nil
}

func (r *SQLiteClaimRepository) DeleteClaimant(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`UPDATE chunk_claimed SET chunk_town = NULL WHERE chunk_town = ?`,
		`DELETE FROM claimant_ranks WHERE claimant_id = ?`,
		`DELETE FROM claimant_friends WHERE claimant_id = ?`,
		`DELETE FROM claimant_settings WHERE claimant_id = ?`,
		`DELETE FROM claimants WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to delete claimant")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to commit claimant delete")
	}
	return nil
}

func nullString(id uuid.NullUUID) sql.NullString {
	if !id.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: id.UUID.String(), Valid: true}
}
