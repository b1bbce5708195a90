package claims

import (
	"context"

	"github.com/google/uuid"
)

type ClaimantKind string

const (
	KindPlayer ClaimantKind = "player"
	KindTown   ClaimantKind = "town"
)

func (k ClaimantKind) Valid() bool {
	return k == KindPlayer || k == KindTown
}

// ChunkOwner is the stored ownership of one chunk. Town is only meaningful
// when Player is set.
type ChunkOwner struct {
	Player uuid.NullUUID
	Town   uuid.NullUUID
}

type ChunkRecord struct {
	Key   ChunkKey
	Owner ChunkOwner
}

// ClaimantFields is the persisted state of a claimant.
type ClaimantFields struct {
	Kind     ClaimantKind
	Name     string
	Town     uuid.NullUUID // player: town membership
	Owner    uuid.NullUUID // town: owning player
	Ranks    map[Permission]Rank
	Friends  map[uuid.UUID]Rank
	Settings map[Setting]bool
}

func (f ClaimantFields) clone() ClaimantFields {
	next := f
	next.Ranks = make(map[Permission]Rank, len(f.Ranks))
	for k, v := range f.Ranks {
		next.Ranks[k] = v
	}
	next.Friends = make(map[uuid.UUID]Rank, len(f.Friends))
	for k, v := range f.Friends {
		next.Friends[k] = v
	}
	next.Settings = make(map[Setting]bool, len(f.Settings))
	for k, v := range f.Settings {
		next.Settings[k] = v
	}
	return next
}

// Gateway is the persistence collaborator. Implementations report failures
// with the STORAGE_ERROR code and a missing claimant with NOT_FOUND.
type Gateway interface {
	// QueryChunkOwner reports found=false for unclaimed chunks.
	QueryChunkOwner(ctx context.Context, key ChunkKey) (owner ChunkOwner, found bool, err error)
	QueryChunksInBox(ctx context.Context, world int, xRange, zRange Span) ([]ChunkRecord, error)
	SaveChunkOwner(ctx context.Context, key ChunkKey, owner ChunkOwner) error
	DeleteChunkOwner(ctx context.Context, key ChunkKey) error

	QueryClaimant(ctx context.Context, id uuid.UUID) (ClaimantFields, error)
	UpsertClaimant(ctx context.Context, id uuid.UUID, fields ClaimantFields) error
	// DeleteClaimant removes the claimant and its child rows. Deleting a town
	// also clears it from every chunk that names it.
	DeleteClaimant(ctx context.Context, id uuid.UUID) error
}
