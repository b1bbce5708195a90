package claims

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mroshb/chunkclaim/pkg/errors"
)

var errGatewayDown = stderrors.New("gateway down")

// memGateway is an in-memory Gateway with call counters and failure
// switches.
type memGateway struct {
	mu        sync.Mutex
	chunks    map[ChunkKey]ChunkOwner
	claimants map[uuid.UUID]ClaimantFields

	chunkQueries    map[ChunkKey]int
	claimantQueries map[uuid.UUID]int
	boxQueries      int
	upserts         int

	failChunks    bool
	failClaimants bool
	failUpserts   bool

	// chunkGate, when set, blocks QueryChunkOwner until closed.
	chunkGate chan struct{}
	// chunkStarted receives once per QueryChunkOwner call if non-nil.
	chunkStarted chan ChunkKey
	// honorCtx makes blocked queries give up when their ctx is done, like a
	// real driver.
	honorCtx bool

	// claimantGate, when set, blocks QueryClaimant after the record is read.
	claimantGate    chan struct{}
	claimantStarted chan uuid.UUID
}

func newMemGateway() *memGateway {
	return &memGateway{
		chunks:          make(map[ChunkKey]ChunkOwner),
		claimants:       make(map[uuid.UUID]ClaimantFields),
		chunkQueries:    make(map[ChunkKey]int),
		claimantQueries: make(map[uuid.UUID]int),
	}
}

func (g *memGateway) QueryChunkOwner(ctx context.Context, key ChunkKey) (ChunkOwner, bool, error) {
	g.mu.Lock()
	g.chunkQueries[key]++
	gate, started, fail := g.chunkGate, g.chunkStarted, g.failChunks
	g.mu.Unlock()

	if started != nil {
		started <- key
	}
	if err := g.wait(ctx, gate); err != nil {
		return ChunkOwner{}, false, errors.Wrap(err, errors.ErrCodeStorage, "query chunk owner")
	}
	if fail {
		return ChunkOwner{}, false, errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "query chunk owner")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	owner, ok := g.chunks[key]
	return owner, ok, nil
}

func (g *memGateway) QueryChunksInBox(ctx context.Context, world int, xRange, zRange Span) ([]ChunkRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.boxQueries++
	if g.failChunks {
		return nil, errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "query chunks in box")
	}
	var out []ChunkRecord
	for key, owner := range g.chunks {
		if key.World == world && xRange.Contains(key.X) && zRange.Contains(key.Z) {
			out = append(out, ChunkRecord{Key: key, Owner: owner})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.X != out[j].Key.X {
			return out[i].Key.X < out[j].Key.X
		}
		return out[i].Key.Z < out[j].Key.Z
	})
	return out, nil
}

func (g *memGateway) SaveChunkOwner(ctx context.Context, key ChunkKey, owner ChunkOwner) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChunks {
		return errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "save chunk owner")
	}
	g.chunks[key] = owner
	return nil
}

func (g *memGateway) DeleteChunkOwner(ctx context.Context, key ChunkKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChunks {
		return errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "delete chunk owner")
	}
	delete(g.chunks, key)
	return nil
}

func (g *memGateway) QueryClaimant(ctx context.Context, id uuid.UUID) (ClaimantFields, error) {
	g.mu.Lock()
	g.claimantQueries[id]++
	fail := g.failClaimants
	f, ok := g.claimants[id]
	f = f.clone()
	gate, started := g.claimantGate, g.claimantStarted
	g.mu.Unlock()

	if started != nil {
		started <- id
	}
	if err := g.wait(ctx, gate); err != nil {
		return ClaimantFields{}, errors.Wrap(err, errors.ErrCodeStorage, "query claimant")
	}
	if fail {
		return ClaimantFields{}, errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "query claimant")
	}
	if !ok {
		return ClaimantFields{}, errors.New(errors.ErrCodeNotFound, "claimant not found")
	}
	return f, nil
}

func (g *memGateway) DeleteClaimant(ctx context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failUpserts {
		return errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "delete claimant")
	}
	delete(g.claimants, id)
	for key, owner := range g.chunks {
		if owner.Town.Valid && owner.Town.UUID == id {
			owner.Town = uuid.NullUUID{}
			g.chunks[key] = owner
		}
	}
	return nil
}

func (g *memGateway) wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	g.mu.Lock()
	honor := g.honorCtx
	g.mu.Unlock()
	if !honor {
		<-gate
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *memGateway) UpsertClaimant(ctx context.Context, id uuid.UUID, fields ClaimantFields) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upserts++
	if g.failUpserts {
		return errors.Wrap(errGatewayDown, errors.ErrCodeStorage, "upsert claimant")
	}
	g.claimants[id] = fields.clone()
	return nil
}

func (g *memGateway) setFailChunks(v bool) {
	g.mu.Lock()
	g.failChunks = v
	g.mu.Unlock()
}

func (g *memGateway) setFailClaimants(v bool) {
	g.mu.Lock()
	g.failClaimants = v
	g.mu.Unlock()
}

func (g *memGateway) setFailUpserts(v bool) {
	g.mu.Lock()
	g.failUpserts = v
	g.mu.Unlock()
}

func (g *memGateway) chunkQueryCount(key ChunkKey) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chunkQueries[key]
}

func (g *memGateway) claimantQueryCount(id uuid.UUID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimantQueries[id]
}

func (g *memGateway) stored(id uuid.UUID) (ClaimantFields, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.claimants[id]
	return f, ok
}

func (g *memGateway) putChunk(key ChunkKey, player uuid.UUID, town uuid.NullUUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chunks[key] = ChunkOwner{Player: some(player), Town: town}
}

func (g *memGateway) putPlayer(id uuid.UUID, name string, town uuid.NullUUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.claimants[id] = ClaimantFields{Kind: KindPlayer, Name: name, Town: town}.clone()
}

func (g *memGateway) putTown(id uuid.UUID, name string, owner uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.claimants[id] = ClaimantFields{Kind: KindTown, Name: name, Owner: some(owner)}.clone()
}

func some(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func newTestSession(gw Gateway) *Session {
	return NewSession(gw, Options{
		Enabled:        true,
		WildernessName: "Wilderness",
		Defaults:       BuiltinDefaults(),
	})
}
