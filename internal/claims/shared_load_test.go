package claims

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLookup_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	gw := newMemGateway()
	owner, stranger := uuid.New(), uuid.New()
	key := ChunkKey{X: 5, Z: 5}
	gw.putChunk(key, owner, uuid.NullUUID{})
	gw.honorCtx = true
	gw.chunkGate = make(chan struct{})
	gw.chunkStarted = make(chan ChunkKey, 4)
	s := newTestSession(gw)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		s.Lookup(ctxA, key)
	}()
	<-gw.chunkStarted

	resB := make(chan *ClaimedChunk, 1)
	go func() {
		resB <- s.Lookup(context.Background(), key)
	}()
	// give the second caller time to attach to the in-flight load
	time.Sleep(20 * time.Millisecond)
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(gw.chunkGate)

	chunk := <-resB
	<-doneA
	if !chunk.IsClaimed() {
		t.Fatal("waiting caller saw the chunk as unclaimed")
	}
	if chunk.CanPerform(context.Background(), stranger, PermBuild) {
		t.Error("stranger allowed to build on a claimed chunk")
	}
	if got := gw.chunkQueryCount(key); got != 1 {
		t.Errorf("gateway queried %d times, want 1", got)
	}
}

func TestClaimantCache_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	gw := newMemGateway()
	id := uuid.New()
	gw.putPlayer(id, "Alex", uuid.NullUUID{})
	gw.honorCtx = true
	gw.claimantGate = make(chan struct{})
	gw.claimantStarted = make(chan uuid.UUID, 4)
	cache := NewClaimantCache(gw, BuiltinDefaults())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Player(ctxA, id)
		errA <- err
	}()
	<-gw.claimantStarted

	type result struct {
		cl  *Claimant
		err error
	}
	resB := make(chan result, 1)
	go func() {
		cl, err := cache.Player(context.Background(), id)
		resB <- result{cl, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	if err := <-errA; !stderrors.Is(err, context.Canceled) {
		t.Errorf("canceled caller error = %v, want context.Canceled", err)
	}
	close(gw.claimantGate)

	got := <-resB
	if got.err != nil {
		t.Fatalf("waiting caller error = %v", got.err)
	}
	if got.cl.Name() != "Alex" {
		t.Errorf("Name() = %q", got.cl.Name())
	}
	if cached, ok := cache.Peek(id); !ok || cached != got.cl {
		t.Error("shared load should be cached")
	}
	if n := gw.claimantQueryCount(id); n != 1 {
		t.Errorf("gateway queried %d times, want 1", n)
	}
}

func TestClaimantCache_ReloadDuringLoad(t *testing.T) {
	gw := newMemGateway()
	id := uuid.New()
	gw.putPlayer(id, "Before", uuid.NullUUID{})
	gw.claimantGate = make(chan struct{})
	gw.claimantStarted = make(chan uuid.UUID, 4)
	cache := NewClaimantCache(gw, BuiltinDefaults())
	ctx := context.Background()

	stale := make(chan *Claimant, 1)
	go func() {
		cl, err := cache.Player(ctx, id)
		if err != nil {
			t.Errorf("Player() error = %v", err)
		}
		stale <- cl
	}()
	<-gw.claimantStarted
	gw.putPlayer(id, "After", uuid.NullUUID{})

	fresh := make(chan *Claimant, 1)
	go func() {
		cl, err := cache.Reload(ctx, id, KindPlayer)
		if err != nil {
			t.Errorf("Reload() error = %v", err)
		}
		fresh <- cl
	}()
	<-gw.claimantStarted
	close(gw.claimantGate)

	old, reloaded := <-stale, <-fresh
	if old == nil || reloaded == nil {
		t.Fatal("loads returned no claimant")
	}
	if old.Name() != "Before" {
		t.Errorf("in-flight load Name() = %q, want Before", old.Name())
	}
	if reloaded.Name() != "After" {
		t.Errorf("Reload() Name() = %q, want After", reloaded.Name())
	}
	cached, ok := cache.Peek(id)
	if !ok || cached.Name() != "After" {
		t.Error("cache should hold the reloaded claimant")
	}
	if n := gw.claimantQueryCount(id); n != 2 {
		t.Errorf("gateway queried %d times, want 2", n)
	}
}

func TestClaimantCache_Remove(t *testing.T) {
	gw := newMemGateway()
	townID, mayor := uuid.New(), uuid.New()
	key := ChunkKey{X: 2, Z: 2}
	gw.putTown(townID, "Riverside", mayor)
	gw.putChunk(key, mayor, some(townID))
	s := newTestSession(gw)
	ctx := context.Background()

	chunk, err := s.Resolve(ctx, key)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := s.Claimants().Remove(ctx, townID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := s.Claimants().Peek(townID); ok {
		t.Error("removed town still cached")
	}
	if _, stored := gw.stored(townID); stored {
		t.Error("removed town still stored")
	}
	town, err := chunk.ReconcileTown(ctx)
	if err != nil || town != nil {
		t.Errorf("ReconcileTown() = %v, %v; want no town", town, err)
	}
	if chunk.Town().Valid {
		t.Error("chunk should drop the removed town")
	}
}
