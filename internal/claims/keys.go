package claims

import "fmt"

// ChunkKey addresses one 16x16 column of a world.
type ChunkKey struct {
	World int
	X     int
	Z     int
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("%d:%d,%d", k.World, k.X, k.Z)
}

// BlockOrigin is the block at the chunk's minimum x/z corner, at y=0.
func (k ChunkKey) BlockOrigin() BlockPos {
	return BlockPos{X: k.X << 4, Y: 0, Z: k.Z << 4}
}

type BlockPos struct {
	X int
	Y int
	Z int
}

// ChunkOf returns the chunk containing pos. The shift floors, so block -1
// belongs to chunk -1.
func ChunkOf(world int, pos BlockPos) ChunkKey {
	return ChunkKey{World: world, X: pos.X >> 4, Z: pos.Z >> 4}
}

// Span is an inclusive integer range.
type Span struct {
	Min int
	Max int
}

func SpanAround(center, radius int) Span {
	return Span{Min: center - radius, Max: center + radius}
}

func (s Span) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}
