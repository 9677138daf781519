// Package space defines the three coordinate systems used by chunked maps and
// the pure conversions between them.
//
//	World-space  a cell among all cells; (0,0,0) is the centre of the world.
//	Chunk-space  a chunk among all chunks; derived from world-space by floored division.
//	Item-space   a cell inside its chunk; always 0..extent-1 on each axis.
//
// With 16x16x16 chunks the cell at world (63,0,0) lives in chunk (3,0,0) at
// item offset (15,0,0), and world (-1,0,0) lives in chunk (-1,0,0) at (15,0,0).
package space

import (
	"errors"
	"fmt"
)

// MaxExtent is the largest chunk size on any axis; ItemSpace stores offsets in a byte.
const MaxExtent = 255

var ErrInvalidExtents = errors.New("invalid chunk extents")

type WorldSpace struct {
	X, Y, Z int64
}

func (w WorldSpace) String() string { return fmt.Sprintf("%d,%d,%d", w.X, w.Y, w.Z) }

// Add offsets w by an item offset.
func (w WorldSpace) Add(i ItemSpace) WorldSpace {
	return WorldSpace{X: w.X + int64(i.X), Y: w.Y + int64(i.Y), Z: w.Z + int64(i.Z)}
}

// WorldSpace2D is the planar form used by 2D maps. Z is implicitly 0.
type WorldSpace2D struct {
	X, Y int64
}

func (w WorldSpace2D) String() string { return fmt.Sprintf("%d,%d", w.X, w.Y) }

func (w WorldSpace2D) To3D() WorldSpace { return WorldSpace{X: w.X, Y: w.Y} }

// Flatten drops Z.
func Flatten(w WorldSpace) WorldSpace2D { return WorldSpace2D{X: w.X, Y: w.Y} }

type ChunkSpace struct {
	X, Y, Z int64
}

func (c ChunkSpace) String() string {
	return fmt.Sprintf("X: %d, Y: %d, Z: %d", c.X, c.Y, c.Z)
}

type ItemSpace struct {
	X, Y, Z uint8
}

// Index is the flat offset of i in a chunk of extents e: x fastest, then y, then z.
func (i ItemSpace) Index(e Extents) int {
	return int(i.X) + int(i.Y)*e.Width + int(i.Z)*e.Width*e.Height
}

// ItemFromIndex inverts ItemSpace.Index.
func ItemFromIndex(idx int, e Extents) ItemSpace {
	plane := e.Width * e.Height
	z := idx / plane
	rem := idx % plane
	return ItemSpace{X: uint8(rem % e.Width), Y: uint8(rem / e.Width), Z: uint8(z)}
}

type Extents struct {
	Width  int
	Height int
	Depth  int
}

func (e Extents) Validate() error {
	for _, v := range [3]int{e.Width, e.Height, e.Depth} {
		if v <= 0 || v > MaxExtent {
			return fmt.Errorf("%w: %dx%dx%d (each axis must be within 1..%d)", ErrInvalidExtents, e.Width, e.Height, e.Depth, MaxExtent)
		}
	}
	return nil
}

func (e Extents) Capacity() int { return e.Width * e.Height * e.Depth }

func (e Extents) String() string { return fmt.Sprintf("%dx%dx%d", e.Width, e.Height, e.Depth) }

func WorldToChunk(w WorldSpace, e Extents) ChunkSpace {
	return ChunkSpace{
		X: FloorDiv(w.X, int64(e.Width)),
		Y: FloorDiv(w.Y, int64(e.Height)),
		Z: FloorDiv(w.Z, int64(e.Depth)),
	}
}

// WorldToItem uses a floored modulo so that ChunkOrigin(WorldToChunk(w)) + WorldToItem(w) == w.
func WorldToItem(w WorldSpace, e Extents) ItemSpace {
	return ItemSpace{
		X: uint8(Mod(w.X, int64(e.Width))),
		Y: uint8(Mod(w.Y, int64(e.Height))),
		Z: uint8(Mod(w.Z, int64(e.Depth))),
	}
}

// ChunkOrigin is the world coordinate of item (0,0,0) of chunk c. For the
// edge chunks whose origin lies outside int64 the result wraps, and adding an
// item offset wraps back onto the cell.
func ChunkOrigin(c ChunkSpace, e Extents) WorldSpace {
	return WorldSpace{
		X: c.X * int64(e.Width),
		Y: c.Y * int64(e.Height),
		Z: c.Z * int64(e.Depth),
	}
}

func FloorDiv(a, b int64) int64 {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int64) int64 {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
