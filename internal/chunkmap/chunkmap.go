// Package chunkmap presents an unbounded grid of cells backed by fixed-size
// chunks that are created on first touch and dropped on request.
//
// Callers address cells in world-space and never need to know the map is
// chunked. Loading and saving chunks is left to two optional callbacks: a
// Reader that seeds a chunk the first time it is touched, and a Writer that
// receives a chunk's cells just before it is evicted.
//
// A ChunkMap is not safe for concurrent use. Callbacks run synchronously on
// the calling goroutine.
package chunkmap

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"

	"infinimap.ai/internal/chunk"
	"infinimap.ai/internal/space"
)

var ErrCallback = errors.New("chunk callback failed")

// Reader returns the cells for a chunk that is not resident, in flat storage
// order. Returning no cells yields a chunk of zero values.
type Reader[T any] func(c space.ChunkSpace) ([]T, error)

// Writer receives a copy of a chunk's cells before the chunk is evicted.
// Returning an error keeps the chunk resident.
type Writer[T any] func(c space.ChunkSpace, cells []T) error

// ChunkRef is one chunk found by ChunksWithin.
type ChunkRef[T comparable] struct {
	Origin space.WorldSpace
	Coord  space.ChunkSpace
	Chunk  *chunk.Chunk[T]
}

type ChunkMap[T comparable] struct {
	ext    space.Extents
	chunks map[space.ChunkSpace]*chunk.Chunk[T]

	reader Reader[T]
	writer Writer[T]
}

func New[T comparable](width, height, depth int) (*ChunkMap[T], error) {
	ext := space.Extents{Width: width, Height: height, Depth: depth}
	if err := ext.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return &ChunkMap[T]{
		ext:    ext,
		chunks: make(map[space.ChunkSpace]*chunk.Chunk[T], 8),
	}, nil
}

func (m *ChunkMap[T]) Extents() space.Extents { return m.ext }

func (m *ChunkMap[T]) WorldToChunk(w space.WorldSpace) space.ChunkSpace {
	return space.WorldToChunk(w, m.ext)
}

// Count is the number of cells held in memory: every resident chunk counts
// its full capacity, however many of its cells were ever written.
func (m *ChunkMap[T]) Count() int {
	n := 0
	for _, c := range m.chunks {
		n += c.Capacity()
	}
	return n
}

// Len is the number of resident chunks.
func (m *ChunkMap[T]) Len() int { return len(m.chunks) }

func (m *ChunkMap[T]) Get(w space.WorldSpace) (T, error) {
	c, err := m.chunkAt(m.WorldToChunk(w), true)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Get(w), nil
}

func (m *ChunkMap[T]) Set(w space.WorldSpace, v T) error {
	c, err := m.chunkAt(m.WorldToChunk(w), true)
	if err != nil {
		return err
	}
	c.Set(w, v)
	return nil
}

func (m *ChunkMap[T]) Contains(v T) bool {
	for _, c := range m.chunks {
		if c.Contains(v) {
			return true
		}
	}
	return false
}

func (m *ChunkMap[T]) ContainsFunc(v T, eq func(a, b T) bool) bool {
	for _, c := range m.chunks {
		if c.ContainsFunc(v, eq) {
			return true
		}
	}
	return false
}

// Chunks yields every resident chunk in no particular order. The map must not
// be modified while ranging.
func (m *ChunkMap[T]) Chunks() iter.Seq2[space.ChunkSpace, *chunk.Chunk[T]] {
	return func(yield func(space.ChunkSpace, *chunk.Chunk[T]) bool) {
		for k, c := range m.chunks {
			if !yield(k, c) {
				return
			}
		}
	}
}

// Loaded returns the coordinates of all resident chunks, sorted x, y, z.
func (m *ChunkMap[T]) Loaded() []space.ChunkSpace {
	keys := make([]space.ChunkSpace, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareChunk)
	return keys
}

// Chunk returns the resident chunk at c without creating it.
func (m *ChunkMap[T]) Chunk(c space.ChunkSpace) (*chunk.Chunk[T], bool) {
	ch, ok := m.chunks[c]
	return ch, ok
}

func (m *ChunkMap[T]) chunkAt(c space.ChunkSpace, create bool) (*chunk.Chunk[T], error) {
	if ch, ok := m.chunks[c]; ok {
		return ch, nil
	}
	if !create {
		return nil, nil
	}
	ch, err := m.readChunk(c)
	if err != nil {
		return nil, err
	}
	m.chunks[c] = ch
	return ch, nil
}

func (m *ChunkMap[T]) readChunk(c space.ChunkSpace) (*chunk.Chunk[T], error) {
	if m.reader == nil {
		return chunk.New[T](m.ext), nil
	}
	cells, err := m.reader(c)
	if err != nil {
		return nil, fmt.Errorf("%w: read chunk %v: %w", ErrCallback, c, err)
	}
	ch, err := chunk.FromCells(m.ext, cells)
	if err != nil {
		return nil, fmt.Errorf("read chunk %v: %w", c, err)
	}
	return ch, nil
}

func compareChunk(a, b space.ChunkSpace) int {
	switch {
	case a.X != b.X:
		return cmp.Compare(a.X, b.X)
	case a.Y != b.Y:
		return cmp.Compare(a.Y, b.Y)
	default:
		return cmp.Compare(a.Z, b.Z)
	}
}
