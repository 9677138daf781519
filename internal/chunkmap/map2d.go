package chunkmap

import (
	"iter"

	"infinimap.ai/internal/space"
)

// Map2D is a planar map: chunks are one cell deep and every z is 0.
type Map2D[T comparable] struct {
	*ChunkMap[T]
}

func NewMap2D[T comparable](width, height int) (*Map2D[T], error) {
	m, err := New[T](width, height, 1)
	if err != nil {
		return nil, err
	}
	return &Map2D[T]{ChunkMap: m}, nil
}

// DefaultMap2D uses 16x16 chunks.
func DefaultMap2D[T comparable]() *Map2D[T] {
	m, _ := NewMap2D[T](16, 16)
	return m
}

func at2(x, y int64) space.WorldSpace { return space.WorldSpace{X: x, Y: y} }

func (m *Map2D[T]) Get(x, y int64) (T, error) { return m.ChunkMap.Get(at2(x, y)) }

func (m *Map2D[T]) Set(x, y int64, v T) error { return m.ChunkMap.Set(at2(x, y), v) }

func (m *Map2D[T]) GetAt(p space.WorldSpace2D) (T, error) { return m.ChunkMap.Get(p.To3D()) }

func (m *Map2D[T]) SetAt(p space.WorldSpace2D, v T) error { return m.ChunkMap.Set(p.To3D(), v) }

func (m *Map2D[T]) Within(x0, y0, x1, y1 int64) iter.Seq2[T, error] {
	return m.ChunkMap.Within(at2(x0, y0), at2(x1, y1))
}

func (m *Map2D[T]) ChunksWithin(x0, y0, x1, y1 int64, create bool) ([]ChunkRef[T], error) {
	return m.ChunkMap.ChunksWithin(at2(x0, y0), at2(x1, y1), create)
}

func (m *Map2D[T]) UnloadArea(x0, y0, x1, y1 int64) (int, error) {
	return m.ChunkMap.UnloadArea(at2(x0, y0), at2(x1, y1))
}

func (m *Map2D[T]) UnloadAreaOutside(x0, y0, x1, y1 int64) (int, error) {
	return m.ChunkMap.UnloadAreaOutside(at2(x0, y0), at2(x1, y1))
}

func (m *Map2D[T]) MakePersistent(x, y int64) error { return m.ChunkMap.MakePersistent(at2(x, y)) }

func (m *Map2D[T]) Unpersist(x, y int64) error { return m.ChunkMap.Unpersist(at2(x, y)) }

func (m *Map2D[T]) PutEntity(x, y int64, e Entity) error {
	return m.ChunkMap.PutEntity(at2(x, y), e)
}

func (m *Map2D[T]) EntitiesAt(x, y int64) ([]Entity, error) {
	return m.ChunkMap.EntitiesAt(at2(x, y))
}

func (m *Map2D[T]) EntitiesInChunk(x, y int64) ([]Entity, error) {
	return m.ChunkMap.EntitiesInChunk(at2(x, y))
}
