package chunkmap

import (
	"iter"

	"infinimap.ai/internal/space"
)

type Map3D[T comparable] struct {
	*ChunkMap[T]
}

func NewMap3D[T comparable](width, height, depth int) (*Map3D[T], error) {
	m, err := New[T](width, height, depth)
	if err != nil {
		return nil, err
	}
	return &Map3D[T]{ChunkMap: m}, nil
}

// DefaultMap3D uses 16x16x16 chunks.
func DefaultMap3D[T comparable]() *Map3D[T] {
	m, _ := NewMap3D[T](16, 16, 16)
	return m
}

func at3(x, y, z int64) space.WorldSpace { return space.WorldSpace{X: x, Y: y, Z: z} }

func (m *Map3D[T]) Get(x, y, z int64) (T, error) { return m.ChunkMap.Get(at3(x, y, z)) }

func (m *Map3D[T]) Set(x, y, z int64, v T) error { return m.ChunkMap.Set(at3(x, y, z), v) }

func (m *Map3D[T]) Within(x0, y0, z0, x1, y1, z1 int64) iter.Seq2[T, error] {
	return m.ChunkMap.Within(at3(x0, y0, z0), at3(x1, y1, z1))
}

func (m *Map3D[T]) ChunksWithin(x0, y0, z0, x1, y1, z1 int64, create bool) ([]ChunkRef[T], error) {
	return m.ChunkMap.ChunksWithin(at3(x0, y0, z0), at3(x1, y1, z1), create)
}

func (m *Map3D[T]) UnloadArea(x0, y0, z0, x1, y1, z1 int64) (int, error) {
	return m.ChunkMap.UnloadArea(at3(x0, y0, z0), at3(x1, y1, z1))
}

func (m *Map3D[T]) UnloadAreaOutside(x0, y0, z0, x1, y1, z1 int64) (int, error) {
	return m.ChunkMap.UnloadAreaOutside(at3(x0, y0, z0), at3(x1, y1, z1))
}

func (m *Map3D[T]) MakePersistent(x, y, z int64) error {
	return m.ChunkMap.MakePersistent(at3(x, y, z))
}

func (m *Map3D[T]) Unpersist(x, y, z int64) error { return m.ChunkMap.Unpersist(at3(x, y, z)) }

func (m *Map3D[T]) PutEntity(x, y, z int64, e Entity) error {
	return m.ChunkMap.PutEntity(at3(x, y, z), e)
}

func (m *Map3D[T]) EntitiesAt(x, y, z int64) ([]Entity, error) {
	return m.ChunkMap.EntitiesAt(at3(x, y, z))
}

func (m *Map3D[T]) EntitiesInChunk(x, y, z int64) ([]Entity, error) {
	return m.ChunkMap.EntitiesInChunk(at3(x, y, z))
}
