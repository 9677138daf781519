package chunkmap

import "infinimap.ai/internal/space"

// Store is a backing store that can seed and receive whole chunks. Load
// returns no cells and no error for a chunk it has never seen.
type Store[T any] interface {
	Load(c space.ChunkSpace) ([]T, error)
	Save(c space.ChunkSpace, cells []T) error
}

// Attach registers s as both reader and writer.
func (m *ChunkMap[T]) Attach(s Store[T]) {
	m.RegisterReader(s.Load)
	m.RegisterWriter(s.Save)
}

// Detach removes both callbacks.
func (m *ChunkMap[T]) Detach() {
	m.UnregisterReader()
	m.UnregisterWriter()
}
