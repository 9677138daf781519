package chunkmap

import (
	"fmt"

	"infinimap.ai/internal/space"
)

// UnloadChunk evicts the chunk at c, handing its cells to the writer first.
// It reports false without calling the writer when the chunk is persisted or
// not resident.
func (m *ChunkMap[T]) UnloadChunk(c space.ChunkSpace) (bool, error) {
	ch, ok := m.chunks[c]
	if !ok || ch.Persisted() {
		return false, nil
	}
	if m.writer != nil {
		if err := m.writer(c, ch.Cells()); err != nil {
			return false, fmt.Errorf("%w: write chunk %v: %w", ErrCallback, c, err)
		}
	}
	delete(m.chunks, c)
	return true, nil
}

// UnloadArea evicts every resident chunk intersecting the inclusive box
// [begin, end] and returns how many were evicted. Persisted chunks stay.
func (m *ChunkMap[T]) UnloadArea(begin, end space.WorldSpace) (int, error) {
	lo, hi, ok := m.chunkBounds(begin, end)
	if !ok {
		return 0, nil
	}
	return m.unloadWhere(func(c space.ChunkSpace) bool { return within(c, lo, hi) })
}

// UnloadAreaOutside evicts every resident chunk that does not intersect the
// inclusive box [begin, end]; the box is the region to keep.
func (m *ChunkMap[T]) UnloadAreaOutside(begin, end space.WorldSpace) (int, error) {
	lo, hi, ok := m.chunkBounds(begin, end)
	if !ok {
		return m.unloadWhere(func(space.ChunkSpace) bool { return true })
	}
	return m.unloadWhere(func(c space.ChunkSpace) bool { return !within(c, lo, hi) })
}

func (m *ChunkMap[T]) unloadWhere(match func(space.ChunkSpace) bool) (int, error) {
	n := 0
	for _, c := range m.Loaded() {
		if !match(c) {
			continue
		}
		ok, err := m.UnloadChunk(c)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Flush hands every resident chunk, persisted or not, to the writer without
// evicting anything. It is a no-op without a writer.
func (m *ChunkMap[T]) Flush() error {
	if m.writer == nil {
		return nil
	}
	for _, c := range m.Loaded() {
		if err := m.writer(c, m.chunks[c].Cells()); err != nil {
			return fmt.Errorf("%w: write chunk %v: %w", ErrCallback, c, err)
		}
	}
	return nil
}

// MakePersistent exempts the chunk holding w from eviction. The chunk must
// already be resident.
func (m *ChunkMap[T]) MakePersistent(w space.WorldSpace) error {
	c := m.WorldToChunk(w)
	ch, ok := m.chunks[c]
	if !ok {
		return fmt.Errorf("%w: %v", ErrChunkNotLoaded, c)
	}
	ch.Persist()
	return nil
}

// Unpersist makes the chunk holding w evictable again.
func (m *ChunkMap[T]) Unpersist(w space.WorldSpace) error {
	c := m.WorldToChunk(w)
	ch, ok := m.chunks[c]
	if !ok {
		return fmt.Errorf("%w: %v", ErrChunkNotLoaded, c)
	}
	ch.Unpersist()
	return nil
}
