package chunkmap

import (
	"fmt"

	"infinimap.ai/internal/chunk"
	"infinimap.ai/internal/space"
)

type Entity = chunk.Entity

// PutEntity places e at w. An entity that is already tracked is moved: it is
// taken out of the chunk its own location points at before being added to
// the chunk holding w. Its location is written last, in a single call.
func (m *ChunkMap[T]) PutEntity(w space.WorldSpace, e Entity) error {
	old, tracked, err := e.Location().WorldSpace()
	if err != nil {
		return err
	}
	dst, err := m.chunkAt(m.WorldToChunk(w), true)
	if err != nil {
		return err
	}
	if tracked {
		src, err := m.chunkAt(m.WorldToChunk(old), true)
		if err != nil {
			return err
		}
		src.RemoveEntity(e)
	}
	dst.PutEntity(e)
	e.SetLocation(chunk.At(w))
	return nil
}

// RemoveEntity takes e out of the chunk it is tracked in and clears its location.
func (m *ChunkMap[T]) RemoveEntity(e Entity) error {
	pos, tracked, err := e.Location().WorldSpace()
	if err != nil {
		return err
	}
	if !tracked {
		return ErrEntityNotTracked
	}
	c, err := m.chunkAt(m.WorldToChunk(pos), true)
	if err != nil {
		return err
	}
	c.RemoveEntity(e)
	e.SetLocation(chunk.Untracked)
	return nil
}

// EntitiesAt returns the entities located exactly at w.
func (m *ChunkMap[T]) EntitiesAt(w space.WorldSpace) ([]Entity, error) {
	c, err := m.chunkAt(m.WorldToChunk(w), true)
	if err != nil {
		return nil, err
	}
	return c.EntitiesAt(w), nil
}

// EntitiesInChunk returns every entity resident in the chunk holding w.
func (m *ChunkMap[T]) EntitiesInChunk(w space.WorldSpace) ([]Entity, error) {
	return m.EntitiesInChunkSpace(m.WorldToChunk(w))
}

func (m *ChunkMap[T]) EntitiesInChunkSpace(c space.ChunkSpace) ([]Entity, error) {
	ch, err := m.chunkAt(c, true)
	if err != nil {
		return nil, fmt.Errorf("entities in chunk %v: %w", c, err)
	}
	return ch.Entities(), nil
}
