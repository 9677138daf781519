package chunkmap

import (
	"iter"

	"infinimap.ai/internal/space"
)

// Within yields every cell of the inclusive box [begin, end], x outermost and
// z innermost. Touching a cell creates its chunk like Get does. The sequence
// stops after the first error, which is yielded with a zero value.
func (m *ChunkMap[T]) Within(begin, end space.WorldSpace) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		pts, err := space.Lattice(begin, end, space.Extents{Width: 1, Height: 1, Depth: 1})
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for p := range pts {
			v, err := m.Get(p)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// ChunksWithin returns each distinct chunk intersecting the inclusive box
// [begin, end] once, ordered x, y, z. With create false, chunks that are not
// resident are left out; with create true they are loaded or created.
func (m *ChunkMap[T]) ChunksWithin(begin, end space.WorldSpace, create bool) ([]ChunkRef[T], error) {
	lo, hi, ok := m.chunkBounds(begin, end)
	if !ok {
		return nil, nil
	}
	var out []ChunkRef[T]
	for key := range space.ChunkRange(lo, hi) {
		c, err := m.chunkAt(key, create)
		if err != nil {
			return out, err
		}
		if c == nil {
			continue
		}
		out = append(out, ChunkRef[T]{
			Origin: space.ChunkOrigin(key, m.ext),
			Coord:  key,
			Chunk:  c,
		})
	}
	return out, nil
}

// chunkBounds returns the inclusive chunk-space box covering [begin, end].
func (m *ChunkMap[T]) chunkBounds(begin, end space.WorldSpace) (lo, hi space.ChunkSpace, ok bool) {
	if emptyBox(begin, end) {
		return lo, hi, false
	}
	return m.WorldToChunk(begin), m.WorldToChunk(end), true
}

func within(c, lo, hi space.ChunkSpace) bool {
	return c.X >= lo.X && c.X <= hi.X &&
		c.Y >= lo.Y && c.Y <= hi.Y &&
		c.Z >= lo.Z && c.Z <= hi.Z
}

func emptyBox(begin, end space.WorldSpace) bool {
	return begin.X > end.X || begin.Y > end.Y || begin.Z > end.Z
}
