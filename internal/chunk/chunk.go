// Package chunk holds the fixed-size cell store that backs one region of a
// chunked map, together with the entities resident in that region.
package chunk

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"infinimap.ai/internal/space"
)

var (
	ErrIndexOutOfRange  = errors.New("chunk index out of range")
	ErrCapacityExceeded = errors.New("chunk capacity exceeded")
)

type Chunk[T comparable] struct {
	ext   space.Extents
	cells []T // len = ext.Capacity(), x fastest then y then z

	persisted bool
	entities  []Entity
}

// New returns a chunk filled with the zero value of T. e must already be valid.
func New[T comparable](e space.Extents) *Chunk[T] {
	return &Chunk[T]{
		ext:   e,
		cells: make([]T, e.Capacity()),
	}
}

// FromCells seeds a chunk in flat storage order. Fewer cells than the chunk
// capacity leave the remainder zero; more is an error.
func FromCells[T comparable](e space.Extents, cells []T) (*Chunk[T], error) {
	if len(cells) > e.Capacity() {
		return nil, fmt.Errorf("%w: got %d cells for a %s chunk (%d)", ErrCapacityExceeded, len(cells), e, e.Capacity())
	}
	c := New[T](e)
	copy(c.cells, cells)
	return c, nil
}

func (c *Chunk[T]) Extents() space.Extents { return c.ext }

func (c *Chunk[T]) Capacity() int { return len(c.cells) }

func (c *Chunk[T]) At(i int) (T, error) {
	if i < 0 || i >= len(c.cells) {
		var zero T
		return zero, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(c.cells))
	}
	return c.cells[i], nil
}

func (c *Chunk[T]) SetAt(i int, v T) error {
	if i < 0 || i >= len(c.cells) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(c.cells))
	}
	c.cells[i] = v
	return nil
}

// Get reads the cell holding world coordinate w. The caller is responsible
// for w actually falling inside this chunk.
func (c *Chunk[T]) Get(w space.WorldSpace) T {
	return c.cells[space.WorldToItem(w, c.ext).Index(c.ext)]
}

func (c *Chunk[T]) Set(w space.WorldSpace, v T) {
	c.cells[space.WorldToItem(w, c.ext).Index(c.ext)] = v
}

func (c *Chunk[T]) Contains(v T) bool {
	return slices.Contains(c.cells, v)
}

func (c *Chunk[T]) ContainsFunc(v T, eq func(a, b T) bool) bool {
	return slices.ContainsFunc(c.cells, func(x T) bool { return eq(x, v) })
}

// All walks the cells in flat storage order. The sequence can be ranged over
// any number of times.
func (c *Chunk[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range c.cells {
			if !yield(v) {
				return
			}
		}
	}
}

// Cells returns a copy of the backing array.
func (c *Chunk[T]) Cells() []T {
	return slices.Clone(c.cells)
}

func (c *Chunk[T]) Persisted() bool { return c.persisted }
func (c *Chunk[T]) Persist()        { c.persisted = true }
func (c *Chunk[T]) Unpersist()      { c.persisted = false }
func (c *Chunk[T]) TogglePersist()  { c.persisted = !c.persisted }

// PutEntity adds e to the resident set; adding the same entity twice is a no-op.
func (c *Chunk[T]) PutEntity(e Entity) {
	if slices.Contains(c.entities, e) {
		return
	}
	c.entities = append(c.entities, e)
}

// RemoveEntity drops e from the resident set. It does not touch e's location;
// that is the map's job.
func (c *Chunk[T]) RemoveEntity(e Entity) bool {
	i := slices.Index(c.entities, e)
	if i < 0 {
		return false
	}
	c.entities = slices.Delete(c.entities, i, i+1)
	return true
}

func (c *Chunk[T]) HasEntity(e Entity) bool {
	return slices.Contains(c.entities, e)
}

// EntitiesAt returns the resident entities whose location is exactly w.
func (c *Chunk[T]) EntitiesAt(w space.WorldSpace) []Entity {
	var out []Entity
	for _, e := range c.entities {
		pos, ok, err := e.Location().WorldSpace()
		if err != nil || !ok {
			continue
		}
		if pos == w {
			out = append(out, e)
		}
	}
	return out
}

func (c *Chunk[T]) Entities() []Entity {
	return slices.Clone(c.entities)
}

func (c *Chunk[T]) EntityCount() int { return len(c.entities) }
