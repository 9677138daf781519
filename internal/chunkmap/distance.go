package chunkmap

import (
	"cmp"
	"iter"
	"slices"

	"infinimap.ai/internal/space"
)

// Square yields the chunk coordinates of a square centred on center in the
// X/Y plane. An odd rng is rounded up, so rng 5 covers the same square as 6.
func Square(center space.ChunkSpace, rng int) iter.Seq[space.ChunkSpace] {
	if rng%2 != 0 {
		rng++
	}
	half := int64(rng / 2)
	return func(yield func(space.ChunkSpace) bool) {
		for x := center.X - half; x <= center.X+half; x++ {
			for y := center.Y - half; y <= center.Y+half; y++ {
				if !yield(space.ChunkSpace{X: x, Y: y, Z: center.Z}) {
					return
				}
			}
		}
	}
}

// Wanted lists the chunks within radius (X/Y plane, Chebyshev) of any center,
// nearest first by Manhattan distance, capped at maxChunks. It is the keep
// set fed to UnloadAreaOutside-style pruning.
func Wanted(centers []space.ChunkSpace, radius, maxChunks int) []space.ChunkSpace {
	if radius <= 0 {
		radius = 1
	}
	if maxChunks <= 0 {
		maxChunks = 1024
	}
	type item struct {
		k    space.ChunkSpace
		dist int64
	}
	r := int64(radius)
	distByKey := map[space.ChunkSpace]int64{}
	for _, c := range centers {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				k := space.ChunkSpace{X: c.X + dx, Y: c.Y + dy, Z: c.Z}
				d := abs(dx) + abs(dy)
				if prev, ok := distByKey[k]; !ok || d < prev {
					distByKey[k] = d
				}
			}
		}
	}
	items := make([]item, 0, len(distByKey))
	for k, d := range distByKey {
		items = append(items, item{k: k, dist: d})
	}
	slices.SortFunc(items, func(a, b item) int {
		if a.dist != b.dist {
			return cmp.Compare(a.dist, b.dist)
		}
		return compareChunk(a.k, b.k)
	})
	if len(items) > maxChunks {
		items = items[:maxChunks]
	}
	out := make([]space.ChunkSpace, 0, len(items))
	for _, it := range items {
		out = append(out, it.k)
	}
	return out
}

// Prune evicts every resident chunk that is not in keep. It returns how many
// chunks were evicted.
func (m *ChunkMap[T]) Prune(keep []space.ChunkSpace) (int, error) {
	set := make(map[space.ChunkSpace]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}
	return m.unloadWhere(func(c space.ChunkSpace) bool {
		_, ok := set[c]
		return !ok
	})
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
