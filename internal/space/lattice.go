package space

import (
	"errors"
	"fmt"
	"iter"
)

var ErrInvalidStep = errors.New("invalid region step")

// Lattice yields the points of the inclusive box [begin, end] spaced by step on
// each axis, x outermost and z innermost. An axis where begin > end yields nothing.
func Lattice(begin, end WorldSpace, step Extents) (iter.Seq[WorldSpace], error) {
	if step.Width <= 0 || step.Height <= 0 || step.Depth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStep, step)
	}
	return func(yield func(WorldSpace) bool) {
		for x := range axis(begin.X, end.X, int64(step.Width)) {
			for y := range axis(begin.Y, end.Y, int64(step.Height)) {
				for z := range axis(begin.Z, end.Z, int64(step.Depth)) {
					if !yield(WorldSpace{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}, nil
}

// ChunkRange yields every chunk of the inclusive box [lo, hi], x outermost and
// z innermost.
func ChunkRange(lo, hi ChunkSpace) iter.Seq[ChunkSpace] {
	return func(yield func(ChunkSpace) bool) {
		for x := range axis(lo.X, hi.X, 1) {
			for y := range axis(lo.Y, hi.Y, 1) {
				for z := range axis(lo.Z, hi.Z, 1) {
					if !yield(ChunkSpace{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}
}

// axis walks [from, to] without overflowing near the int64 limits.
func axis(from, to, step int64) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if from > to {
			return
		}
		for v := from; ; v += step {
			if !yield(v) {
				return
			}
			if uint64(to-v) < uint64(step) {
				return
			}
		}
	}
}
