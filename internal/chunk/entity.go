package chunk

import (
	"errors"

	"infinimap.ai/internal/space"
)

var ErrPartialLocation = errors.New("entity location is partially set")

// Location is where an entity sits in world-space. All three nil means the
// entity is not tracked by any map; all three set means it is tracked at that
// position. Anything in between is rejected.
type Location struct {
	X, Y, Z *int64
}

// Untracked is the zero Location.
var Untracked = Location{}

// At builds a tracked Location for w. Each call allocates fresh pointers so
// callers never share storage with the map.
func At(w space.WorldSpace) Location {
	x, y, z := w.X, w.Y, w.Z
	return Location{X: &x, Y: &y, Z: &z}
}

// WorldSpace reports the tracked position. ok is false for an untracked
// location; a partially set location returns ErrPartialLocation.
func (l Location) WorldSpace() (w space.WorldSpace, ok bool, err error) {
	switch {
	case l.X == nil && l.Y == nil && l.Z == nil:
		return space.WorldSpace{}, false, nil
	case l.X != nil && l.Y != nil && l.Z != nil:
		return space.WorldSpace{X: *l.X, Y: *l.Y, Z: *l.Z}, true, nil
	default:
		return space.WorldSpace{}, false, ErrPartialLocation
	}
}

// Entity is the capability a caller-owned object needs to be placed in a map.
//
// The map is the only writer of an entity's location. It calls SetLocation
// exactly once per placement, move or removal, after the chunk bookkeeping is
// done, so a caller never observes a half-updated position. Implementations
// must be pointer types: chunks keep entities in an identity-keyed set.
type Entity interface {
	Location() Location
	SetLocation(Location)
}
