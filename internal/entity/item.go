// Package entity provides Item, a ready-made map entity identified by UUID.
package entity

import (
	"fmt"

	"github.com/google/uuid"

	"infinimap.ai/internal/chunk"
	"infinimap.ai/internal/space"
)

// Item is a named thing that can be placed in a map. Its location is owned by
// the map; callers read it through Position.
type Item struct {
	ID   uuid.UUID
	Name string
	Kind string

	loc chunk.Location
}

func NewItem(name, kind string) *Item {
	return &Item{ID: uuid.New(), Name: name, Kind: kind}
}

func (it *Item) Location() chunk.Location { return it.loc }

func (it *Item) SetLocation(l chunk.Location) { it.loc = l }

// Position returns where the item is tracked, or ok=false when it is not in
// any map.
func (it *Item) Position() (w space.WorldSpace, ok bool) {
	w, ok, err := it.loc.WorldSpace()
	if err != nil {
		return space.WorldSpace{}, false
	}
	return w, ok
}

func (it *Item) String() string {
	if w, ok := it.Position(); ok {
		return fmt.Sprintf("%s(%s)@%s", it.Name, it.ID, w)
	}
	return fmt.Sprintf("%s(%s)", it.Name, it.ID)
}

// Registry indexes items by ID so they can be addressed from outside the
// process, e.g. over the observer protocol.
type Registry struct {
	byID map[uuid.UUID]*Item
}

func NewRegistry() *Registry {
	return &Registry{byID: map[uuid.UUID]*Item{}}
}

func (r *Registry) Add(it *Item) { r.byID[it.ID] = it }

func (r *Registry) Get(id uuid.UUID) (*Item, bool) {
	it, ok := r.byID[id]
	return it, ok
}

// Lookup parses id and returns the matching item.
func (r *Registry) Lookup(id string) (*Item, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad entity id %q: %w", id, err)
	}
	it, ok := r.byID[u]
	if !ok {
		return nil, fmt.Errorf("unknown entity %s", u)
	}
	return it, nil
}

func (r *Registry) Delete(id uuid.UUID) { delete(r.byID, id) }

func (r *Registry) Len() int { return len(r.byID) }
