package ws

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/entity"
	"infinimap.ai/internal/metadata"
	"infinimap.ai/internal/protocol"
	"infinimap.ai/internal/space"
)

// badRequest marks request errors that never reached the map.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

var errUnknownEntity = errors.New("unknown entity")

// Handle runs one request against the map and returns the RESULT or ERROR to
// send back.
func (s *Server) Handle(sessionID string, req protocol.RequestMsg) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := protocol.NewResult(req.ReqID)
	if err := s.apply(sessionID, req, &res); err != nil {
		return protocol.NewError(req.ReqID, codeFor(err), err.Error())
	}
	return res
}

func codeFor(err error) string {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return protocol.ErrBadRequest
	case errors.Is(err, errUnknownEntity):
		return protocol.ErrUnknownEntity
	}
	return protocol.CodeFor(err)
}

func (s *Server) apply(sessionID string, req protocol.RequestMsg, res *protocol.ResultMsg) error {
	switch req.Type {
	case protocol.TypeGetCell:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		b, err := s.m.Get(w)
		if err != nil {
			return err
		}
		c := cellOf(b)
		res.Cell = &c

	case protocol.TypeSetCell:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		if req.Cell == nil {
			return badRequest{"cell is required"}
		}
		b, err := blockOf(*req.Cell)
		if err != nil {
			return err
		}
		return s.m.Set(w, b)

	case protocol.TypeChunksWithin:
		begin, end, err := s.box(req)
		if err != nil {
			return err
		}
		refs, err := s.m.ChunksWithin(begin, end, req.Create)
		if err != nil {
			return err
		}
		res.Chunks = make([]protocol.ChunkRef, 0, len(refs))
		for _, r := range refs {
			res.Chunks = append(res.Chunks, protocol.ChunkRef{
				Coord:     protocol.Pos{r.Coord.X, r.Coord.Y, r.Coord.Z},
				Origin:    wirePos(r.Origin),
				Persisted: r.Chunk.Persisted(),
				Entities:  r.Chunk.EntityCount(),
			})
		}

	case protocol.TypePutEntity:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		it, created, err := s.itemFor(req)
		if err != nil {
			return err
		}
		if err := s.m.PutEntity(w, it); err != nil {
			if created {
				s.items.Delete(it.ID)
			}
			return err
		}
		ref := entityRef(it)
		res.Entity = &ref

	case protocol.TypeRemoveEntity:
		it, err := s.lookup(req.EntityID)
		if err != nil {
			return err
		}
		if err := s.m.RemoveEntity(it); err != nil {
			return err
		}
		s.items.Delete(it.ID)
		ref := entityRef(it)
		res.Entity = &ref

	case protocol.TypeEntitiesAt:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		es, err := s.m.EntitiesAt(w)
		if err != nil {
			return err
		}
		res.Entities = entityRefs(es)

	case protocol.TypePersist, protocol.TypeUnpersist:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		if req.Type == protocol.TypePersist {
			return s.m.MakePersistent(w)
		}
		return s.m.Unpersist(w)

	case protocol.TypeUnloadArea:
		begin, end, err := s.box(req)
		if err != nil {
			return err
		}
		var n int
		if req.Outside {
			n, err = s.m.UnloadAreaOutside(begin, end)
		} else {
			n, err = s.m.UnloadArea(begin, end)
		}
		s.evicted += n
		res.Evicted = &n
		return err

	case protocol.TypeFocus:
		w, err := s.pos(req.Pos, "pos")
		if err != nil {
			return err
		}
		s.focus[sessionID] = s.m.WorldToChunk(w)

	case protocol.TypeFlush:
		return s.m.Flush()

	case protocol.TypeStats:
		st := s.statsLocked()
		res.Stats = &st

	default:
		return badRequest{fmt.Sprintf("unsupported request %q", req.Type)}
	}
	return nil
}

func (s *Server) pos(p *protocol.Pos, field string) (space.WorldSpace, error) {
	if p == nil {
		return space.WorldSpace{}, badRequest{field + " is required"}
	}
	if s.opts.Dimensions == 2 && p[2] != 0 {
		return space.WorldSpace{}, badRequest{fmt.Sprintf("%s: z must be 0 on a 2D map", field)}
	}
	return space.WorldSpace{X: p[0], Y: p[1], Z: p[2]}, nil
}

func (s *Server) box(req protocol.RequestMsg) (begin, end space.WorldSpace, err error) {
	if begin, err = s.pos(req.Begin, "begin"); err != nil {
		return
	}
	end, err = s.pos(req.End, "end")
	return
}

// itemFor returns the item named by EntityID, or registers a new one built
// from Name and Kind.
func (s *Server) itemFor(req protocol.RequestMsg) (it *entity.Item, created bool, err error) {
	if req.EntityID != "" {
		it, err = s.lookup(req.EntityID)
		return it, false, err
	}
	if req.Name == "" {
		return nil, false, badRequest{"entity_id or name is required"}
	}
	it = entity.NewItem(req.Name, req.Kind)
	s.items.Add(it)
	return it, true, nil
}

func (s *Server) lookup(id string) (*entity.Item, error) {
	if id == "" {
		return nil, badRequest{"entity_id is required"}
	}
	it, err := s.items.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnknownEntity, err)
	}
	return it, nil
}

func wirePos(w space.WorldSpace) protocol.Pos { return protocol.Pos{w.X, w.Y, w.Z} }

func entityRef(it *entity.Item) protocol.EntityRef {
	ref := protocol.EntityRef{ID: it.ID.String(), Name: it.Name, Kind: it.Kind}
	if w, ok := it.Position(); ok {
		p := wirePos(w)
		ref.Pos = &p
	}
	return ref
}

// entityRefs lists the items among es, ordered by id.
func entityRefs(es []chunkmap.Entity) []protocol.EntityRef {
	out := make([]protocol.EntityRef, 0, len(es))
	for _, e := range es {
		if it, ok := e.(*entity.Item); ok {
			out = append(out, entityRef(it))
		}
	}
	slices.SortFunc(out, func(a, b protocol.EntityRef) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func cellOf(b block.Block) protocol.Cell {
	c := protocol.Cell{ID: b.ID, Meta: b.Meta, Flags: b.Flags}
	if b.Metadata != nil && b.Metadata.Len() > 0 {
		c.Metadata = map[string]any{}
		for _, k := range b.Metadata.Keys() {
			v, _ := b.Metadata.Get(k)
			c.Metadata[k] = v
		}
	}
	return c
}

// blockOf builds a block from its wire form. JSON numbers arrive as float64
// and are stored that way.
func blockOf(c protocol.Cell) (block.Block, error) {
	b := block.New(c.ID, c.Meta, c.Flags)
	if len(c.Metadata) == 0 {
		return b, nil
	}
	bag := metadata.New()
	for k, v := range c.Metadata {
		if err := bag.Set(k, v); err != nil {
			return block.Air, badRequest{fmt.Sprintf("metadata %q: %v", k, err)}
		}
	}
	return b.WithMetadata(bag), nil
}
