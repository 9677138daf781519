package ws

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/protocol"
	"infinimap.ai/internal/space"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	m, err := chunkmap.New[block.Block](16, 16, 16)
	if err != nil {
		t.Fatalf("new map: %v", err)
	}
	return NewServer(m, opts, nil)
}

func req(typ string) protocol.RequestMsg {
	return protocol.RequestMsg{Type: typ, ProtocolVersion: protocol.Version, ReqID: "r-" + strings.ToLower(typ)}
}

func at(x, y, z int64) *protocol.Pos { return &protocol.Pos{x, y, z} }

func mustResult(t *testing.T, v any) protocol.ResultMsg {
	t.Helper()
	res, ok := v.(protocol.ResultMsg)
	if !ok {
		t.Fatalf("expected RESULT, got %+v", v)
	}
	return res
}

func mustError(t *testing.T, v any, code string) {
	t.Helper()
	e, ok := v.(protocol.ErrorMsg)
	if !ok {
		t.Fatalf("expected ERROR %s, got %+v", code, v)
	}
	if e.Code != code {
		t.Fatalf("code=%s want %s (%s)", e.Code, code, e.Message)
	}
	if !protocol.IsKnownCode(e.Code) {
		t.Fatalf("unknown code %s", e.Code)
	}
}

func TestHandle_SetGetCell(t *testing.T) {
	s := newTestServer(t, Options{})

	set := req(protocol.TypeSetCell)
	set.Pos = at(-1, 2, 3)
	set.Cell = &protocol.Cell{ID: 7, Flags: block.FlagSolid, Metadata: map[string]any{"owner": "ana", "hp": float64(3)}}
	mustResult(t, s.Handle("a", set))

	get := req(protocol.TypeGetCell)
	get.Pos = at(-1, 2, 3)
	res := mustResult(t, s.Handle("a", get))
	if res.Cell == nil || res.Cell.ID != 7 || res.Cell.Flags != block.FlagSolid {
		t.Fatalf("cell: %+v", res.Cell)
	}
	if res.Cell.Metadata["owner"] != "ana" || res.Cell.Metadata["hp"] != float64(3) {
		t.Fatalf("metadata: %+v", res.Cell.Metadata)
	}
	if res.ReqID != get.ReqID {
		t.Fatalf("req_id not echoed: %q", res.ReqID)
	}
}

func TestHandle_BadRequests(t *testing.T) {
	s := newTestServer(t, Options{})

	mustError(t, s.Handle("a", req(protocol.TypeGetCell)), protocol.ErrBadRequest)

	set := req(protocol.TypeSetCell)
	set.Pos = at(0, 0, 0)
	mustError(t, s.Handle("a", set), protocol.ErrBadRequest)

	set.Cell = &protocol.Cell{ID: 1, Metadata: map[string]any{"nested": map[string]any{"a": 1}}}
	mustError(t, s.Handle("a", set), protocol.ErrBadRequest)

	mustError(t, s.Handle("a", req("TELEPORT")), protocol.ErrBadRequest)

	flat := newTestServer(t, Options{Dimensions: 2})
	get := req(protocol.TypeGetCell)
	get.Pos = at(0, 0, 1)
	mustError(t, flat.Handle("a", get), protocol.ErrBadRequest)
}

func TestHandle_PersistNeedsResidentChunk(t *testing.T) {
	s := newTestServer(t, Options{})
	p := req(protocol.TypePersist)
	p.Pos = at(100, 0, 0)
	mustError(t, s.Handle("a", p), protocol.ErrChunkNotLoaded)

	get := req(protocol.TypeGetCell)
	get.Pos = at(100, 0, 0)
	mustResult(t, s.Handle("a", get))
	mustResult(t, s.Handle("a", p))

	cw := req(protocol.TypeChunksWithin)
	cw.Begin, cw.End = at(100, 0, 0), at(100, 0, 0)
	res := mustResult(t, s.Handle("a", cw))
	if len(res.Chunks) != 1 || !res.Chunks[0].Persisted || res.Chunks[0].Coord != (protocol.Pos{6, 0, 0}) {
		t.Fatalf("chunks: %+v", res.Chunks)
	}
	if res.Chunks[0].Origin != (protocol.Pos{96, 0, 0}) {
		t.Fatalf("origin: %+v", res.Chunks[0].Origin)
	}
}

func TestHandle_EntityLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	put := req(protocol.TypePutEntity)
	put.Pos = at(1, 1, 1)
	put.Name, put.Kind = "cart", "vehicle"
	res := mustResult(t, s.Handle("a", put))
	if res.Entity == nil || res.Entity.Pos == nil || *res.Entity.Pos != (protocol.Pos{1, 1, 1}) {
		t.Fatalf("put: %+v", res.Entity)
	}
	id := res.Entity.ID

	ea := req(protocol.TypeEntitiesAt)
	ea.Pos = at(1, 1, 1)
	if got := mustResult(t, s.Handle("a", ea)).Entities; len(got) != 1 || got[0].ID != id {
		t.Fatalf("entities at: %+v", got)
	}

	move := req(protocol.TypePutEntity)
	move.Pos = at(40, 0, 0)
	move.EntityID = id
	mustResult(t, s.Handle("a", move))
	if got := mustResult(t, s.Handle("a", ea)).Entities; len(got) != 0 {
		t.Fatalf("entity still at old cell: %+v", got)
	}

	rm := req(protocol.TypeRemoveEntity)
	rm.EntityID = id
	if got := mustResult(t, s.Handle("a", rm)); got.Entity == nil || got.Entity.Pos != nil {
		t.Fatalf("remove: %+v", got.Entity)
	}
	mustError(t, s.Handle("a", rm), protocol.ErrUnknownEntity)

	rm.EntityID = "not-a-uuid"
	mustError(t, s.Handle("a", rm), protocol.ErrUnknownEntity)
}

func TestHandle_UnloadAndStats(t *testing.T) {
	s := newTestServer(t, Options{})
	var saved int
	s.m.RegisterWriter(func(space.ChunkSpace, []block.Block) error {
		saved++
		return nil
	})

	cw := req(protocol.TypeChunksWithin)
	cw.Begin, cw.End, cw.Create = at(0, 0, 0), at(47, 0, 0), true
	if got := mustResult(t, s.Handle("a", cw)).Chunks; len(got) != 3 {
		t.Fatalf("chunks: %+v", got)
	}

	un := req(protocol.TypeUnloadArea)
	un.Begin, un.End, un.Outside = at(0, 0, 0), at(15, 15, 15), true
	res := mustResult(t, s.Handle("a", un))
	if res.Evicted == nil || *res.Evicted != 2 || saved != 2 {
		t.Fatalf("evicted=%v saved=%d", res.Evicted, saved)
	}

	mustResult(t, s.Handle("a", req(protocol.TypeFlush)))
	if saved != 3 {
		t.Fatalf("flush should write the resident chunk, saved=%d", saved)
	}

	st := mustResult(t, s.Handle("a", req(protocol.TypeStats))).Stats
	if st == nil || st.ResidentChunks != 1 || st.Cells != 4096 || st.Evicted != 2 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestPrune_KeepsFocusedChunks(t *testing.T) {
	s := newTestServer(t, Options{KeepRadius: 1})
	if n, err := s.Prune(); err != nil || n != 0 {
		t.Fatalf("prune without focus: n=%d err=%v", n, err)
	}

	for _, x := range []int64{0, 16, 1000} {
		get := req(protocol.TypeGetCell)
		get.Pos = at(x, 0, 0)
		mustResult(t, s.Handle("a", get))
	}
	f := req(protocol.TypeFocus)
	f.Pos = at(3, 3, 3)
	mustResult(t, s.Handle("a", f))

	n, err := s.Prune()
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
	if s.m.Len() != 2 {
		t.Fatalf("resident=%d", s.m.Len())
	}
}

func TestHandler_RoundTrip(t *testing.T) {
	s := newTestServer(t, Options{Backend: "file"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "viewer"}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.ChunkSize != [3]int{16, 16, 16} || welcome.Backend != "file" {
		t.Fatalf("welcome: %+v", welcome)
	}
	if !strings.HasPrefix(welcome.SessionID, "viewer-") {
		t.Fatalf("session id: %q", welcome.SessionID)
	}

	if err := conn.WriteJSON(req(protocol.TypeStats)); err != nil {
		t.Fatalf("stats: %v", err)
	}
	var res protocol.ResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Type != protocol.TypeResult || res.Stats == nil || res.Stats.Sessions != 1 {
		t.Fatalf("result: %+v", res)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ACT", "protocol_version": protocol.Version}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var e protocol.ErrorMsg
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if e.Type != protocol.TypeError || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("error: %+v", e)
	}
}
