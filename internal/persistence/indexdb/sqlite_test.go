package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/persistence/chunkfile"
	"infinimap.ai/internal/space"
)

func openTestStore(t *testing.T) *SQLiteStore[block.Block] {
	t.Helper()
	s, err := OpenSQLite[block.Block](filepath.Join(t.TempDir(), "chunks.sqlite"), block.Codec{}, nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTripThroughMap(t *testing.T) {
	s := openTestStore(t)
	m := chunkmap.DefaultMap2D[block.Block]()
	m.Attach(s)

	stone := block.New(1, 0, block.FlagSolid|block.FlagOpaque)
	_ = m.Set(5, 5, stone)
	_ = m.Set(-40, 3, block.New(2, 1, 0))
	if n, err := m.UnloadAreaOutside(1000, 1000, 1000, 1000); err != nil || n != 2 {
		t.Fatalf("unload: n=%d err=%v", n, err)
	}

	keys, err := s.Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []space.ChunkSpace{{X: -3}, {}}
	if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("keys=%v want=%v", keys, want)
	}

	got, err := m.Get(5, 5)
	if err != nil || got != stone {
		t.Fatalf("reloaded: %+v %v", got, err)
	}
	if v, _ := m.Get(-40, 3); v.ID != 2 || v.Meta != 1 {
		t.Fatalf("reloaded: %+v", v)
	}
}

func TestSQLiteStore_SkipsUnchangedChunks(t *testing.T) {
	s := openTestStore(t)
	c := space.ChunkSpace{X: 7, Y: -1}
	cells := make([]block.Block, 256)
	cells[3] = block.New(9, 0, 0)

	for i := 0; i < 3; i++ {
		if err := s.Save(c, cells); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	cells[4] = block.New(9, 0, 0)
	if err := s.Save(c, cells); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st := s.Stats()
	if st.Saves != 2 || st.Skipped != 2 {
		t.Fatalf("saves=%d skipped=%d", st.Saves, st.Skipped)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && s.Stats().HistoryTotal < 4 {
		time.Sleep(20 * time.Millisecond)
	}
	n, err := s.History(context.Background(), c)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if n != 4 {
		t.Fatalf("history rows=%d want=4", n)
	}
}

func TestSQLiteStore_MissingChunkIsEmpty(t *testing.T) {
	s := openTestStore(t)
	cells, err := s.Load(space.ChunkSpace{X: 1, Y: 2, Z: 3})
	if err != nil || cells != nil {
		t.Fatalf("got %v %v", cells, err)
	}
}

func TestSQLiteStore_QueueDropStats(t *testing.T) {
	s := &SQLiteStore[int32]{codec: chunkfile.Fixed[int32]{}, ch: make(chan writeRow, 1)}
	s.record(writeRow{})
	s.record(writeRow{})
	s.record(writeRow{})

	st := s.Stats()
	if st.DropHistoryTotal != 2 {
		t.Fatalf("DropHistoryTotal=%d want=2", st.DropHistoryTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestOpenSQLite_RejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite[int32]("", chunkfile.Fixed[int32]{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
