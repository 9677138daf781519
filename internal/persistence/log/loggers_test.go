package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/space"
)

func TestJournaledRecordsUnloads(t *testing.T) {
	dir := t.TempDir()
	j := NewWriteJournal(dir)
	at := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)
	j.w.now = func() time.Time { return at }

	m := chunkmap.DefaultMap2D[int]()
	var saved []space.ChunkSpace
	m.RegisterWriter(Journaled(j, func(c space.ChunkSpace, cells []int) error {
		saved = append(saved, c)
		return nil
	}))
	_ = m.Set(0, 0, 5)
	_ = m.Set(1, 0, 6)
	_ = m.Set(40, 0, 0)
	if n, err := m.UnloadAreaOutside(500, 500, 500, 500); err != nil || n != 2 {
		t.Fatalf("unload: n=%d err=%v", n, err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadWrites(filepath.Join(dir, "journal", "writes-2025-06-01-10.jsonl.zst"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || len(saved) != 2 {
		t.Fatalf("entries=%d saved=%d", len(got), len(saved))
	}
	if got[0].Chunk() != (space.ChunkSpace{}) || got[0].NonZero != 2 || got[0].Cells != 256 {
		t.Fatalf("first entry: %+v", got[0])
	}
	if got[1].Chunk() != (space.ChunkSpace{X: 2}) || got[1].NonZero != 0 {
		t.Fatalf("second entry: %+v", got[1])
	}
}

func TestJournaledKeepsWriterError(t *testing.T) {
	j := NewWriteJournal(t.TempDir())
	boom := errors.New("disk full")
	w := Journaled(j, func(space.ChunkSpace, []int) error { return boom })
	if err := w(space.ChunkSpace{X: 1}, []int{1}); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	_ = j.Close()

	files, _ := filepath.Glob(filepath.Join(j.Dir(), "*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("files: %v", files)
	}
	got, err := ReadWrites(files[0])
	if err != nil || len(got) != 1 || got[0].Error != "disk full" {
		t.Fatalf("entries: %+v err=%v", got, err)
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	at := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	_ = w.Write(map[string]int{"a": 1})
	at = at.Add(2 * time.Minute)
	_ = w.Write(map[string]int{"a": 2})
	_ = w.Close()

	for _, name := range []string{"x-2025-01-01-23.jsonl.zst", "x-2025-01-02-00.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestJournaledRecordsFlushWithoutEvicting(t *testing.T) {
	dir := t.TempDir()
	j := NewWriteJournal(dir)
	m := chunkmap.DefaultMap2D[int]()
	m.RegisterWriter(Journaled[int](j, nil))
	_ = m.Set(-1, -1, 3)
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	_ = j.Close()
	if m.Len() != 1 {
		t.Fatalf("flush evicted: resident=%d", m.Len())
	}

	files, _ := filepath.Glob(filepath.Join(dir, "journal", "writes-*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("files: %v", files)
	}
	got, err := ReadWrites(files[0])
	if err != nil || len(got) != 1 {
		t.Fatalf("entries: %+v err=%v", got, err)
	}
	if got[0].Chunk() != (space.ChunkSpace{X: -1, Y: -1}) || got[0].NonZero != 1 {
		t.Fatalf("entry: %+v", got[0])
	}
}
