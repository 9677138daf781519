package leveldb

import (
	"bytes"
	"math"
	"testing"

	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/persistence/chunkfile"
	"infinimap.ai/internal/space"
)

func openTestStore(t *testing.T) *Store[float32] {
	t.Helper()
	s, err := Open[float32](t.TempDir(), chunkfile.Fixed[float32]{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKeyOrderMatchesCoordinates(t *testing.T) {
	cs := []space.ChunkSpace{
		{X: math.MinInt64},
		{X: -1, Y: 5},
		{X: 0, Y: -2},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 0},
		{X: 3},
		{X: math.MaxInt64, Y: math.MaxInt64, Z: math.MaxInt64},
	}
	for i := 1; i < len(cs); i++ {
		if bytes.Compare(Key(cs[i-1]), Key(cs[i])) >= 0 {
			t.Fatalf("key(%v) !< key(%v)", cs[i-1], cs[i])
		}
	}
	for _, c := range cs {
		got, ok := parseKey(Key(c))
		if !ok || got != c {
			t.Fatalf("parseKey(Key(%v)) = %v", c, got)
		}
	}
}

func TestStoreBacksMap(t *testing.T) {
	s := openTestStore(t)
	m := chunkmap.DefaultMap3D[float32]()
	m.Attach(s)

	_ = m.Set(0, 0, 0, 1)
	_ = m.Set(16, 16, 16, 2)
	_ = m.Set(-1, -1, -1, 3)
	if n, err := m.UnloadArea(-1, -1, -1, 16, 16, 16); err != nil || n != 3 {
		t.Fatalf("unload: n=%d err=%v", n, err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 || keys[0] != (space.ChunkSpace{X: -1, Y: -1, Z: -1}) {
		t.Fatalf("keys: %v", keys)
	}

	for _, tc := range []struct {
		x, y, z int64
		want    float32
	}{{0, 0, 0, 1}, {16, 16, 16, 2}, {-1, -1, -1, 3}} {
		if v, err := m.Get(tc.x, tc.y, tc.z); err != nil || v != tc.want {
			t.Fatalf("(%d,%d,%d)=%v err=%v", tc.x, tc.y, tc.z, v, err)
		}
	}

	// Nothing changed since reload.
	if _, err := m.UnloadArea(-1, -1, -1, 16, 16, 16); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if s.Writes() != 3 || s.Skipped() != 3 {
		t.Fatalf("writes=%d skipped=%d", s.Writes(), s.Skipped())
	}
}

func TestMissingAndDeleted(t *testing.T) {
	s := openTestStore(t)
	c := space.ChunkSpace{Y: 9}
	if cells, err := s.Load(c); err != nil || cells != nil {
		t.Fatalf("missing: %v %v", cells, err)
	}
	_ = s.Save(c, []float32{1})
	if err := s.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cells, _ := s.Load(c); cells != nil {
		t.Fatalf("deleted chunk still loads")
	}
}
