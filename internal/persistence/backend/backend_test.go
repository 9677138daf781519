package backend

import (
	"context"
	"testing"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/config"
	"infinimap.ai/internal/metadata"
	"infinimap.ai/internal/space"
)

func TestOpen_EachBackendRoundTrips(t *testing.T) {
	for _, name := range []string{config.BackendFile, config.BackendSQLite, config.BackendLevelDB} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Backend = name
			cfg.DataDir = t.TempDir()
			cfg.Normalize()

			b, err := Open(cfg, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			m := chunkmap.DefaultMap3D[block.Block]()
			m.Attach(b.Store)

			bag := metadata.New()
			_ = bag.Set("sign", "north")
			if err := m.Set(-3, 4, 20, block.New(5, 1, block.FlagSolid).WithMetadata(bag)); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := m.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}
			keys, err := b.Keys(context.Background())
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 1 || keys[0] != (space.ChunkSpace{X: -1, Y: 0, Z: 1}) {
				t.Fatalf("keys: %v", keys)
			}
			if err := b.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			b2, err := Open(cfg, nil)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer b2.Close()
			m2 := chunkmap.DefaultMap3D[block.Block]()
			m2.Attach(b2.Store)
			got, err := m2.Get(-3, 4, 20)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ID != 5 || got.Meta != 1 || !got.Has(block.FlagSolid) {
				t.Fatalf("block: %+v", got)
			}
			if v, ok := got.Metadata.Get("sign"); !ok || v != "north" {
				t.Fatalf("metadata: %v %v", v, ok)
			}
		})
	}
}

func TestOpen_None(t *testing.T) {
	cfg := config.Defaults()
	cfg.Normalize()
	b, err := Open(cfg, nil)
	if err != nil || b.Store != nil {
		t.Fatalf("none backend: %+v err=%v", b, err)
	}
	if keys, err := b.Keys(context.Background()); err != nil || keys != nil {
		t.Fatalf("keys: %v %v", keys, err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
