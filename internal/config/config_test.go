package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"infinimap.ai/internal/space"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dimensions != 3 || cfg.Backend != BackendNone {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.Extents() != (space.Extents{Width: 16, Height: 16, Depth: 16}) {
		t.Fatalf("extents: %v", cfg.Extents())
	}
}

func TestLoad_YAML(t *testing.T) {
	p := writeFile(t, "infinimap.yaml", `
dimensions: 2
chunk_size: [32, 8]
backend: sqlite
data_dir: /var/lib/infinimap
journal: true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendSQLite || !cfg.Journal || cfg.DataDir != "/var/lib/infinimap" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if cfg.Extents() != (space.Extents{Width: 32, Height: 8, Depth: 1}) {
		t.Fatalf("extents: %v", cfg.Extents())
	}
	if cfg.Listen != ":8080" || cfg.KeepRadius != 4 {
		t.Fatalf("omitted keys lost their defaults: %+v", cfg)
	}
}

func TestLoad_TOML(t *testing.T) {
	p := writeFile(t, "infinimap.toml", `
dimensions = 3
chunk_size = [8, 8, 4]
backend = "leveldb"
data_dir = "data"
keep_radius = 2
listen = "127.0.0.1:9000"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendLevelDB || cfg.KeepRadius != 2 || cfg.Listen != "127.0.0.1:9000" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if cfg.Extents() != (space.Extents{Width: 8, Height: 8, Depth: 4}) {
		t.Fatalf("extents: %v", cfg.Extents())
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "dimension: 3\n",
		"oversized chunk": "chunk_size: [256, 16, 16]\n",
		"bad backend":     "backend: redis\n",
		"negative radius": "keep_radius: -1\n",
	}
	for name, body := range cases {
		p := writeFile(t, "infinimap.yaml", body)
		_, err := Load(p)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(err.Error(), "infinimap.yaml") {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeFile(t, "infinimap.yaml", "backend: file\ndata_dir: a\n")
	t.Setenv("INFINIMAP_BACKEND", "SQLite")
	t.Setenv("INFINIMAP_CHUNK_SIZE", "4,4,4")
	t.Setenv("INFINIMAP_JOURNAL", "true")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendSQLite || !cfg.Journal || cfg.DataDir != "a" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if cfg.Extents() != (space.Extents{Width: 4, Height: 4, Depth: 4}) {
		t.Fatalf("extents: %v", cfg.Extents())
	}
}

func TestValidate(t *testing.T) {
	base := Defaults()
	base.Normalize()
	if err := base.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	flat := base
	flat.Dimensions = 2
	if err := flat.Validate(); err == nil {
		t.Fatalf("2D map with depth 16 should fail")
	}

	noDir := base
	noDir.Backend = BackendFile
	noDir.DataDir = ""
	if err := noDir.Validate(); err == nil {
		t.Fatalf("file backend without data_dir should fail")
	}

	zero := base
	zero.ChunkSize = []int{0, 16, 16}
	if err := zero.Validate(); err == nil {
		t.Fatalf("zero width should fail")
	}
}
