// Package config loads the server configuration from a YAML or TOML file,
// checks it against an embedded JSON schema and applies INFINIMAP_*
// environment overrides.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"infinimap.ai/internal/space"
)

const EnvPrefix = "INFINIMAP_"

// Storage backends.
const (
	BackendNone    = "none"
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	Dimensions        int    `yaml:"dimensions" env:"DIMENSIONS"`
	ChunkSize         []int  `yaml:"chunk_size" env:"CHUNK_SIZE" envSeparator:","`
	Backend           string `yaml:"backend" env:"BACKEND"`
	DataDir           string `yaml:"data_dir" env:"DATA_DIR"`
	KeepRadius        int    `yaml:"keep_radius" env:"KEEP_RADIUS"`
	MaxResidentChunks int    `yaml:"max_resident_chunks" env:"MAX_RESIDENT_CHUNKS"`
	Journal           bool   `yaml:"journal" env:"JOURNAL"`
	Listen            string `yaml:"listen" env:"LISTEN"`
}

// Defaults leaves ChunkSize empty; Normalize picks 16s for the configured
// number of dimensions.
func Defaults() Config {
	return Config{
		Dimensions:        3,
		Backend:           BackendNone,
		DataDir:           "./data",
		KeepRadius:        4,
		MaxResidentChunks: 1024,
		Listen:            ":8080",
	}
}

// Load reads path (or nothing when path is empty), then applies environment
// overrides. The file format is chosen by extension: .toml is TOML and
// anything else is YAML.
func Load(path string) (Config, error) {
	cfg := Defaults()
	name := filepath.Base(path)
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := decode(path, b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		if path == "" {
			name = "config"
		}
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// decode validates the file against the schema, then lays it over cfg so
// keys the file omits keep their defaults. TOML is re-encoded as YAML first
// so both formats share the yaml field names.
func decode(path string, b []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		tree, err := toml.LoadBytes(b)
		if err != nil {
			return err
		}
		doc := tree.ToMap()
		if err := validateDoc(doc); err != nil {
			return err
		}
		if b, err = yaml.Marshal(doc); err != nil {
			return err
		}
		return yaml.Unmarshal(b, cfg)
	}
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc != nil {
		if err := validateDoc(doc); err != nil {
			return err
		}
	}
	return yaml.Unmarshal(b, cfg)
}

var (
	schemaOnce sync.Once
	compiled   *jsonschema.Schema
	schemaErr  error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if schemaErr = c.AddResource("config.schema.json", strings.NewReader(schemaJSON)); schemaErr != nil {
			return
		}
		compiled, schemaErr = c.Compile("config.schema.json")
	})
	return compiled, schemaErr
}

// validateDoc checks a decoded file against the schema. The document is
// round-tripped through JSON so YAML and TOML scalars take JSON types.
func validateDoc(doc any) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Dimensions == 0 {
		c.Dimensions = 3
	}
	if len(c.ChunkSize) == 0 {
		c.ChunkSize = []int{16, 16, 16}
		if c.Dimensions == 2 {
			c.ChunkSize = []int{16, 16}
		}
	}
	if c.Dimensions == 2 && len(c.ChunkSize) == 2 {
		c.ChunkSize = append(c.ChunkSize, 1)
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.Listen = strings.TrimSpace(c.Listen)
}

func (c Config) Validate() error {
	switch c.Dimensions {
	case 2, 3:
	default:
		return fmt.Errorf("dimensions must be 2 or 3, got %d", c.Dimensions)
	}
	if len(c.ChunkSize) != 3 {
		return fmt.Errorf("chunk_size needs %d values, got %v", c.Dimensions, c.ChunkSize)
	}
	if err := c.Extents().Validate(); err != nil {
		return fmt.Errorf("chunk_size: %w", err)
	}
	if c.Dimensions == 2 && c.ChunkSize[2] != 1 {
		return fmt.Errorf("chunk_size depth must be 1 for a 2D map, got %d", c.ChunkSize[2])
	}
	switch c.Backend {
	case BackendNone, BackendFile, BackendSQLite, BackendLevelDB:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if (c.Backend != BackendNone || c.Journal) && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for backend %q / journal", c.Backend)
	}
	if c.KeepRadius < 0 {
		return fmt.Errorf("keep_radius must be >= 0")
	}
	if c.MaxResidentChunks < 0 {
		return fmt.Errorf("max_resident_chunks must be >= 0")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

func (c Config) Extents() space.Extents {
	e := space.Extents{}
	if len(c.ChunkSize) > 0 {
		e.Width = c.ChunkSize[0]
	}
	if len(c.ChunkSize) > 1 {
		e.Height = c.ChunkSize[1]
	}
	if len(c.ChunkSize) > 2 {
		e.Depth = c.ChunkSize[2]
	}
	return e
}
