// Package backend opens the chunk store named in the server config.
package backend

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/config"
	"infinimap.ai/internal/persistence/chunkfile"
	"infinimap.ai/internal/persistence/indexdb"
	"infinimap.ai/internal/persistence/leveldb"
	"infinimap.ai/internal/space"
)

// Backend is an opened block store. A Backend for config.BackendNone has a
// nil Store.
type Backend struct {
	Name  string
	Store chunkmap.Store[block.Block]

	keys  func(ctx context.Context) ([]space.ChunkSpace, error)
	close func() error
}

func Path(cfg config.Config) string {
	switch cfg.Backend {
	case config.BackendFile:
		return filepath.Join(cfg.DataDir, "chunks")
	case config.BackendSQLite:
		return filepath.Join(cfg.DataDir, "chunks.sqlite")
	case config.BackendLevelDB:
		return filepath.Join(cfg.DataDir, "chunks.ldb")
	}
	return ""
}

func Open(cfg config.Config, logger *log.Logger) (*Backend, error) {
	codec := block.Codec{}
	b := &Backend{Name: cfg.Backend}
	switch cfg.Backend {
	case config.BackendNone:
	case config.BackendFile:
		s, err := chunkfile.Open[block.Block](Path(cfg), codec, logger)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.keys = func(context.Context) ([]space.ChunkSpace, error) { return s.Keys() }
	case config.BackendSQLite:
		s, err := indexdb.OpenSQLite[block.Block](Path(cfg), codec, logger)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.keys = s.Keys
		b.close = s.Close
	case config.BackendLevelDB:
		s, err := leveldb.Open[block.Block](Path(cfg), codec, logger)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.keys = func(context.Context) ([]space.ChunkSpace, error) { return s.Keys() }
		b.close = s.Close
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
	return b, nil
}

// Keys lists the stored chunks, ordered x, y, z.
func (b *Backend) Keys(ctx context.Context) ([]space.ChunkSpace, error) {
	if b.keys == nil {
		return nil, nil
	}
	return b.keys(ctx)
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}
