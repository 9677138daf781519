// Package leveldb stores chunk images in a LevelDB database, one key per
// chunk.
package leveldb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	ldb "github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/util"

	"infinimap.ai/internal/persistence/chunkfile"
	"infinimap.ai/internal/space"
)

const (
	chunkPrefix = 'c'
	keySize     = 1 + 24
	digestSize  = 8
)

var ErrCorrupt = errors.New("leveldb: corrupt chunk value")

// Store values are an 8-byte big-endian digest of the uncompressed image
// followed by the zstd blob.
type Store[T any] struct {
	db     *ldb.DB
	codec  chunkfile.Codec[T]
	logger *log.Logger

	writes  atomic.Uint64
	skipped atomic.Uint64
}

func Open[T any](dir string, codec chunkfile.Codec[T], logger *log.Logger) (*Store[T], error) {
	db, err := ldb.OpenFile(dir, &opt.Options{
		// Values are zstd already.
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", dir, err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store[T]{db: db, codec: codec, logger: logger}, nil
}

func (s *Store[T]) Close() error { return s.db.Close() }

// Key encodes c so that byte order matches x, y, z order.
func Key(c space.ChunkSpace) []byte {
	k := make([]byte, keySize)
	k[0] = chunkPrefix
	binary.BigEndian.PutUint64(k[1:9], uint64(c.X)^(1<<63))
	binary.BigEndian.PutUint64(k[9:17], uint64(c.Y)^(1<<63))
	binary.BigEndian.PutUint64(k[17:25], uint64(c.Z)^(1<<63))
	return k
}

func parseKey(k []byte) (space.ChunkSpace, bool) {
	if len(k) != keySize || k[0] != chunkPrefix {
		return space.ChunkSpace{}, false
	}
	return space.ChunkSpace{
		X: int64(binary.BigEndian.Uint64(k[1:9]) ^ (1 << 63)),
		Y: int64(binary.BigEndian.Uint64(k[9:17]) ^ (1 << 63)),
		Z: int64(binary.BigEndian.Uint64(k[17:25]) ^ (1 << 63)),
	}, true
}

func (s *Store[T]) Load(c space.ChunkSpace) ([]T, error) {
	v, err := s.db.Get(Key(c), nil)
	switch {
	case errors.Is(err, ldb.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	case len(v) < digestSize:
		return nil, fmt.Errorf("load chunk %v: %w", c, ErrCorrupt)
	}
	cells, err := chunkfile.Unpack(s.codec, v[digestSize:])
	if err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	}
	return cells, nil
}

func (s *Store[T]) Save(c space.ChunkSpace, cells []T) error {
	blob, digest, err := chunkfile.Pack(s.codec, cells)
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	key := Key(c)
	if prev, err := s.db.Get(key, nil); err == nil && len(prev) >= digestSize &&
		binary.BigEndian.Uint64(prev[:digestSize]) == digest {
		s.skipped.Add(1)
		return nil
	}
	v := make([]byte, digestSize, digestSize+len(blob))
	binary.BigEndian.PutUint64(v, digest)
	v = append(v, blob...)
	if err := s.db.Put(key, v, nil); err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	s.writes.Add(1)
	return nil
}

// Delete drops the stored chunk at c, if any.
func (s *Store[T]) Delete(c space.ChunkSpace) error {
	return s.db.Delete(Key(c), nil)
}

// Keys lists stored chunks in x, y, z order.
func (s *Store[T]) Keys() ([]space.ChunkSpace, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte{chunkPrefix}), nil)
	defer it.Release()
	var out []space.ChunkSpace
	for it.Next() {
		c, ok := parseKey(it.Key())
		if !ok {
			s.logger.Printf("skipping foreign key %x", it.Key())
			continue
		}
		out = append(out, c)
	}
	return out, it.Error()
}

func (s *Store[T]) Writes() uint64 { return s.writes.Load() }

func (s *Store[T]) Skipped() uint64 { return s.skipped.Load() }
