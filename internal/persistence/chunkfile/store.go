package chunkfile

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"infinimap.ai/internal/space"
)

// Stats counts store traffic since Open.
type Stats struct {
	Loaded  int
	Missing int
	Written int
	Skipped int
}

// Store keeps one compressed file per chunk in a directory. It remembers the
// xxhash digest of every image it has read or written and skips writes whose
// image is unchanged.
type Store[T any] struct {
	dir    string
	codec  Codec[T]
	logger *log.Logger

	mu      sync.Mutex
	digests map[space.ChunkSpace]uint64
	stats   Stats
}

func Open[T any](dir string, codec Codec[T], logger *log.Logger) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store[T]{
		dir:     dir,
		codec:   codec,
		logger:  logger,
		digests: map[space.ChunkSpace]uint64{},
	}, nil
}

func (s *Store[T]) Path(c space.ChunkSpace) string {
	return filepath.Join(s.dir, fmt.Sprintf("chunk_%d_%d_%d.bin.zst", c.X, c.Y, c.Z))
}

// Load reads the chunk at c. A missing file is not an error: it returns nil
// cells so the map starts the chunk zeroed.
func (s *Store[T]) Load(c space.ChunkSpace) ([]T, error) {
	image, err := readImage(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.stats.Missing++
		s.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	}
	cells, err := Decode(s.codec, image)
	if err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	}
	s.mu.Lock()
	s.digests[c] = Digest(image)
	s.stats.Loaded++
	s.mu.Unlock()
	return cells, nil
}

// Save writes cells for c unless the encoded image matches the last one seen
// for that chunk.
func (s *Store[T]) Save(c space.ChunkSpace, cells []T) error {
	image, err := Encode(s.codec, cells)
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	sum := Digest(image)

	s.mu.Lock()
	prev, seen := s.digests[c]
	s.mu.Unlock()
	if seen && prev == sum {
		s.mu.Lock()
		s.stats.Skipped++
		s.mu.Unlock()
		return nil
	}

	if err := writeImage(s.Path(c), image); err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	s.mu.Lock()
	s.digests[c] = sum
	s.stats.Written++
	s.mu.Unlock()
	s.logger.Printf("chunk %v written (%d cells, digest %016x)", c, len(cells), sum)
	return nil
}

// Keys lists every chunk file in the directory, ordered x, y, z. Files that do
// not follow the chunk naming scheme are ignored.
func (s *Store[T]) Keys() ([]space.ChunkSpace, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []space.ChunkSpace
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		var c space.ChunkSpace
		if _, err := fmt.Sscanf(e.Name(), "chunk_%d_%d_%d.bin.zst", &c.X, &c.Y, &c.Z); err != nil {
			continue
		}
		if filepath.Base(s.Path(c)) != e.Name() {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b space.ChunkSpace) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Z, b.Z)
	})
	return out, nil
}

// Digest hashes an uncompressed chunk image.
func Digest(image []byte) uint64 { return xxhash.Sum64(image) }

// LastDigest returns the digest last read or written for c.
func (s *Store[T]) LastDigest(c space.ChunkSpace) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.digests[c]
	return d, ok
}

func (s *Store[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func writeImage(path string, image []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := compress(f, image); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func compress(w io.Writer, image []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	if _, err := bw.Write(image); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func readImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	image, err := io.ReadAll(bufio.NewReaderSize(dec, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return image, nil
}
