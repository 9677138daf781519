package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/space"
)

// JSONLZstdWriter appends one JSON document per line to an hourly file,
// zstd compressed.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.curHour = ""
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// WriteEntry is one journal line: a chunk handed to the writer, whether it was
// being evicted or only flushed.
type WriteEntry struct {
	Time    string `json:"time"`
	CX      int64  `json:"cx"`
	CY      int64  `json:"cy"`
	CZ      int64  `json:"cz"`
	Cells   int    `json:"cells"`
	NonZero int    `json:"non_zero"`
	Error   string `json:"error,omitempty"`
}

func (e WriteEntry) Chunk() space.ChunkSpace {
	return space.ChunkSpace{X: e.CX, Y: e.CY, Z: e.CZ}
}

// WriteJournal records every chunk write the map performs.
type WriteJournal struct{ w *JSONLZstdWriter }

func NewWriteJournal(dataDir string) *WriteJournal {
	return &WriteJournal{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), "writes")}
}

func (j *WriteJournal) Record(e WriteEntry) error { return j.w.Write(e) }
func (j *WriteJournal) Close() error              { return j.w.Close() }

// Dir is where journal files are written.
func (j *WriteJournal) Dir() string { return j.w.baseDir }

// Journaled wraps next so that every call is journaled after it returns. A
// nil next journals chunks that are simply discarded. Journal failures are
// not reported to the map.
func Journaled[T comparable](j *WriteJournal, next chunkmap.Writer[T]) chunkmap.Writer[T] {
	return func(c space.ChunkSpace, cells []T) error {
		var err error
		if next != nil {
			err = next(c, cells)
		}
		var zero T
		nonZero := 0
		for _, v := range cells {
			if v != zero {
				nonZero++
			}
		}
		e := WriteEntry{
			Time:    j.w.now().UTC().Format(time.RFC3339Nano),
			CX:      c.X,
			CY:      c.Y,
			CZ:      c.Z,
			Cells:   len(cells),
			NonZero: nonZero,
		}
		if err != nil {
			e.Error = err.Error()
		}
		_ = j.Record(e)
		return err
	}
}

// ReadWrites decodes a closed journal file.
func ReadWrites(path string) ([]WriteEntry, error) {
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

	var out []WriteEntry
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var e WriteEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode journal: %w", err)
		}
		out = append(out, e)
	}
}
