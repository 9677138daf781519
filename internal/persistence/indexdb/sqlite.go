package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"infinimap.ai/internal/persistence/chunkfile"
	"infinimap.ai/internal/space"
)

// SQLiteStore keeps chunk images in a single SQLite database. Load and Save
// are synchronous so the map sees their errors; the write history table is
// fed from a buffered queue by a background goroutine.
type SQLiteStore[T any] struct {
	db     *sql.DB
	codec  chunkfile.Codec[T]
	logger *log.Logger

	ch   chan writeRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	loads        atomic.Uint64
	saves        atomic.Uint64
	skipped      atomic.Uint64
	dropHistory  atomic.Uint64
	historyTotal atomic.Uint64
}

type writeRow struct {
	C       space.ChunkSpace
	Digest  uint64
	Cells   int
	Skipped bool
	At      string
}

type Stats struct {
	Loads            uint64
	Saves            uint64
	Skipped          uint64
	HistoryTotal     uint64
	DropHistoryTotal uint64
	QueueDepth       int
	QueueCapacity    int
}

func OpenSQLite[T any](path string, codec chunkfile.Codec[T], logger *log.Logger) (*SQLiteStore[T], error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore[T]{
		db:     db,
		codec:  codec,
		logger: logger,
		ch:     make(chan writeRow, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			digest INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			image BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy, cz)
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_writes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			digest INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_writes_pos ON chunk_writes(cx, cy, cz, seq);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore[T]) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Load returns the stored cells for c, or nil when the chunk was never saved.
func (s *SQLiteStore[T]) Load(c space.ChunkSpace) ([]T, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT image FROM chunks WHERE cx=? AND cy=? AND cz=?`, c.X, c.Y, c.Z).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	}
	cells, err := chunkfile.Unpack(s.codec, blob)
	if err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", c, err)
	}
	s.loads.Add(1)
	return cells, nil
}

// Save upserts the chunk image. A chunk whose stored digest already matches
// is left alone.
func (s *SQLiteStore[T]) Save(c space.ChunkSpace, cells []T) error {
	blob, digest, err := chunkfile.Pack(s.codec, cells)
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var stored int64
	err = s.db.QueryRow(`SELECT digest FROM chunks WHERE cx=? AND cy=? AND cz=?`, c.X, c.Y, c.Z).Scan(&stored)
	switch {
	case err == nil && uint64(stored) == digest:
		s.skipped.Add(1)
		s.record(writeRow{C: c, Digest: digest, Cells: len(cells), Skipped: true, At: now})
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("save chunk %v: %w", c, err)
	}

	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO chunks(cx,cy,cz,digest,cells,image,updated_at) VALUES(?,?,?,?,?,?,?)`,
		c.X, c.Y, c.Z, int64(digest), len(cells), blob, now,
	); err != nil {
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	s.saves.Add(1)
	s.record(writeRow{C: c, Digest: digest, Cells: len(cells), At: now})
	return nil
}

// Keys lists every stored chunk coordinate, ordered x, y, z.
func (s *SQLiteStore[T]) Keys(ctx context.Context) ([]space.ChunkSpace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cx, cy, cz FROM chunks ORDER BY cx, cy, cz`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []space.ChunkSpace
	for rows.Next() {
		var c space.ChunkSpace
		if err := rows.Scan(&c.X, &c.Y, &c.Z); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// History returns how many writes (including skipped ones) were recorded for c.
func (s *SQLiteStore[T]) History(ctx context.Context, c space.ChunkSpace) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunk_writes WHERE cx=? AND cy=? AND cz=?`, c.X, c.Y, c.Z,
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore[T]) Stats() Stats {
	return Stats{
		Loads:            s.loads.Load(),
		Saves:            s.saves.Load(),
		Skipped:          s.skipped.Load(),
		HistoryTotal:     s.historyTotal.Load(),
		DropHistoryTotal: s.dropHistory.Load(),
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
	}
}

func (s *SQLiteStore[T]) record(r writeRow) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// The chunks table is authoritative; history is best effort.
		s.dropHistory.Add(1)
	}
}

func (s *SQLiteStore[T]) loop() {
	ctx := context.Background()

	insert, err := s.db.Prepare(`INSERT INTO chunk_writes(cx,cy,cz,digest,cells,skipped,at) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		s.logger.Printf("prepare history insert: %v", err)
		for range s.ch {
			s.dropHistory.Add(1)
		}
		return
	}
	defer insert.Close()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.logger.Printf("commit history: %v", err)
			s.dropHistory.Add(uint64(opCount))
		} else {
			s.historyTotal.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if tx == nil {
			txx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				s.dropHistory.Add(1)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			tx = txx
		}
		skipped := 0
		if r.Skipped {
			skipped = 1
		}
		if _, err := tx.Stmt(insert).Exec(r.C.X, r.C.Y, r.C.Z, int64(r.Digest), r.Cells, skipped, r.At); err != nil {
			_ = tx.Rollback()
			tx = nil
			s.dropHistory.Add(uint64(opCount) + 1)
			opCount = 0
			continue
		}
		opCount++
		// Commit at batch size or when the queue drains after a wait.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
