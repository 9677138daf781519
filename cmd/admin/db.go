package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd queries a sqlite chunk store directly, without going through the
// store's write queue.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/chunks.sqlite)")
	chunkArg := fs.String("chunk", "", "chunk coordinate cx,cy,cz (writes filter)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "chunks"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "chunks.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "chunks":
		rows, err := db.Query(`SELECT cx,cy,cz,digest,cells,length(image),updated_at FROM chunks ORDER BY updated_at DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				CX        int64  `json:"cx"`
				CY        int64  `json:"cy"`
				CZ        int64  `json:"cz"`
				Digest    string `json:"digest"`
				Cells     int    `json:"cells"`
				Bytes     int    `json:"bytes"`
				UpdatedAt string `json:"updated_at"`
			}
			var digest int64
			if err := rows.Scan(&r.CX, &r.CY, &r.CZ, &digest, &r.Cells, &r.Bytes, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Digest = fmt.Sprintf("%016x", uint64(digest))
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "writes":
		query := `SELECT seq,cx,cy,cz,digest,cells,skipped,at FROM chunk_writes`
		var qargs []any
		if strings.TrimSpace(*chunkArg) != "" {
			v, err := parseVec3(*chunkArg)
			if err != nil {
				fmt.Fprintln(os.Stderr, "bad -chunk:", err)
				os.Exit(2)
			}
			query += ` WHERE cx=? AND cy=? AND cz=?`
			qargs = append(qargs, v[0], v[1], v[2])
		}
		query += ` ORDER BY seq DESC LIMIT ?`
		qargs = append(qargs, *limit)

		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq     int64  `json:"seq"`
				CX      int64  `json:"cx"`
				CY      int64  `json:"cy"`
				CZ      int64  `json:"cz"`
				Digest  string `json:"digest"`
				Cells   int    `json:"cells"`
				Skipped bool   `json:"skipped"`
				At      string `json:"at"`
			}
			var digest int64
			if err := rows.Scan(&r.Seq, &r.CX, &r.CY, &r.CZ, &digest, &r.Cells, &r.Skipped, &r.At); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Digest = fmt.Sprintf("%016x", uint64(digest))
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "meta":
		rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(map[string]string{"key": k, "value": v})
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want chunks, writes or meta)\n", q)
		os.Exit(2)
	}
}
