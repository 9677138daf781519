package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/config"
	"infinimap.ai/internal/persistence/backend"
	persistlog "infinimap.ai/internal/persistence/log"
	"infinimap.ai/internal/space"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "dump":
			dumpCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "flush":
			flushCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return cfg
}

func openBackend(cfg config.Config) *backend.Backend {
	if cfg.Backend == config.BackendNone {
		fmt.Fprintln(os.Stderr, "backend is none; nothing is stored")
		os.Exit(2)
	}
	b, err := backend.Open(cfg, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open backend:", err)
		os.Exit(1)
	}
	return b
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	configPath := fs.String("config", "", "server config path (optional; INFINIMAP_* env vars apply)")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	b := openBackend(cfg)
	defer b.Close()

	keys, err := b.Keys(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "keys:", err)
		os.Exit(1)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	fmt.Fprintf(os.Stderr, "%d chunks in %s\n", len(keys), backend.Path(cfg))
}

func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	configPath := fs.String("config", "", "server config path (optional; INFINIMAP_* env vars apply)")
	chunkArg := fs.String("chunk", "", "chunk coordinate cx,cy,cz (required)")
	all := fs.Bool("all", false, "print air cells too")
	_ = fs.Parse(args)

	if strings.TrimSpace(*chunkArg) == "" {
		fmt.Fprintln(os.Stderr, "missing -chunk")
		os.Exit(2)
	}
	v, err := parseVec3(*chunkArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -chunk:", err)
		os.Exit(2)
	}
	c := space.ChunkSpace{X: v[0], Y: v[1], Z: v[2]}

	cfg := loadConfig(*configPath)
	b := openBackend(cfg)
	defer b.Close()

	cells, err := b.Store.Load(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	if cells == nil {
		fmt.Fprintf(os.Stderr, "chunk %s not stored\n", c)
		os.Exit(1)
	}

	ext := cfg.Extents()
	origin := space.ChunkOrigin(c, ext)
	for i, cell := range cells {
		if cell.IsAir() && !*all {
			continue
		}
		printJSON(cellRow(origin.Add(space.ItemFromIndex(i, ext)), cell))
	}
}

type row struct {
	Pos      [3]int64       `json:"pos"`
	ID       uint16         `json:"id"`
	Meta     uint16         `json:"meta,omitempty"`
	Flags    uint32         `json:"flags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func cellRow(w space.WorldSpace, b block.Block) row {
	r := row{Pos: [3]int64{w.X, w.Y, w.Z}, ID: b.ID, Meta: b.Meta, Flags: b.Flags}
	if b.Metadata != nil && b.Metadata.Len() > 0 {
		r.Metadata = map[string]any{}
		for _, k := range b.Metadata.Keys() {
			r.Metadata[k], _ = b.Metadata.Get(k)
		}
	}
	return r
}

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	failedOnly := fs.Bool("failed", false, "print only writes that failed")
	_ = fs.Parse(args)

	files, err := listJournalFiles(filepath.Join(*dataDir, "journal"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", filepath.Join(*dataDir, "journal"))
		os.Exit(1)
	}

	var total, failed int
	for _, path := range files {
		entries, err := persistlog.ReadWrites(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
		for _, e := range entries {
			total++
			if e.Error != "" {
				failed++
			} else if *failedOnly {
				continue
			}
			printJSON(e)
		}
	}
	fmt.Fprintf(os.Stderr, "journal ok: files=%d writes=%d failed=%d\n", len(files), total, failed)
}

func listJournalFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "writes-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func parseVec3(s string) ([3]int64, error) {
	var v [3]int64
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
