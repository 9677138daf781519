package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/config"
	"infinimap.ai/internal/persistence/backend"
	persistlog "infinimap.ai/internal/persistence/log"
	"infinimap.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to infinimap.yaml or .toml (optional; INFINIMAP_* env vars override)")
		addr       = flag.String("addr", "", "http listen address (overrides config listen)")
		pruneEvery = flag.Duration("prune_every", 10*time.Second, "how often to evict chunks far from client focus (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if a := strings.TrimSpace(*addr); a != "" {
		cfg.Listen = a
	}

	ext := cfg.Extents()
	m, err := chunkmap.New[block.Block](ext.Width, ext.Height, ext.Depth)
	if err != nil {
		logger.Fatalf("chunk map: %v", err)
	}

	be, err := backend.Open(cfg, log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("open %s backend: %v", cfg.Backend, err)
	}
	defer be.Close()
	if be.Store != nil {
		m.Attach(be.Store)
	}
	if cfg.Journal {
		j := persistlog.NewWriteJournal(cfg.DataDir)
		defer j.Close()
		var next chunkmap.Writer[block.Block]
		if be.Store != nil {
			next = be.Store.Save
		}
		m.RegisterWriter(persistlog.Journaled(j, next))
		logger.Printf("write journal: %s", j.Dir())
	}
	logger.Printf("map dims=%d chunk=%s backend=%s", cfg.Dimensions, ext, cfg.Backend)

	srv := ws.NewServer(m, ws.Options{
		Dimensions:        cfg.Dimensions,
		Backend:           cfg.Backend,
		KeepRadius:        cfg.KeepRadius,
		MaxResidentChunks: cfg.MaxResidentChunks,
	}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	if *pruneEvery > 0 {
		go func() {
			t := time.NewTicker(*pruneEvery)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					n, err := srv.Prune()
					if err != nil {
						logger.Printf("prune: %v", err)
					} else if n > 0 {
						logger.Printf("pruned %d chunks", n)
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := srv.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP infinimap_resident_chunks Resident chunk count.\n")
		fmt.Fprintf(rw, "# TYPE infinimap_resident_chunks gauge\n")
		fmt.Fprintf(rw, "infinimap_resident_chunks{backend=%q} %d\n", cfg.Backend, st.ResidentChunks)

		fmt.Fprintf(rw, "# HELP infinimap_cells Cells held by resident chunks.\n")
		fmt.Fprintf(rw, "# TYPE infinimap_cells gauge\n")
		fmt.Fprintf(rw, "infinimap_cells{backend=%q} %d\n", cfg.Backend, st.Cells)

		fmt.Fprintf(rw, "# HELP infinimap_entities Registered entities.\n")
		fmt.Fprintf(rw, "# TYPE infinimap_entities gauge\n")
		fmt.Fprintf(rw, "infinimap_entities{backend=%q} %d\n", cfg.Backend, st.Entities)

		fmt.Fprintf(rw, "# HELP infinimap_sessions Connected websocket sessions.\n")
		fmt.Fprintf(rw, "# TYPE infinimap_sessions gauge\n")
		fmt.Fprintf(rw, "infinimap_sessions{backend=%q} %d\n", cfg.Backend, st.Sessions)

		fmt.Fprintf(rw, "# HELP infinimap_evicted_total Chunks evicted since start.\n")
		fmt.Fprintf(rw, "# TYPE infinimap_evicted_total counter\n")
		fmt.Fprintf(rw, "infinimap_evicted_total{backend=%q} %d\n", cfg.Backend, st.Evicted)
	})
	mux.HandleFunc("/admin/v1/flush", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := srv.Flush(); err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = rw.Write([]byte("ok"))
	})
	if envBool("INFINIMAP_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (INFINIMAP_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", srv.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Listen)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Write everything still resident before the backend closes.
	if err := srv.Flush(); err != nil {
		logger.Printf("final flush: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
