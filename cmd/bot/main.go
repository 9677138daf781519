package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"infinimap.ai/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		every  = flag.Duration("every", 500*time.Millisecond, "delay between writes")
		radius = flag.Int64("radius", 64, "paint within this many cells of the walk position")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s dims=%d chunk=%v backend=%s", welcome.SessionID, welcome.Dimensions, welcome.ChunkSize, welcome.Backend)

	go readLoop(conn, logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := time.NewTicker(*every)
	defer t.Stop()

	var walk protocol.Pos
	for n := 0; ; n++ {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		// Drift the focus so the server has something to prune.
		walk[0] += r.Int63n(9) - 4
		walk[1] += r.Int63n(9) - 4
		if n%10 == 0 {
			focus := request(protocol.TypeFocus, n)
			focus.Pos = &walk
			_ = conn.WriteJSON(focus)
		}

		set := request(protocol.TypeSetCell, n)
		p := protocol.Pos{walk[0] + r.Int63n(2*(*radius)+1) - *radius, walk[1] + r.Int63n(2*(*radius)+1) - *radius, 0}
		if welcome.Dimensions == 3 {
			p[2] = r.Int63n(int64(welcome.ChunkSize[2]))
		}
		set.Pos = &p
		set.Cell = &protocol.Cell{
			ID:       uint16(1 + r.Intn(32)),
			Metadata: map[string]any{"painted_by": welcome.SessionID},
		}
		if err := conn.WriteJSON(set); err != nil {
			logger.Printf("send: %v", err)
			return
		}

		if n%20 == 0 {
			_ = conn.WriteJSON(request(protocol.TypeStats, n))
		}
	}
}

func request(typ string, n int) protocol.RequestMsg {
	return protocol.RequestMsg{
		Type:            typ,
		ProtocolVersion: protocol.Version,
		ReqID:           fmt.Sprintf("%s_%d", typ, n),
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			if res.Stats != nil {
				logger.Printf("STATS resident=%d cells=%d sessions=%d evicted=%d", res.Stats.ResidentChunks, res.Stats.Cells, res.Stats.Sessions, res.Stats.Evicted)
			}
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR req=%s code=%s %s", e.ReqID, e.Code, e.Message)
		}
	}
}
