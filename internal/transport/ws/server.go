package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"infinimap.ai/internal/block"
	"infinimap.ai/internal/chunkmap"
	"infinimap.ai/internal/entity"
	"infinimap.ai/internal/protocol"
	"infinimap.ai/internal/space"
)

// Options describe the map being served. Backend is only reported to clients.
type Options struct {
	Dimensions        int
	Backend           string
	KeepRadius        int
	MaxResidentChunks int
}

// Server exposes one block map over websocket. All sessions share the map; a
// mutex serializes every request against it.
type Server struct {
	mu       sync.Mutex
	m        *chunkmap.ChunkMap[block.Block]
	items    *entity.Registry
	opts     Options
	focus    map[string]space.ChunkSpace
	sessions int
	evicted  int

	log         *log.Logger
	upgrader    websocket.Upgrader
	nextSession atomic.Uint64
}

func NewServer(m *chunkmap.ChunkMap[block.Block], opts Options, logger *log.Logger) *Server {
	if opts.Dimensions == 0 {
		opts.Dimensions = 3
	}
	if opts.Backend == "" {
		opts.Backend = "none"
	}
	return &Server{
		m:     m,
		items: entity.NewRegistry(),
		opts:  opts,
		focus: map[string]space.ChunkSpace{},
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("session %s connected from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			resp := s.decodeAndHandle(sessionID, msg)
			b, err := json.Marshal(resp)
			if err != nil {
				s.logf("session %s: encode reply: %v", sessionID, err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.mu.Lock()
		delete(s.focus, sessionID)
		s.sessions--
		s.mu.Unlock()
		s.logf("session %s closed", sessionID)
	}
}

func (s *Server) decodeAndHandle(sessionID string, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError("", protocol.ErrProtoBadRequest, "bad json: "+err.Error())
	}
	if !protocol.IsRequestType(base.Type) {
		return protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type))
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	var req protocol.RequestMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, "bad request: "+err.Error())
	}
	return s.Handle(sessionID, req)
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	name := strings.TrimSpace(hello.ClientName)
	if name == "" {
		name = "client"
	}

	sessionID = fmt.Sprintf("%s-%d", name, s.nextSession.Add(1))
	ext := s.m.Extents()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Dimensions:      s.opts.Dimensions,
		ChunkSize:       [3]int{ext.Width, ext.Height, ext.Depth},
		Backend:         s.opts.Backend,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()
	return sessionID, make(chan []byte, 16)
}

// Prune evicts every resident chunk outside KeepRadius of the chunks clients
// have focused, keeping at most MaxResidentChunks. With no focus nothing is
// evicted.
func (s *Server) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.focus) == 0 {
		return 0, nil
	}
	centers := make([]space.ChunkSpace, 0, len(s.focus))
	for _, c := range s.focus {
		centers = append(centers, c)
	}
	n, err := s.m.Prune(chunkmap.Wanted(centers, s.opts.KeepRadius, s.opts.MaxResidentChunks))
	s.evicted += n
	return n, err
}

// Flush hands every resident chunk to the writer without evicting.
func (s *Server) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Flush()
}

func (s *Server) Stats() protocol.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Server) statsLocked() protocol.Stats {
	return protocol.Stats{
		ResidentChunks: s.m.Len(),
		Cells:          s.m.Count(),
		Entities:       s.items.Len(),
		Sessions:       s.sessions,
		Evicted:        s.evicted,
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
