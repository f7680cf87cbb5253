// Package previewws serves one editor's composited frames over a local
// WebSocket, one connection per client, binary messages only.
package previewws

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("previewws")

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FrameSource is whatever publishes wire-framed RGBA+trailer payloads;
// *editor.Instance satisfies it via its Frames method.
type FrameSource interface {
	Frames() <-chan []byte
}

// Server hosts one preview WebSocket endpoint at "/" for a single
// EditorInstance. Every accepted connection gets its own write pump
// reading the same Frames channel, so concurrent clients split the
// frames between them; no connection replaces another.
type Server struct {
	src     FrameSource
	addr    string
	httpSrv *http.Server
	ln      net.Listener
}

// New builds a Server that reads frames from src and serves them at
// the given local address (e.g. "127.0.0.1:0" to pick a free port).
func New(src FrameSource, addr string) *Server {
	s := &Server{src: src, addr: addr}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Listen binds the server's address without serving yet, so a caller
// that needs the real port (addr ending in ":0") can read it back via
// Addr before handing Serve off to a goroutine.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return corerr.Wrap(corerr.KindIO, "previewws.Listen", err)
	}
	s.ln = ln
	return nil
}

// Serve blocks accepting connections on the listener Listen bound,
// calling Listen itself first if the caller skipped it.
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	err := s.httpSrv.Serve(s.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	if err != nil {
		return corerr.Wrap(corerr.KindIO, "previewws.Serve", err)
	}
	return nil
}

// ListenAndServe binds addr and blocks serving the preview endpoint
// until the server is closed.
func (s *Server) ListenAndServe() error {
	return s.Serve()
}

// Addr returns the server's bound address, or "" before Listen/Serve
// has bound a listener.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.httpSrv.Close()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log.Info("preview client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, done)
}

// readPump only drains incoming control frames (pong, close); the
// preview protocol carries no client-to-server payload.
func (s *Server) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards frames from the source's watch channel and sends
// periodic pings, until the connection's read side reports closed.
func (s *Server) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	frames := s.src.Frames()
	for {
		select {
		case <-done:
			return
		case frame := <-frames:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Warn("write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
