package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// HandshakeTimeout is the deadline for completing the peer credential
	// and rate-limit checks after a connection arrives.
	HandshakeTimeout = 5 * time.Second

	// RateLimitAttempts is the max connection attempts per identity per window.
	RateLimitAttempts = 5

	// RateLimitWindow is the sliding window for rate limiting.
	RateLimitWindow = 60 * time.Second
)

// Handler processes a decoded command payload and returns a response
// payload (marshaled into the reply Envelope) or an error. It receives
// the originating Conn so handlers that run asynchronously (export)
// can push follow-up envelopes, such as export_progress, after
// returning their initial response. A handler that has already sent
// its own reply via conn may return (nil, nil) to suppress dispatch's
// normal response send.
type Handler func(conn *Conn, id string, payload json.RawMessage) (any, error)

// Server accepts connections from the single UI collaborator process and
// dispatches incoming command-surface messages (spec §6.3) to registered
// handlers by Envelope.Type.
type Server struct {
	socketPath  string
	listener    net.Listener
	rateLimiter *RateLimiter

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool
}

// NewServer creates a command-surface server bound to socketPath.
func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:  socketPath,
		rateLimiter: NewRateLimiter(RateLimitAttempts, RateLimitWindow),
		handlers:    make(map[string]Handler),
	}
}

// Handle registers a handler for a message type.
func (s *Server) Handle(msgType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = h
}

// Serve starts the listener and accept loop. Blocks until stopChan is closed.
func (s *Server) Serve(stopChan <-chan struct{}) error {
	listener, err := Listen(s.socketPath)
	if err != nil {
		return fmt.Errorf("ipc: setup listener: %w", err)
	}
	s.listener = listener

	log.Info("command surface listening", "path", s.socketPath)

	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				s.mu.RLock()
				closed := s.closed
				s.mu.RUnlock()
				if closed {
					return
				}
				log.Warn("accept error", "error", err)
				continue
			}
			go s.handleConnection(conn)
		}
	}()

	<-stopChan
	s.Close()
	return nil
}

// Close shuts down the listener.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleConnection(rawConn net.Conn) {
	rawConn.SetDeadline(time.Now().Add(HandshakeTimeout))

	creds, err := GetPeerCredentials(rawConn)
	if err != nil {
		log.Warn("peer credential check failed", "error", err)
		rawConn.Close()
		return
	}

	identityKey := creds.IdentityKey()
	if !s.rateLimiter.Allow(identityKey) {
		log.Warn("connection rate limited", "identity", identityKey, "pid", creds.PID)
		rawConn.Close()
		return
	}

	if !VerifyBinaryPath(creds.BinaryPath) {
		log.Warn("binary path verification failed", "identity", identityKey, "pid", creds.PID, "path", creds.BinaryPath)
		rawConn.Close()
		return
	}

	rawConn.SetDeadline(time.Time{})
	conn := NewConn(rawConn)
	defer conn.Close()

	log.Info("collaborator connected", "identity", identityKey, "pid", creds.PID)

	for {
		env, err := conn.Recv()
		if err != nil {
			log.Info("collaborator disconnected", "identity", identityKey, "error", err)
			return
		}
		s.dispatch(conn, env)
	}
}

func (s *Server) dispatch(conn *Conn, env *Envelope) {
	if env.Type == TypePing {
		conn.SendTyped(env.ID, TypePong, struct{}{})
		return
	}

	s.mu.RLock()
	h, ok := s.handlers[env.Type]
	s.mu.RUnlock()
	if !ok {
		conn.SendError(env.ID, env.Type, fmt.Sprintf("ipc: no handler registered for %q", env.Type))
		return
	}

	resp, err := h(conn, env.ID, env.Payload)
	if err != nil {
		conn.SendError(env.ID, env.Type, err.Error())
		return
	}
	if resp == nil {
		return
	}
	if err := conn.SendTyped(env.ID, env.Type, resp); err != nil {
		log.Warn("send response failed", "type", env.Type, "error", err)
	}
}
