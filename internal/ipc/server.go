package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/screend/internal/query"
	"github.com/1broseidon/screend/internal/runtimepath"
	"github.com/1broseidon/screend/internal/session"
	"github.com/1broseidon/screend/internal/wire"
)

// Server accepts child connections and serves the screen query
// protocol over one session per connection.
type Server struct {
	socketPath string
	listener   net.Listener
	svc        *query.Service
	logger     *slog.Logger
	startTime  time.Time

	sessionsMu sync.Mutex
	sessions   map[uint64]*session.Session

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates an IPC server for the query service. An empty
// socketPath resolves the default runtime location.
func NewServer(socketPath string, svc *query.Service, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
		startTime:  time.Now(),
		sessions:   make(map[uint64]*session.Session),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for child connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		s.startSession(conn)
	}
}

// startSession wires a fresh session over conn: query handlers, the
// server-level status handler, and bookkeeping for shutdown.
func (s *Server) startSession(conn net.Conn) {
	sess := session.New(conn, s.logger)
	s.svc.Bind(sess)
	sess.Handle(wire.MethodStatus, s.handleStatus)

	sid := sess.ID()
	s.sessionsMu.Lock()
	s.sessions[sid] = sess
	s.sessionsMu.Unlock()

	sess.OnClose(func() {
		s.sessionsMu.Lock()
		delete(s.sessions, sid)
		s.sessionsMu.Unlock()
		s.logger.Debug("session closed", "session", sid)
	})

	s.logger.Debug("session opened", "session", sid)
	sess.Start()
}

func (s *Server) handleStatus(_ context.Context, _ *session.Session, _ json.RawMessage) (any, bool, error) {
	_, hasPrimary := s.svc.Registry().Primary()

	s.sessionsMu.Lock()
	sessionCount := len(s.sessions)
	s.sessionsMu.Unlock()

	return wire.StatusResult{
		ScreenCount:   s.svc.Registry().Count(),
		HasPrimary:    hasPrimary,
		SessionCount:  sessionCount,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}, true, nil
}

// Stop gracefully shuts down the IPC server. Every live session is
// destroyed, aborting its outstanding calls.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsMu.Lock()
	live := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.sessionsMu.Unlock()

	for _, sess := range live {
		sess.Close()
	}

	os.Remove(s.socketPath)
}
