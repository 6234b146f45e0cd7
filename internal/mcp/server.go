package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screend/internal/ipc"
)

const (
	ServerName    = "screend"
	ServerVersion = "0.1.0"
)

// Server is the MCP server exposing screen queries over stdio. Tool
// calls are proxied to the daemon through an IPC query session.
type Server struct {
	mcpServer  *mcpsdk.Server
	socketPath string
	logger     *slog.Logger

	mu     sync.Mutex
	client *ipc.Client
}

// NewServer creates an MCP server that talks to the daemon at
// socketPath. Empty socketPath uses the default runtime location.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	s := &Server{
		socketPath: socketPath,
		logger:     logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close tears down the daemon session, if any.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Teardown()
		s.client = nil
	}
}

// dial returns the cached daemon session, connecting on first use.
// A session that died since the last call is replaced.
func (s *Server) dial() (*ipc.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		select {
		case <-s.client.Session().Done():
			s.client = nil
		default:
			return s.client, nil
		}
	}

	client, err := ipc.Dial(ipc.Options{
		SocketPath: s.socketPath,
		Logger:     s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reach screend daemon: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_screens",
		Description: "List all attached screens with their geometry in both app units and device pixels, plus depth and scale factor for each.",
	}, s.handleListScreens)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "primary_screen",
		Description: "Get the primary screen descriptor. Returns found=false when no display is attached.",
	}, s.handlePrimaryScreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "screen_for_rect",
		Description: "Find the screen with the largest overlap for a rectangle in app units. Off-screen rectangles resolve to the lowest-id screen.",
	}, s.handleScreenForRect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "refresh_screens",
		Description: "Ask the daemon to re-enumerate displays from the OS. Returns the resulting screen count; refreshed=false means enumeration failed and the previous registry was kept.",
	}, s.handleRefreshScreens)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "daemon_status",
		Description: "Report daemon status: screen count, primary presence, live session count and uptime.",
	}, s.handleDaemonStatus)
}
