package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/1broseidon/screend/internal/geometry"
	"github.com/1broseidon/screend/internal/runtimepath"
	"github.com/1broseidon/screend/internal/screen"
	"github.com/1broseidon/screend/internal/session"
	"github.com/1broseidon/screend/internal/wire"
)

// SurfaceGeometryFunc answers the parent's nested surface-geometry
// calls: where is the given tab's rendering surface right now, in app
// units. Returning ok=false reports an unmapped tab.
type SurfaceGeometryFunc func(tabID string) (geometry.Rect, bool)

// Options configures a client connection.
type Options struct {
	// SocketPath overrides the default runtime socket location.
	SocketPath string
	// Logger receives session diagnostics. nil discards them.
	Logger *slog.Logger
	// SurfaceGeometry serves nested geometry queries for tabs this
	// client registered without a cached rect. nil reports unmapped.
	SurfaceGeometry SurfaceGeometryFunc
}

// Client is the child-side handle on one query session with the daemon.
type Client struct {
	sess *session.Session
}

// Dial connects to the daemon and opens a query session.
func Dial(opts Options) (*Client, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}

	sess := session.New(conn, opts.Logger)
	geometryFn := opts.SurfaceGeometry
	sess.Handle(wire.MethodSurfaceGeometry, func(_ context.Context, _ *session.Session, params json.RawMessage) (any, bool, error) {
		var p wire.SurfaceGeometryParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, false, fmt.Errorf("invalid surface-geometry params: %w", err)
		}
		if geometryFn == nil {
			return nil, false, fmt.Errorf("tab %q is not mapped", p.TabID)
		}
		rect, ok := geometryFn(p.TabID)
		if !ok {
			return nil, false, fmt.Errorf("tab %q is not mapped", p.TabID)
		}
		return wire.SurfaceGeometryResult{Rect: rect}, true, nil
	})
	sess.Start()

	return &Client{sess: sess}, nil
}

// Session exposes the underlying session, primarily for tests.
func (c *Client) Session() *session.Session {
	return c.sess
}

// Refresh asks the daemon to re-enumerate displays. ok is false when
// the display subsystem failed; the registry is left unchanged then.
func (c *Client) Refresh(ctx context.Context) (count int, defaultScale float64, ok bool, err error) {
	reply, err := c.sess.Call(ctx, wire.MethodRefresh, nil)
	if err != nil {
		return 0, 0, false, err
	}
	if !reply.OK {
		return 0, 0, false, nil
	}

	var res wire.RefreshResult
	if err := reply.Decode(&res); err != nil {
		return 0, 0, false, fmt.Errorf("failed to parse refresh result: %w", err)
	}
	return res.ScreenCount, res.DefaultScale, true, nil
}

// ScreenRefresh re-reads and returns the descriptor for id. ok is
// false when id is not present in the registry.
func (c *Client) ScreenRefresh(ctx context.Context, id int) (screen.Descriptor, bool, error) {
	return c.descriptorCall(ctx, wire.MethodScreenRefresh, wire.ScreenRefreshParams{ID: id})
}

// PrimaryScreen returns the primary screen descriptor. ok is false
// when no display is attached.
func (c *Client) PrimaryScreen(ctx context.Context) (screen.Descriptor, bool, error) {
	return c.descriptorCall(ctx, wire.MethodGetPrimaryScreen, nil)
}

// ScreenForRect returns the screen with maximal overlap for the given
// rect in app units. ok is false when the registry is empty.
func (c *Client) ScreenForRect(ctx context.Context, rect geometry.Rect) (screen.Descriptor, bool, error) {
	return c.descriptorCall(ctx, wire.MethodScreenForRect, wire.RectParams{
		Left:   rect.X,
		Top:    rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
	})
}

// ScreenForBrowser returns the screen hosting the given tab's
// rendering surface. ok is false when the tab is unknown or unmapped.
func (c *Client) ScreenForBrowser(ctx context.Context, tabID string) (screen.Descriptor, bool, error) {
	return c.descriptorCall(ctx, wire.MethodScreenForBrowser, wire.BrowserParams{TabID: tabID})
}

func (c *Client) descriptorCall(ctx context.Context, method string, params any) (screen.Descriptor, bool, error) {
	reply, err := c.sess.Call(ctx, method, params)
	if err != nil {
		return screen.Descriptor{}, false, err
	}
	if !reply.OK {
		return screen.Descriptor{}, false, nil
	}

	var res wire.DescriptorResult
	if err := reply.Decode(&res); err != nil {
		return screen.Descriptor{}, false, fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return res.Screen, true, nil
}

// ListScreens returns the full registry snapshot.
func (c *Client) ListScreens(ctx context.Context) ([]screen.Descriptor, float64, error) {
	reply, err := c.sess.Call(ctx, wire.MethodListScreens, nil)
	if err != nil {
		return nil, 0, err
	}
	if !reply.OK {
		return nil, 0, fmt.Errorf("daemon error: %s", reply.Err)
	}

	var res wire.ListScreensResult
	if err := reply.Decode(&res); err != nil {
		return nil, 0, fmt.Errorf("failed to parse screen list: %w", err)
	}
	return res.Screens, res.DefaultScale, nil
}

// Status retrieves daemon status.
func (c *Client) Status(ctx context.Context) (wire.StatusResult, error) {
	reply, err := c.sess.Call(ctx, wire.MethodStatus, nil)
	if err != nil {
		return wire.StatusResult{}, err
	}
	if !reply.OK {
		return wire.StatusResult{}, fmt.Errorf("daemon error: %s", reply.Err)
	}

	var res wire.StatusResult
	if err := reply.Decode(&res); err != nil {
		return wire.StatusResult{}, fmt.Errorf("failed to parse status: %w", err)
	}
	return res, nil
}

// RegisterSurface announces a tab hosted by this client. rect may be
// nil; the daemon will then ask back via surface-geometry on demand.
func (c *Client) RegisterSurface(ctx context.Context, tabID string, rect *geometry.Rect) error {
	reply, err := c.sess.Call(ctx, wire.MethodRegisterSurface, wire.RegisterSurfaceParams{TabID: tabID, Rect: rect})
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("daemon error: %s", reply.Err)
	}
	return nil
}

// UnregisterSurface withdraws a previously registered tab.
func (c *Client) UnregisterSurface(ctx context.Context, tabID string) error {
	reply, err := c.sess.Call(ctx, wire.MethodUnregisterSurface, wire.UnregisterSurfaceParams{TabID: tabID})
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("daemon error: %s", reply.Err)
	}
	return nil
}

// Teardown sends the one-way session terminator and closes the client.
func (c *Client) Teardown() error {
	return c.sess.Teardown()
}

// Close destroys the session without the teardown handshake.
func (c *Client) Close() error {
	return c.sess.Close()
}
