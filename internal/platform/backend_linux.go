//go:build linux

package platform

import (
	"fmt"

	"github.com/1broseidon/screend/internal/screen"
	"github.com/1broseidon/screend/internal/x11"
)

// X11Source enumerates screens from an X server via RandR.
type X11Source struct {
	conn *x11.Connection
}

var _ Source = (*X11Source)(nil)

// NewX11Source wraps an existing X11 connection.
func NewX11Source(conn *x11.Connection) *X11Source {
	return &X11Source{conn: conn}
}

// NewX11SourceFromDisplay opens a fresh X11 connection. An empty
// display uses the DISPLAY environment variable.
func NewX11SourceFromDisplay(display string) (*X11Source, error) {
	conn, err := x11.NewConnectionDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &X11Source{conn: conn}, nil
}

// Enumerate queries the current monitor configuration.
func (s *X11Source) Enumerate() ([]screen.Descriptor, int, float64, error) {
	return s.conn.EnumerateScreens()
}

// Disconnect closes the underlying X11 connection.
func (s *X11Source) Disconnect() {
	if s != nil && s.conn != nil {
		s.conn.Close()
	}
}
