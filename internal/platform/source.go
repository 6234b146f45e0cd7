package platform

import (
	"github.com/1broseidon/screend/internal/screen"
)

// Source abstracts the display-enumeration subsystem feeding the
// screen registry.
type Source interface {
	// Enumerate returns the currently attached screens (IDs unassigned;
	// the registry keys them by name), the index of the primary screen
	// within the slice (-1 when no display is designated primary), and
	// the system default scale factor.
	Enumerate() (screens []screen.Descriptor, primaryIndex int, defaultScale float64, err error)
}
