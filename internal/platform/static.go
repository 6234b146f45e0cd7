package platform

import (
	"github.com/1broseidon/screend/internal/screen"
)

// StaticSource serves a fixed screen set. Used for headless operation
// and for tests; the screens come from the daemon config.
type StaticSource struct {
	screens      []screen.Descriptor
	primaryIndex int
	defaultScale float64
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource builds a source over a fixed screen list.
// primaryIndex is -1 when no screen is primary.
func NewStaticSource(screens []screen.Descriptor, primaryIndex int, defaultScale float64) *StaticSource {
	if defaultScale <= 0 {
		defaultScale = 1.0
	}
	if primaryIndex >= len(screens) {
		primaryIndex = -1
	}
	return &StaticSource{
		screens:      screens,
		primaryIndex: primaryIndex,
		defaultScale: defaultScale,
	}
}

// Enumerate returns copies of the configured screens.
func (s *StaticSource) Enumerate() ([]screen.Descriptor, int, float64, error) {
	out := make([]screen.Descriptor, len(s.screens))
	copy(out, s.screens)
	return out, s.primaryIndex, s.defaultScale, nil
}
