package screen

import (
	"fmt"

	"github.com/1broseidon/screend/internal/geometry"
)

// Descriptor describes one physical or virtual display: its geometry in
// both coordinate spaces, its usable area, and its pixel capabilities.
type Descriptor struct {
	// ID is an opaque handle assigned by the registry. Stable for the
	// registry's lifetime and never reused while assigned.
	ID int `json:"id"`
	// Name is the output name reported by the display subsystem
	// (e.g. "eDP-1"). The registry keys stable IDs off it.
	Name string `json:"name"`

	// FullRect is the display bounds in app units.
	FullRect geometry.Rect `json:"full_rect"`
	// FullRectDevice is the display bounds in native device pixels.
	FullRectDevice geometry.Rect `json:"full_rect_device"`
	// AvailableRect is the usable area in app units, excluding system
	// reserved regions (panels, docks).
	AvailableRect geometry.Rect `json:"available_rect"`
	// AvailableRectDevice is the usable area in native device pixels.
	AvailableRectDevice geometry.Rect `json:"available_rect_device"`

	PixelDepth int `json:"pixel_depth"`
	ColorDepth int `json:"color_depth"`
	// ScaleFactor is the device scale (device pixels per app unit).
	ScaleFactor float64 `json:"scale_factor"`
}

// Validate checks the descriptor invariants: available area contained in
// full area in both coordinate spaces, pixelDepth >= colorDepth > 0, and
// a positive scale factor.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("screen: descriptor has no name")
	}
	if d.FullRect.Empty() {
		return fmt.Errorf("screen %q: full rect %+v is empty", d.Name, d.FullRect)
	}
	if d.FullRectDevice.Empty() {
		return fmt.Errorf("screen %q: device full rect %+v is empty", d.Name, d.FullRectDevice)
	}
	if !d.FullRect.Contains(d.AvailableRect) {
		return fmt.Errorf("screen %q: available rect %+v exceeds full rect %+v", d.Name, d.AvailableRect, d.FullRect)
	}
	if !d.FullRectDevice.Contains(d.AvailableRectDevice) {
		return fmt.Errorf("screen %q: device available rect %+v exceeds device full rect %+v", d.Name, d.AvailableRectDevice, d.FullRectDevice)
	}
	if d.ColorDepth <= 0 {
		return fmt.Errorf("screen %q: color depth must be positive, got %d", d.Name, d.ColorDepth)
	}
	if d.PixelDepth < d.ColorDepth {
		return fmt.Errorf("screen %q: pixel depth %d below color depth %d", d.Name, d.PixelDepth, d.ColorDepth)
	}
	if d.ScaleFactor <= 0 {
		return fmt.Errorf("screen %q: scale factor must be positive, got %g", d.Name, d.ScaleFactor)
	}
	return nil
}
