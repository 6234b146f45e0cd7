package wire

import (
	"github.com/1broseidon/screend/internal/geometry"
	"github.com/1broseidon/screend/internal/screen"
)

// Child -> parent methods.
const (
	MethodRefresh           = "refresh"
	MethodScreenRefresh     = "screen-refresh"
	MethodGetPrimaryScreen  = "get-primary-screen"
	MethodScreenForRect     = "screen-for-rect"
	MethodScreenForBrowser  = "screen-for-browser"
	MethodListScreens       = "list-screens"
	MethodStatus            = "status"
	MethodRegisterSurface   = "register-surface"
	MethodUnregisterSurface = "unregister-surface"
)

// Parent -> child methods, issued nested while a child call is pending.
const (
	MethodSurfaceGeometry = "surface-geometry"
)

// RefreshResult reports a completed re-enumeration.
type RefreshResult struct {
	// ScreenCount is the number of screens after re-enumeration.
	ScreenCount int `json:"screen_count"`
	// DefaultScale is the system default scale factor.
	DefaultScale float64 `json:"default_scale"`
}

// ScreenRefreshParams selects the screen to re-read.
type ScreenRefreshParams struct {
	ID int `json:"id"`
}

// DescriptorResult carries a single screen descriptor.
type DescriptorResult struct {
	Screen screen.Descriptor `json:"screen"`
}

// RectParams is the query rectangle for screen-for-rect, in app units.
type RectParams struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the params to a geometry rect.
func (p RectParams) Rect() geometry.Rect {
	return geometry.Rect{X: p.Left, Y: p.Top, Width: p.Width, Height: p.Height}
}

// BrowserParams identifies a browser tab for screen-for-browser.
type BrowserParams struct {
	TabID string `json:"tab_id"`
}

// ListScreensResult carries the full registry snapshot.
type ListScreensResult struct {
	Screens      []screen.Descriptor `json:"screens"`
	DefaultScale float64             `json:"default_scale"`
}

// StatusResult reports daemon health for the status call.
type StatusResult struct {
	ScreenCount   int   `json:"screen_count"`
	HasPrimary    bool  `json:"has_primary"`
	SessionCount  int   `json:"session_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// RegisterSurfaceParams announces a tab hosted by the calling child.
// Rect (app units) is optional; when absent the parent asks the child
// for geometry on demand via surface-geometry.
type RegisterSurfaceParams struct {
	TabID string         `json:"tab_id"`
	Rect  *geometry.Rect `json:"rect,omitempty"`
}

// UnregisterSurfaceParams withdraws a previously registered tab.
type UnregisterSurfaceParams struct {
	TabID string `json:"tab_id"`
}

// SurfaceGeometryParams asks the owning child where a tab's rendering
// surface currently sits.
type SurfaceGeometryParams struct {
	TabID string `json:"tab_id"`
}

// SurfaceGeometryResult is the surface location in app units.
type SurfaceGeometryResult struct {
	Rect geometry.Rect `json:"rect"`
}
