package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/screend/internal/geometry"
	"github.com/1broseidon/screend/internal/screen"
)

// EnumerateScreens queries RandR for active CRTCs and builds one screen
// descriptor per monitor: CRTC geometry in device pixels, dock struts
// subtracted for the available area, root depth, and a DPI-derived
// default scale. The returned primary index follows the RandR primary
// output (-1 when unset or disconnected).
func (c *Connection) EnumerateScreens() ([]screen.Descriptor, int, float64, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, -1, 0, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, -1, 0, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primaryOutput randr.Output
	if reply, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		primaryOutput = reply.Output
	}

	scale := c.defaultScale()
	pixelDepth, colorDepth := c.rootDepths()
	struts := c.dockStrutRects()

	var screens []screen.Descriptor
	primaryIndex := -1

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Screen%d", i)
		isPrimary := false
		for j, output := range crtcInfo.Outputs {
			if j == 0 {
				if outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), output, resources.ConfigTimestamp).Reply(); err == nil {
					name = string(outputInfo.Name)
				}
			}
			if primaryOutput != 0 && output == primaryOutput {
				isPrimary = true
			}
		}

		device := geometry.Rect{
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		availableDevice := subtractStruts(device, struts)

		full := device.Scaled(1.0 / scale)
		available := full.Intersect(availableDevice.Scaled(1.0 / scale))
		if available.Empty() {
			available = full
		}

		if isPrimary {
			primaryIndex = len(screens)
		}
		screens = append(screens, screen.Descriptor{
			Name:                name,
			FullRect:            full,
			FullRectDevice:      device,
			AvailableRect:       available,
			AvailableRectDevice: availableDevice,
			PixelDepth:          pixelDepth,
			ColorDepth:          colorDepth,
			ScaleFactor:         scale,
		})
	}

	return screens, primaryIndex, scale, nil
}

// defaultScale derives the device scale from the root screen DPI,
// with 96 DPI as scale 1.0.
func (c *Connection) defaultScale() float64 {
	setup := xproto.Setup(c.XUtil.Conn())
	s := setup.DefaultScreen(c.XUtil.Conn())
	if s == nil || s.WidthInMillimeters == 0 {
		return 1.0
	}

	dpi := float64(s.WidthInPixels) * 25.4 / float64(s.WidthInMillimeters)
	scale := dpi / 96.0
	if scale < 0.5 {
		return 1.0
	}
	return scale
}

// rootDepths reports bits-per-pixel for the root visual. 32-bit visuals
// reserve 8 bits for alpha, so color depth drops to 24 there.
func (c *Connection) rootDepths() (pixelDepth, colorDepth int) {
	setup := xproto.Setup(c.XUtil.Conn())
	s := setup.DefaultScreen(c.XUtil.Conn())
	if s == nil || s.RootDepth == 0 {
		return 24, 24
	}

	pixelDepth = int(s.RootDepth)
	colorDepth = pixelDepth
	if pixelDepth == 32 {
		colorDepth = 24
	}
	return pixelDepth, colorDepth
}

// edgeStrut is one dock reservation: a rectangle in root coordinates
// pinned to one root edge.
type edgeStrut struct {
	rect geometry.Rect
	edge strutEdge
}

type strutEdge int

const (
	edgeLeft strutEdge = iota
	edgeRight
	edgeTop
	edgeBottom
)

// dockStrutRects collects the reserved regions advertised by dock
// windows (_NET_WM_STRUT_PARTIAL, falling back to _NET_WM_STRUT).
func (c *Connection) dockStrutRects() []edgeStrut {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}

	var struts []edgeStrut
	for _, windowID := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
		if err != nil {
			continue
		}

		isDock := false
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				isDock = true
				break
			}
		}
		if !isDock {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID)
		if err != nil {
			// Some docks only set _NET_WM_STRUT (no partial ranges).
			s, err := ewmh.WmStrutGet(c.XUtil, windowID)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left:         s.Left,
				Right:        s.Right,
				Top:          s.Top,
				Bottom:       s.Bottom,
				LeftStartY:   0,
				LeftEndY:     uint(rootHeight - 1),
				RightStartY:  0,
				RightEndY:    uint(rootHeight - 1),
				TopStartX:    0,
				TopEndX:      uint(rootWidth - 1),
				BottomStartX: 0,
				BottomEndX:   uint(rootWidth - 1),
			}
		}

		struts = append(struts, strutRects(sp, rootWidth, rootHeight)...)
	}

	return struts
}

func strutRects(sp *ewmh.WmStrutPartial, rootWidth, rootHeight int) []edgeStrut {
	var out []edgeStrut

	if sp.Top > 0 {
		out = append(out, edgeStrut{edge: edgeTop, rect: geometry.Rect{
			X:      int(sp.TopStartX),
			Y:      0,
			Width:  int(sp.TopEndX) - int(sp.TopStartX) + 1,
			Height: int(sp.Top),
		}})
	}
	if sp.Bottom > 0 {
		out = append(out, edgeStrut{edge: edgeBottom, rect: geometry.Rect{
			X:      int(sp.BottomStartX),
			Y:      rootHeight - int(sp.Bottom),
			Width:  int(sp.BottomEndX) - int(sp.BottomStartX) + 1,
			Height: int(sp.Bottom),
		}})
	}
	if sp.Left > 0 {
		out = append(out, edgeStrut{edge: edgeLeft, rect: geometry.Rect{
			X:      0,
			Y:      int(sp.LeftStartY),
			Width:  int(sp.Left),
			Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1,
		}})
	}
	if sp.Right > 0 {
		out = append(out, edgeStrut{edge: edgeRight, rect: geometry.Rect{
			X:      rootWidth - int(sp.Right),
			Y:      int(sp.RightStartY),
			Width:  int(sp.Right),
			Height: int(sp.RightEndY) - int(sp.RightStartY) + 1,
		}})
	}

	return out
}

// subtractStruts shrinks monitor by every strut that intersects it,
// from the strut's root edge. The result never collapses below 1x1 and
// always stays within monitor, even when struts cover it entirely.
func subtractStruts(monitor geometry.Rect, struts []edgeStrut) geometry.Rect {
	var left, right, top, bottom int
	for _, s := range struts {
		isect := monitor.Intersect(s.rect)
		if isect.Empty() {
			continue
		}
		switch s.edge {
		case edgeLeft:
			left = max(left, isect.Width)
		case edgeRight:
			right = max(right, isect.Width)
		case edgeTop:
			top = max(top, isect.Height)
		case edgeBottom:
			bottom = max(bottom, isect.Height)
		}
	}

	// Cap opposing insets so at least one pixel of the monitor survives.
	left = min(left, monitor.Width-1)
	right = min(right, monitor.Width-1-left)
	top = min(top, monitor.Height-1)
	bottom = min(bottom, monitor.Height-1-top)

	return geometry.Rect{
		X:      monitor.X + left,
		Y:      monitor.Y + top,
		Width:  monitor.Width - left - right,
		Height: monitor.Height - top - bottom,
	}
}
