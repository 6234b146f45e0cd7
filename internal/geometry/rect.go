package geometry

import "math"

// Rect describes an axis-aligned rectangular region with integer
// coordinates. The coordinate space (app units or native device pixels)
// is determined by context; the math is the same in both.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rect covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the exclusive right edge.
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Contains reports whether other lies entirely within r.
// An empty other is contained by any rect that contains its origin.
func (r Rect) Contains(other Rect) bool {
	if other.Empty() {
		return other.X >= r.X && other.X <= r.Right() &&
			other.Y >= r.Y && other.Y <= r.Bottom()
	}
	return other.X >= r.X && other.Y >= r.Y &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// Intersect returns the overlapping region of r and other, or the zero
// Rect when they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.Right(), other.Right())
	y2 := min(r.Bottom(), other.Bottom())

	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// OverlapArea returns the area shared by r and other.
func (r Rect) OverlapArea(other Rect) int {
	isect := r.Intersect(other)
	return isect.Width * isect.Height
}

// Intersects reports whether r and other share any area.
func (r Rect) Intersects(other Rect) bool {
	return r.OverlapArea(other) > 0
}

// Scaled returns r with every coordinate multiplied by factor, rounded
// to the nearest integer. Used to convert device pixels to app units
// (factor 1/scale) and back (factor scale).
func (r Rect) Scaled(factor float64) Rect {
	return Rect{
		X:      int(math.Round(float64(r.X) * factor)),
		Y:      int(math.Round(float64(r.Y) * factor)),
		Width:  int(math.Round(float64(r.Width) * factor)),
		Height: int(math.Round(float64(r.Height) * factor)),
	}
}
