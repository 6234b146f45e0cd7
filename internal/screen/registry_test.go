package screen

import (
	"testing"

	"github.com/1broseidon/screend/internal/geometry"
)

func testDescriptor(name string, x, y, w, h int) Descriptor {
	full := geometry.Rect{X: x, Y: y, Width: w, Height: h}
	return Descriptor{
		Name:                name,
		FullRect:            full,
		FullRectDevice:      full,
		AvailableRect:       full,
		AvailableRectDevice: full,
		PixelDepth:          24,
		ColorDepth:          24,
		ScaleFactor:         1.0,
	}
}

func TestReplace_RejectsInvalidDescriptor(t *testing.T) {
	r := NewRegistry()

	bad := testDescriptor("eDP-1", 0, 0, 1920, 1080)
	bad.AvailableRect = geometry.Rect{X: -10, Y: 0, Width: 1920, Height: 1080}

	if err := r.Replace([]Descriptor{bad}, 0, 1.0); err == nil {
		t.Fatalf("expected validation error for available rect outside full rect")
	}
	if r.Count() != 0 {
		t.Fatalf("failed replace must leave registry unchanged, got %d screens", r.Count())
	}
}

func TestReplace_RejectsBadDepthsAndScale(t *testing.T) {
	r := NewRegistry()

	d := testDescriptor("eDP-1", 0, 0, 1920, 1080)
	d.ColorDepth = 30
	d.PixelDepth = 24
	if err := r.Replace([]Descriptor{d}, 0, 1.0); err == nil {
		t.Fatalf("expected error for pixel depth below color depth")
	}

	d = testDescriptor("eDP-1", 0, 0, 1920, 1080)
	d.ScaleFactor = 0
	if err := r.Replace([]Descriptor{d}, 0, 1.0); err == nil {
		t.Fatalf("expected error for zero scale factor")
	}
}

func TestPrimary_EmptyRegistry(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Primary(); ok {
		t.Fatalf("empty registry must have no primary")
	}
	if err := r.Replace(nil, -1, 1.0); err != nil {
		t.Fatalf("replace with no screens: %v", err)
	}
	if _, ok := r.Primary(); ok {
		t.Fatalf("no-display replace must clear primary")
	}
}

func TestPrimary_ExactlyOne(t *testing.T) {
	r := NewRegistry()
	screens := []Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("HDMI-1", 1920, 0, 2560, 1440),
	}
	if err := r.Replace(screens, 1, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}

	primary, ok := r.Primary()
	if !ok {
		t.Fatalf("expected a primary screen")
	}
	if primary.Name != "HDMI-1" {
		t.Fatalf("expected HDMI-1 primary, got %q", primary.Name)
	}

	// Exactly one descriptor carries the primary designation.
	count := 0
	for _, d := range r.Snapshot() {
		if d.ID == primary.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one primary, got %d", count)
	}
}

func TestForRect_MaxOverlapAndTieBreak(t *testing.T) {
	r := NewRegistry()
	screens := []Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("HDMI-1", 1920, 0, 1920, 1080),
	}
	if err := r.Replace(screens, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// Mostly on the second screen.
	d, ok := r.ForRect(geometry.Rect{X: 1800, Y: 0, Width: 400, Height: 400})
	if !ok || d.Name != "HDMI-1" {
		t.Fatalf("expected HDMI-1, got %q (ok=%v)", d.Name, ok)
	}

	// Straddling the seam evenly: tie resolves to the lowest ID.
	d, ok = r.ForRect(geometry.Rect{X: 1820, Y: 0, Width: 200, Height: 200})
	if !ok || d.Name != "eDP-1" {
		t.Fatalf("expected lowest-id eDP-1 on tie, got %q (ok=%v)", d.Name, ok)
	}

	// Entirely off-screen: all overlaps are zero, lowest ID wins.
	d, ok = r.ForRect(geometry.Rect{X: -5000, Y: -5000, Width: 10, Height: 10})
	if !ok || d.Name != "eDP-1" {
		t.Fatalf("expected lowest-id screen for off-screen rect, got %q (ok=%v)", d.Name, ok)
	}
}

func TestForRect_SinglePrimaryScenario(t *testing.T) {
	r := NewRegistry()
	if err := r.Replace([]Descriptor{testDescriptor("eDP-1", 0, 0, 1920, 1080)}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}

	d, ok := r.ForRect(geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100})
	if !ok {
		t.Fatalf("expected ok for populated registry")
	}
	if d.ID != 1 {
		t.Fatalf("expected screen id 1, got %d", d.ID)
	}
}

func TestForRect_EmptyRegistry(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.ForRect(geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100}); ok {
		t.Fatalf("empty registry must return ok=false")
	}
}

func TestForRect_Idempotent(t *testing.T) {
	r := NewRegistry()
	screens := []Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("HDMI-1", 1920, 0, 2560, 1440),
	}
	if err := r.Replace(screens, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rect := geometry.Rect{X: 2000, Y: 100, Width: 300, Height: 300}
	first, ok1 := r.ForRect(rect)
	second, ok2 := r.ForRect(rect)
	if ok1 != ok2 || first != second {
		t.Fatalf("ForRect not idempotent: %+v vs %+v", first, second)
	}
}

func TestStableIDs_AcrossReplace(t *testing.T) {
	r := NewRegistry()

	if err := r.Replace([]Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("HDMI-1", 1920, 0, 2560, 1440),
	}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	hdmi, _ := r.ForRect(geometry.Rect{X: 2000, Y: 0, Width: 100, Height: 100})

	// HDMI-1 unplugged, then replugged.
	if err := r.Replace([]Descriptor{testDescriptor("eDP-1", 0, 0, 1920, 1080)}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, ok := r.ByID(hdmi.ID); ok {
		t.Fatalf("unplugged screen must not resolve")
	}

	if err := r.Replace([]Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("HDMI-1", 1920, 0, 2560, 1440),
	}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	replugged, ok := r.ByID(hdmi.ID)
	if !ok || replugged.Name != "HDMI-1" {
		t.Fatalf("expected HDMI-1 to keep id %d, got %+v (ok=%v)", hdmi.ID, replugged, ok)
	}

	// A brand-new output must not reuse any prior ID.
	if err := r.Replace([]Descriptor{testDescriptor("DP-3", 0, 0, 1024, 768)}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	d, _ := r.ForRect(geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10})
	if d.ID <= hdmi.ID {
		t.Fatalf("new output reused an old id: %d", d.ID)
	}
}

func TestByID_UnknownID(t *testing.T) {
	r := NewRegistry()
	if err := r.Replace([]Descriptor{testDescriptor("eDP-1", 0, 0, 1920, 1080)}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, ok := r.ByID(42); ok {
		t.Fatalf("expected ok=false for never-assigned id")
	}
}

func TestReplace_DuplicateNamesLeaveIDSpaceUntouched(t *testing.T) {
	r := NewRegistry()

	dup := []Descriptor{
		testDescriptor("eDP-1", 0, 0, 1920, 1080),
		testDescriptor("eDP-1", 1920, 0, 1280, 1024),
	}
	if err := r.Replace(dup, -1, 1.0); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
	if r.Count() != 0 {
		t.Fatalf("failed replace must leave registry unchanged, got %d screens", r.Count())
	}

	// The rejected enumeration must not have consumed IDs or
	// registered names: the next output still gets the first ID.
	if err := r.Replace([]Descriptor{testDescriptor("HDMI-1", 0, 0, 800, 600)}, 0, 1.0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	d, ok := r.ByID(1)
	if !ok || d.Name != "HDMI-1" {
		t.Fatalf("expected HDMI-1 at id 1, got ok=%v name=%q", ok, d.Name)
	}
}
