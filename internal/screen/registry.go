package screen

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/screend/internal/geometry"
)

// primaryRef is a tagged optional reference into the registry. The
// zero value means "no primary screen" (nothing attached).
type primaryRef struct {
	id int
	ok bool
}

// Registry is the parent-owned collection of screen descriptors, keyed
// by stable ID. It is safe for concurrent use: Replace is
// writer-exclusive and atomic, reads see either the old or the new
// snapshot, never a partial update.
type Registry struct {
	mu           sync.RWMutex
	screens      map[int]Descriptor
	primary      primaryRef
	defaultScale float64

	// idsByName maps output names to their assigned IDs. Entries are
	// never removed, so an ID is never reused while the daemon lives.
	idsByName map[string]int
	nextID    int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		screens:      make(map[int]Descriptor),
		idsByName:    make(map[string]int),
		nextID:       1,
		defaultScale: 1.0,
	}
}

// Replace swaps the registry contents for the given enumeration result.
// IDs are assigned from output names: a name seen before keeps its ID,
// a new name gets a fresh one. primaryIndex selects the primary screen
// within screens, or -1 when no display is designated primary.
//
// Replace validates every descriptor before touching registry state; on
// error the registry is left unchanged.
func (r *Registry) Replace(screens []Descriptor, primaryIndex int, defaultScale float64) error {
	if primaryIndex >= len(screens) {
		return fmt.Errorf("screen: primary index %d out of range (%d screens)", primaryIndex, len(screens))
	}
	if defaultScale <= 0 {
		return fmt.Errorf("screen: default scale must be positive, got %g", defaultScale)
	}
	names := make(map[string]struct{}, len(screens))
	for _, d := range screens {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("screen: duplicate output name %q in enumeration", d.Name)
		}
		names[d.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[int]Descriptor, len(screens))
	primary := primaryRef{}
	for i, d := range screens {
		id, seen := r.idsByName[d.Name]
		if !seen {
			id = r.nextID
			r.nextID++
			r.idsByName[d.Name] = id
		}
		d.ID = id
		next[id] = d
		if i == primaryIndex {
			primary = primaryRef{id: id, ok: true}
		}
	}

	r.screens = next
	r.primary = primary
	r.defaultScale = defaultScale
	return nil
}

// Count returns the number of screens currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.screens)
}

// DefaultScale returns the system default scale factor.
func (r *Registry) DefaultScale() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultScale
}

// ByID returns the descriptor for id. ok is false when id is not
// present in the registry.
func (r *Registry) ByID(id int) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.screens[id]
	return d, ok
}

// Primary returns the descriptor designated primary. ok is false when
// no display is attached.
func (r *Registry) Primary() (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.primary.ok {
		return Descriptor{}, false
	}
	d, ok := r.screens[r.primary.id]
	return d, ok
}

// ForRect returns the screen whose full rect (app units) shares the
// most area with rect, ties broken by lowest ID. When no screen
// overlaps rect the lowest-ID screen wins the all-zero tie. ok is false
// only when the registry is empty.
func (r *Registry) ForRect(rect geometry.Rect) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.screens) == 0 {
		return Descriptor{}, false
	}

	var (
		best     Descriptor
		bestArea = -1
	)
	for _, id := range r.sortedIDsLocked() {
		d := r.screens[id]
		if area := d.FullRect.OverlapArea(rect); area > bestArea {
			best = d
			bestArea = area
		}
	}
	return best, true
}

// Snapshot returns all descriptors sorted by ID.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.screens))
	for _, id := range r.sortedIDsLocked() {
		out = append(out, r.screens[id])
	}
	return out
}

func (r *Registry) sortedIDsLocked() []int {
	ids := make([]int, 0, len(r.screens))
	for id := range r.screens {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
