// Package surfaces tracks which browser tab is rendered where. It is
// the parent-side registry behind screen-for-browser: children register
// the tabs they host, and entries die with the owning session.
package surfaces

import (
	"sync"

	"github.com/1broseidon/screend/internal/geometry"
)

// Surface is one registered tab rendering surface.
type Surface struct {
	TabID string
	// SessionID identifies the child session hosting the tab.
	SessionID uint64
	// Rect is the cached surface location in app units. Valid only when
	// HasRect is true; otherwise the parent must ask the owning child.
	Rect    geometry.Rect
	HasRect bool
}

// Registry is the tab-to-surface map owned by the parent.
type Registry struct {
	mu    sync.RWMutex
	byTab map[string]Surface
}

// NewRegistry returns an empty surface registry.
func NewRegistry() *Registry {
	return &Registry{byTab: make(map[string]Surface)}
}

// Register records a tab hosted by sessionID. rect may be nil when the
// child does not know the location up front.
func (r *Registry) Register(tabID string, sessionID uint64, rect *geometry.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Surface{TabID: tabID, SessionID: sessionID}
	if rect != nil {
		s.Rect = *rect
		s.HasRect = true
	}
	r.byTab[tabID] = s
}

// Unregister removes a tab.
func (r *Registry) Unregister(tabID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byTab, tabID)
}

// Lookup returns the surface for tabID.
func (r *Registry) Lookup(tabID string) (Surface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byTab[tabID]
	return s, ok
}

// UpdateRect caches a freshly resolved surface location.
func (r *Registry) UpdateRect(tabID string, rect geometry.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byTab[tabID]
	if !ok {
		return
	}
	s.Rect = rect
	s.HasRect = true
	r.byTab[tabID] = s
}

// DropSession removes every surface owned by sessionID. Called when the
// owning session shuts down.
func (r *Registry) DropSession(sessionID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tabID, s := range r.byTab {
		if s.SessionID == sessionID {
			delete(r.byTab, tabID)
		}
	}
}

// Count returns the number of registered surfaces.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTab)
}
