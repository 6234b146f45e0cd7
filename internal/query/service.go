// Package query implements the parent-side screen query service: it
// answers synchronous calls against the screen registry and drives
// re-enumeration through the display source.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/screend/internal/platform"
	"github.com/1broseidon/screend/internal/screen"
	"github.com/1broseidon/screend/internal/session"
	"github.com/1broseidon/screend/internal/surfaces"
	"github.com/1broseidon/screend/internal/wire"
)

// Service answers screen queries for any number of child sessions.
type Service struct {
	registry *screen.Registry
	source   platform.Source
	surfaces *surfaces.Registry
	logger   *slog.Logger

	// refreshMu serializes re-enumeration across sessions. Reads go
	// through the registry's own RWMutex and never wait on this.
	refreshMu sync.Mutex
}

// NewService wires a query service over its collaborators.
func NewService(registry *screen.Registry, source platform.Source, surf *surfaces.Registry, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		source:   source,
		surfaces: surf,
		logger:   logger,
	}
}

// Registry exposes the underlying screen registry.
func (svc *Service) Registry() *screen.Registry {
	return svc.registry
}

// Surfaces exposes the tab surface registry.
func (svc *Service) Surfaces() *surfaces.Registry {
	return svc.surfaces
}

// SetSource swaps the display source. The registry keeps its last
// snapshot until the next refresh.
func (svc *Service) SetSource(source platform.Source) {
	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()
	svc.source = source
}

// RefreshNow re-enumerates the display subsystem into the registry.
// On failure the registry is left unchanged.
func (svc *Service) RefreshNow() error {
	svc.refreshMu.Lock()
	defer svc.refreshMu.Unlock()

	screens, primaryIndex, defaultScale, err := svc.source.Enumerate()
	if err != nil {
		return fmt.Errorf("display enumeration failed: %w", err)
	}
	if err := svc.registry.Replace(screens, primaryIndex, defaultScale); err != nil {
		return fmt.Errorf("enumeration produced invalid screens: %w", err)
	}

	svc.logger.Debug("registry refreshed",
		"screens", svc.registry.Count(),
		"default_scale", svc.registry.DefaultScale())
	return nil
}

// Bind registers the query handlers on a child session and hooks
// surface cleanup to the session's shutdown.
func (svc *Service) Bind(s *session.Session) {
	s.Handle(wire.MethodRefresh, svc.handleRefresh)
	s.Handle(wire.MethodScreenRefresh, svc.handleScreenRefresh)
	s.Handle(wire.MethodGetPrimaryScreen, svc.handleGetPrimaryScreen)
	s.Handle(wire.MethodScreenForRect, svc.handleScreenForRect)
	s.Handle(wire.MethodScreenForBrowser, svc.handleScreenForBrowser)
	s.Handle(wire.MethodListScreens, svc.handleListScreens)
	s.Handle(wire.MethodRegisterSurface, svc.handleRegisterSurface)
	s.Handle(wire.MethodUnregisterSurface, svc.handleUnregisterSurface)

	sid := s.ID()
	s.OnClose(func() {
		svc.surfaces.DropSession(sid)
	})
}

func (svc *Service) handleRefresh(_ context.Context, _ *session.Session, _ json.RawMessage) (any, bool, error) {
	if err := svc.RefreshNow(); err != nil {
		return nil, false, err
	}
	return wire.RefreshResult{
		ScreenCount:  svc.registry.Count(),
		DefaultScale: svc.registry.DefaultScale(),
	}, true, nil
}

func (svc *Service) handleScreenRefresh(_ context.Context, _ *session.Session, params json.RawMessage) (any, bool, error) {
	var p wire.ScreenRefreshParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, false, fmt.Errorf("invalid screen-refresh params: %w", err)
	}

	// Re-read the subsystem first; a failed enumeration leaves the
	// registry unchanged and we answer from the last good snapshot.
	if err := svc.RefreshNow(); err != nil {
		svc.logger.Warn("screen-refresh: enumeration failed, serving last snapshot", "error", err)
	}

	d, ok := svc.registry.ByID(p.ID)
	if !ok {
		return nil, false, fmt.Errorf("unknown screen id %d", p.ID)
	}
	return wire.DescriptorResult{Screen: d}, true, nil
}

func (svc *Service) handleGetPrimaryScreen(_ context.Context, _ *session.Session, _ json.RawMessage) (any, bool, error) {
	d, ok := svc.registry.Primary()
	if !ok {
		return nil, false, fmt.Errorf("no display attached")
	}
	return wire.DescriptorResult{Screen: d}, true, nil
}

func (svc *Service) handleScreenForRect(_ context.Context, _ *session.Session, params json.RawMessage) (any, bool, error) {
	var p wire.RectParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, false, fmt.Errorf("invalid screen-for-rect params: %w", err)
	}

	d, ok := svc.registry.ForRect(p.Rect())
	if !ok {
		return nil, false, fmt.Errorf("no screens attached")
	}
	return wire.DescriptorResult{Screen: d}, true, nil
}

// handleScreenForBrowser resolves a tab to the screen hosting its
// rendering surface. When the registered surface has no cached
// geometry the parent asks the owning child with a nested
// surface-geometry call before answering.
func (svc *Service) handleScreenForBrowser(ctx context.Context, s *session.Session, params json.RawMessage) (any, bool, error) {
	var p wire.BrowserParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, false, fmt.Errorf("invalid screen-for-browser params: %w", err)
	}

	surf, ok := svc.surfaces.Lookup(p.TabID)
	if !ok {
		return nil, false, fmt.Errorf("unknown tab %q", p.TabID)
	}

	rect := surf.Rect
	if !surf.HasRect {
		nested, err := s.Call(ctx, wire.MethodSurfaceGeometry, wire.SurfaceGeometryParams{TabID: p.TabID})
		if err != nil {
			return nil, false, err
		}
		if !nested.OK {
			return nil, false, fmt.Errorf("tab %q has no surface geometry", p.TabID)
		}
		var geom wire.SurfaceGeometryResult
		if err := nested.Decode(&geom); err != nil {
			return nil, false, fmt.Errorf("invalid surface geometry for tab %q: %w", p.TabID, err)
		}
		rect = geom.Rect
		svc.surfaces.UpdateRect(p.TabID, rect)
	}

	d, ok := svc.registry.ForRect(rect)
	if !ok {
		return nil, false, fmt.Errorf("no screens attached")
	}
	return wire.DescriptorResult{Screen: d}, true, nil
}

func (svc *Service) handleListScreens(_ context.Context, _ *session.Session, _ json.RawMessage) (any, bool, error) {
	return wire.ListScreensResult{
		Screens:      svc.registry.Snapshot(),
		DefaultScale: svc.registry.DefaultScale(),
	}, true, nil
}

func (svc *Service) handleRegisterSurface(_ context.Context, s *session.Session, params json.RawMessage) (any, bool, error) {
	var p wire.RegisterSurfaceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, false, fmt.Errorf("invalid register-surface params: %w", err)
	}
	if p.TabID == "" {
		return nil, false, fmt.Errorf("tab_id is required")
	}

	svc.surfaces.Register(p.TabID, s.ID(), p.Rect)
	return nil, true, nil
}

func (svc *Service) handleUnregisterSurface(_ context.Context, _ *session.Session, params json.RawMessage) (any, bool, error) {
	var p wire.UnregisterSurfaceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, false, fmt.Errorf("invalid unregister-surface params: %w", err)
	}

	svc.surfaces.Unregister(p.TabID)
	return nil, true, nil
}
