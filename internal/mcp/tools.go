package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screend/internal/geometry"
)

func (s *Server) handleListScreens(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListScreensInput) (*mcpsdk.CallToolResult, ListScreensOutput, error) {
	client, err := s.dial()
	if err != nil {
		return nil, ListScreensOutput{}, err
	}

	screens, defaultScale, err := client.ListScreens(ctx)
	if err != nil {
		return nil, ListScreensOutput{}, err
	}
	return nil, ListScreensOutput{Screens: screens, DefaultScale: defaultScale}, nil
}

func (s *Server) handlePrimaryScreen(ctx context.Context, _ *mcpsdk.CallToolRequest, _ PrimaryScreenInput) (*mcpsdk.CallToolResult, PrimaryScreenOutput, error) {
	client, err := s.dial()
	if err != nil {
		return nil, PrimaryScreenOutput{}, err
	}

	desc, ok, err := client.PrimaryScreen(ctx)
	if err != nil {
		return nil, PrimaryScreenOutput{}, err
	}
	if !ok {
		return nil, PrimaryScreenOutput{Found: false}, nil
	}
	return nil, PrimaryScreenOutput{Screen: &desc, Found: true}, nil
}

func (s *Server) handleScreenForRect(ctx context.Context, _ *mcpsdk.CallToolRequest, args ScreenForRectInput) (*mcpsdk.CallToolResult, ScreenForRectOutput, error) {
	client, err := s.dial()
	if err != nil {
		return nil, ScreenForRectOutput{}, err
	}

	rect := geometry.Rect{X: args.X, Y: args.Y, Width: args.Width, Height: args.Height}
	desc, ok, err := client.ScreenForRect(ctx, rect)
	if err != nil {
		return nil, ScreenForRectOutput{}, err
	}
	if !ok {
		return nil, ScreenForRectOutput{Found: false}, nil
	}
	return nil, ScreenForRectOutput{Screen: &desc, Found: true}, nil
}

func (s *Server) handleRefreshScreens(ctx context.Context, _ *mcpsdk.CallToolRequest, _ RefreshScreensInput) (*mcpsdk.CallToolResult, RefreshScreensOutput, error) {
	client, err := s.dial()
	if err != nil {
		return nil, RefreshScreensOutput{}, err
	}

	count, defaultScale, ok, err := client.Refresh(ctx)
	if err != nil {
		return nil, RefreshScreensOutput{}, err
	}
	return nil, RefreshScreensOutput{
		ScreenCount:  count,
		DefaultScale: defaultScale,
		Refreshed:    ok,
	}, nil
}

func (s *Server) handleDaemonStatus(ctx context.Context, _ *mcpsdk.CallToolRequest, _ DaemonStatusInput) (*mcpsdk.CallToolResult, DaemonStatusOutput, error) {
	client, err := s.dial()
	if err != nil {
		return nil, DaemonStatusOutput{}, err
	}

	status, err := client.Status(ctx)
	if err != nil {
		return nil, DaemonStatusOutput{}, err
	}
	return nil, DaemonStatusOutput{
		ScreenCount:   status.ScreenCount,
		HasPrimary:    status.HasPrimary,
		SessionCount:  status.SessionCount,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}
