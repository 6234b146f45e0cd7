package mcp

import "github.com/1broseidon/screend/internal/screen"

// ListScreensInput is the input for the list_screens tool.
type ListScreensInput struct{}

// ListScreensOutput is the output for the list_screens tool.
type ListScreensOutput struct {
	Screens      []screen.Descriptor `json:"screens"`
	DefaultScale float64             `json:"default_scale"`
}

// PrimaryScreenInput is the input for the primary_screen tool.
type PrimaryScreenInput struct{}

// PrimaryScreenOutput is the output for the primary_screen tool.
type PrimaryScreenOutput struct {
	Screen *screen.Descriptor `json:"screen,omitempty"`
	Found  bool               `json:"found"`
}

// ScreenForRectInput is the input for the screen_for_rect tool.
type ScreenForRectInput struct {
	X      int `json:"x" jsonschema:"Left edge of the rectangle in app units"`
	Y      int `json:"y" jsonschema:"Top edge of the rectangle in app units"`
	Width  int `json:"width" jsonschema:"required,Width of the rectangle in app units"`
	Height int `json:"height" jsonschema:"required,Height of the rectangle in app units"`
}

// ScreenForRectOutput is the output for the screen_for_rect tool.
type ScreenForRectOutput struct {
	Screen *screen.Descriptor `json:"screen,omitempty"`
	Found  bool               `json:"found"`
}

// RefreshScreensInput is the input for the refresh_screens tool.
type RefreshScreensInput struct{}

// RefreshScreensOutput is the output for the refresh_screens tool.
type RefreshScreensOutput struct {
	ScreenCount  int     `json:"screen_count"`
	DefaultScale float64 `json:"default_scale"`
	Refreshed    bool    `json:"refreshed"`
}

// DaemonStatusInput is the input for the daemon_status tool.
type DaemonStatusInput struct{}

// DaemonStatusOutput is the output for the daemon_status tool.
type DaemonStatusOutput struct {
	ScreenCount   int   `json:"screen_count"`
	HasPrimary    bool  `json:"has_primary"`
	SessionCount  int   `json:"session_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}
