package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/screend/internal/geometry"
	"github.com/1broseidon/screend/internal/screen"
)

// Source kinds for display enumeration.
const (
	SourceX11    = "x11"
	SourceStatic = "static"
)

// Config is the daemon configuration.
type Config struct {
	// SocketPath overrides the default runtime socket location.
	SocketPath string `yaml:"socket_path,omitempty"`
	// Source selects the display enumeration backend: "x11" or "static".
	Source string `yaml:"source"`
	// Display selects the X display (e.g. ":1"). Empty uses $DISPLAY.
	Display string `yaml:"display,omitempty"`
	// XAuthority overrides the X authority file for the daemon.
	XAuthority string `yaml:"xauthority,omitempty"`
	// RefreshIntervalSeconds is the periodic re-enumeration cadence.
	// Zero disables the background refresher.
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
	// DefaultScale is the scale reported by the static source and the
	// default for static screens without their own.
	DefaultScale float64 `yaml:"default_scale"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// PrimaryScreen names the primary static screen. Empty picks the
	// first configured screen.
	PrimaryScreen string `yaml:"primary_screen,omitempty"`
	// Screens defines the static source's screen set, in app units.
	Screens []StaticScreen `yaml:"screens,omitempty"`
}

// StaticScreen is one configured virtual display, in app units. The
// device-pixel geometry is derived from the scale factor.
type StaticScreen struct {
	Name   string `yaml:"name"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Available is the usable area; defaults to the full bounds.
	Available *StaticRect `yaml:"available,omitempty"`
	// Scale overrides the config-level default scale for this screen.
	Scale      float64 `yaml:"scale,omitempty"`
	PixelDepth int     `yaml:"pixel_depth,omitempty"`
	ColorDepth int     `yaml:"color_depth,omitempty"`
}

// StaticRect mirrors geometry.Rect with yaml tags.
type StaticRect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig returns the built-in defaults: X11 enumeration,
// 30-second background refresh.
func DefaultConfig() *Config {
	return &Config{
		Source:                 SourceX11,
		RefreshIntervalSeconds: 30,
		DefaultScale:           1.0,
		LogLevel:               "info",
	}
}

// DefaultConfigPath returns ~/.config/screend/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "screend", "config.yaml"), nil
}

// Load reads configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from path, merging over the
// defaults. A missing or empty file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceX11, SourceStatic:
	default:
		return fmt.Errorf("source must be %q or %q, got %q", SourceX11, SourceStatic, c.Source)
	}

	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative")
	}
	if c.DefaultScale <= 0 {
		return fmt.Errorf("default_scale must be positive, got %g", c.DefaultScale)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	names := make(map[string]struct{}, len(c.Screens))
	for i, s := range c.Screens {
		if s.Name == "" {
			return fmt.Errorf("screens[%d]: name is required", i)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("screens[%d]: duplicate name %q", i, s.Name)
		}
		names[s.Name] = struct{}{}
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("screen %q: width and height must be positive", s.Name)
		}
		if s.Scale < 0 {
			return fmt.Errorf("screen %q: scale must not be negative", s.Name)
		}
		if s.PixelDepth < 0 || s.ColorDepth < 0 || s.PixelDepth < s.ColorDepth {
			return fmt.Errorf("screen %q: pixel depth must be at least color depth", s.Name)
		}
		if s.Available != nil {
			full := geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
			avail := geometry.Rect{X: s.Available.X, Y: s.Available.Y, Width: s.Available.Width, Height: s.Available.Height}
			if !full.Contains(avail) {
				return fmt.Errorf("screen %q: available area %+v exceeds bounds %+v", s.Name, avail, full)
			}
		}
	}

	if c.PrimaryScreen != "" {
		if _, ok := names[c.PrimaryScreen]; !ok {
			return fmt.Errorf("primary_screen %q does not match any configured screen", c.PrimaryScreen)
		}
	}

	return nil
}

// StaticScreens converts the configured screen list into descriptors
// for the static source, plus the primary index (-1 when none). With
// no explicit primary_screen the first configured screen is primary.
func (c *Config) StaticScreens() ([]screen.Descriptor, int) {
	if len(c.Screens) == 0 {
		return nil, -1
	}

	primaryIndex := 0
	out := make([]screen.Descriptor, 0, len(c.Screens))
	for i, s := range c.Screens {
		if c.PrimaryScreen != "" && s.Name == c.PrimaryScreen {
			primaryIndex = i
		}

		scale := s.Scale
		if scale == 0 {
			scale = c.DefaultScale
		}
		pixelDepth := s.PixelDepth
		if pixelDepth == 0 {
			pixelDepth = 24
		}
		colorDepth := s.ColorDepth
		if colorDepth == 0 {
			colorDepth = pixelDepth
		}

		full := geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
		available := full
		if s.Available != nil {
			available = geometry.Rect{X: s.Available.X, Y: s.Available.Y, Width: s.Available.Width, Height: s.Available.Height}
		}

		// Clamp scaled rects so rounding never breaks containment.
		fullDevice := full.Scaled(scale)
		availableDevice := fullDevice.Intersect(available.Scaled(scale))
		if availableDevice.Empty() {
			availableDevice = fullDevice
		}

		out = append(out, screen.Descriptor{
			Name:                s.Name,
			FullRect:            full,
			FullRectDevice:      fullDevice,
			AvailableRect:       available,
			AvailableRectDevice: availableDevice,
			PixelDepth:          pixelDepth,
			ColorDepth:          colorDepth,
			ScaleFactor:         scale,
		})
	}

	return out, primaryIndex
}
