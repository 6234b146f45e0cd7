package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Source != SourceX11 {
		t.Fatalf("expected x11 default source, got %q", cfg.Source)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RefreshIntervalSeconds != 30 {
		t.Fatalf("expected default refresh interval 30, got %d", cfg.RefreshIntervalSeconds)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source != SourceX11 || cfg.DefaultScale != 1.0 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromPath_StaticScreens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := strings.Join([]string{
		"source: static",
		"default_scale: 2.0",
		"primary_screen: HDMI-1",
		"screens:",
		"  - name: eDP-1",
		"    x: 0",
		"    y: 0",
		"    width: 1920",
		"    height: 1080",
		"    available:",
		"      x: 0",
		"      y: 30",
		"      width: 1920",
		"      height: 1050",
		"  - name: HDMI-1",
		"    x: 1920",
		"    y: 0",
		"    width: 2560",
		"    height: 1440",
		"    scale: 1.0",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	screens, primaryIndex := cfg.StaticScreens()
	if len(screens) != 2 {
		t.Fatalf("expected 2 screens, got %d", len(screens))
	}
	if primaryIndex != 1 {
		t.Fatalf("expected primary index 1 (HDMI-1), got %d", primaryIndex)
	}

	edp := screens[0]
	if edp.ScaleFactor != 2.0 {
		t.Fatalf("expected inherited scale 2.0, got %g", edp.ScaleFactor)
	}
	if edp.FullRectDevice.Width != 3840 {
		t.Fatalf("expected device width 3840, got %d", edp.FullRectDevice.Width)
	}
	if edp.AvailableRect.Y != 30 {
		t.Fatalf("expected available y 30, got %d", edp.AvailableRect.Y)
	}
	if err := edp.Validate(); err != nil {
		t.Fatalf("static descriptor invalid: %v", err)
	}

	hdmi := screens[1]
	if hdmi.ScaleFactor != 1.0 {
		t.Fatalf("expected per-screen scale override 1.0, got %g", hdmi.ScaleFactor)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad source", "source: wayland\n"},
		{"negative interval", "refresh_interval_seconds: -1\n"},
		{"zero scale", "default_scale: 0\n"},
		{"bad log level", "log_level: loud\n"},
		{"unknown primary", "source: static\nprimary_screen: nope\nscreens:\n  - name: a\n    width: 100\n    height: 100\n"},
		{"duplicate names", "source: static\nscreens:\n  - name: a\n    width: 100\n    height: 100\n  - name: a\n    width: 100\n    height: 100\n"},
		{"available outside bounds", "source: static\nscreens:\n  - name: a\n    width: 100\n    height: 100\n    available:\n      x: 50\n      y: 0\n      width: 100\n      height: 100\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadFromPath(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestStaticScreens_NoPrimaryWhenEmpty(t *testing.T) {
	cfg := DefaultConfig()
	screens, primaryIndex := cfg.StaticScreens()
	if screens != nil || primaryIndex != -1 {
		t.Fatalf("expected empty set with no primary, got %d screens primary=%d", len(screens), primaryIndex)
	}
}
