package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/screend/internal/geometry"
	"github.com/1broseidon/screend/internal/ipc"
	"github.com/1broseidon/screend/internal/screen"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "screens":
		os.Exit(runScreens(os.Args[2:]))
	case "primary":
		os.Exit(runPrimary(os.Args[2:]))
	case "refresh":
		os.Exit(runRefresh(os.Args[2:]))
	case "locate":
		os.Exit(runLocate(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: screend <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the screend daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  screens             List attached screens")
	fmt.Fprintln(w, "  primary             Show the primary screen")
	fmt.Fprintln(w, "  refresh             Re-enumerate displays now")
	fmt.Fprintln(w, "  locate              Find the screen for a rectangle")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'screend <command> --help' for command options.")
}

// dialClient opens a plain query session for one-shot CLI commands.
func dialClient(socketPath string) (*ipc.Client, error) {
	return ipc.Dial(ipc.Options{SocketPath: socketPath})
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socketPath := fs.String("socket", "", "Daemon socket path (default: runtime dir)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client, err := dialClient(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Teardown()

	ctx, cancel := callContext()
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("screen_count:   %d\n", status.ScreenCount)
	fmt.Printf("has_primary:    %v\n", status.HasPrimary)
	fmt.Printf("session_count:  %d\n", status.SessionCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runScreens(args []string) int {
	fs := flag.NewFlagSet("screens", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socketPath := fs.String("socket", "", "Daemon socket path (default: runtime dir)")
	asJSON := fs.Bool("json", false, "Emit JSON (default when stdout is not a terminal)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend screens [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List attached screens from the daemon's registry.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client, err := dialClient(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Teardown()

	ctx, cancel := callContext()
	defer cancel()

	screens, defaultScale, err := client.ListScreens(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		out := struct {
			Screens      []screen.Descriptor `json:"screens"`
			DefaultScale float64             `json:"default_scale"`
		}{screens, defaultScale}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Printf("default_scale: %g\n", defaultScale)
	for _, d := range screens {
		printDescriptor(d)
	}
	return 0
}

func printDescriptor(d screen.Descriptor) {
	fmt.Printf("screen %d (%s):\n", d.ID, d.Name)
	fmt.Printf("  full:      %s  device %s\n", formatRect(d.FullRect), formatRect(d.FullRectDevice))
	fmt.Printf("  available: %s  device %s\n", formatRect(d.AvailableRect), formatRect(d.AvailableRectDevice))
	fmt.Printf("  depth:     %d-bit (%d-bit color)  scale %g\n", d.PixelDepth, d.ColorDepth, d.ScaleFactor)
}

func formatRect(r geometry.Rect) string {
	return fmt.Sprintf("%dx%d%+d%+d", r.Width, r.Height, r.X, r.Y)
}

func runPrimary(args []string) int {
	fs := flag.NewFlagSet("primary", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socketPath := fs.String("socket", "", "Daemon socket path (default: runtime dir)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend primary")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the primary screen descriptor.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client, err := dialClient(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Teardown()

	ctx, cancel := callContext()
	defer cancel()

	d, ok, err := client.PrimaryScreen(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "no display attached")
		return 1
	}
	printDescriptor(d)
	return 0
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socketPath := fs.String("socket", "", "Daemon socket path (default: runtime dir)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend refresh")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to re-enumerate displays now.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client, err := dialClient(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Teardown()

	ctx, cancel := callContext()
	defer cancel()

	count, defaultScale, ok, err := client.Refresh(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "enumeration failed; previous registry kept")
		return 1
	}
	fmt.Printf("screens: %d (default scale %g)\n", count, defaultScale)
	return 0
}

func runLocate(args []string) int {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socketPath := fs.String("socket", "", "Daemon socket path (default: runtime dir)")
	x := fs.Int("x", 0, "Left edge in app units")
	y := fs.Int("y", 0, "Top edge in app units")
	width := fs.Int("width", 0, "Width in app units")
	height := fs.Int("height", 0, "Height in app units")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend locate --x X --y Y --width W --height H")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Find the screen with the largest overlap for a rectangle.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *width <= 0 || *height <= 0 {
		fmt.Fprintln(os.Stderr, "--width and --height must be positive")
		fs.Usage()
		return 2
	}

	client, err := dialClient(*socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Teardown()

	ctx, cancel := callContext()
	defer cancel()

	d, ok, err := client.ScreenForRect(ctx, geometry.Rect{X: *x, Y: *y, Width: *width, Height: *height})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "no screens attached")
		return 1
	}
	printDescriptor(d)
	return 0
}
