package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/screend/internal/config"
	"github.com/1broseidon/screend/internal/daemon"
	"github.com/1broseidon/screend/internal/ipc"
	"github.com/1broseidon/screend/internal/platform"
	"github.com/1broseidon/screend/internal/query"
	"github.com/1broseidon/screend/internal/screen"
	"github.com/1broseidon/screend/internal/surfaces"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/screend/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screend daemon [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the screen query daemon in the foreground.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded (source: %s, refresh: %ds)", cfg.Source, cfg.RefreshIntervalSeconds)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	source, cleanup, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer cleanup()

	registry := screen.NewRegistry()
	surf := surfaces.NewRegistry()
	svc := query.NewService(registry, source, surf, logger)

	if err := svc.RefreshNow(); err != nil {
		log.Printf("Warning: initial enumeration failed: %v", err)
	} else {
		log.Printf("Enumerated %d screen(s)", registry.Count())
	}

	ipcServer, err := ipc.NewServer(cfg.SocketPath, svc, logger)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	refresherCtx, refresherCancel := context.WithCancel(context.Background())
	defer refresherCancel()

	if cfg.RefreshIntervalSeconds > 0 {
		refresher := daemon.NewRefresher(daemon.RefresherConfig{
			Interval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
			Logger:   logger,
		}, svc.RefreshNow, func() (int, bool) {
			_, hasPrimary := registry.Primary()
			return registry.Count(), hasPrimary
		})
		go refresher.Run(refresherCtx)
	}

	log.Println("screend daemon started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			log.Println("Received SIGHUP, reloading config...")
			newCfg, err := loadConfig(*configPath)
			if err != nil {
				log.Printf("Config reload failed: %v", err)
				continue
			}
			if newCfg.Source != cfg.Source {
				log.Printf("Source change (%s -> %s) requires a restart", cfg.Source, newCfg.Source)
				continue
			}
			if newCfg.Source == config.SourceStatic {
				staticScreens, primaryIndex := newCfg.StaticScreens()
				svc.SetSource(platform.NewStaticSource(staticScreens, primaryIndex, newCfg.DefaultScale))
			}
			cfg = newCfg
			if err := svc.RefreshNow(); err != nil {
				log.Printf("Refresh after reload failed: %v", err)
			}
			log.Println("Config reloaded successfully")

		case os.Interrupt, syscall.SIGTERM:
			log.Println("Shutting down screend daemon...")
			refresherCancel()
			ipcServer.Stop()
			return 0
		}
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromPath(path)
}

// buildSource constructs the display source the config selects. The
// cleanup func releases any display connection.
func buildSource(cfg *config.Config) (platform.Source, func(), error) {
	switch cfg.Source {
	case config.SourceStatic:
		staticScreens, primaryIndex := cfg.StaticScreens()
		return platform.NewStaticSource(staticScreens, primaryIndex, cfg.DefaultScale), func() {}, nil
	default:
		if cfg.XAuthority != "" {
			os.Setenv("XAUTHORITY", cfg.XAuthority)
		}
		src, err := platform.NewX11SourceFromDisplay(cfg.Display)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Disconnect, nil
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
