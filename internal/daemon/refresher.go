package daemon

import (
	"context"
	"log/slog"
	"time"
)

// RefreshFunc re-enumerates the display subsystem into the registry.
type RefreshFunc func() error

// StatsFunc reports the current registry shape for change logging.
type StatsFunc func() (screenCount int, hasPrimary bool)

// RefresherConfig holds configuration for the background refresher.
type RefresherConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Refresher periodically re-enumerates displays so the registry tracks
// OS configuration changes between explicit refresh calls.
type Refresher struct {
	interval time.Duration
	refresh  RefreshFunc
	stats    StatsFunc
	logger   *slog.Logger

	lastCount   int
	lastPrimary bool
	seeded      bool
}

// NewRefresher creates a refresher with the given configuration.
func NewRefresher(cfg RefresherConfig, refresh RefreshFunc, stats StatsFunc) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Refresher{
		interval: interval,
		refresh:  refresh,
		stats:    stats,
		logger:   cfg.Logger,
	}
}

// Run starts the refresh loop. Blocks until context is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("refresher started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-ticker.C:
			r.refreshOnce()
		}
	}
}

// RefreshNow triggers an immediate refresh pass.
func (r *Refresher) RefreshNow() {
	r.refreshOnce()
}

func (r *Refresher) refreshOnce() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("refresher panic recovered", "error", err)
		}
	}()

	if err := r.refresh(); err != nil {
		r.logger.Warn("refresher: enumeration failed, registry unchanged", "error", err)
		return
	}

	count, hasPrimary := r.stats()
	if !r.seeded || count != r.lastCount || hasPrimary != r.lastPrimary {
		r.logger.Info("display configuration",
			"screens", count,
			"has_primary", hasPrimary)
		r.seeded = true
		r.lastCount = count
		r.lastPrimary = hasPrimary
	}
}
