package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshNow_CallsRefresh(t *testing.T) {
	calls := 0
	r := NewRefresher(RefresherConfig{Logger: testLogger()},
		func() error { calls++; return nil },
		func() (int, bool) { return 2, true })

	r.RefreshNow()
	r.RefreshNow()
	if calls != 2 {
		t.Fatalf("expected 2 refresh calls, got %d", calls)
	}
}

func TestRefreshNow_FailureDoesNotTouchStats(t *testing.T) {
	statsCalled := false
	r := NewRefresher(RefresherConfig{Logger: testLogger()},
		func() error { return errors.New("display gone") },
		func() (int, bool) { statsCalled = true; return 0, false })

	r.RefreshNow()
	if statsCalled {
		t.Fatal("stats should not be read after a failed refresh")
	}
}

func TestRefreshNow_RecoversFromPanic(t *testing.T) {
	r := NewRefresher(RefresherConfig{Logger: testLogger()},
		func() error { panic("boom") },
		func() (int, bool) { return 0, false })

	r.RefreshNow()
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	calls := make(chan struct{}, 16)
	r := NewRefresher(RefresherConfig{Interval: 10 * time.Millisecond, Logger: testLogger()},
		func() error { calls <- struct{}{}; return nil },
		func() (int, bool) { return 1, true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher never ticked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop on cancel")
	}
}
