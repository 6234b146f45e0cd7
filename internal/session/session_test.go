package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/screend/internal/wire"
)

func pipePair(t *testing.T) (*Session, *Session) {
	t.Helper()
	c1, c2 := net.Pipe()
	a := New(c1, nil)
	b := New(c2, nil)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestCall_Basic(t *testing.T) {
	parent, child := pipePair(t)

	parent.Handle("echo", func(_ context.Context, _ *Session, params json.RawMessage) (any, bool, error) {
		var in map[string]string
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, false, err
		}
		return in, true, nil
	})
	parent.Start()
	child.Start()

	reply, err := child.Call(context.Background(), "echo", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !reply.OK {
		t.Fatalf("expected ok reply, got error %q", reply.Err)
	}
	var out map[string]string
	if err := reply.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["k"] != "v" {
		t.Fatalf("expected echoed payload, got %v", out)
	}
}

func TestCall_UnknownMethodIsDataLevelFailure(t *testing.T) {
	parent, child := pipePair(t)
	parent.Start()
	child.Start()

	reply, err := child.Call(context.Background(), "no-such-method", nil)
	if err != nil {
		t.Fatalf("unknown method must not fault the channel: %v", err)
	}
	if reply.OK {
		t.Fatalf("expected ok=false for unknown method")
	}

	// The session must still be usable afterwards.
	parent.mu.Lock()
	closed := parent.closed
	parent.mu.Unlock()
	if closed {
		t.Fatalf("session closed after unknown method")
	}
}

func TestCall_HandlerErrorIsDataLevelFailure(t *testing.T) {
	parent, child := pipePair(t)
	parent.Handle("boom", func(_ context.Context, _ *Session, _ json.RawMessage) (any, bool, error) {
		return nil, false, errors.New("enumeration failed")
	})
	parent.Start()
	child.Start()

	reply, err := child.Call(context.Background(), "boom", nil)
	if err != nil {
		t.Fatalf("handler error must not fault the channel: %v", err)
	}
	if reply.OK {
		t.Fatalf("expected ok=false")
	}
	if reply.Err != "enumeration failed" {
		t.Fatalf("expected diagnostic, got %q", reply.Err)
	}
}

func TestNestedCall_ResolvesBeforeOuter(t *testing.T) {
	parent, child := pipePair(t)

	var mu sync.Mutex
	var events []string
	record := func(ev string) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}

	// Child serves the nested query issued while its own call is pending.
	child.Handle("inner", func(_ context.Context, _ *Session, _ json.RawMessage) (any, bool, error) {
		record("inner-served")
		return map[string]int{"n": 7}, true, nil
	})

	// Parent answers "outer" only after a nested round trip to the child.
	parent.Handle("outer", func(ctx context.Context, s *Session, _ json.RawMessage) (any, bool, error) {
		nested, err := s.Call(ctx, "inner", nil)
		if err != nil {
			return nil, false, err
		}
		if !nested.OK {
			return nil, false, errors.New("nested call failed")
		}
		record("nested-resolved")
		return map[string]string{"done": "yes"}, true, nil
	})

	parent.Start()
	child.Start()

	reply, err := child.Call(context.Background(), "outer", nil)
	if err != nil {
		t.Fatalf("outer call: %v", err)
	}
	if !reply.OK {
		t.Fatalf("outer call failed: %q", reply.Err)
	}
	record("outer-resolved")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"inner-served", "nested-resolved", "outer-resolved"}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, events)
		}
	}
}

func TestReply_MismatchedSeqFaultsSession(t *testing.T) {
	conn, raw := net.Pipe()
	s := New(conn, nil)
	s.Start()
	t.Cleanup(func() {
		s.Close()
		raw.Close()
	})

	go func() {
		reader := bufio.NewReader(raw)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		frame, err := wire.ParseFrame(line)
		if err != nil {
			return
		}
		// Reply to a call that is not the newest outstanding one.
		bad := &wire.Frame{Type: wire.FrameReply, Seq: frame.Seq + 99, OK: true}
		data, _ := bad.Marshal()
		raw.Write(append(data, '\n'))
	}()

	_, err := s.Call(context.Background(), "refresh", nil)
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on LIFO violation, got %v", err)
	}
}

func TestReply_UnsolicitedFaultsSession(t *testing.T) {
	conn, raw := net.Pipe()
	s := New(conn, nil)
	s.Start()
	t.Cleanup(func() {
		s.Close()
		raw.Close()
	})

	bad := &wire.Frame{Type: wire.FrameReply, Seq: 1, OK: true}
	data, _ := bad.Marshal()
	if _, err := raw.Write(append(data, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not shut down on unsolicited reply")
	}
}

func TestTeardown_SubsequentCallsFailImmediately(t *testing.T) {
	parent, child := pipePair(t)
	parent.Start()
	child.Start()

	if err := child.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}

	if _, err := child.Call(context.Background(), "refresh", nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after teardown, got %v", err)
	}

	select {
	case <-parent.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("parent did not observe teardown")
	}
}

func TestClose_AbortsOutstandingCall(t *testing.T) {
	parent, child := pipePair(t)

	started := make(chan struct{})
	parent.Handle("refresh", func(ctx context.Context, _ *Session, _ json.RawMessage) (any, bool, error) {
		close(started)
		<-ctx.Done() // never answers; the session dies first
		return nil, false, ctx.Err()
	})
	parent.Start()
	child.Start()

	errCh := make(chan error, 1)
	go func() {
		_, err := child.Call(context.Background(), "refresh", nil)
		errCh <- err
	}()

	<-started
	parent.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("expected ErrChannelClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("issuer hung after session destruction")
	}
}

func TestOnClose_RunsOnShutdown(t *testing.T) {
	parent, child := pipePair(t)

	cleaned := make(chan struct{})
	parent.OnClose(func() { close(cleaned) })
	parent.Start()
	child.Start()

	child.Teardown()

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnClose hook did not run")
	}
}

// Concurrent top-level calls must serialize even while the session is
// servicing an inbound call; only calls made with a handler's context
// join the active stack.
func TestCall_ConcurrentTopLevelWhileServicingInbound(t *testing.T) {
	parent, child := pipePair(t)

	release := make(chan struct{})
	servicing := make(chan struct{})
	parent.Handle("slow", func(_ context.Context, _ *Session, _ json.RawMessage) (any, bool, error) {
		close(servicing)
		<-release
		return nil, true, nil
	})
	child.Handle("echo", func(_ context.Context, _ *Session, params json.RawMessage) (any, bool, error) {
		return json.RawMessage(params), true, nil
	})
	parent.Start()
	child.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	slowDone := make(chan error, 1)
	go func() {
		_, err := child.Call(ctx, "slow", nil)
		slowDone <- err
	}()
	<-servicing

	// The parent now has an inbound call in flight. Its own top-level
	// calls still go one at a time through the outstanding-call stack.
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := parent.Call(ctx, "echo", map[string]int{"n": 1})
			if err == nil && !reply.OK {
				err = errors.New(reply.Err)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("top-level call failed: %v", err)
		}
	}

	close(release)
	if err := <-slowDone; err != nil {
		t.Fatalf("slow call failed: %v", err)
	}
	if parent.Err() != nil {
		t.Fatalf("session faulted: %v", parent.Err())
	}
}
