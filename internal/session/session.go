package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/screend/internal/wire"
)

var (
	// ErrSessionClosed reports a call issued after the session was torn
	// down or closed. The call was never delivered.
	ErrSessionClosed = errors.New("session closed")

	// ErrChannelClosed reports that the session was destroyed while the
	// call was outstanding. This is a channel-level fault, distinct from
	// an ok=false reply.
	ErrChannelClosed = errors.New("channel closed with call outstanding")
)

// Reply is the data-level outcome of a synchronous call. Result is
// meaningless when OK is false; Err carries the peer's diagnostic.
type Reply struct {
	OK     bool
	Err    string
	Result json.RawMessage
}

// Decode unmarshals the reply payload into v.
func (r Reply) Decode(v any) error {
	if len(r.Result) == 0 {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

// Handler services one inbound call. Handlers run on their own
// goroutine, so they may issue nested calls back through s (passing the
// ctx they received) and block for the reply before returning.
// Returning err (or ok=false) produces an ok=false reply; the session
// survives either way.
type Handler func(ctx context.Context, s *Session, params json.RawMessage) (result any, ok bool, err error)

type callOutcome struct {
	reply Reply
	err   error
}

type pendingCall struct {
	seq  uint64
	done chan callOutcome
}

var sessionIDs atomic.Uint64

// Session is one child-to-parent link carrying synchronous calls in
// both directions. Outstanding calls form a LIFO stack: a reply always
// resolves the newest outstanding call, and a handler servicing call N
// may issue call N+1 before answering N.
type Session struct {
	id     uint64
	conn   net.Conn
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	handlers map[string]Handler

	writeMu sync.Mutex

	mu       sync.Mutex
	nextSeq  uint64
	stack    []*pendingCall
	closed   bool
	closeErr error
	onClose  []func()

	// topMu serializes top-level outbound calls; nested calls issued
	// from inside a handler belong to the active stack and bypass it.
	topMu sync.Mutex

	done chan struct{}
}

// New wraps conn in a session. Call Handle for each served method, then
// Start to begin reading frames.
func New(conn net.Conn, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       sessionIDs.Add(1),
		conn:     conn,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// ID returns the process-unique session identifier.
func (s *Session) ID() uint64 {
	return s.id
}

// Handle registers a handler for method. Must be called before Start.
func (s *Session) Handle(method string, h Handler) {
	s.handlers[method] = h
}

// OnClose registers fn to run when the session shuts down. Must be
// called before Start.
func (s *Session) OnClose(fn func()) {
	s.onClose = append(s.onClose, fn)
}

// Start launches the frame read loop.
func (s *Session) Start() {
	go s.readLoop()
}

// Done is closed when the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the fault that closed the session, or nil for an orderly
// teardown. Valid after Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// nestedKey marks handler contexts: a Call made with a context derived
// from a handler invocation is nested and joins the active call stack.
type nestedKey struct{}

func isNested(ctx context.Context) bool {
	return ctx != nil && ctx.Value(nestedKey{}) != nil
}

// Call issues a synchronous call and blocks until the matching reply
// arrives or the session is destroyed. When invoked with the context a
// handler received, the call is nested: it joins the session's active
// call stack and must resolve before the enclosing call is answered.
//
// Cancelling ctx destroys the session: a synchronous call cannot be
// abandoned without desyncing the reply stack.
func (s *Session) Call(ctx context.Context, method string, params any) (Reply, error) {
	if !isNested(ctx) {
		s.topMu.Lock()
		defer s.topMu.Unlock()
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return Reply{}, fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		raw = data
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Reply{}, ErrSessionClosed
	}
	s.nextSeq++
	pc := &pendingCall{seq: s.nextSeq, done: make(chan callOutcome, 1)}
	s.stack = append(s.stack, pc)
	s.mu.Unlock()

	frame := &wire.Frame{Type: wire.FrameCall, Seq: pc.seq, Method: method, Params: raw}
	if err := s.writeFrame(frame); err != nil {
		s.shutdown(fmt.Errorf("failed to send %s call: %w", method, err))
	}

	select {
	case out := <-pc.done:
		if out.err != nil {
			return Reply{}, out.err
		}
		return out.reply, nil
	case <-ctx.Done():
		s.shutdown(ctx.Err())
		out := <-pc.done
		if out.err != nil {
			return Reply{}, out.err
		}
		return out.reply, nil
	}
}

// Teardown sends the one-way teardown frame and closes the session.
// Calls issued afterwards fail with ErrSessionClosed.
func (s *Session) Teardown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	err := s.writeFrame(&wire.Frame{Type: wire.FrameTeardown})
	s.shutdown(nil)
	return err
}

// Close destroys the session. Outstanding calls are aborted with
// ErrChannelClosed.
func (s *Session) Close() error {
	s.shutdown(nil)
	return nil
}

func (s *Session) readLoop() {
	reader := bufio.NewReader(s.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			s.shutdown(nil)
			return
		}

		frame, err := wire.ParseFrame(line)
		if err != nil {
			s.logger.Error("session: malformed frame", "session", s.id, "error", err)
			s.shutdown(err)
			return
		}

		switch frame.Type {
		case wire.FrameCall:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			go s.serviceCall(frame)

		case wire.FrameReply:
			if err := s.deliverReply(frame); err != nil {
				s.logger.Error("session: protocol fault", "session", s.id, "error", err)
				s.shutdown(err)
				return
			}

		case wire.FrameTeardown:
			s.shutdown(nil)
			return

		default:
			s.shutdown(fmt.Errorf("unknown frame type %q", frame.Type))
			return
		}
	}
}

func (s *Session) serviceCall(f *wire.Frame) {
	reply := &wire.Frame{Type: wire.FrameReply, Seq: f.Seq}

	if h, ok := s.handlers[f.Method]; !ok {
		reply.Error = fmt.Sprintf("unknown method: %s", f.Method)
	} else {
		ctx := context.WithValue(s.ctx, nestedKey{}, true)
		result, okFlag, err := h(ctx, s, f.Params)
		switch {
		case err != nil:
			reply.Error = err.Error()
		case !okFlag:
			// Data-level failure; payload stays empty.
		default:
			reply.OK = true
			if result != nil {
				raw, err := json.Marshal(result)
				if err != nil {
					reply.OK = false
					reply.Error = fmt.Sprintf("failed to marshal %s result: %v", f.Method, err)
				} else {
					reply.Result = raw
				}
			}
		}
	}

	if err := s.writeFrame(reply); err != nil {
		s.shutdown(fmt.Errorf("failed to send reply for %s: %w", f.Method, err))
	}
}

// deliverReply resolves the newest outstanding call. A reply that does
// not match the top of the stack violates the nesting discipline and
// faults the session.
func (s *Session) deliverReply(f *wire.Frame) error {
	s.mu.Lock()
	if len(s.stack) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("reply seq %d with no call outstanding", f.Seq)
	}
	top := s.stack[len(s.stack)-1]
	if f.Seq != top.seq {
		s.mu.Unlock()
		return fmt.Errorf("reply seq %d does not match newest outstanding call %d", f.Seq, top.seq)
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.mu.Unlock()

	top.done <- callOutcome{reply: Reply{OK: f.OK, Err: f.Error, Result: f.Result}}
	return nil
}

func (s *Session) writeFrame(f *wire.Frame) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write(data); err != nil {
		return err
	}
	return nil
}

// shutdown closes the session once. Every outstanding call is aborted
// with ErrChannelClosed, newest first, so blocked issuers observe a
// failure rather than a hang.
func (s *Session) shutdown(reason error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = reason
	pending := s.stack
	s.stack = nil
	onClose := s.onClose
	s.mu.Unlock()

	s.cancel()
	s.conn.Close()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].done <- callOutcome{err: ErrChannelClosed}
	}
	for _, fn := range onClose {
		fn()
	}
	close(s.done)
}
