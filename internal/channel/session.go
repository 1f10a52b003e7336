// internal/channel/session.go
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCommandTimeout bounds how long a single command waits for its
// broadcast response.
const DefaultCommandTimeout = 30 * time.Second

// ErrSessionClosed is returned for commands issued or in flight when the
// session shuts down.
var ErrSessionClosed = errors.New("channel session closed")

// TimeoutError reports a command that received no response in time.
type TimeoutError struct {
	Command string
	ID      string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q (id %s) timed out after %s", e.Command, e.ID, e.After)
}

// CommandError reports a command the remote tool explicitly rejected.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q rejected: %s", e.Command, e.Reason)
}

type outcome struct {
	result json.RawMessage
	err    error
}

// pendingCommand tracks one in-flight command. The outcome channel is
// buffered so the read loop never blocks on a caller; removal from the
// pending table under the session lock guarantees at most one of
// {resolve, timeout} is ever delivered for a given id.
type pendingCommand struct {
	id      string
	command string
	ch      chan outcome
}

// Session is the single channel session for a run: one connection, one
// joined channel, a monotonic command-id counter, and the pending-command
// table. It is an explicit struct handed to every caller, never ambient
// global state, so concurrent sessions in tests stay isolated.
type Session struct {
	conn    Transport
	channel string
	timeout time.Duration

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[string]*pendingCommand

	writeMu sync.Mutex

	joined    chan *Inner
	done      chan struct{}
	closeOnce sync.Once
	readErr   atomic.Value // error
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout overrides the per-command response timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// NewSession wraps an open transport and starts the read loop. Callers must
// Join before sending commands; Close tears the session down.
func NewSession(conn Transport, channel string, opts ...Option) *Session {
	s := &Session{
		conn:    conn,
		channel: channel,
		timeout: DefaultCommandTimeout,
		pending: make(map[string]*pendingCommand),
		joined:  make(chan *Inner, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.readLoop()
	return s
}

// Connect dials the relay, joins the channel, and returns a ready session.
// A failure here is fatal for the run.
func Connect(ctx context.Context, url, channel string, opts ...Option) (*Session, error) {
	conn, err := DialTransport(ctx, url)
	if err != nil {
		return nil, err
	}
	s := NewSession(conn, channel, opts...)
	if err := s.Join(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Channel returns the joined channel name.
func (s *Session) Channel() string {
	return s.channel
}

// Join sends the join frame and waits for the relay's system confirmation.
func (s *Session) Join(ctx context.Context) error {
	if err := s.write(joinFrame(s.channel)); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-s.joined:
		slog.Info("channel joined", "channel", s.channel)
		return nil
	case <-timer.C:
		return fmt.Errorf("join channel %q: no confirmation after %s", s.channel, s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.closeErr()
	}
}

// SendCommand issues one framed command and suspends the caller until the
// matching broadcast response arrives, the timeout fires, or the context is
// cancelled — whichever happens first. Multiple outstanding commands are
// permitted; ids disambiguate the responses.
func (s *Session) SendCommand(ctx context.Context, command string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %q: %w", command, err)
		}
		raw = data
	}

	id := strconv.FormatInt(s.nextID.Add(1), 10)
	pc := &pendingCommand{id: id, command: command, ch: make(chan outcome, 1)}
	s.mu.Lock()
	s.pending[id] = pc
	s.mu.Unlock()

	if err := s.write(requestFrame(s.channel, id, command, raw)); err != nil {
		s.take(id)
		return nil, fmt.Errorf("send command %q: %w", command, err)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case out := <-pc.ch:
		return out.result, out.err
	case <-timer.C:
		// The response may have been delivered between the timer firing and
		// the table removal; prefer it over reporting a timeout.
		if !s.take(id) {
			out := <-pc.ch
			return out.result, out.err
		}
		return nil, &TimeoutError{Command: command, ID: id, After: s.timeout}
	case <-ctx.Done():
		s.take(id)
		return nil, ctx.Err()
	case <-s.done:
		return nil, s.closeErr()
	}
}

// take removes a pending command, reporting whether it was still registered.
func (s *Session) take(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

func (s *Session) write(f *Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(data)
}

// readLoop drains the transport, parses each frame into the tagged union,
// and routes it. It exits on the first read error, failing all in-flight
// commands.
func (s *Session) readLoop() {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.shutdown(fmt.Errorf("connection lost: %w", err))
			return
		}
		frame, err := ParseFrame(data)
		if err != nil {
			slog.Warn("discarding malformed frame", "error", err)
			continue
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(f *Frame) {
	switch f.Type {
	case FrameSystem:
		select {
		case s.joined <- f.Message:
		default:
		}
	case FrameBroadcast:
		s.resolve(f.Message)
	case FrameError:
		if f.Message != nil {
			slog.Warn("relay error frame", "error", f.Message.Error)
		}
	default:
		// join/message frames inbound are other participants' traffic
	}
}

// resolve matches a broadcast against the pending table. Broadcasts without
// a result key are echoes of our own outbound request and are ignored; late
// responses for ids already timed out are no-ops.
func (s *Session) resolve(msg *Inner) {
	if msg == nil || msg.ID == "" {
		return
	}
	if !msg.HasResult() && msg.Error == "" {
		return
	}
	s.mu.Lock()
	pc, ok := s.pending[msg.ID]
	if ok {
		delete(s.pending, msg.ID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if msg.Error != "" {
		pc.ch <- outcome{err: &CommandError{Command: pc.command, Reason: msg.Error}}
		return
	}
	pc.ch <- outcome{result: msg.Result}
}

// shutdown records the terminal error, fails all pending commands, and
// closes the done channel exactly once.
func (s *Session) shutdown(err error) {
	s.closeOnce.Do(func() {
		s.readErr.Store(err)
		s.mu.Lock()
		for id, pc := range s.pending {
			delete(s.pending, id)
			pc.ch <- outcome{err: err}
		}
		s.mu.Unlock()
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) closeErr() error {
	if err, ok := s.readErr.Load().(error); ok && err != nil {
		return err
	}
	return ErrSessionClosed
}

// Close tears down the session and its connection.
func (s *Session) Close() {
	s.shutdown(ErrSessionClosed)
}
