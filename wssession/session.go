// File: wssession/session.go
// Session implements api.Session, backing the per-connection object
// handed to every callback (spec §3, §4.6). Field shape is grounded on
// spec §4.6 directly; the cancellation/state-transition idiom (an
// idempotent close guarded by sync.Once) is grounded on the teacher's
// internal/session/session.go sessionImpl.Cancel.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wire"
)

// FrameWriter is the transport collaborator's write side, supplied by
// the dispatcher (spec §1: framing/transport is external). BasicRemote
// blocks the caller until WriteFrame returns; AsyncRemote wraps it in a
// goroutine.
type FrameWriter interface {
	WriteFrame(f wire.Frame) error
}

// Config bundles the immutable facts captured once at handshake time
// that a Session is constructed from (spec §3: request URI, query,
// path params, protocol version, secure flag, negotiated subprotocol,
// principal).
type Config struct {
	ID              string
	RequestURI      string
	RawQuery        string
	PathParams      uritemplate.PathParams
	ProtocolVersion string
	Subprotocol     string // "" if none was negotiated
	Secure          bool
	Principal       string // "" if unauthenticated

	EndpointConfig api.EndpointConfig
	Tracker        *Tracker
	Writer         FrameWriter
	Pipeline       *codec.Pipeline

	// OnClose, if set, is invoked synchronously and exactly once at the
	// start of the first CloseWithReason call, before the session's own
	// state transition, close-frame write, and tracker removal. The
	// dispatcher installs its own hook here so every path that closes a
	// session — a peer close frame, a routed failure, an idle timeout, a
	// user-driven Close, or the owning endpoint's Dispose — invokes the
	// handler's close callback exactly once (spec §4.7, §4.8).
	OnClose func(api.CloseReason)
}

// Session is the concrete per-connection object.
type Session struct {
	id              string
	requestURI      string
	rawQuery        string
	queryParams     url.Values
	pathParams      uritemplate.PathParams
	protocolVersion string
	subprotocol     string
	hasSubprotocol  bool
	secure          bool
	principal       string
	hasPrincipal    bool

	mu               sync.RWMutex
	maxIdleTimeout   time.Duration
	maxTextBufSize   int64
	maxBinaryBufSize int64

	props    *userProperties
	handlers *messageHandlerSet

	state atomic.Int32 // api.SessionState

	tracker  *Tracker
	writer   FrameWriter
	pipeline *codec.Pipeline
	onClose  func(api.CloseReason)

	basic *basicRemote
	async *asyncRemote

	closeOnce sync.Once
}

// New constructs a Session in StateOpen and registers it with the
// endpoint's tracker (spec §4.7: a session enters the open set the
// instant it becomes OPEN).
func New(cfg Config) *Session {
	qp, _ := url.ParseQuery(cfg.RawQuery)

	s := &Session{
		id:               cfg.ID,
		requestURI:       cfg.RequestURI,
		rawQuery:         cfg.RawQuery,
		queryParams:      qp,
		pathParams:       cfg.PathParams,
		protocolVersion:  cfg.ProtocolVersion,
		subprotocol:      cfg.Subprotocol,
		hasSubprotocol:   cfg.Subprotocol != "",
		secure:           cfg.Secure,
		principal:        cfg.Principal,
		hasPrincipal:     cfg.Principal != "",
		maxIdleTimeout:   cfg.EndpointConfig.MaxIdleTimeout,
		maxTextBufSize:   cfg.EndpointConfig.MaxTextMessageBufferSize,
		maxBinaryBufSize: cfg.EndpointConfig.MaxBinaryMessageBufferSize,
		props:            newUserProperties(),
		handlers:         newMessageHandlerSet(),
		tracker:          cfg.Tracker,
		writer:           cfg.Writer,
		pipeline:         cfg.Pipeline,
		onClose:          cfg.OnClose,
	}
	s.state.Store(int32(api.StateOpen))
	s.basic = &basicRemote{session: s}
	s.async = &asyncRemote{session: s}

	if s.tracker != nil {
		s.tracker.Add(s)
	}
	return s
}

func (s *Session) ID() string             { return s.id }
func (s *Session) RequestURI() string     { return s.requestURI }
func (s *Session) ProtocolVersion() string { return s.protocolVersion }
func (s *Session) IsSecure() bool          { return s.secure }

func (s *Session) QueryString() (string, bool) {
	return s.rawQuery, s.rawQuery != ""
}

func (s *Session) QueryParams() url.Values { return s.queryParams }

func (s *Session) PathParams() uritemplate.PathParams { return s.pathParams }

func (s *Session) NegotiatedSubprotocol() (string, bool) {
	return s.subprotocol, s.hasSubprotocol
}

func (s *Session) UserPrincipal() (string, bool) {
	return s.principal, s.hasPrincipal
}

func (s *Session) MaxIdleTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxIdleTimeout
}

func (s *Session) SetMaxIdleTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxIdleTimeout = d
}

func (s *Session) MaxTextMessageBufferSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTextBufSize
}

func (s *Session) SetMaxTextMessageBufferSize(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTextBufSize = n
}

func (s *Session) MaxBinaryMessageBufferSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBinaryBufSize
}

func (s *Session) SetMaxBinaryMessageBufferSize(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxBinaryBufSize = n
}

func (s *Session) UserProperties() api.UserProperties { return s.props }
func (s *Session) MessageHandlers() api.MessageHandlerSet { return s.handlers }

// OpenSessions returns a snapshot of every OPEN session on the same
// endpoint (spec §4.7).
func (s *Session) OpenSessions() []api.Session {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Snapshot()
}

func (s *Session) State() api.SessionState {
	return api.SessionState(s.state.Load())
}

// Close closes the session with the normal-closure code (spec §4.8).
func (s *Session) Close() error {
	return s.CloseWithReason(api.CloseReason{Code: int(wire.CloseNormalClosure), Reason: ""})
}

// CloseWithReason transitions OPEN/CLOSING -> CLOSED, sends the close
// frame once, and removes the session from its tracker. Idempotent:
// a second call is a no-op (spec §4.8: closing an already-closing or
// closed session has no effect).
//
// Before any of that, if the session was constructed with an OnClose
// hook, it runs first, while the session still reports StateOpen — this
// is what lets the owning connection invoke the handler's close
// callback uniformly, whether the close was peer-initiated,
// handler-initiated, caused by a routed failure, or triggered by the
// owning endpoint's Dispose (spec §4.7, §4.8).
func (s *Session) CloseWithReason(reason api.CloseReason) error {
	var sendErr error
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose(reason)
		}
		s.state.Store(int32(api.StateClosing))
		if s.writer != nil {
			sendErr = s.writer.WriteFrame(wire.Frame{
				Opcode:  wire.OpcodeClose,
				Fin:     true,
				Payload: encodeCloseFramePayload(reason),
			})
		}
		s.state.Store(int32(api.StateClosed))
		if s.tracker != nil {
			s.tracker.Remove(s.id)
		}
	})
	return sendErr
}

// encodeCloseFramePayload renders a CloseReason as the 2-byte
// big-endian code followed by the UTF-8 reason text (RFC 6455 §5.5.1).
func encodeCloseFramePayload(reason api.CloseReason) []byte {
	if reason.Code == 0 {
		return nil
	}
	out := make([]byte, 2+len(reason.Reason))
	out[0] = byte(reason.Code >> 8)
	out[1] = byte(reason.Code)
	copy(out[2:], reason.Reason)
	return out
}

func (s *Session) Basic() api.BasicRemote { return s.basic }
func (s *Session) Async() api.AsyncRemote { return s.async }

var _ api.Session = (*Session)(nil)
