// File: dispatcher/dispatcher.go
// Package dispatcher implements the per-connection state machine of
// spec §6–§7: it turns inbound wire.Frame values into callback
// invocations against the endpoint the handshake resolved to, and
// routes handler/decode/protocol failures to the right close code and
// callback per the error taxonomy in wserr.
//
// Grounded on the teacher's highlevel/conn.go (a per-connection object
// owning a handler instance and driving its callbacks) and
// highlevel/server.go (route resolution ahead of dispatch); the state
// machine and frame-ordering queue are this package's own, since the
// teacher dispatches eagerly per read rather than through an explicit
// per-connection FIFO.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package dispatcher

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/assembler"
	"github.com/momentics/ws-endpoint/endpoint"
	"github.com/momentics/ws-endpoint/registry"
	"github.com/momentics/ws-endpoint/wire"
	"github.com/momentics/ws-endpoint/wserr"
	"github.com/momentics/ws-endpoint/wssession"
)

var stringType = reflect.TypeOf("")

// HandshakeRequest carries everything captured at the HTTP/1.1 upgrade
// (an external collaborator per spec §1) that the dispatcher needs to
// resolve an endpoint and construct its Session.
type HandshakeRequest struct {
	Path                string
	RawQuery            string
	ProtocolVersion     string
	Secure              bool
	OfferedSubprotocols []string
	AuthorizationHeader string
}

// Connection is the per-connection dispatcher: one is constructed per
// accepted upgrade and fed frames in arrival order via HandleFrame.
type Connection struct {
	state atomic.Int32

	registry *registry.Registry
	writer   wssession.FrameWriter
	queue    *frameQueue

	mu         sync.Mutex
	match      registry.Match
	session    *wssession.Session
	handler    reflect.Value
	asm        *assembler.Assembler
	activeKind wire.Opcode
	limiter    *rate.Limiter
	idleTimer  *time.Timer

	log *slog.Logger

	// drainMu serializes drain() so frames handed in from concurrent
	// HandleFrame callers are still processed one at a time, preserving
	// assembly and callback-invocation order (spec §6).
	drainMu sync.Mutex
}

// New constructs a Connection in AWAITING_UPGRADE against reg, writing
// replies through writer.
func New(reg *registry.Registry, writer wssession.FrameWriter) *Connection {
	c := &Connection{registry: reg, writer: writer, queue: newFrameQueue(), log: slog.Default()}
	c.state.Store(int32(AwaitingUpgrade))
	return c
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

// Session returns the connection's Session object, valid only once
// Open has succeeded.
func (c *Connection) Session() api.Session { return c.session }

// Open resolves req against the registry, constructs the Session, and
// invokes the handler's OnOpen callback if present (spec §4.8's
// AWAITING_UPGRADE -> OPEN transition). It returns the subprotocol the
// caller should echo back in the 101 response, if any.
func (c *Connection) Open(req HandshakeRequest) (string, error) {
	if ConnState(c.state.Load()) != AwaitingUpgrade {
		return "", fmt.Errorf("dispatcher: Open called outside AWAITING_UPGRADE")
	}

	m, ok := c.registry.Lookup(req.Path)
	if !ok {
		return "", fmt.Errorf("dispatcher: no endpoint registered for path %q", req.Path)
	}

	sub := negotiateSubprotocol(m.Descriptor.Subprotocols, req.OfferedSubprotocols)
	principal, _ := wssession.ExtractPrincipal(req.AuthorizationHeader, m.Config.JWTVerificationKey)

	sess := wssession.New(wssession.Config{
		ID:              uuid.NewString(),
		RequestURI:      req.Path,
		RawQuery:        req.RawQuery,
		PathParams:      m.PathParams,
		ProtocolVersion: req.ProtocolVersion,
		Subprotocol:     sub,
		Secure:          req.Secure,
		Principal:       principal,
		EndpointConfig:  m.Config,
		Tracker:         m.Tracker,
		Writer:          c.writer,
		Pipeline:        m.Pipeline,
		OnClose:         c.onSessionClose,
	})

	c.mu.Lock()
	c.match = m
	c.session = sess
	c.handler = reflect.ValueOf(m.Descriptor.Factory())
	c.asm = assembler.New(sess.MaxTextMessageBufferSize(), sess.MaxBinaryMessageBufferSize())
	if m.Config.RateLimitPerSecond > 0 {
		burst := m.Config.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(m.Config.RateLimitPerSecond), burst)
	}
	c.mu.Unlock()

	if m.Descriptor.OpenSlot != nil {
		if _, err := endpoint.Invoke(m.Descriptor.OpenSlot, c.handler, endpoint.InvokeContext{
			Session:    sess,
			Config:     m.Config,
			PathParams: m.PathParams,
		}); err != nil {
			c.routeFailure(err)
		}
	}

	c.state.Store(int32(Open))
	c.armIdleTimer(m.Config.MaxIdleTimeout)
	c.log.Info("session opened", "session_id", sess.ID(), "path", req.Path, "subprotocol", sub)
	return sub, nil
}

// armIdleTimer (re)starts the per-session inactivity timer per spec §5:
// maxIdleTimeout > 0 closes the session with 1000 after that many
// milliseconds without an inbound frame; 0 disables the timer entirely
// (SPEC_FULL.md §11).
func (c *Connection) armIdleTimer(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleTimer == nil {
		c.idleTimer = time.AfterFunc(timeout, c.onIdleTimeout)
		return
	}
	c.idleTimer.Reset(timeout)
}

func (c *Connection) onIdleTimeout() {
	if ConnState(c.state.Load()) != Open {
		return
	}
	c.log.Info("session idle timeout, closing", "session_id", c.session.ID())
	c.finishClose(api.CloseReason{Code: int(wire.CloseNormalClosure), Reason: "idle timeout"})
}

func (c *Connection) resetIdleTimer() {
	c.mu.Lock()
	timer := c.idleTimer
	c.mu.Unlock()
	if timer == nil {
		return
	}
	if d := c.session.MaxIdleTimeout(); d > 0 {
		timer.Reset(d)
	}
}

func negotiateSubprotocol(declared, offered []string) string {
	for _, d := range declared {
		for _, o := range offered {
			if d == o {
				return d
			}
		}
	}
	return ""
}

// HandleFrame enqueues f and drains the connection's inbound queue in
// order. It is safe to call from a single reader goroutine per
// connection; the queue exists so a caller MAY hand frames off a
// separate read loop without the two racing on assembly state.
func (c *Connection) HandleFrame(f wire.Frame) error {
	if ConnState(c.state.Load()) != Open {
		return fmt.Errorf("dispatcher: HandleFrame called outside OPEN (state=%s)", c.State())
	}
	c.resetIdleTimer()
	c.queue.push(f)
	c.drain()
	return nil
}

func (c *Connection) drain() {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()
	for {
		f, ok := c.queue.pop()
		if !ok {
			return
		}
		c.processFrame(f)
	}
}

func (c *Connection) processFrame(f wire.Frame) {
	if f.Opcode.IsControl() {
		c.handleControl(f)
		return
	}

	kind := f.Opcode
	if kind == wire.OpcodeContinuation {
		kind = c.activeKind
	} else {
		c.activeKind = f.Opcode
	}
	if f.Fin {
		defer func() { c.activeKind = 0 }()
	}

	if c.wantsPartial(kind) {
		c.dispatchPartial(kind, f)
		return
	}

	res, err := c.asm.Feed(f)
	if err != nil {
		c.routeFailure(err)
		return
	}
	if res == nil {
		return // fragment buffered, awaiting continuation
	}
	c.dispatchWhole(res)
}

func (c *Connection) wantsPartial(kind wire.Opcode) bool {
	switch kind {
	case wire.OpcodeText:
		return c.match.Descriptor.TextSlot != nil && wantsLastFragment(c.match.Descriptor.TextSlot)
	case wire.OpcodeBinary:
		return c.match.Descriptor.BinarySlot != nil && wantsLastFragment(c.match.Descriptor.BinarySlot)
	default:
		return false
	}
}

// dispatchPartial delivers one raw frame directly to a callback that
// declared the trailing-boolean "partial delivery" shape (spec §4.2),
// bypassing whole-message reassembly for that message kind entirely.
func (c *Connection) dispatchPartial(kind wire.Opcode, f wire.Frame) {
	var slot *endpoint.CallbackPlan
	var value reflect.Value
	if kind == wire.OpcodeText {
		slot = c.match.Descriptor.TextSlot
		value = reflect.ValueOf(string(f.Payload))
	} else {
		slot = c.match.Descriptor.BinarySlot
		value = reflect.ValueOf(append([]byte(nil), f.Payload...))
	}

	if _, err := endpoint.Invoke(slot, c.handler, endpoint.InvokeContext{
		Session:      c.session,
		PathParams:   c.match.PathParams,
		MessageValue: value,
		LastFragment: f.Fin,
	}); err != nil {
		c.routeFailure(err)
	}
}

func (c *Connection) handleControl(f wire.Frame) {
	switch f.Opcode {
	case wire.OpcodePing:
		_ = c.session.Basic().SendPong(f.Payload)
	case wire.OpcodePong:
		if c.match.Descriptor.PongSlot != nil {
			if _, err := endpoint.Invoke(c.match.Descriptor.PongSlot, c.handler, endpoint.InvokeContext{
				Session:      c.session,
				PathParams:   c.match.PathParams,
				MessageValue: reflect.ValueOf(api.PongMessage{ApplicationData: f.Payload}),
			}); err != nil {
				c.routeFailure(err)
			}
		}
	case wire.OpcodeClose:
		c.closePeerInitiated(f.Payload)
	}
}

func (c *Connection) closePeerInitiated(payload []byte) {
	reason := api.CloseReason{Code: int(wire.CloseNoStatusRcvd)}
	if len(payload) >= 2 {
		reason.Code = int(payload[0])<<8 | int(payload[1])
		reason.Reason = string(payload[2:])
	}
	c.finishClose(reason)
}

// dispatchWhole delivers a fully reassembled message, first enforcing
// the endpoint's inbound rate limit (SPEC_FULL.md §10) if configured: a
// message over the limit is dropped rather than queued, so a slow
// handler never backs up behind a bursting peer.
func (c *Connection) dispatchWhole(res *assembler.Result) {
	if c.limiter != nil && !c.limiter.Allow() {
		return
	}
	switch res.Opcode {
	case wire.OpcodeText:
		c.dispatchTextMessage(res.Text)
	case wire.OpcodeBinary:
		c.dispatchBinaryMessage(res.Binary)
	}
}

func (c *Connection) dispatchTextMessage(raw string) {
	slot := c.match.Descriptor.TextSlot
	if slot == nil {
		return
	}
	msgType, _ := findMessageArg(slot)

	var value reflect.Value
	if msgType == nil || msgType == stringType {
		value = reflect.ValueOf(raw)
	} else {
		decoded, ok, err := c.match.Pipeline.DecodeText(raw)
		if err != nil {
			c.routeFailure(&wserr.DecodeFailure{Cause: err})
			return
		}
		if !ok {
			c.routeFailure(&wserr.DecodeFailure{Cause: fmt.Errorf("no text decoder accepted the message")})
			return
		}
		value = reflect.ValueOf(decoded)
	}

	c.invokeMessageSlot(slot, value)
}

func (c *Connection) dispatchBinaryMessage(raw []byte) {
	slot := c.match.Descriptor.BinarySlot
	if slot == nil {
		return
	}
	msgType, _ := findMessageArg(slot)

	var value reflect.Value
	if msgType == nil || msgType.Kind() == reflect.Slice {
		value = reflect.ValueOf(raw)
	} else {
		decoded, ok, err := c.match.Pipeline.DecodeBinary(raw)
		if err != nil {
			c.routeFailure(&wserr.DecodeFailure{Cause: err})
			return
		}
		if !ok {
			c.routeFailure(&wserr.DecodeFailure{Cause: fmt.Errorf("no binary decoder accepted the message")})
			return
		}
		value = reflect.ValueOf(decoded)
	}

	c.invokeMessageSlot(slot, value)
}

// invokeMessageSlot calls slot and, per spec §4.8, sends a non-error,
// non-nil return value back on the same session as the auto-reply.
func (c *Connection) invokeMessageSlot(slot *endpoint.CallbackPlan, value reflect.Value) {
	out, err := endpoint.Invoke(slot, c.handler, endpoint.InvokeContext{
		Session:      c.session,
		PathParams:   c.match.PathParams,
		MessageValue: value,
	})
	if err != nil {
		c.routeFailure(err)
		return
	}
	if len(out) == 0 {
		return
	}
	c.autoReply(out[0])
}

// autoReply sends a callback's returned value back on the session's
// Basic remote (spec §4.8). An EncodeFailure or transport error raised
// by the send has no caller to surface to here — the dispatcher itself
// invoked the send — so it is routed to the error callback exactly like
// any other routed failure (spec §7).
func (c *Connection) autoReply(v reflect.Value) {
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return
	}
	var err error
	switch val := v.Interface().(type) {
	case string:
		err = c.session.Basic().SendText(val)
	case []byte:
		err = c.session.Basic().SendBinary(val)
	default:
		err = c.session.Basic().SendObject(val)
	}
	if err != nil {
		c.routeFailure(err)
	}
}

func findMessageArg(slot *endpoint.CallbackPlan) (reflect.Type, bool) {
	for _, a := range slot.Args {
		if a.Kind == endpoint.ArgMessage {
			return a.MessageType, true
		}
	}
	return nil, false
}

func wantsLastFragment(slot *endpoint.CallbackPlan) bool {
	for _, a := range slot.Args {
		if a.Kind == endpoint.ArgLastFragment {
			return true
		}
	}
	return false
}

// routeFailure applies the error-kind routing table of spec §7: a
// recoverable failure (decode, non-fatal handler exception) reaches
// only the error callback and the session stays OPEN; a protocol
// violation, overflow, or transport failure closes the connection with
// the associated code after notifying the error and close callbacks.
func (c *Connection) routeFailure(err error) {
	c.log.Warn("routing failure to error callback", "session_id", c.sessionIDOrEmpty(), "err", err)
	c.invokeErrorSlot(err)

	switch e := err.(type) {
	case *wserr.ProtocolError:
		c.finishClose(api.CloseReason{Code: e.Code, Reason: e.Reason})
	case *wserr.OverflowError:
		c.finishClose(api.CloseReason{Code: int(wire.CloseMessageTooBig), Reason: e.Error()})
	case *wserr.TransportError:
		c.finishClose(api.CloseReason{Code: int(wire.CloseAbnormalClosure), Reason: e.Error()})
	case *wserr.HandlerException:
		if e.Fatal {
			c.finishClose(api.CloseReason{Code: int(wire.CloseInternalServerErr), Reason: e.Error()})
		}
		// non-fatal: session stays OPEN.
	default:
		// DecodeFailure and anything unclassified: session stays OPEN.
	}
}

func (c *Connection) sessionIDOrEmpty() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// invokeErrorSlot calls the handler's OnError callback, if any. A
// callback that itself throws is logged and swallowed (spec §7): it
// must never escalate into a second round of failure routing.
func (c *Connection) invokeErrorSlot(err error) {
	slot := c.match.Descriptor.ErrorSlot
	if slot == nil {
		return
	}
	if _, cbErr := endpoint.Invoke(slot, c.handler, endpoint.InvokeContext{
		Session:    c.session,
		Config:     c.match.Config,
		PathParams: c.match.PathParams,
		Err:        err,
	}); cbErr != nil {
		c.log.Error("error callback itself failed; swallowing", "session_id", c.sessionIDOrEmpty(), "err", cbErr)
	}
}

// finishClose initiates the OPEN/CLOSING -> CLOSED transition for a
// connection-driven close (peer close frame, routed failure, idle
// timeout, or application Close). The CAS just avoids redundant entry
// when two such triggers race; the actual close work always runs
// through onSessionClose below, which wssession.Session guarantees
// fires exactly once (spec §4.8) no matter how many callers ask for a
// close — including registry.Handle.Dispose, which closes sessions
// directly via Session.CloseWithReason rather than through this method
// (spec §4.7).
func (c *Connection) finishClose(reason api.CloseReason) {
	if !c.state.CompareAndSwap(int32(Open), int32(Closing)) {
		return // already closing/closed
	}
	_ = c.session.CloseWithReason(reason)
}

// onSessionClose is installed as the session's close hook at Open time
// (wssession.Config.OnClose). wssession.Session invokes it synchronously
// and exactly once, from inside CloseWithReason, before the session
// itself transitions out of StateOpen — so it runs uniformly regardless
// of which path triggered the close, including one that bypasses
// finishClose entirely (registry.Handle.Dispose). It invokes the
// handler's OnClose callback and completes the connection's own state
// transition to CLOSED (spec §4.7, §4.8).
func (c *Connection) onSessionClose(reason api.CloseReason) {
	c.mu.Lock()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.mu.Unlock()

	if c.match.Descriptor.CloseSlot != nil {
		_, _ = endpoint.Invoke(c.match.Descriptor.CloseSlot, c.handler, endpoint.InvokeContext{
			Session:     c.session,
			Config:      c.match.Config,
			PathParams:  c.match.PathParams,
			CloseReason: reason,
		})
	}
	c.state.Store(int32(Closed))
	c.log.Info("session closed", "session_id", c.session.ID(), "code", reason.Code, "reason", reason.Reason)
}

// Close initiates an application-driven close (as opposed to one
// triggered by a peer close frame or a routed failure).
func (c *Connection) Close(reason api.CloseReason) {
	c.finishClose(reason)
}
