// File: dispatcher/dispatcher_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/registry"
	"github.com/momentics/ws-endpoint/wire"
)

type recordingWriter struct {
	mu     sync.Mutex
	frames []wire.Frame
}

func (w *recordingWriter) WriteFrame(f wire.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, f)
	return nil
}

func (w *recordingWriter) snapshot() []wire.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]wire.Frame, len(w.frames))
	copy(out, w.frames)
	return out
}

// echoHandler exercises spec scenario 1: a returned string auto-replies
// on the session.
type echoHandler struct {
	opened int
	closed int
}

func (h *echoHandler) OnOpen(s api.Session)                    { h.opened++ }
func (h *echoHandler) OnClose(s api.Session, r api.CloseReason) { h.closed++ }
func (h *echoHandler) OnMessage(msg string) string              { return msg }

func newEchoRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	if _, err := r.Register(api.DefaultEndpointConfig("/echo"), func() any { return &echoHandler{} }, nil, nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func TestOpenInvokesOnOpenAndTransitionsToOpen(t *testing.T) {
	r := newEchoRegistry(t)
	w := &recordingWriter{}
	c := New(r, w)

	if _, err := c.Open(HandshakeRequest{Path: "/echo", ProtocolVersion: "13"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.State() != Open {
		t.Fatalf("expected connection state OPEN, got %s", c.State())
	}
}

func TestTextMessageEchoesReply(t *testing.T) {
	r := newEchoRegistry(t)
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.HandleFrame(wire.Frame{Opcode: wire.OpcodeText, Fin: true, Payload: []byte("hello")}); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	frames := w.snapshot()
	if len(frames) != 1 || frames[0].Opcode != wire.OpcodeText || string(frames[0].Payload) != "hello" {
		t.Fatalf("expected an echoed text reply, got %+v", frames)
	}
}

func TestPingAutoRepliesWithPong(t *testing.T) {
	r := newEchoRegistry(t)
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.HandleFrame(wire.Frame{Opcode: wire.OpcodePing, Fin: true, Payload: []byte("hi")}); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	frames := w.snapshot()
	if len(frames) != 1 || frames[0].Opcode != wire.OpcodePong || string(frames[0].Payload) != "hi" {
		t.Fatalf("expected an auto pong reply, got %+v", frames)
	}
}

func TestPeerCloseInvokesOnCloseAndEchoesCloseFrame(t *testing.T) {
	r := registry.New()
	h := &echoHandler{}
	if _, err := r.Register(api.DefaultEndpointConfig("/echo"), func() any { return h }, nil, nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := []byte{0x03, 0xe8} // code 1000, no reason
	if err := c.HandleFrame(wire.Frame{Opcode: wire.OpcodeClose, Fin: true, Payload: payload}); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	if c.State() != Closed {
		t.Fatalf("expected connection state CLOSED, got %s", c.State())
	}
	frames := w.snapshot()
	if len(frames) != 1 || frames[0].Opcode != wire.OpcodeClose {
		t.Fatalf("expected exactly one close frame written back, got %+v", frames)
	}
	if h.closed != 1 {
		t.Fatalf("expected OnClose to be invoked exactly once, got %d", h.closed)
	}
}

func TestIdleTimeoutClosesSession(t *testing.T) {
	r := registry.New()
	cfg := api.DefaultEndpointConfig("/echo")
	cfg.MaxIdleTimeout = 20 * time.Millisecond
	if _, err := r.Register(cfg, func() any { return &echoHandler{} }, nil, nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State() == Closed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if c.State() != Closed {
		t.Fatalf("expected connection state CLOSED after idle timeout, got %s", c.State())
	}
	frames := w.snapshot()
	if len(frames) == 0 || frames[len(frames)-1].Opcode != wire.OpcodeClose {
		t.Fatalf("expected a close frame after idle timeout, got %+v", frames)
	}
}

// TestHandleDisposeInvokesOnCloseCallback proves that an endpoint's
// Dispose reaches a live session's OnClose callback rather than tearing
// the session down underneath the dispatcher (spec §4.7, §4.8):
// registry.Handle.Dispose closes the session via Session.CloseWithReason
// directly, bypassing this package's finishClose entirely, so the close
// callback must fire from the session's own close hook instead.
func TestHandleDisposeInvokesOnCloseCallback(t *testing.T) {
	r := registry.New()
	h := &echoHandler{}
	handle, err := r.Register(api.DefaultEndpointConfig("/echo"), func() any { return h }, nil, nil, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := handle.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	if h.closed != 1 {
		t.Fatalf("expected OnClose to be invoked exactly once by Dispose, got %d", h.closed)
	}
	if c.State() != Closed {
		t.Fatalf("expected connection state CLOSED after Dispose, got %s", c.State())
	}
}

func TestOverflowClosesWithMessageTooBig(t *testing.T) {
	r := registry.New()
	cfg := api.DefaultEndpointConfig("/echo")
	cfg.MaxTextMessageBufferSize = 4
	if _, err := r.Register(cfg, func() any { return &echoHandler{} }, nil, nil, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := &recordingWriter{}
	c := New(r, w)
	if _, err := c.Open(HandshakeRequest{Path: "/echo"}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.HandleFrame(wire.Frame{Opcode: wire.OpcodeText, Fin: true, Payload: []byte("too-long")}); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	if c.State() != Closed {
		t.Fatalf("expected connection state CLOSED after overflow, got %s", c.State())
	}
	frames := w.snapshot()
	if len(frames) == 0 || frames[len(frames)-1].Opcode != wire.OpcodeClose {
		t.Fatalf("expected a close frame after overflow, got %+v", frames)
	}
}
