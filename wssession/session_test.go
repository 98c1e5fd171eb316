// File: wssession/session_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"sync"
	"testing"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wire"
)

type fakeWriter struct {
	mu     sync.Mutex
	frames []wire.Frame
}

func (w *fakeWriter) WriteFrame(f wire.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, f)
	return nil
}

func (w *fakeWriter) last() wire.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames[len(w.frames)-1]
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func newTestSession(t *testing.T, w FrameWriter, tracker *Tracker) *Session {
	t.Helper()
	return New(Config{
		ID:              "sess-1",
		RequestURI:      "/rooms/lobby",
		RawQuery:        "debug=1",
		PathParams:      uritemplate.PathParams{"room": "lobby"},
		ProtocolVersion: "13",
		EndpointConfig:  api.DefaultEndpointConfig("/rooms/{room}"),
		Tracker:         tracker,
		Writer:          w,
		Pipeline:        codec.NewPipeline(nil, nil),
	})
}

func TestNewSessionIsOpenAndTracked(t *testing.T) {
	tracker := NewTracker(4)
	s := newTestSession(t, &fakeWriter{}, tracker)

	if s.State() != api.StateOpen {
		t.Fatalf("expected new session to be OPEN, got %v", s.State())
	}
	if tracker.Count() != 1 {
		t.Fatalf("expected tracker to hold 1 session, got %d", tracker.Count())
	}
	if got, _ := s.QueryString(); got != "debug=1" {
		t.Fatalf("unexpected query string: %q", got)
	}
	if room := s.PathParams()["room"]; room != "lobby" {
		t.Fatalf("unexpected path param: %q", room)
	}
}

func TestCloseTransitionsAndUntracks(t *testing.T) {
	tracker := NewTracker(4)
	w := &fakeWriter{}
	s := newTestSession(t, w, tracker)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.State() != api.StateClosed {
		t.Fatalf("expected CLOSED after Close, got %v", s.State())
	}
	if tracker.Count() != 0 {
		t.Fatalf("expected tracker to drop the session, got count %d", tracker.Count())
	}
	if w.count() != 1 || w.last().Opcode != wire.OpcodeClose {
		t.Fatalf("expected exactly one close frame to be written, got %+v", w.frames)
	}

	// Idempotent: a second Close must not write another frame.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if w.count() != 1 {
		t.Fatalf("expected Close to be idempotent, got %d frames", w.count())
	}
}

func TestOpenSessionsSnapshot(t *testing.T) {
	tracker := NewTracker(4)
	s1 := newTestSession(t, &fakeWriter{}, tracker)
	newConfig := func(id string) Config {
		c := Config{
			ID:             id,
			EndpointConfig: api.DefaultEndpointConfig("/rooms/{room}"),
			Tracker:        tracker,
			Writer:         &fakeWriter{},
			Pipeline:       codec.NewPipeline(nil, nil),
		}
		return c
	}
	New(newConfig("sess-2"))

	snap := s1.OpenSessions()
	if len(snap) != 2 {
		t.Fatalf("expected 2 open sessions, got %d", len(snap))
	}
}
