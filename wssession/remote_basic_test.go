// File: wssession/remote_basic_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"testing"

	"github.com/momentics/ws-endpoint/wire"
)

func TestBasicRemoteSendText(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)

	if err := s.Basic().SendText("hi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	f := w.last()
	if f.Opcode != wire.OpcodeText || !f.Fin || string(f.Payload) != "hi" {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestBasicRemotePartialSequenceUsesContinuation(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)

	if err := s.Basic().SendTextPartial("hel", false); err != nil {
		t.Fatalf("SendTextPartial: %v", err)
	}
	if err := s.Basic().SendTextPartial("lo", true); err != nil {
		t.Fatalf("SendTextPartial: %v", err)
	}

	if w.count() != 2 {
		t.Fatalf("expected 2 frames, got %d", w.count())
	}
	if w.frames[0].Opcode != wire.OpcodeText || w.frames[0].Fin {
		t.Fatalf("expected first fragment to be an unfinished text frame, got %+v", w.frames[0])
	}
	if w.frames[1].Opcode != wire.OpcodeContinuation || !w.frames[1].Fin {
		t.Fatalf("expected second fragment to be a final continuation frame, got %+v", w.frames[1])
	}
}

func TestBasicRemoteFailsWhenSessionNotOpen(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.Basic().SendText("hi"); err == nil {
		t.Fatal("expected SendText to fail once the session is closed")
	}
}

func TestBasicRemoteSendObjectFallsBackToString(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)

	if err := s.Basic().SendObject(42); err != nil {
		t.Fatalf("SendObject: %v", err)
	}
	f := w.last()
	if f.Opcode != wire.OpcodeText || string(f.Payload) != "42" {
		t.Fatalf("expected string-fallback encoding of 42, got %+v", f)
	}
}
