// File: wssession/remote_async_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"testing"
	"time"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/wire"
)

func TestAsyncRemoteSendTextCompletes(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)

	h := s.Async().SendText("hi")
	res := h.Result()
	if res.Err != nil {
		t.Fatalf("unexpected send error: %v", res.Err)
	}
	if w.count() != 1 || w.last().Opcode != wire.OpcodeText {
		t.Fatalf("expected one text frame written, got %+v", w.frames)
	}
}

func TestAsyncRemoteFailsWhenSessionNotOpen(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res := s.Async().SendText("hi").Result()
	if res.Err == nil {
		t.Fatal("expected SendText to fail once the session is closed")
	}
}

func TestAsyncRemoteSendTextCB(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSession(t, w, nil)

	done := make(chan api.SendResult, 1)
	s.Async().SendTextCB("hi", func(res api.SendResult) {
		done <- res
	})

	select {
	case res := <-done:
		if res.Err != nil {
			t.Fatalf("unexpected send error: %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
	if w.count() != 1 {
		t.Fatalf("expected the callback send to write exactly one frame, got %d", w.count())
	}
}
