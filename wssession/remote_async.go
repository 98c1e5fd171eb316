// File: wssession/remote_async.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/wire"
	"github.com/momentics/ws-endpoint/wserr"
)

// asyncRemote implements api.AsyncRemote: every call returns
// immediately, running the actual write on its own goroutine (spec
// §5).
type asyncRemote struct {
	session *Session
}

// sendHandle implements api.SendHandle.
type sendHandle struct {
	done      chan struct{}
	once      sync.Once
	result    api.SendResult
	cancelled atomic.Bool
}

func newSendHandle() *sendHandle {
	return &sendHandle{done: make(chan struct{})}
}

func (h *sendHandle) complete(res api.SendResult) {
	h.once.Do(func() {
		h.result = res
		close(h.done)
	})
}

func (h *sendHandle) Done() <-chan struct{} { return h.done }

func (h *sendHandle) Result() api.SendResult {
	<-h.done
	return h.result
}

// Cancel marks the handle cancelled. Because the underlying transport
// write is already blocking on a goroutine by the time Cancel can run,
// this only suppresses a write that has not yet started; an in-flight
// write still completes and its result is still delivered.
func (h *sendHandle) Cancel() {
	h.cancelled.Store(true)
}

func (a *asyncRemote) dispatch(f wire.Frame) api.SendHandle {
	h := newSendHandle()
	if a.session.State() != api.StateOpen {
		h.complete(api.SendResult{Err: &wserr.SessionClosedError{SessionID: a.session.id}})
		return h
	}
	go func() {
		if h.cancelled.Load() {
			h.complete(api.SendResult{Err: nil})
			return
		}
		err := a.session.writer.WriteFrame(f)
		h.complete(api.SendResult{Err: err})
	}()
	return h
}

func (a *asyncRemote) SendText(s string) api.SendHandle {
	return a.dispatch(wire.Frame{Opcode: wire.OpcodeText, Fin: true, Payload: []byte(s)})
}

func (a *asyncRemote) SendTextCB(s string, cb func(api.SendResult)) {
	go cb(a.dispatch(wire.Frame{Opcode: wire.OpcodeText, Fin: true, Payload: []byte(s)}).Result())
}

func (a *asyncRemote) SendBinary(data []byte) api.SendHandle {
	return a.dispatch(wire.Frame{Opcode: wire.OpcodeBinary, Fin: true, Payload: data})
}

func (a *asyncRemote) SendBinaryCB(data []byte, cb func(api.SendResult)) {
	go cb(a.dispatch(wire.Frame{Opcode: wire.OpcodeBinary, Fin: true, Payload: data}).Result())
}

func (a *asyncRemote) SendObject(v any) api.SendHandle {
	payload, kind, err := a.session.pipeline.Encode(v)
	if err != nil {
		h := newSendHandle()
		h.complete(api.SendResult{Err: &wserr.EncodeFailure{Cause: err}})
		return h
	}
	opcode := wire.OpcodeText
	if kind == codec.KindBinary {
		opcode = wire.OpcodeBinary
	}
	return a.dispatch(wire.Frame{Opcode: opcode, Fin: true, Payload: payload})
}

func (a *asyncRemote) SendObjectCB(v any, cb func(api.SendResult)) {
	go cb(a.SendObject(v).Result())
}

func (a *asyncRemote) SendPing(appData []byte) api.SendHandle {
	return a.dispatch(wire.Frame{Opcode: wire.OpcodePing, Fin: true, Payload: appData})
}

func (a *asyncRemote) SendPong(appData []byte) api.SendHandle {
	return a.dispatch(wire.Frame{Opcode: wire.OpcodePong, Fin: true, Payload: appData})
}
