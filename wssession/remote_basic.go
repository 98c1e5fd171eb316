// File: wssession/remote_basic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"sync"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/wire"
	"github.com/momentics/ws-endpoint/wserr"
)

// basicRemote implements api.BasicRemote: every call blocks until the
// underlying FrameWriter accepts the frame (spec §5).
type basicRemote struct {
	session *Session

	mu          sync.Mutex
	partialOpen bool
}

func (b *basicRemote) write(f wire.Frame) error {
	if b.session.State() != api.StateOpen {
		return &wserr.SessionClosedError{SessionID: b.session.id}
	}
	return b.session.writer.WriteFrame(f)
}

func (b *basicRemote) SendText(s string) error {
	return b.write(wire.Frame{Opcode: wire.OpcodeText, Fin: true, Payload: []byte(s)})
}

func (b *basicRemote) SendTextPartial(s string, last bool) error {
	return b.sendPartial(wire.OpcodeText, []byte(s), last)
}

func (b *basicRemote) SendBinary(data []byte) error {
	return b.write(wire.Frame{Opcode: wire.OpcodeBinary, Fin: true, Payload: data})
}

func (b *basicRemote) SendBinaryPartial(data []byte, last bool) error {
	return b.sendPartial(wire.OpcodeBinary, data, last)
}

// sendPartial emits the opening frame with the message's real opcode
// and every subsequent fragment as a continuation, tracking in-flight
// state across calls (RFC 6455 §5.4).
func (b *basicRemote) sendPartial(opcode wire.Opcode, payload []byte, last bool) error {
	b.mu.Lock()
	frameOpcode := opcode
	if b.partialOpen {
		frameOpcode = wire.OpcodeContinuation
	}
	b.mu.Unlock()

	err := b.write(wire.Frame{Opcode: frameOpcode, Fin: last, Payload: payload})

	b.mu.Lock()
	if err == nil {
		b.partialOpen = !last
	}
	b.mu.Unlock()
	return err
}

func (b *basicRemote) SendObject(v any) error {
	payload, kind, err := b.session.pipeline.Encode(v)
	if err != nil {
		return &wserr.EncodeFailure{Cause: err}
	}
	opcode := wire.OpcodeText
	if kind == codec.KindBinary {
		opcode = wire.OpcodeBinary
	}
	return b.write(wire.Frame{Opcode: opcode, Fin: true, Payload: payload})
}

func (b *basicRemote) SendPing(appData []byte) error {
	return b.write(wire.Frame{Opcode: wire.OpcodePing, Fin: true, Payload: appData})
}

func (b *basicRemote) SendPong(appData []byte) error {
	return b.write(wire.Frame{Opcode: wire.OpcodePong, Fin: true, Payload: appData})
}
