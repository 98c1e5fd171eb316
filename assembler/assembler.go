// File: assembler/assembler.go
// Package assembler implements the per-connection message assembler
// (spec component 4): it buffers fragmented text/binary frames into
// whole messages, enforces the session's configured buffer-size caps,
// and validates UTF-8 on completed text payloads. Control frames
// (close/ping/pong) are never fragmented per RFC 6455 and bypass
// assembly entirely.
//
// Grounded on the frame/opcode shape of wire.Frame (core/protocol's
// frame model in the teacher); reassembly state itself has no teacher
// precedent (momentics-hioload-ws terminates frames at the transport
// boundary and never reassembles at this layer) and is original to
// this package.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package assembler

import (
	"unicode/utf8"

	"github.com/momentics/ws-endpoint/wire"
	"github.com/momentics/ws-endpoint/wserr"
)

// Result is one whole message (or control frame) handed to the
// dispatcher once assembly is complete.
type Result struct {
	Opcode  wire.Opcode
	Text    string
	Binary  []byte
	IsFinal bool // always true for a Result the assembler ever returns
}

// Assembler holds the in-progress fragmented message for one
// connection. It is not safe for concurrent use; the dispatcher owns
// exactly one per session and feeds it frames in arrival order.
type Assembler struct {
	maxTextBytes   int64
	maxBinaryBytes int64

	inProgress bool
	opcode     wire.Opcode
	buf        []byte
}

// New constructs an Assembler bounded by the session's configured
// message buffer limits (spec §4.6 MaxTextMessageBufferSize /
// MaxBinaryMessageBufferSize).
func New(maxTextBytes, maxBinaryBytes int64) *Assembler {
	return &Assembler{maxTextBytes: maxTextBytes, maxBinaryBytes: maxBinaryBytes}
}

// SetLimits updates the buffer caps in place, mirroring
// Session.SetMaxTextMessageBufferSize / SetMaxBinaryMessageBufferSize,
// which may be called mid-session (spec §4.6).
func (a *Assembler) SetLimits(maxTextBytes, maxBinaryBytes int64) {
	a.maxTextBytes = maxTextBytes
	a.maxBinaryBytes = maxBinaryBytes
}

// Feed consumes one inbound frame. It returns a non-nil Result once a
// whole message is available, nil with no error while a fragmented
// message is still being assembled, or an error identifying the close
// code the dispatcher must apply (spec §7: ProtocolError for bad
// continuation sequences or invalid UTF-8, OverflowError for size
// violations).
func (a *Assembler) Feed(f wire.Frame) (*Result, error) {
	if f.Opcode.IsControl() {
		return &Result{Opcode: f.Opcode, Binary: f.Payload, IsFinal: true}, nil
	}

	switch f.Opcode {
	case wire.OpcodeContinuation:
		if !a.inProgress {
			return nil, &wserr.ProtocolError{
				Code:   int(wire.CloseProtocolError),
				Reason: "continuation frame received with no message in progress",
			}
		}
		if err := a.append(f.Payload); err != nil {
			return nil, err
		}
		if !f.Fin {
			return nil, nil
		}
		return a.finalize()

	case wire.OpcodeText, wire.OpcodeBinary:
		if a.inProgress {
			return nil, &wserr.ProtocolError{
				Code:   int(wire.CloseProtocolError),
				Reason: "new data frame received before the previous fragmented message finished",
			}
		}
		a.inProgress = true
		a.opcode = f.Opcode
		a.buf = a.buf[:0]
		if err := a.append(f.Payload); err != nil {
			return nil, err
		}
		if !f.Fin {
			return nil, nil
		}
		return a.finalize()

	default:
		return nil, &wserr.ProtocolError{
			Code:   int(wire.CloseProtocolError),
			Reason: "unrecognized opcode",
		}
	}
}

func (a *Assembler) append(payload []byte) error {
	limit := a.limitFor(a.opcode)
	if limit > 0 && int64(len(a.buf)+len(payload)) > limit {
		kind := "binary"
		if a.opcode == wire.OpcodeText {
			kind = "text"
		}
		a.reset()
		return &wserr.OverflowError{Kind: kind, Limit: limit}
	}
	a.buf = append(a.buf, payload...)
	return nil
}

func (a *Assembler) limitFor(opcode wire.Opcode) int64 {
	if opcode == wire.OpcodeText {
		return a.maxTextBytes
	}
	return a.maxBinaryBytes
}

func (a *Assembler) finalize() (*Result, error) {
	opcode := a.opcode
	payload := a.buf
	a.reset()

	if opcode == wire.OpcodeText {
		if !utf8.Valid(payload) {
			return nil, &wserr.ProtocolError{
				Code:   int(wire.CloseInvalidPayloadData),
				Reason: "text message is not valid UTF-8",
			}
		}
		return &Result{Opcode: opcode, Text: string(payload), IsFinal: true}, nil
	}
	return &Result{Opcode: opcode, Binary: payload, IsFinal: true}, nil
}

func (a *Assembler) reset() {
	a.inProgress = false
	a.buf = nil
}
