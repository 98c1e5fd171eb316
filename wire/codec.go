// File: wire/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Minimal RFC 6455 wire codec. This is reference glue for the example
// server and integration tests, which need a real transport collaborator
// to drive the dispatch engine end-to-end; the dispatch engine itself
// never imports this file's Decode/Encode directly, only wire.Frame.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFramePayload bounds a single wire frame decoded by this package.
// Message-level limits (maxTextMessageBufferSize etc.) are enforced by
// the assembler across possibly many frames; this is a lower-level
// sanity cap against a single malformed length header.
const MaxFramePayload = 16 << 20 // 16 MiB

var (
	ErrFrameTooShort     = errors.New("wire: frame too short")
	ErrFrameTooLarge     = errors.New("wire: frame payload exceeds maximum allowed size")
	ErrPayloadTruncated  = errors.New("wire: payload truncated")
	ErrControlFragmented = errors.New("wire: control frame must not be fragmented")
	ErrControlTooLarge   = errors.New("wire: control frame payload exceeds 125 bytes")
)

// Decode parses a single masked client frame from raw, returning the
// frame and the number of bytes consumed from raw.
func Decode(raw []byte) (Frame, int, error) {
	if len(raw) < 2 {
		return Frame{}, 0, ErrFrameTooShort
	}
	fin := raw[0]&0x80 != 0
	opcode := Opcode(raw[0] & 0x0F)
	masked := raw[1]&0x80 != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return Frame{}, 0, ErrFrameTooShort
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return Frame{}, 0, ErrFrameTooShort
		}
		length = int64(binary.BigEndian.Uint64(raw[offset:]))
		offset += 8
	}

	if opcode.IsControl() {
		if !fin {
			return Frame{}, 0, ErrControlFragmented
		}
		if length > MaxControlPayloadLen {
			return Frame{}, 0, ErrControlTooLarge
		}
	}
	if length > MaxFramePayload {
		return Frame{}, 0, ErrFrameTooLarge
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return Frame{}, 0, ErrFrameTooShort
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	if int64(len(raw)-offset) < length {
		return Frame{}, 0, ErrPayloadTruncated
	}

	payload := make([]byte, length)
	if masked {
		for i := int64(0); i < length; i++ {
			payload[i] = raw[offset+int(i)] ^ maskKey[i%4]
		}
	} else {
		copy(payload, raw[offset:offset+int(length)])
	}

	return Frame{Opcode: opcode, Fin: fin, Payload: payload}, offset + int(length), nil
}

// ReadFrame reads and unmasks a single client frame off r. It is the
// streaming counterpart to Decode, for callers (the example server,
// integration tests) driving a real net.Conn rather than a byte slice
// already buffered in memory.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	fin := hdr[0]&0x80 != 0
	opcode := Opcode(hdr[0] & 0x0F)
	masked := hdr[1]&0x80 != 0
	length := int64(hdr[1] & 0x7F)

	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, err
		}
		length = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, err
		}
		length = int64(binary.BigEndian.Uint64(ext[:]))
	}

	if opcode.IsControl() {
		if !fin {
			return Frame{}, ErrControlFragmented
		}
		if length > MaxControlPayloadLen {
			return Frame{}, ErrControlTooLarge
		}
	}
	if length > MaxFramePayload {
		return Frame{}, ErrFrameTooLarge
	}

	var maskKey [4]byte
	if masked {
		if _, err := io.ReadFull(r, maskKey[:]); err != nil {
			return Frame{}, err
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	return Frame{Opcode: opcode, Fin: fin, Payload: payload}, nil
}

// WriteFrame encodes f and writes it to w in full.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Encode serializes an unmasked server->client frame (servers never mask
// per RFC 6455).
func Encode(f Frame) ([]byte, error) {
	plen := len(f.Payload)
	if int64(plen) > MaxFramePayload {
		return nil, fmt.Errorf("wire: encode: %w", ErrFrameTooLarge)
	}
	var fin byte
	if f.Fin {
		fin = 0x80
	}
	b0 := fin | byte(f.Opcode&0x0F)

	var hdr []byte
	switch {
	case plen <= 125:
		hdr = []byte{b0, byte(plen)}
	case plen <= 0xFFFF:
		hdr = make([]byte, 4)
		hdr[0], hdr[1] = b0, 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
	default:
		hdr = make([]byte, 10)
		hdr[0], hdr[1] = b0, 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
	}

	out := make([]byte, len(hdr)+plen)
	copy(out, hdr)
	copy(out[len(hdr):], f.Payload)
	return out, nil
}
