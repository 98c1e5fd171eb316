// File: codec/codec.go
// Package codec implements the encoder/decoder pipeline of spec §4.4:
// selection by willDecode predicate and target type, with an init/destroy
// lifecycle tied to endpoint activation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import "reflect"

// Config is handed to every codec's Init at endpoint activation. It
// carries the endpoint's path and the Properties of its
// api.EndpointConfig; the "config" binding slot of callbacks receives
// the api.EndpointConfig itself, not this type (spec §4.3).
type Config struct {
	EndpointPath string
	Properties   map[string]any
}

// Lifecycle is implemented optionally by encoders/decoders that need
// setup/teardown tied to endpoint activation/deactivation.
type Lifecycle interface {
	Init(cfg Config)
	Destroy()
}

// TextDecoder decodes a whole text message into a custom type.
type TextDecoder interface {
	// WillDecode reports whether this decoder claims the raw message.
	WillDecode(raw string) bool
	// Decode converts raw into the decoder's target type.
	Decode(raw string) (any, error)
	// Type is the concrete Go type produced by Decode.
	Type() reflect.Type
}

// BinaryDecoder decodes a whole binary message into a custom type.
type BinaryDecoder interface {
	WillDecode(raw []byte) bool
	Decode(raw []byte) (any, error)
	Type() reflect.Type
}

// TextEncoder renders a value of its declared type into a text message.
type TextEncoder interface {
	Type() reflect.Type
	Encode(v any) (string, error)
}

// BinaryEncoder renders a value of its declared type into a binary
// message.
type BinaryEncoder interface {
	Type() reflect.Type
	Encode(v any) ([]byte, error)
}
