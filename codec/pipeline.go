// File: codec/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"fmt"
	"reflect"
)

// Pipeline holds one endpoint's instantiated encoders and decoders as
// two ordered lists, exactly as compiled into the endpoint descriptor
// (spec §3 EndpointDescriptor.encoders/decoders).
type Pipeline struct {
	textDecoders   []TextDecoder
	binaryDecoders []BinaryDecoder
	textEncoders   []TextEncoder
	binaryEncoders []BinaryEncoder
}

// NewPipeline builds a pipeline from the codec instances declared by an
// endpoint, preserving declaration order.
func NewPipeline(decoders []any, encoders []any) *Pipeline {
	p := &Pipeline{}
	for _, d := range decoders {
		switch dd := d.(type) {
		case TextDecoder:
			p.textDecoders = append(p.textDecoders, dd)
		case BinaryDecoder:
			p.binaryDecoders = append(p.binaryDecoders, dd)
		}
	}
	for _, e := range encoders {
		switch ee := e.(type) {
		case TextEncoder:
			p.textEncoders = append(p.textEncoders, ee)
		case BinaryEncoder:
			p.binaryEncoders = append(p.binaryEncoders, ee)
		}
	}
	return p
}

// Init invokes Init(config) once on every codec that implements
// Lifecycle, in declaration order (spec §4.4).
func (p *Pipeline) Init(cfg Config) {
	for _, d := range p.textDecoders {
		if lc, ok := d.(Lifecycle); ok {
			lc.Init(cfg)
		}
	}
	for _, d := range p.binaryDecoders {
		if lc, ok := d.(Lifecycle); ok {
			lc.Init(cfg)
		}
	}
	for _, e := range p.textEncoders {
		if lc, ok := e.(Lifecycle); ok {
			lc.Init(cfg)
		}
	}
	for _, e := range p.binaryEncoders {
		if lc, ok := e.(Lifecycle); ok {
			lc.Init(cfg)
		}
	}
}

// Destroy invokes Destroy() on every codec that implements Lifecycle.
func (p *Pipeline) Destroy() {
	for _, d := range p.textDecoders {
		if lc, ok := d.(Lifecycle); ok {
			lc.Destroy()
		}
	}
	for _, d := range p.binaryDecoders {
		if lc, ok := d.(Lifecycle); ok {
			lc.Destroy()
		}
	}
	for _, e := range p.textEncoders {
		if lc, ok := e.(Lifecycle); ok {
			lc.Destroy()
		}
	}
	for _, e := range p.binaryEncoders {
		if lc, ok := e.(Lifecycle); ok {
			lc.Destroy()
		}
	}
}

// DecodeText selects the first text decoder whose WillDecode accepts
// raw, in declaration order, and decodes with it. A decoder that
// panics is recovered here and reported as a non-nil err, which the
// caller (the dispatcher) treats as a decode failure.
func (p *Pipeline) DecodeText(raw string) (value any, decoded bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, decoded, err = nil, true, fmt.Errorf("codec: text decoder panicked: %v", r)
		}
	}()
	for _, d := range p.textDecoders {
		if d.WillDecode(raw) {
			v, err := d.Decode(raw)
			return v, true, err
		}
	}
	return nil, false, nil
}

// DecodeBinary is the binary analogue of DecodeText.
func (p *Pipeline) DecodeBinary(raw []byte) (value any, decoded bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, decoded, err = nil, true, fmt.Errorf("codec: binary decoder panicked: %v", r)
		}
	}()
	for _, d := range p.binaryDecoders {
		if d.WillDecode(raw) {
			v, err := d.Decode(raw)
			return v, true, err
		}
	}
	return nil, false, nil
}

// EncodeErrNoEncoder is returned by Encode when no registered encoder
// matches the object's runtime type and it is not a primitive/string
// fallback case.
var EncodeErrNoEncoder = fmt.Errorf("codec: no encoder registered for type")

// kind identifies which wire shape an encoded object should be sent as.
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

// Encode selects an encoder for v by runtime type: text encoders are
// tried first, then binary, then (spec §9 open question) the
// primitive-wrapper/string toString() fallback as text. It returns the
// wire payload and which kind of message to send it as.
func (p *Pipeline) Encode(v any) (payload []byte, kind Kind, err error) {
	rt := reflect.TypeOf(v)

	for _, e := range p.textEncoders {
		if typeMatches(rt, e.Type()) {
			s, err := e.Encode(v)
			return []byte(s), KindText, err
		}
	}
	for _, e := range p.binaryEncoders {
		if typeMatches(rt, e.Type()) {
			b, err := e.Encode(v)
			return b, KindBinary, err
		}
	}
	if s, ok := fallbackToString(v); ok {
		return []byte(s), KindText, nil
	}
	return nil, KindText, EncodeErrNoEncoder
}

// typeMatches reports nominal or assignable type equivalence.
func typeMatches(actual, declared reflect.Type) bool {
	if actual == nil || declared == nil {
		return false
	}
	if actual == declared {
		return true
	}
	return actual.AssignableTo(declared)
}

// fallbackToString implements the spec §9 open-question fallback: a
// primitive wrapper or string with no matching encoder is sent via its
// natural string representation.
func fallbackToString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", s), true
	default:
		return "", false
	}
}
