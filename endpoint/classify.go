// File: endpoint/classify.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package endpoint

import (
	"reflect"

	"github.com/momentics/ws-endpoint/api"
)

var (
	sessionType     = reflect.TypeOf((*api.Session)(nil)).Elem()
	closeReasonType = reflect.TypeOf(api.CloseReason{})
	configType      = reflect.TypeOf(api.EndpointConfig{})
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	pongType        = reflect.TypeOf(api.PongMessage{})
	textStreamType  = reflect.TypeOf((*api.TextStream)(nil)).Elem()
	binStreamType   = reflect.TypeOf((*api.BinaryStream)(nil)).Elem()
	byteSliceType   = reflect.TypeOf([]byte(nil))
	boolType        = reflect.TypeOf(false)
)

// isPrimitiveOrWrapper reports whether t is a string, bool, numeric
// primitive, or pointer to one (the boxed/"wrapper" form used when a
// path parameter has no corresponding template variable, spec §4.3).
func isPrimitiveOrWrapper(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// decoderTypes is the set of concrete Go types a pipeline's declared
// decoders produce, split by shape, used to classify custom message
// types (spec §4.2's "custom type for which a decoder is registered").
type decoderTypes struct {
	text   map[reflect.Type]bool
	binary map[reflect.Type]bool
}

// paramRole is what role a single non-path, non-lifecycle parameter
// plays, as reported by classifyMessageParam while scanning candidate
// message callbacks.
type paramRole int

const (
	roleUnknown paramRole = iota
	roleText
	roleBinary
	rolePong
	roleBool
)

func classifyMessageParam(t reflect.Type, dt decoderTypes) paramRole {
	switch {
	case t == pongType:
		return rolePong
	case t == boolType:
		return roleBool
	case t.Kind() == reflect.String:
		return roleText
	case t == byteSliceType:
		return roleBinary
	case t == binStreamType:
		return roleBinary
	case t.Implements(textStreamType):
		return roleText
	case t.Implements(binStreamType):
		return roleBinary
	case isPrimitiveOrWrapper(t):
		return roleText
	case dt.text[t]:
		return roleText
	case dt.binary[t]:
		return roleBinary
	default:
		return roleUnknown
	}
}

// isPathParamCarrier reports whether t is a plain struct (not one of
// the reserved shapes) usable as a path-parameter carrier.
func isPathParamCarrier(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	return t != closeReasonType && t != configType && t != pongType
}
