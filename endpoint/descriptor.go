// File: endpoint/descriptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package endpoint

import (
	"reflect"

	"github.com/momentics/ws-endpoint/uritemplate"
)

// Factory produces a fresh handler instance per session (spec §3).
type Factory func() any

// Descriptor is the immutable, compiled dispatch plan for one endpoint
// (spec §3 EndpointDescriptor).
type Descriptor struct {
	HandlerType reflect.Type
	Factory     Factory
	Template    *uritemplate.Template

	OpenSlot   *CallbackPlan
	CloseSlot  *CallbackPlan
	ErrorSlot  *CallbackPlan
	TextSlot   *CallbackPlan
	BinarySlot *CallbackPlan
	PongSlot   *CallbackPlan

	Decoders []any
	Encoders []any

	// Subprotocols this endpoint declares, in preference order
	// (SPEC_FULL.md §11: echo the first one the client also offered).
	Subprotocols []string
}

const maxCallbackArity = 12
