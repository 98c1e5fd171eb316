// File: endpoint/validator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Validator runs once per Register() against a handler type, rejecting
// malformed handlers with a wserr.ConfigurationError before the
// endpoint can ever receive traffic (spec §4.2), and compiling the
// surviving methods into a Descriptor (spec §4.3).
package endpoint

import (
	"fmt"
	"reflect"

	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wserr"
)

// Build validates handlerType (the reflect.Type of one factory-produced
// instance) and compiles its descriptor. Nothing is mutated in the
// caller's registry until Build returns successfully (spec §4.2:
// "the registry must not be mutated on a rejected registration").
func Build(
	endpointPath string,
	handlerType reflect.Type,
	factory Factory,
	tmpl *uritemplate.Template,
	decoders []any,
	encoders []any,
	subprotocols []string,
) (*Descriptor, error) {
	dt := decoderTypeSet(decoders)

	d := &Descriptor{
		HandlerType:  handlerType,
		Factory:      factory,
		Template:     tmpl,
		Decoders:     decoders,
		Encoders:     encoders,
		Subprotocols: subprotocols,
	}

	textCount, binaryCount, pongCount := 0, 0, 0

	for i := 0; i < handlerType.NumMethod(); i++ {
		m := handlerType.Method(i)

		switch m.Name {
		case "OnOpen":
			plan, err := buildLifecyclePlan(m, dt)
			if err != nil {
				return nil, cfgErr(endpointPath, "OnOpen: %v", err)
			}
			d.OpenSlot = plan
			continue
		case "OnClose":
			plan, err := buildLifecyclePlan(m, dt)
			if err != nil {
				return nil, cfgErr(endpointPath, "OnClose: %v", err)
			}
			d.CloseSlot = plan
			continue
		case "OnError":
			plan, err := buildLifecyclePlan(m, dt)
			if err != nil {
				return nil, cfgErr(endpointPath, "OnError: %v", err)
			}
			if !hasThrowable(plan) {
				return nil, cfgErr(endpointPath, "OnError must declare a throwable parameter")
			}
			d.ErrorSlot = plan
			continue
		}

		plan, class, err := buildMessagePlan(m, dt)
		if err != nil {
			return nil, cfgErr(endpointPath, "%s: %v", m.Name, err)
		}
		switch class {
		case ClassText:
			textCount++
			d.TextSlot = plan
		case ClassBinary:
			binaryCount++
			d.BinarySlot = plan
		case ClassPong:
			pongCount++
			d.PongSlot = plan
		case ClassNone:
			// not a recognized callback; ignore (ordinary helper method).
		}
	}

	if textCount > 1 {
		return nil, cfgErr(endpointPath, "at most one text-message callback is allowed, found %d", textCount)
	}
	if binaryCount > 1 {
		return nil, cfgErr(endpointPath, "at most one binary-message callback is allowed, found %d", binaryCount)
	}
	if pongCount > 1 {
		return nil, cfgErr(endpointPath, "at most one pong callback is allowed, found %d", pongCount)
	}

	return d, nil
}

func cfgErr(endpoint, format string, args ...any) error {
	return &wserr.ConfigurationError{Endpoint: endpoint, Reason: fmt.Sprintf(format, args...)}
}

func decoderTypeSet(decoders []any) decoderTypes {
	dt := decoderTypes{text: map[reflect.Type]bool{}, binary: map[reflect.Type]bool{}}
	for _, raw := range decoders {
		switch d := raw.(type) {
		case codec.TextDecoder:
			dt.text[d.Type()] = true
		case codec.BinaryDecoder:
			dt.binary[d.Type()] = true
		}
	}
	return dt
}

func hasThrowable(p *CallbackPlan) bool {
	for _, a := range p.Args {
		if a.Kind == ArgThrowable {
			return true
		}
	}
	return false
}

// buildLifecyclePlan compiles an open/close/error callback: every
// parameter must be one of {session, config, closeReason, throwable,
// pathParam<...>} (spec §4.2).
func buildLifecyclePlan(m reflect.Method, dt decoderTypes) (*CallbackPlan, error) {
	n := m.Type.NumIn() - 1 // exclude receiver
	if n > maxCallbackArity {
		return nil, fmt.Errorf("parameter count %d exceeds ceiling of %d", n, maxCallbackArity)
	}

	plan := &CallbackPlan{Method: m, Class: ClassNone}
	for j := 1; j < m.Type.NumIn(); j++ {
		pt := m.Type.In(j)
		switch {
		case pt == sessionType:
			plan.Args = append(plan.Args, Arg{Kind: ArgSession})
		case pt == configType:
			plan.Args = append(plan.Args, Arg{Kind: ArgConfig})
		case pt == closeReasonType:
			plan.Args = append(plan.Args, Arg{Kind: ArgCloseReason})
		case pt == errorType:
			plan.Args = append(plan.Args, Arg{Kind: ArgThrowable})
		case isPathParamCarrier(pt):
			fields, err := buildPathFields(pt)
			if err != nil {
				return nil, err
			}
			plan.Args = append(plan.Args, Arg{Kind: ArgPathParams, StructType: pt, PathFields: fields})
		default:
			return nil, fmt.Errorf("parameter %d (%s) is not one of session, config, closeReason, throwable, or a path-parameter struct", j, pt)
		}
	}
	return plan, nil
}

// buildMessagePlan classifies and compiles a text/binary/pong message
// callback (spec §4.2–§4.3). Methods with no recognized message
// parameter return ClassNone and are silently ignored by the caller.
func buildMessagePlan(m reflect.Method, dt decoderTypes) (*CallbackPlan, MessageClass, error) {
	n := m.Type.NumIn() - 1
	if n > maxCallbackArity {
		return nil, ClassNone, fmt.Errorf("parameter count %d exceeds ceiling of %d", n, maxCallbackArity)
	}

	plan := &CallbackPlan{Method: m}
	class := ClassNone
	messageSeen := false
	boolSeen := false
	boolIsLast := false

	for j := 1; j < m.Type.NumIn(); j++ {
		pt := m.Type.In(j)
		isLast := j == m.Type.NumIn()-1

		switch {
		case pt == sessionType:
			plan.Args = append(plan.Args, Arg{Kind: ArgSession})
			continue
		case isPathParamCarrier(pt) && pt != pongType && !dt.text[pt] && !dt.binary[pt]:
			// A struct type that a registered decoder also produces is the
			// custom-type-via-decoder message shape (spec §3/§4.2), not a
			// path-parameter carrier; fall through to classifyMessageParam
			// below instead of demanding `path:"..."` tags on it.
			fields, err := buildPathFields(pt)
			if err != nil {
				return nil, ClassNone, err
			}
			plan.Args = append(plan.Args, Arg{Kind: ArgPathParams, StructType: pt, PathFields: fields})
			continue
		}

		role := classifyMessageParam(pt, dt)
		switch role {
		case roleText, roleBinary, rolePong:
			if messageSeen {
				return nil, ClassNone, fmt.Errorf("more than one message-shape parameter declared")
			}
			messageSeen = true
			switch role {
			case roleText:
				class = ClassText
			case roleBinary:
				class = ClassBinary
			case rolePong:
				class = ClassPong
			}
			kind := ArgMessage
			if role == rolePong {
				kind = ArgPong
			}
			plan.Args = append(plan.Args, Arg{Kind: kind, MessageType: pt})
		case roleBool:
			boolSeen = true
			boolIsLast = isLast
			plan.Args = append(plan.Args, Arg{Kind: ArgLastFragment})
		default:
			if class == ClassNone && !messageSeen {
				// Not recognizable as any shape at all: this method is
				// not a message callback; bail out without error so the
				// caller treats it as an ordinary helper method.
				return nil, ClassNone, nil
			}
			return nil, ClassNone, fmt.Errorf("parameter %d (%s) is not a recognized message, session, or path-parameter shape", j, pt)
		}
	}

	if !messageSeen {
		return nil, ClassNone, nil
	}
	if boolSeen {
		if !boolIsLast {
			return nil, ClassNone, fmt.Errorf("boolean parameter must be the last formal argument")
		}
		if class == ClassPong {
			return nil, ClassNone, fmt.Errorf("boolean parameter may not appear with a pong callback")
		}
		for _, a := range plan.Args {
			if a.Kind == ArgMessage && (a.MessageType.Implements(textStreamType) || a.MessageType.Implements(binStreamType)) {
				return nil, ClassNone, fmt.Errorf("boolean parameter may not appear with a reader/input-stream parameter")
			}
		}
	}

	plan.Class = class
	return plan, class, nil
}

// buildPathFields reflects over a path-parameter carrier struct's
// exported fields, binding each one that wears a `path:"name"` tag
// (untagged fields are skipped; at least one tagged field is required)
// and restricting target types to string, primitive/wrapper, or numeric
// wrapper (spec §4.3).
func buildPathFields(t reflect.Type) ([]PathFieldBinding, error) {
	var fields []PathFieldBinding
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name, ok := f.Tag.Lookup("path")
		if !ok {
			continue
		}
		if !isPrimitiveOrWrapper(f.Type) {
			return nil, fmt.Errorf("path parameter field %s has unsupported target type %s", f.Name, f.Type)
		}
		fields = append(fields, PathFieldBinding{FieldIndex: i, Name: name, FieldType: f.Type})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("struct parameter %s carries no `path:\"...\"` tagged fields", t)
	}
	return fields, nil
}
