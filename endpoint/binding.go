// File: endpoint/binding.go
// Package endpoint implements the descriptor builder and validator of
// spec §4.2–§4.3: reflective introspection of a handler type producing
// an immutable, pre-compiled argument-binding plan per callback.
//
// Go has no parameter-level annotations, so two translations stand in
// for Jakarta's @OnOpen/@OnMessage/@PathParam:
//
//   - Lifecycle role (open/close/error) is selected by exact method
//     name: OnOpen, OnClose, OnError.
//   - Message role (text/binary/pong) is selected by the declared
//     parameter shapes alone (spec §4.2's own classification rule),
//     over every OTHER exported method — so two differently named
//     methods that both declare a text-message shape are still a
//     validator rejection, matching spec §8 scenario 6.
//   - Path parameters are carried by a single struct-typed parameter
//     whose exported fields wear a `path:"name"` tag; the field's Go
//     type is the path parameter's target type. This is the struct-tag
//     idiom the whole retrieval pack uses for declarative metadata
//     (validator, json, sqlx all bind by tag), used here in place of
//     Jakarta's per-parameter @PathParam("name").
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package endpoint

import "reflect"

// ArgKind identifies where a compiled callback argument's runtime
// value comes from (spec glossary: "binding plan").
type ArgKind int

const (
	ArgSession ArgKind = iota
	ArgConfig
	ArgCloseReason
	ArgThrowable
	ArgPathParams
	ArgMessage
	ArgLastFragment
	ArgPong
)

// PathFieldBinding is one field of a path-parameter carrier struct.
type PathFieldBinding struct {
	FieldIndex int
	Name       string
	FieldType  reflect.Type
}

// Arg is one compiled slot of a callback's binding plan.
type Arg struct {
	Kind ArgKind

	// Valid when Kind == ArgPathParams.
	StructType reflect.Type
	PathFields []PathFieldBinding

	// Valid when Kind == ArgMessage: the exact declared parameter type,
	// used to pick the decode shape and, for custom types, which
	// registered decoder must produce it.
	MessageType reflect.Type
}

// MessageClass is which of the three exclusive message slots a
// callback occupies.
type MessageClass int

const (
	ClassNone MessageClass = iota
	ClassText
	ClassBinary
	ClassPong
)

// CallbackPlan is the compiled, immutable plan for one callback method.
type CallbackPlan struct {
	Method reflect.Method
	Args   []Arg
	Class  MessageClass
}

// NumArgs returns the number of formal parameters, excluding the
// receiver.
func (p CallbackPlan) NumArgs() int { return len(p.Args) }
