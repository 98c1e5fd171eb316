// File: wserr/errors.go
// Package wserr implements the error taxonomy of spec §7: kinds, not
// concrete wrapped exception types, each routed differently by the
// dispatcher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wserr

import "fmt"

// ConfigurationError is a validator rejection at registration time
// (spec §4.2). It surfaces synchronously to the caller of Register and
// never mutates the registry.
type ConfigurationError struct {
	Endpoint string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("wserr: configuration error for endpoint %q: %s", e.Endpoint, e.Reason)
}

// DecodeFailure wraps a decoder that threw, or the case where no
// decoder accepted a message whose callback required a custom type.
// Routed to the user's error callback; the connection stays OPEN.
type DecodeFailure struct {
	Cause error
}

func (e *DecodeFailure) Error() string { return fmt.Sprintf("wserr: decode failure: %v", e.Cause) }
func (e *DecodeFailure) Unwrap() error { return e.Cause }

// EncodeFailure is raised when no encoder matches an outbound object,
// or the chosen encoder throws. Surfaces to the caller of the send
// operation.
type EncodeFailure struct {
	Cause error
}

func (e *EncodeFailure) Error() string { return fmt.Sprintf("wserr: encode failure: %v", e.Cause) }
func (e *EncodeFailure) Unwrap() error { return e.Cause }

// HandlerException wraps a panic or error value produced by a user
// callback. Routed to the user's error callback; the connection stays
// OPEN unless the dispatcher classifies the cause as fatal.
type HandlerException struct {
	Cause error
	Fatal bool
}

func (e *HandlerException) Error() string {
	return fmt.Sprintf("wserr: handler exception (fatal=%v): %v", e.Fatal, e.Cause)
}
func (e *HandlerException) Unwrap() error { return e.Cause }

// ProtocolError is an RFC 6455 violation: continuation without opener,
// invalid UTF-8 in a text message, or an unexpected opcode. Closes the
// connection with the embedded code (1002 or 1007).
type ProtocolError struct {
	Code   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wserr: protocol error (close %d): %s", e.Code, e.Reason)
}

// OverflowError is raised when a message exceeds the session's
// configured buffer limit for its kind. Closes with 1009.
type OverflowError struct {
	Kind  string
	Limit int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("wserr: %s message exceeds buffer limit of %d bytes", e.Kind, e.Limit)
}

// TransportError signals the underlying connection died. Invokes the
// error callback then the close callback with an implementation
// signaled reason.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("wserr: transport error: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// SessionClosedError is the IO-class failure both remotes return when
// invoked against a session that is no longer OPEN (spec §4.6: "Both
// remotes fail with an IO-class error if invoked while the session is
// not OPEN").
type SessionClosedError struct {
	SessionID string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("wserr: session %q is not OPEN", e.SessionID)
}
