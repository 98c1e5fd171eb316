// File: api/session.go
// Package api holds the public contracts shared between the endpoint
// descriptor builder, the dispatcher, and user handler code — the
// surface Jakarta WebSocket calls Session, CloseReason, and the Basic
// and Async remote endpoints (spec §4.6).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package api

import (
	"net/url"
	"time"

	"github.com/momentics/ws-endpoint/uritemplate"
)

// SessionState is one of the three states a Session occupies during its
// OPEN lifetime (spec §3).
type SessionState int

const (
	StateOpen SessionState = iota
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CloseReason carries a standard close code and a human reason, handed
// to the close callback and to Session.Close.
type CloseReason struct {
	Code   int
	Reason string
}

// UserProperties is the per-session mutable property bag (spec §4.6).
type UserProperties interface {
	Get(key string) (any, bool)
	Put(key string, value any)
	Keys() []string
}

// MessageHandlerSet is the opaque add/get/remove surface the session
// contract exposes; in this annotation-driven model it is never
// consulted for dispatch (design notes §9), only kept to honor the API.
type MessageHandlerSet interface {
	Add(handler any)
	Remove(handler any)
	All() []any
}

// Session is the per-connection object implementing the public session
// contract (spec §4.6).
type Session interface {
	ID() string
	RequestURI() string
	QueryString() (string, bool)
	QueryParams() url.Values
	PathParams() uritemplate.PathParams
	ProtocolVersion() string
	NegotiatedSubprotocol() (string, bool)
	IsSecure() bool
	UserPrincipal() (string, bool)

	MaxIdleTimeout() time.Duration
	SetMaxIdleTimeout(d time.Duration)
	MaxTextMessageBufferSize() int64
	SetMaxTextMessageBufferSize(n int64)
	MaxBinaryMessageBufferSize() int64
	SetMaxBinaryMessageBufferSize(n int64)

	UserProperties() UserProperties
	MessageHandlers() MessageHandlerSet

	OpenSessions() []Session

	State() SessionState
	Close() error
	CloseWithReason(reason CloseReason) error

	Basic() BasicRemote
	Async() AsyncRemote
}
