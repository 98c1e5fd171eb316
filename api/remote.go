// File: api/remote.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package api

// SendResult is delivered to an Async send's callback variant.
type SendResult struct {
	Err error
}

// SendHandle is returned by Async sends; it completes when the
// transport acknowledges the write (spec §4.6, §5).
type SendHandle interface {
	// Done returns a channel closed once the send completes.
	Done() <-chan struct{}
	// Result blocks until completion and returns the outcome.
	Result() SendResult
	// Cancel marks the send cancelled. A send whose write has not yet
	// started is suppressed and completes with a nil error; a write
	// already in progress is not interrupted, and no transport abort is
	// issued.
	Cancel()
}

// BasicRemote offers blocking sends; each call blocks the caller while
// the transport's write buffer is full (spec §5).
type BasicRemote interface {
	SendText(s string) error
	SendTextPartial(s string, last bool) error
	SendBinary(b []byte) error
	SendBinaryPartial(b []byte, last bool) error
	SendObject(v any) error
	SendPing(appData []byte) error
	SendPong(appData []byte) error
}

// AsyncRemote mirrors BasicRemote with non-blocking, future-returning
// and callback-taking variants.
type AsyncRemote interface {
	SendText(s string) SendHandle
	SendTextCB(s string, cb func(SendResult))
	SendBinary(b []byte) SendHandle
	SendBinaryCB(b []byte, cb func(SendResult))
	SendObject(v any) SendHandle
	SendObjectCB(v any, cb func(SendResult))
	SendPing(appData []byte) SendHandle
	SendPong(appData []byte) SendHandle
}
