// File: endpoint/validator_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package endpoint

import (
	"errors"
	"reflect"
	"testing"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wserr"
)

// echoHandler exercises scenario 1: a text-message callback returning a
// string auto-replies on the same session (spec §8).
type echoHandler struct{}

func (h *echoHandler) OnOpen(s api.Session)                     {}
func (h *echoHandler) OnClose(s api.Session, r api.CloseReason)  {}
func (h *echoHandler) OnMessage(msg string) string               { return msg }

// pathParamHandler exercises scenario 2: a struct carrying path:"room"
// stands in for @PathParam.
type roomParams struct {
	Room string `path:"room"`
}

type pathParamHandler struct{}

func (h *pathParamHandler) OnOpen(s api.Session, p roomParams) {}
func (h *pathParamHandler) OnMessage(p roomParams, msg string) string {
	return p.Room + ":" + msg
}

// duplicateTextHandler exercises scenario 6: two differently named
// methods each carrying a text-message shape must be rejected.
type duplicateTextHandler struct{}

func (h *duplicateTextHandler) First(msg string)  {}
func (h *duplicateTextHandler) Second(msg string) {}

// badErrorHandler exercises the error-callback-must-declare-throwable
// rule.
type badErrorHandler struct{}

func (h *badErrorHandler) OnError(s api.Session) {}

func mustTemplate(t *testing.T, pattern string) *uritemplate.Template {
	t.Helper()
	tmpl, err := uritemplate.Compile(pattern)
	if err != nil {
		t.Fatalf("compile template: %v", err)
	}
	return tmpl
}

func TestBuildEchoHandler(t *testing.T) {
	tmpl := mustTemplate(t, "/echo")
	d, err := Build("/echo", reflect.TypeOf(&echoHandler{}), func() any { return &echoHandler{} }, tmpl, nil, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if d.OpenSlot == nil {
		t.Fatal("expected OpenSlot to be compiled")
	}
	if d.CloseSlot == nil {
		t.Fatal("expected CloseSlot to be compiled")
	}
	if d.TextSlot == nil {
		t.Fatal("expected TextSlot to be compiled")
	}
	if d.TextSlot.Class != ClassNone && d.TextSlot.Class != ClassText {
		t.Fatalf("unexpected class on TextSlot: %v", d.TextSlot.Class)
	}
}

func TestBuildPathParamHandler(t *testing.T) {
	tmpl := mustTemplate(t, "/rooms/{room}")
	d, err := Build("/rooms/{room}", reflect.TypeOf(&pathParamHandler{}), func() any { return &pathParamHandler{} }, tmpl, nil, nil, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if d.TextSlot == nil {
		t.Fatal("expected TextSlot to be compiled")
	}
	found := false
	for _, a := range d.TextSlot.Args {
		if a.Kind == ArgPathParams {
			found = true
			if len(a.PathFields) != 1 || a.PathFields[0].Name != "room" {
				t.Fatalf("unexpected path fields: %+v", a.PathFields)
			}
		}
	}
	if !found {
		t.Fatal("expected a path-param argument in the text slot's plan")
	}
}

func TestBuildRejectsDuplicateTextCallback(t *testing.T) {
	tmpl := mustTemplate(t, "/dup")
	_, err := Build("/dup", reflect.TypeOf(&duplicateTextHandler{}), func() any { return &duplicateTextHandler{} }, tmpl, nil, nil, nil)
	if err == nil {
		t.Fatal("expected Build to reject a handler with two text-message callbacks")
	}
	var cfgErr *wserr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a *wserr.ConfigurationError, got %T: %v", err, err)
	}
}

func TestBuildRejectsErrorCallbackWithoutThrowable(t *testing.T) {
	tmpl := mustTemplate(t, "/bad-error")
	_, err := Build("/bad-error", reflect.TypeOf(&badErrorHandler{}), func() any { return &badErrorHandler{} }, tmpl, nil, nil, nil)
	if err == nil {
		t.Fatal("expected Build to reject an OnError callback with no throwable parameter")
	}
}
