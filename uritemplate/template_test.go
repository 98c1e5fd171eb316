package uritemplate_test

import (
	"testing"

	"github.com/momentics/ws-endpoint/uritemplate"
)

func TestCompileAndMatch(t *testing.T) {
	tmpl, err := uritemplate.Compile("p/{id}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if tmpl.String() != "/p/{id}" {
		t.Errorf("missing leading slash not normalized: %q", tmpl.String())
	}

	params, ok := tmpl.Match("/p/42")
	if !ok {
		t.Fatal("expected match")
	}
	if v, _ := params.Get("id"); v != "42" {
		t.Errorf("id = %q, want 42", v)
	}
}

func TestMatchRejectsDifferentSegmentCount(t *testing.T) {
	tmpl := uritemplate.MustCompile("/a/{x}")
	if _, ok := tmpl.Match("/a/b/c"); ok {
		t.Fatal("expected no match for different segment count")
	}
	if _, ok := tmpl.Match("/a"); ok {
		t.Fatal("expected no match for different segment count")
	}
}

func TestMatchLiteralMismatch(t *testing.T) {
	tmpl := uritemplate.MustCompile("/a/b")
	if _, ok := tmpl.Match("/a/c"); ok {
		t.Fatal("expected no match")
	}
}

func TestDuplicateVariableNameRejected(t *testing.T) {
	if _, err := uritemplate.Compile("/a/{id}/b/{id}"); err == nil {
		t.Fatal("expected error for duplicate variable name")
	}
}

func TestLiteralSegmentCount(t *testing.T) {
	tmpl := uritemplate.MustCompile("/a/{x}/b")
	if got := tmpl.LiteralSegmentCount(); got != 2 {
		t.Errorf("LiteralSegmentCount = %d, want 2", got)
	}
}

func TestEchoTemplateNoVariables(t *testing.T) {
	tmpl := uritemplate.MustCompile("/echo")
	params, ok := tmpl.Match("/echo")
	if !ok {
		t.Fatal("expected match")
	}
	if len(params) != 0 {
		t.Errorf("expected no path params, got %v", params)
	}
}
