// File: uritemplate/template.go
// Package uritemplate compiles and matches the {name}-style path
// templates used to register endpoints (spec §4.1).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package uritemplate

import (
	"fmt"
	"strings"
)

// segment is one path component of a compiled template.
type segment struct {
	literal string // valid when !isVar
	isVar   bool
	name    string // valid when isVar
}

// Template is a compiled URI path template.
type Template struct {
	raw      string
	segments []segment
	varNames []string
}

// Compile splits pattern on "/" and classifies each segment as a literal
// or a {name} variable. A missing leading "/" is normalized to present.
// Duplicate variable names are rejected.
func Compile(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, fmt.Errorf("uritemplate: empty pattern")
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}

	parts := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	var names []string

	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") && len(p) >= 2 {
			name := p[1 : len(p)-1]
			if name == "" {
				return nil, fmt.Errorf("uritemplate: empty variable name in %q", pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("uritemplate: duplicate variable name %q in %q", name, pattern)
			}
			seen[name] = true
			names = append(names, name)
			segs = append(segs, segment{isVar: true, name: name})
		} else {
			segs = append(segs, segment{literal: p})
		}
	}

	return &Template{raw: normalize(pattern), segments: segs, varNames: names}, nil
}

// MustCompile is Compile but panics on error; for use with constant
// templates known at init time.
func MustCompile(pattern string) *Template {
	t, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

func normalize(pattern string) string {
	if !strings.HasPrefix(pattern, "/") {
		return "/" + pattern
	}
	return pattern
}

// String returns the normalized pattern this template was compiled from.
func (t *Template) String() string { return t.raw }

// VarNames returns the variable names in declaration order.
func (t *Template) VarNames() []string {
	out := make([]string, len(t.varNames))
	copy(out, t.varNames)
	return out
}

// LiteralSegmentCount returns how many of the template's segments are
// literals, used for specificity comparisons (see design notes §9).
func (t *Template) LiteralSegmentCount() int {
	n := 0
	for _, s := range t.segments {
		if !s.isVar {
			n++
		}
	}
	return n
}

// Match attempts to match path against the template. Paths of a
// different segment count never match. On success it returns the
// captured path parameters, raw (no additional decoding beyond what
// the transport already performed).
func (t *Template) Match(path string) (PathParams, bool) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}

	var params PathParams
	for i, seg := range t.segments {
		if seg.isVar {
			if params == nil {
				params = make(PathParams, len(t.varNames))
			}
			params[seg.name] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	if params == nil {
		params = PathParams{}
	}
	return params, true
}

// PathParams is the immutable mapping from variable name to matched
// substring captured once per connection at handshake time (spec §3).
type PathParams map[string]string

// Get returns the raw captured value for name.
func (p PathParams) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}
