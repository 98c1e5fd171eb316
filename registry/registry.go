// File: registry/registry.go
// Package registry implements the endpoint registry of spec §5: a
// URI-template-keyed map from path to compiled descriptor, with
// register/lookup/dispose and a read-mostly locking discipline
// grounded on the teacher's highlevel/server.go route table (a slice
// of compiled routes scanned in registration order on every request,
// guarded by a single RWMutex).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
	"github.com/momentics/ws-endpoint/endpoint"
	"github.com/momentics/ws-endpoint/uritemplate"
	"github.com/momentics/ws-endpoint/wserr"
	"github.com/momentics/ws-endpoint/wssession"
)

// entry is one live registration. Registration order is preserved in
// Registry.entries; Lookup prefers the matching template with the most
// literal segments and falls back to registration order only between
// templates of equal literal-segment count (see design notes §9).
type entry struct {
	config     api.EndpointConfig
	descriptor *endpoint.Descriptor
	pipeline   *codec.Pipeline
	tracker    *wssession.Tracker
	disposed   bool
}

// Registry is the live endpoint table for one server. The zero value
// is not usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register validates handler (via endpoint.Build) and, only on
// success, adds it to the live table (spec §4.2: a rejected
// registration must never mutate the registry). factory is invoked
// once immediately to obtain the handler's reflect.Type for
// validation; its result is discarded; a fresh instance is created per
// session at dispatch time.
func (r *Registry) Register(cfg api.EndpointConfig, factory endpoint.Factory, decoders []any, encoders []any, subprotocols []string) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &wserr.ConfigurationError{Endpoint: cfg.Path, Reason: err.Error()}
	}

	tmpl, err := uritemplate.Compile(cfg.Path)
	if err != nil {
		return nil, &wserr.ConfigurationError{Endpoint: cfg.Path, Reason: err.Error()}
	}

	proto := factory()
	handlerType := reflect.TypeOf(proto)

	d, err := endpoint.Build(cfg.Path, handlerType, factory, tmpl, decoders, encoders, subprotocols)
	if err != nil {
		slog.Warn("endpoint registration rejected", "path", cfg.Path, "err", err)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.disposed {
			continue
		}
		if existing.descriptor.Template.String() == tmpl.String() {
			return nil, &wserr.ConfigurationError{
				Endpoint: cfg.Path,
				Reason:   fmt.Sprintf("an endpoint is already registered for template %q", tmpl.String()),
			}
		}
	}

	pipeline := codec.NewPipeline(decoders, encoders)
	pipeline.Init(codec.Config{EndpointPath: cfg.Path, Properties: cfg.Properties})

	e := &entry{
		config:     cfg,
		descriptor: d,
		pipeline:   pipeline,
		tracker:    wssession.NewTracker(wssession.DefaultShardCount),
	}

	r.entries = append(r.entries, e)

	slog.Info("endpoint registered", "path", cfg.Path)
	return &Handle{registry: r, entry: e}, nil
}

// Match is one resolved registration: the descriptor, the compiled
// codec pipeline, the open-sessions tracker, and the captured path
// parameters.
type Match struct {
	Config     api.EndpointConfig
	Descriptor *endpoint.Descriptor
	Pipeline   *codec.Pipeline
	Tracker    *wssession.Tracker
	PathParams uritemplate.PathParams
}

// Lookup resolves path against every live (non-disposed) registration,
// returning the most specific match (highest literal-segment count);
// ties resolve to whichever was registered first (spec §5).
func (r *Registry) Lookup(path string) (Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best       *entry
		bestParams uritemplate.PathParams
		bestLit    = -1
	)
	for _, e := range r.entries {
		if e.disposed {
			continue
		}
		params, ok := e.descriptor.Template.Match(path)
		if !ok {
			continue
		}
		lit := e.descriptor.Template.LiteralSegmentCount()
		if lit > bestLit {
			best, bestParams, bestLit = e, params, lit
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{
		Config:     best.config,
		Descriptor: best.descriptor,
		Pipeline:   best.pipeline,
		Tracker:    best.tracker,
		PathParams: bestParams,
	}, true
}

// Count returns the number of live (non-disposed) registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if !e.disposed {
			n++
		}
	}
	return n
}

func (r *Registry) removeEntry(target *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e == target {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}
