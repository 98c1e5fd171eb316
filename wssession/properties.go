// File: wssession/properties.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"sort"
	"sync"

	"github.com/momentics/ws-endpoint/api"
)

// userProperties is a thread-safe api.UserProperties backing store
// (spec §4.6: a mutable, application-owned per-session property bag).
type userProperties struct {
	mu   sync.RWMutex
	data map[string]any
}

func newUserProperties() *userProperties {
	return &userProperties{data: make(map[string]any)}
}

func (p *userProperties) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[key]
	return v, ok
}

func (p *userProperties) Put(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = value
}

func (p *userProperties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ api.UserProperties = (*userProperties)(nil)

// messageHandlerSet is a no-op-dispatch-wise backing store for
// api.MessageHandlerSet: in this annotation-driven model, dispatch
// never consults it (design notes §9), it exists only so a handler
// that calls Session.MessageHandlers() gets a working add/remove/list
// surface.
type messageHandlerSet struct {
	mu       sync.Mutex
	handlers []any
}

func newMessageHandlerSet() *messageHandlerSet {
	return &messageHandlerSet{}
}

func (s *messageHandlerSet) Add(handler any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

func (s *messageHandlerSet) Remove(handler any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.handlers {
		if h == handler {
			s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
			return
		}
	}
}

func (s *messageHandlerSet) All() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.handlers))
	copy(out, s.handlers)
	return out
}

var _ api.MessageHandlerSet = (*messageHandlerSet)(nil)
