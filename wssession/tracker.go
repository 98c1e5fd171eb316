// File: wssession/tracker.go
// Package wssession implements the per-connection Session object and
// the open-sessions tracker (spec §3, §4.6, §4.7).
//
// Tracker is grounded on the teacher's sharded SessionManager
// (internal/session/store.go): power-of-two shard count, FNV-1a hash
// to pick a shard, one RWMutex per shard. Repurposed here to hold
// api.Session values rather than the teacher's minimal
// ID/Context/Cancel session shape, and scoped one-per-endpoint rather
// than process-wide, per spec §4.7's OpenSessionsTracker.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"hash/fnv"
	"sync"

	"github.com/momentics/ws-endpoint/api"
)

// Tracker is the concurrent set of OPEN sessions for one endpoint.
type Tracker struct {
	shards []*trackerShard
	mask   uint32
}

type trackerShard struct {
	mu       sync.RWMutex
	sessions map[string]api.Session
}

// DefaultShardCount matches the teacher's default (internal/session's
// NewSessionManager(16)).
const DefaultShardCount = 16

// NewTracker constructs a tracker with shardCount shards, rounded up to
// the next power of two.
func NewTracker(shardCount int) *Tracker {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*trackerShard, m)
	for i := range shards {
		shards[i] = &trackerShard{sessions: make(map[string]api.Session)}
	}
	return &Tracker{shards: shards, mask: m - 1}
}

func (t *Tracker) shard(id string) *trackerShard {
	return t.shards[fnv32(id)&t.mask]
}

// Add registers s as OPEN. Called once the session transitions to
// StateOpen.
func (t *Tracker) Add(s api.Session) {
	sh := t.shard(s.ID())
	sh.mu.Lock()
	sh.sessions[s.ID()] = s
	sh.mu.Unlock()
}

// Remove drops a session once it leaves StateOpen.
func (t *Tracker) Remove(id string) {
	sh := t.shard(id)
	sh.mu.Lock()
	delete(sh.sessions, id)
	sh.mu.Unlock()
}

// Snapshot returns every currently tracked session (spec §4.7: a
// point-in-time copy, safe against concurrent Add/Remove).
func (t *Tracker) Snapshot() []api.Session {
	var out []api.Session
	for _, sh := range t.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			out = append(out, s)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of currently tracked sessions.
func (t *Tracker) Count() int {
	n := 0
	for _, sh := range t.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
