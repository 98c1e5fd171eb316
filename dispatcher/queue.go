// File: dispatcher/queue.go
// Per-connection inbound frame FIFO, built on eapache/queue (a teacher
// dependency, repurposed here from its original buffer-pool-adjacent
// use into the dispatcher's frame-ordering role named in SPEC_FULL.md
// §10).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package dispatcher

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/ws-endpoint/wire"
)

// frameQueue is a thread-safe FIFO of inbound wire frames, preserving
// arrival order across however many goroutines feed it (spec §6).
type frameQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newFrameQueue() *frameQueue {
	return &frameQueue{q: queue.New()}
}

func (fq *frameQueue) push(f wire.Frame) {
	fq.mu.Lock()
	fq.q.Add(f)
	fq.mu.Unlock()
}

func (fq *frameQueue) pop() (wire.Frame, bool) {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	if fq.q.Length() == 0 {
		return wire.Frame{}, false
	}
	v := fq.q.Peek()
	fq.q.Remove()
	return v.(wire.Frame), true
}
