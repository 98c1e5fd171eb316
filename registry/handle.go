// File: registry/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/wire"
)

// Handle is returned by Registry.Register; disposing it deregisters
// the endpoint and closes every session still open on it (spec §5).
type Handle struct {
	registry *Registry
	entry    *entry
	once     sync.Once
}

// Dispose removes the endpoint from the registry so it stops matching
// new connections, closes every currently open session with 1001
// (Going Away), and waits up to the endpoint's configured
// DisposeGracePeriod for those closes to finish, or until ctx is
// cancelled, whichever comes first. Dispose is idempotent: calling it
// more than once is a no-op.
func (h *Handle) Dispose(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		slog.Info("disposing endpoint", "path", h.entry.config.Path)
		h.registry.mu.Lock()
		h.entry.disposed = true
		h.registry.mu.Unlock()
		h.registry.removeEntry(h.entry)

		sessions := h.entry.tracker.Snapshot()
		var wg sync.WaitGroup
		for _, s := range sessions {
			wg.Add(1)
			go func(s api.Session) {
				defer wg.Done()
				_ = s.CloseWithReason(api.CloseReason{
					Code:   int(wire.CloseGoingAway),
					Reason: "endpoint disposed",
				})
			}(s)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		grace := h.entry.config.DisposeGracePeriod
		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			err = context.DeadlineExceeded
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			slog.Warn("endpoint dispose grace period exceeded, abandoning remaining sessions", "path", h.entry.config.Path, "err", err)
		}

		h.entry.pipeline.Destroy()
	})
	return err
}
