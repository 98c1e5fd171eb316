// File: wssession/tracker_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"testing"

	"github.com/momentics/ws-endpoint/api"
	"github.com/momentics/ws-endpoint/codec"
)

func TestTrackerAddRemoveSnapshot(t *testing.T) {
	tracker := NewTracker(4)
	s1 := New(Config{ID: "a", EndpointConfig: api.DefaultEndpointConfig("/x"), Tracker: tracker, Writer: &fakeWriter{}, Pipeline: codec.NewPipeline(nil, nil)})
	New(Config{ID: "b", EndpointConfig: api.DefaultEndpointConfig("/x"), Tracker: tracker, Writer: &fakeWriter{}, Pipeline: codec.NewPipeline(nil, nil)})

	if tracker.Count() != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", tracker.Count())
	}

	tracker.Remove(s1.ID())
	if tracker.Count() != 1 {
		t.Fatalf("expected 1 tracked session after removal, got %d", tracker.Count())
	}

	snap := tracker.Snapshot()
	if len(snap) != 1 || snap[0].ID() != "b" {
		t.Fatalf("unexpected snapshot after removal: %+v", snap)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[uint32]uint32{1: 1, 2: 2, 3: 4, 5: 8, 16: 16, 17: 32}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
