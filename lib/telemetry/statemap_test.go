// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

func TestStateMapLastWriteWins(t *testing.T) {
	states := NewStateMap()
	states.Put("IDLE", "agentX", "3.4.0")
	states.Put("IDLE", "agentX", "3.5.0")
	if version, ok := states.Lookup("IDLE", "agentX"); !ok || version != "3.5.0" {
		t.Errorf("Lookup = %q, %v; want 3.5.0", version, ok)
	}
	if _, ok := states.Lookup("idle", "agentX"); ok {
		t.Error("keys must be case-sensitive")
	}
	if states.Len() != 1 {
		t.Errorf("Len = %d, want 1", states.Len())
	}
}

func TestStateMapSnapshotIsACopy(t *testing.T) {
	states := NewStateMap()
	states.Put("LOGIN", "DEV1", "1.0")
	snapshot := states.Snapshot()
	snapshot["LOGIN"]["DEV1"] = "tampered"
	snapshot["NEW"] = map[string]string{"x": "y"}

	if version, _ := states.Lookup("LOGIN", "DEV1"); version != "1.0" {
		t.Errorf("snapshot mutation leaked: %q", version)
	}
	if _, ok := states.Lookup("NEW", "x"); ok {
		t.Error("snapshot insert leaked")
	}
}

func TestStateMapMarshalJSON(t *testing.T) {
	states := NewStateMap()
	states.Put("LOGIN", "DEV1", "1.0")
	data, err := json.Marshal(states)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"LOGIN":{"DEV1":"1.0"}}` {
		t.Errorf("MarshalJSON = %s", data)
	}
}

func TestStateMapConcurrentAccess(t *testing.T) {
	states := NewStateMap()
	var group sync.WaitGroup
	for writer := range 4 {
		group.Add(1)
		go func() {
			defer group.Done()
			for i := range 200 {
				states.Put(fmt.Sprintf("S%d", writer), fmt.Sprintf("k%d", i%10), fmt.Sprintf("1.%d", i))
			}
		}()
	}
	for range 4 {
		group.Add(1)
		go func() {
			defer group.Done()
			for range 200 {
				states.Snapshot()
				states.Lookup("S0", "k0")
			}
		}()
	}
	group.Wait()
	if states.Len() != 40 {
		t.Errorf("Len = %d, want 40", states.Len())
	}
}
