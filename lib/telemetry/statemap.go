// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"encoding/json"
	"maps"
	"sync"
)

// StateMap is the live version map. All methods are safe for
// concurrent use; every critical section is a single map operation or
// a copy, so readers never hold writers up for long.
type StateMap struct {
	mu     sync.RWMutex
	states map[string]map[string]string
}

// NewStateMap returns an empty map.
func NewStateMap() *StateMap {
	return &StateMap{states: make(map[string]map[string]string)}
}

// Put sets (state, key) to version, replacing any previous value.
func (m *StateMap) Put(state, key, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inner, ok := m.states[state]
	if !ok {
		inner = make(map[string]string)
		m.states[state] = inner
	}
	inner[key] = version
}

// Apply commits an update.
func (m *StateMap) Apply(update Update) {
	m.Put(update.State, update.Key, update.Version)
}

// Lookup returns the version recorded for (state, key).
func (m *StateMap) Lookup(state, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	version, ok := m.states[state][key]
	return version, ok
}

// Snapshot returns a deep copy of the map.
func (m *StateMap) Snapshot() map[string]map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make(map[string]map[string]string, len(m.states))
	for state, inner := range m.states {
		snapshot[state] = maps.Clone(inner)
	}
	return snapshot
}

// Len returns the number of (state, key) entries.
func (m *StateMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, inner := range m.states {
		total += len(inner)
	}
	return total
}

// MarshalJSON encodes a snapshot as a nested object.
func (m *StateMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}
