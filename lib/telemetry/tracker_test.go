// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/lineframe"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
	rtestutil "github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/testutil"
)

func TestTrackerHandleStripsTimestamp(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})
	tracker.Handle("2025-01-01T10:00:00.1234567 SOFTWARE: agentX VERSION: 3.4.0 STATE: IDLE")
	if version, ok := tracker.States().Lookup("IDLE", "agentX"); !ok || version != "3.4.0" {
		t.Errorf("Lookup(IDLE, agentX) = %q, %v", version, ok)
	}
	// The framing timestamp itself must not be taken for a version.
	if _, ok := tracker.States().Lookup(StateUnknown, KeySoftware); ok {
		t.Error("framing timestamp leaked into the map")
	}
}

func TestTrackerIdempotent(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})
	line := "2025-01-01T10:00:00.1234567 55AA,A,B,1,2,3,DEV123,5.2.8|trailing"
	tracker.Handle(line)
	first := tracker.States().Snapshot()
	tracker.Handle(line)
	if second := tracker.States().Snapshot(); !reflect.DeepEqual(first, second) {
		t.Errorf("replay changed the map: %v -> %v", first, second)
	}
	if version, _ := tracker.States().Lookup(StateLogin, "DEV123"); version != "5.2.8" {
		t.Errorf("LOGIN/DEV123 = %q, want 5.2.8", version)
	}
}

func TestTrackerNoMatchLeavesMapUntouched(t *testing.T) {
	tracker := NewTracker(TrackerConfig{})
	tracker.Handle("2025-01-01T10:00:00.1234567 modem registered")
	tracker.Handle("")
	if tracker.States().Len() != 0 {
		t.Errorf("map = %v, want empty", tracker.States().Snapshot())
	}
}

func TestTrackerActionEvents(t *testing.T) {
	var events []Event
	tracker := NewTracker(TrackerConfig{OnEvent: func(event Event) { events = append(events, event) }})

	tracker.Handle("io ignStatus=1 speed=0")
	tracker.Handle("VEHICLE info: MH12")
	tracker.Handle("SOFTWARE: agentX VERSION: 3.4.0 STATE: IDLE ignStatus=1")

	want := []Event{
		{Kind: EventIgnitionOn, Line: "io ignStatus=1 speed=0"},
		{Kind: EventVehicleInfo, Line: "VEHICLE info: MH12"},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %+v, want %+v", events, want)
	}
}

func TestTrackerRunDrainsQueue(t *testing.T) {
	queue := lineframe.NewQueue("process", 16)
	registry := metrics.New()
	tracker := NewTracker(TrackerConfig{Source: queue, Metrics: registry})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	queue.Offer("2025-01-01T10:00:00.1234567 SOFTWARE: agentX VERSION: 3.4.0 STATE: IDLE")
	queue.Offer("2025-01-01T10:00:00.1234568 55AA,A,B,1,2,3,DEV123,5.2.8|x")

	deadline := time.Now().Add(5 * time.Second) //nolint:realclock
	for tracker.States().Len() < 2 {
		if time.Now().After(deadline) { //nolint:realclock
			t.Fatalf("tracker did not commit both lines: %v", tracker.States().Snapshot())
		}
		time.Sleep(time.Millisecond) //nolint:realclock
	}
	cancel()
	if err := rtestutil.RequireReceive(t, done, 5*time.Second, "tracker Run"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expected := `# HELP fotawatch_state_commits_total Version map commits by parse rule.
# TYPE fotawatch_state_commits_total counter
fotawatch_state_commits_total{rule="labeled"} 1
fotawatch_state_commits_total{rule="login"} 1
`
	if err := testutil.GatherAndCompare(registry.Registry(), strings.NewReader(expected), "fotawatch_state_commits_total"); err != nil {
		t.Error(err)
	}
}
