// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statesock

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/codec"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/telemetry"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/testutil"
)

func startServer(t *testing.T, states States) string {
	t.Helper()
	path := filepath.Join(testutil.SocketDir(t), "state.sock")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(path, states, nil).Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "server did not stop")
	})

	deadline := time.Now().Add(5 * time.Second) //nolint:realclock
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return path
		}
		if time.Now().After(deadline) { //nolint:realclock
			t.Fatalf("server never listened: %v", err)
		}
		time.Sleep(5 * time.Millisecond) //nolint:realclock
	}
}

func TestSnapshotAndLookup(t *testing.T) {
	states := telemetry.NewStateMap()
	states.Put("LOGIN", "DEV123", "5.2.8")
	states.Put("IDLE", "agentX", "3.4.0")
	client := NewClient(startServer(t, states))
	ctx := context.Background()

	snapshot, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !reflect.DeepEqual(snapshot, states.Snapshot()) {
		t.Errorf("Snapshot = %v", snapshot)
	}

	version, found, err := client.Lookup(ctx, "LOGIN", "DEV123")
	if err != nil || !found || version != "5.2.8" {
		t.Errorf("Lookup = %q, %v, %v", version, found, err)
	}
	_, found, err = client.Lookup(ctx, "LOGIN", "DEV999")
	if err != nil || found {
		t.Errorf("Lookup(missing) found=%v err=%v", found, err)
	}
}

func TestEmptySnapshot(t *testing.T) {
	client := NewClient(startServer(t, telemetry.NewStateMap()))
	snapshot, err := client.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot) != 0 {
		t.Errorf("Snapshot = %v, want empty", snapshot)
	}
}

func TestRemoteErrors(t *testing.T) {
	path := startServer(t, telemetry.NewStateMap())
	client := NewClient(path)

	_, _, err := client.Lookup(context.Background(), "", "")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Lookup without fields = %v, want RemoteError", err)
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := codec.NewEncoder(conn).Encode(map[string]any{"action": "reboot"}); err != nil {
		t.Fatal(err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatal(err)
	}
	if response.OK || response.Error != `unknown action "reboot"` {
		t.Errorf("response = %+v", response)
	}
}

func TestClientNoServer(t *testing.T) {
	client := NewClient(filepath.Join(testutil.SocketDir(t), "absent.sock"))
	if _, err := client.Snapshot(context.Background()); err == nil {
		t.Error("Snapshot succeeded without a server")
	}
}
