// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/cmd/fotawatch/cli"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/audit"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/statesock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/telemetry"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/testutil"
)

// syncBuffer is a bytes.Buffer safe for the writer loop and the test
// to share.
type syncBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// isolateEnv clears every variable the configuration loader consults.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"FOTAWATCH_CONFIG",
		"FOTAWATCH_SERIAL_DEVICE",
		"FOTAWATCH_SERIAL_BAUD",
		"FOTAWATCH_ROLLOUT_DEVICE_ID",
		"FOTAWATCH_DELIVERY_URL",
		"FOTAWATCH_DELIVERY_TOKEN",
	} {
		t.Setenv(name, "")
	}
}

func newTestApp(stdin io.Reader) (*app, *syncBuffer) {
	stdout := &syncBuffer{}
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	return &app{
		stdin:  stdin,
		stdout: stdout,
		level:  new(slog.LevelVar),
		clock:  clock.Real(),
	}, stdout
}

func execute(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := a.root()
	root.Help = io.Discard
	root.Logger = slog.New(slog.DiscardHandler)
	return root.Execute(context.Background(), args)
}

func TestVersionCommand(t *testing.T) {
	a, stdout := newTestApp(nil)
	if err := execute(t, a, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "fotawatch ") {
		t.Errorf("output = %q", stdout.String())
	}
}

func writeManifest(t *testing.T) (string, string) {
	t.Helper()
	directory := t.TempDir()
	image := filepath.Join(directory, "fw-b.bin")
	if err := os.WriteFile(image, []byte("image b"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(directory, "firmware.csv")
	content := "firmware_id,firmware_version,firmware_file_path\n" +
		"fw-c,2.10.0," + filepath.Join(directory, "missing.bin") + "\n" +
		"# retired\n" +
		"fw-b,2.9.0," + image + "\n" +
		"fw-bad,two,x.bin\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, image
}

func TestManifestCommand(t *testing.T) {
	isolateEnv(t)
	path, image := writeManifest(t)

	a, stdout := newTestApp(nil)
	if err := execute(t, a, "manifest", path, "--json"); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	var entries []manifestEntry
	if err := json.Unmarshal([]byte(stdout.String()), &entries); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, stdout.String())
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "fw-b" || entries[1].ID != "fw-c" {
		t.Errorf("order = %s, %s; want fw-b, fw-c", entries[0].ID, entries[1].ID)
	}
	want, err := manifest.Digest(image)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Digest != want {
		t.Errorf("digest = %q, want %q", entries[0].Digest, want)
	}
	if entries[1].Digest != "" || entries[1].Error == "" {
		t.Errorf("missing image entry = %+v, want an error and no digest", entries[1])
	}
}

func TestManifestCommandTable(t *testing.T) {
	isolateEnv(t)
	path, _ := writeManifest(t)

	a, stdout := newTestApp(nil)
	if err := execute(t, a, "manifest", path); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("table:\n%s", stdout.String())
	}
	if !strings.Contains(lines[2], "(unreadable)") {
		t.Errorf("missing image row = %q", lines[2])
	}
}

func TestManifestCommandMissingFile(t *testing.T) {
	isolateEnv(t)
	a, _ := newTestApp(nil)
	err := execute(t, a, "manifest", filepath.Join(t.TempDir(), "absent.csv"))
	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestAuditListCommand(t *testing.T) {
	isolateEnv(t)
	database := filepath.Join(t.TempDir(), "audit.db")
	store, err := audit.OpenStore(database, nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, record := range []audit.Record{
		{DeviceID: "DEV1", FirmwareID: "fw-a", FirmwareVersion: "1.0.0", Result: "TIMEOUT"},
		{DeviceID: "DEV2", FirmwareID: "fw-a", FirmwareVersion: "1.0.0", Result: "REPORTED:1.0.0", AfterVersion: "1.0.0"},
		{DeviceID: "DEV1", FirmwareID: "fw-b", FirmwareVersion: "1.1.0", Result: "REPORTED:1.1.0", AfterVersion: "1.1.0", JobID: "job-7"},
	} {
		record.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Append(context.Background(), record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	store.Close()

	a, stdout := newTestApp(nil)
	if err := execute(t, a, "audit", "list", "DEV1", "--db", database, "--json"); err != nil {
		t.Fatalf("audit list: %v", err)
	}
	var records []audit.Record
	if err := json.Unmarshal([]byte(stdout.String()), &records); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, stdout.String())
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].JobID != "job-7" || records[1].Result != "TIMEOUT" {
		t.Errorf("records not newest first: %+v", records)
	}
}

func TestAuditListMissingDatabase(t *testing.T) {
	isolateEnv(t)
	a, _ := newTestApp(nil)
	err := execute(t, a, "audit", "list", "--db", filepath.Join(t.TempDir(), "none.db"))
	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func startStateServer(t *testing.T, states *telemetry.StateMap) string {
	t.Helper()
	path := filepath.Join(testutil.SocketDir(t), "state.sock")
	server := statesock.NewServer(path, states, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitForState(t, path, "", "")
	return path
}

// waitForState polls the socket until it answers, and until state/key
// is present when state is non-empty.
func waitForState(t *testing.T, path, state, key string) string {
	t.Helper()
	client := statesock.NewClient(path)
	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot, err := client.Snapshot(context.Background())
		if err == nil {
			if state == "" {
				return ""
			}
			if version, ok := snapshot[state][key]; ok {
				return version
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("state socket %s never reported %s/%s (last error: %v)", path, state, key, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStateCommand(t *testing.T) {
	isolateEnv(t)
	states := telemetry.NewStateMap()
	states.Put(telemetry.StateLogin, "DEV1", "5.2.8")
	states.Put("IDLE", "agentX", "3.4.0")
	path := startStateServer(t, states)

	a, stdout := newTestApp(nil)
	if err := execute(t, a, "state", "--socket", path); err != nil {
		t.Fatalf("state: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table:\n%s", stdout.String())
	}
	if !strings.HasPrefix(lines[1], "IDLE") || !strings.HasPrefix(lines[2], "LOGIN") {
		t.Errorf("rows not sorted by state:\n%s", stdout.String())
	}

	a, stdout = newTestApp(nil)
	if err := execute(t, a, "state", "LOGIN", "DEV1", "--socket", path); err != nil {
		t.Fatalf("state lookup: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "5.2.8" {
		t.Errorf("lookup output = %q, want 5.2.8", got)
	}

	a, _ = newTestApp(nil)
	err := execute(t, a, "state", "LOGIN", "DEV9", "--socket", path)
	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryNotFound {
		t.Errorf("missing entry error = %v, want not_found", err)
	}
}

func TestMonitorRequiresDevice(t *testing.T) {
	isolateEnv(t)
	a, _ := newTestApp(nil)
	err := execute(t, a, "monitor")
	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryValidation {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestMonitorOpenFailureIsTransient(t *testing.T) {
	isolateEnv(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()

	a, _ := newTestApp(nil)
	err = execute(t, a, "monitor", "--device", "tcp://"+address, "--log-file", filepath.Join(t.TempDir(), "log.txt"))
	var categorized *cli.Error
	if !errors.As(err, &categorized) || categorized.Category != cli.CategoryTransient {
		t.Errorf("error = %v, want transient", err)
	}
}

// fakeDevice accepts one connection on a loopback listener.
func fakeDevice(t *testing.T) (string, <-chan net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	return "tcp://" + listener.Addr().String(), accepted
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fotawatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMonitorCommand(t *testing.T) {
	isolateEnv(t)
	device, accepted := fakeDevice(t)
	directory := t.TempDir()
	logPath := filepath.Join(directory, "serial_log.txt")
	socketPath := filepath.Join(testutil.SocketDir(t), "state.sock")
	configPath := writeConfig(t, "serial:\n  device: "+device+"\n"+
		"logging:\n  file: "+logPath+"\n"+
		"state_socket: "+socketPath+"\n"+
		"shutdown_grace: 2s\n")

	stdinReader, stdinWriter := io.Pipe()
	defer stdinWriter.Close()
	a, _ := newTestApp(stdinReader)

	done := make(chan error, 1)
	go func() { done <- execute(t, a, "monitor", "--config", configPath, "--quiet") }()

	conn := testutil.RequireReceive(t, accepted, 5*time.Second, "waiting for monitor to dial the device")
	defer conn.Close()
	if _, err := io.WriteString(conn, "55AA,A,B,1,2,3,DEV42,5.2.8\r\n"); err != nil {
		t.Fatalf("device write: %v", err)
	}
	if version := waitForState(t, socketPath, telemetry.StateLogin, "DEV42"); version != "5.2.8" {
		t.Errorf("LOGIN/DEV42 = %q, want 5.2.8", version)
	}

	if _, err := io.WriteString(stdinWriter, "AT+VER?\n"); err != nil {
		t.Fatalf("operator write: %v", err)
	}
	command := make([]byte, len("AT+VER?\r\n"))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, command); err != nil {
		t.Fatalf("device read: %v", err)
	}
	if string(command) != "AT+VER?\r\n" {
		t.Errorf("device received %q", command)
	}

	if _, err := io.WriteString(stdinWriter, "quit\n"); err != nil {
		t.Fatalf("operator write: %v", err)
	}
	if err := testutil.RequireReceive(t, done, 10*time.Second, "waiting for monitor to exit"); err != nil {
		t.Fatalf("monitor: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "55AA,A,B,1,2,3,DEV42,5.2.8") {
		t.Errorf("log file missing device line:\n%s", data)
	}
}

func TestRolloutCommand(t *testing.T) {
	isolateEnv(t)
	device, accepted := fakeDevice(t)
	directory := t.TempDir()
	manifestPath := filepath.Join(directory, "firmware.csv")
	manifestContent := "fw-new,2.0.0," + filepath.Join(directory, "fw-new.bin") + "\n" +
		"fw-old,1.0.0," + filepath.Join(directory, "fw-old.bin") + "\n"
	if err := os.WriteFile(manifestPath, []byte(manifestContent), 0o644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(directory, "audit", "fota_audit.csv")
	databasePath := filepath.Join(directory, "audit.db")
	configPath := writeConfig(t, "serial:\n  device: "+device+"\n"+
		"logging:\n  file: "+filepath.Join(directory, "serial_log.txt")+"\n"+
		"rollout:\n  device_id: DEV42\n  manifest: "+manifestPath+"\n  timeout: 10s\n  poll_interval: 50ms\n"+
		"audit:\n  csv: "+csvPath+"\n  sqlite: "+databasePath+"\n"+
		"delivery:\n  kind: command\n  command: [\"echo\", \"job-{firmware}\"]\n"+
		"shutdown_grace: 2s\n")

	a, stdout := newTestApp(nil)
	done := make(chan error, 1)
	go func() { done <- execute(t, a, "rollout", "--config", configPath) }()

	conn := testutil.RequireReceive(t, accepted, 5*time.Second, "waiting for rollout to dial the device")
	defer conn.Close()

	// The device keeps announcing the newest version until the
	// rollout finishes.
	stopDevice := make(chan struct{})
	deviceDone := make(chan struct{})
	go func() {
		defer close(deviceDone)
		for {
			if _, err := io.WriteString(conn, "SOFTWARE 2.0.0 STATE ACTIVE\r\n"); err != nil {
				return
			}
			select {
			case <-stopDevice:
				return
			case <-time.After(20 * time.Millisecond):
			}
		}
	}()

	err := testutil.RequireReceive(t, done, 15*time.Second, "waiting for rollout to finish")
	close(stopDevice)
	<-deviceDone
	if err != nil {
		t.Fatalf("rollout: %v\n%s", err, stdout.String())
	}
	if !strings.Contains(stdout.String(), "outcome converged") {
		t.Errorf("summary missing convergence:\n%s", stdout.String())
	}

	file, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("opening audit csv: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parsing audit csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("audit csv has %d rows, want header + 1", len(rows))
	}
	if rows[1][1] != "DEV42" || rows[1][2] != "fw-old" || rows[1][6] != "2.0.0" || rows[1][8] != "job-fw-old" {
		t.Errorf("audit row = %v", rows[1])
	}

	store, err := audit.OpenStore(databasePath, nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	records, err := store.List(context.Background(), "DEV42", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].FirmwareID != "fw-old" {
		t.Errorf("sqlite records = %+v", records)
	}
}
