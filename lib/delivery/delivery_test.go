// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/testutil"
)

func TestHTTPSubmitterUploadsMultipart(t *testing.T) {
	image := testutil.WriteFile(t, "fw-a.bin", "image bytes")
	firmware := manifest.Firmware{ID: "fw-a", Version: "5.2.8", Path: image}

	var received struct {
		device, id, version, filename, content, auth string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received.device = r.FormValue("deviceId")
		received.id = r.FormValue("firmwareId")
		received.version = r.FormValue("version")
		received.auth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		received.filename = header.Filename
		received.content = string(content)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"jobId":"job-42"}`)
	}))
	defer server.Close()

	submitter := &HTTPSubmitter{URL: server.URL, Token: "secret"}
	jobID, err := submitter.Submit(context.Background(), "DEV123", firmware)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-42" {
		t.Errorf("jobID = %q, want job-42", jobID)
	}
	if received.device != "DEV123" || received.id != "fw-a" || received.version != "5.2.8" {
		t.Errorf("form fields = %+v", received)
	}
	if received.filename != "fw-a.bin" || received.content != "image bytes" {
		t.Errorf("file part = %q %q", received.filename, received.content)
	}
	if received.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", received.auth)
	}
}

func TestHTTPSubmitterFailures(t *testing.T) {
	image := testutil.WriteFile(t, "fw.bin", "x")
	firmware := manifest.Firmware{ID: "fw", Version: "1.0", Path: image}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := (&HTTPSubmitter{URL: server.URL}).Submit(context.Background(), "DEV", firmware); err == nil {
		t.Error("Submit succeeded against a 503")
	}
	missing := firmware
	missing.Path = image + ".missing"
	if _, err := (&HTTPSubmitter{URL: server.URL}).Submit(context.Background(), "DEV", missing); err == nil {
		t.Error("Submit succeeded with a missing image")
	}
}

func TestHTTPSubmitterEmptyBodyHasNoJobID(t *testing.T) {
	image := testutil.WriteFile(t, "fw.bin", "x")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	jobID, err := (&HTTPSubmitter{URL: server.URL}).Submit(context.Background(), "DEV", manifest.Firmware{ID: "fw", Version: "1.0", Path: image})
	if err != nil || jobID != "" {
		t.Errorf("Submit = %q, %v; want no job id", jobID, err)
	}
}

type recordingRunner struct {
	name   string
	args   []string
	output string
	err    error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name, r.args = name, args
	return []byte(r.output), r.err
}

func TestCommandSubmitterPlaceholders(t *testing.T) {
	runner := &recordingRunner{output: "uploading...\njob-7\n\n"}
	submitter := &CommandSubmitter{
		Command: []string{"fota-push", "--device={device}", "--id", "{firmware}", "--version", "{version}", "{path}"},
		Runner:  runner,
	}
	jobID, err := submitter.Submit(context.Background(), "DEV123", manifest.Firmware{ID: "fw-a", Version: "5.2.8", Path: "/images/a.bin"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-7" {
		t.Errorf("jobID = %q, want job-7", jobID)
	}
	wantArgs := []string{"--device=DEV123", "--id", "fw-a", "--version", "5.2.8", "/images/a.bin"}
	if runner.name != "fota-push" || !reflect.DeepEqual(runner.args, wantArgs) {
		t.Errorf("ran %s %q", runner.name, runner.args)
	}
}

func TestCommandSubmitterGeneratesJobID(t *testing.T) {
	submitter := &CommandSubmitter{Command: []string{"push"}, Runner: &recordingRunner{}}
	jobID, err := submitter.Submit(context.Background(), "DEV", manifest.Firmware{ID: "fw"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(jobID); err != nil {
		t.Errorf("generated job id %q is not a UUID: %v", jobID, err)
	}
}

func TestCommandSubmitterFailure(t *testing.T) {
	submitter := &CommandSubmitter{Command: []string{"push"}, Runner: &recordingRunner{err: errors.New("exit status 1")}}
	if _, err := submitter.Submit(context.Background(), "DEV", manifest.Firmware{}); err == nil {
		t.Error("Submit succeeded with a failing command")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Options{Kind: KindHTTP, URL: "http://fota.local/upload"}); err != nil {
		t.Errorf("New(http): %v", err)
	}
	if _, err := New(Options{Kind: KindCommand, Command: []string{"push"}}); err != nil {
		t.Errorf("New(command): %v", err)
	}
	for _, options := range []Options{{Kind: KindHTTP}, {Kind: KindCommand}, {Kind: "ftp"}} {
		if _, err := New(options); err == nil {
			t.Errorf("New(%+v) succeeded", options)
		}
	}
}

func TestNewAppliesTimeout(t *testing.T) {
	submitter, err := New(Options{Kind: KindHTTP, URL: "http://fota.local/upload", Timeout: 7 * time.Second})
	if err != nil {
		t.Fatalf("New(http): %v", err)
	}
	httpSubmitter, ok := submitter.(*HTTPSubmitter)
	if !ok || httpSubmitter.Client == nil || httpSubmitter.Client.Timeout != 7*time.Second {
		t.Errorf("http submitter = %+v, want client timeout 7s", submitter)
	}

	submitter, err = New(Options{Kind: KindCommand, Command: []string{"push"}, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("New(command): %v", err)
	}
	if commandSubmitter, ok := submitter.(*CommandSubmitter); !ok || commandSubmitter.Timeout != time.Minute {
		t.Errorf("command submitter = %+v, want timeout 1m", submitter)
	}
}
