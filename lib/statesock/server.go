// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statesock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/codec"
)

// Action names.
const (
	ActionSnapshot = "snapshot"
	ActionLookup   = "lookup"
)

const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 64 * 1024
)

// States is the map the server reads. *telemetry.StateMap satisfies it.
type States interface {
	Lookup(state, key string) (string, bool)
	Snapshot() map[string]map[string]string
}

// Response is the envelope of every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// LookupRequest selects one entry.
type LookupRequest struct {
	Action string `json:"action"`
	State  string `json:"state"`
	Key    string `json:"key"`
}

// LookupResult answers a lookup.
type LookupResult struct {
	Version string `json:"version,omitempty"`
	Found   bool   `json:"found"`
}

// Server answers state queries on a Unix socket.
type Server struct {
	path   string
	states States
	logger *slog.Logger
	active sync.WaitGroup
}

// NewServer returns a server for states that will listen on path.
func NewServer(path string, states States, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{path: path, states: states, logger: logger}
}

// Serve listens until ctx is cancelled, then waits for in-flight
// requests. A stale socket file at path is replaced; the socket file
// is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("statesock: removing stale socket %s: %w", s.path, err)
	}
	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("statesock: listening on %s: %w", s.path, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.path)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("state socket listening", "path", s.path)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handle(conn)
		}()
	}
	s.active.Wait()
	return nil
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if !errors.Is(err, io.EOF) {
			s.reply(conn, nil, fmt.Errorf("invalid request: %w", err))
		}
		return
	}
	var request LookupRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		s.reply(conn, nil, fmt.Errorf("invalid request: %w", err))
		return
	}

	switch request.Action {
	case ActionSnapshot:
		s.reply(conn, s.states.Snapshot(), nil)
	case ActionLookup:
		if request.State == "" || request.Key == "" {
			s.reply(conn, nil, errors.New("lookup requires state and key"))
			return
		}
		version, found := s.states.Lookup(request.State, request.Key)
		s.reply(conn, LookupResult{Version: version, Found: found}, nil)
	case "":
		s.reply(conn, nil, errors.New("missing required field: action"))
	default:
		s.reply(conn, nil, fmt.Errorf("unknown action %q", request.Action))
	}
}

func (s *Server) reply(conn net.Conn, result any, failure error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	response := Response{OK: failure == nil}
	if failure != nil {
		response.Error = failure.Error()
	} else if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			response = Response{Error: fmt.Sprintf("internal: marshaling response: %v", err)}
		} else {
			response.Data = data
		}
	}
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
