// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight
// scrapes after its context is cancelled.
const DefaultShutdownTimeout = 5 * time.Second

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:9464".
	// Required.
	Address string

	// Metrics supplies /metrics. A nil Metrics serves 404 there.
	Metrics *Metrics

	// Extra handlers mounted beside /metrics, keyed by pattern.
	Extra map[string]http.Handler

	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server exposes the registry over HTTP. It also answers /healthz so
// bench supervisors can tell a stalled monitor from a dead one.
type Server struct {
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger

	ready chan struct{}
	addr  net.Addr
}

// NewServer creates a server. Call Serve to bind and start it.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		return nil, errors.New("metrics: listen address is required")
	}
	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", config.Metrics.Handler())
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		fmt.Fprintln(writer, "ok")
	})
	for pattern, handler := range config.Extra {
		mux.Handle(pattern, handler)
	}

	return &Server{
		address:         config.Address,
		handler:         mux,
		shutdownTimeout: timeout,
		logger:          logger,
		ready:           make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr is the resolved listen address. Valid after Ready is closed.
func (s *Server) Addr() net.Addr { return s.addr }

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("metrics listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	s.logger.Info("metrics stopped")
	return nil
}
