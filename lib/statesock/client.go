// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statesock

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/codec"
)

const (
	dialTimeout     = 5 * time.Second
	responseTimeout = 15 * time.Second
	maxResponseSize = 16 * 1024 * 1024
)

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("state socket %s: %s", e.Action, e.Message)
}

// Client queries a Server.
type Client struct {
	path string
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// Snapshot fetches the whole map.
func (c *Client) Snapshot(ctx context.Context) (map[string]map[string]string, error) {
	var states map[string]map[string]string
	if err := c.call(ctx, LookupRequest{Action: ActionSnapshot}, &states); err != nil {
		return nil, err
	}
	if states == nil {
		states = map[string]map[string]string{}
	}
	return states, nil
}

// Lookup fetches one entry.
func (c *Client) Lookup(ctx context.Context, state, key string) (string, bool, error) {
	var result LookupResult
	if err := c.call(ctx, LookupRequest{Action: ActionLookup, State: state, Key: key}, &result); err != nil {
		return "", false, err
	}
	return result.Version, result.Found, nil
}

func (c *Client) call(ctx context.Context, request LookupRequest, result any) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.path, err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	deadline := time.Now().Add(responseTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if !response.OK {
		return &RemoteError{Action: request.Action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding %s response: %w", request.Action, err)
		}
	}
	return nil
}
