// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineframe

import (
	"context"
	"fmt"
	"sync/atomic"
)

// DefaultQueueCapacity is the per-queue line capacity used when the
// configuration does not set one.
const DefaultQueueCapacity = 20000

// Sink receives framed lines from the Framer. Offer must not block; it
// returns false when the line was dropped.
type Sink interface {
	Name() string
	Offer(line string) bool
}

// Queue is a bounded FIFO of lines with a single logical consumer.
// Offer never blocks: when the queue is full the new line is dropped
// and counted.
type Queue struct {
	name    string
	items   chan string
	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most capacity lines. Panics if
// capacity is not positive.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf("lineframe: queue %q capacity must be positive, got %d", name, capacity))
	}
	return &Queue{name: name, items: make(chan string, capacity)}
}

// Name identifies the queue in drop warnings and metrics.
func (q *Queue) Name() string { return q.name }

// Offer enqueues line if there is room.
func (q *Queue) Offer(line string) bool {
	select {
	case q.items <- line:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Take blocks until a line is available or ctx is done.
func (q *Queue) Take(ctx context.Context) (string, error) {
	select {
	case line := <-q.items:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len returns the number of queued lines.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return cap(q.items) }

// Dropped returns the number of lines dropped since creation.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
