// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lineframe

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultSubscriptionCapacity bounds each live subscription.
const DefaultSubscriptionCapacity = 1024

// Broadcaster is a Sink that copies every line to all current
// subscribers. It lets the rollout poller watch the live stream
// without competing with the tracker for items on the process queue.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	logger      *slog.Logger
}

// NewBroadcaster returns a broadcaster with no subscribers. logger may
// be nil.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{
		subscribers: make(map[*Subscription]struct{}),
		logger:      logger,
	}
}

// Name implements Sink.
func (b *Broadcaster) Name() string { return "broadcast" }

// Offer delivers line to every subscriber that has room. It returns
// false if any subscriber dropped the line.
func (b *Broadcaster) Offer(line string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := true
	for subscription := range b.subscribers {
		select {
		case subscription.lines <- line:
		default:
			subscription.dropped.Add(1)
			delivered = false
			b.logger.Warn("subscription full, dropping line",
				"subscriber", subscription.name,
				"dropped", subscription.dropped.Load(),
			)
		}
	}
	return delivered
}

// Subscribe registers a new subscriber buffering up to capacity lines.
// Lines framed before Subscribe returns are not delivered.
func (b *Broadcaster) Subscribe(name string, capacity int) *Subscription {
	if capacity <= 0 {
		capacity = DefaultSubscriptionCapacity
	}
	subscription := &Subscription{
		name:        name,
		lines:       make(chan string, capacity),
		broadcaster: b,
	}
	b.mu.Lock()
	b.subscribers[subscription] = struct{}{}
	b.mu.Unlock()
	return subscription
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) remove(subscription *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[subscription]; !ok {
		return false
	}
	delete(b.subscribers, subscription)
	return true
}

// Subscription is one live view of the framed line stream.
type Subscription struct {
	name        string
	lines       chan string
	dropped     atomic.Uint64
	broadcaster *Broadcaster
}

// Lines returns the channel of framed lines. It is closed by Close.
func (s *Subscription) Lines() <-chan string { return s.lines }

// Dropped returns how many lines this subscriber missed because its
// buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	// Removal takes the write lock, so no Offer can be sending on the
	// channel when it is closed.
	if s.broadcaster.remove(s) {
		close(s.lines)
	}
}
