// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/lineframe"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/logsink"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/serialport"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/telemetry"
)

const (
	// DefaultQueueCapacity sizes the log and process queues.
	DefaultQueueCapacity = 20000

	// DefaultShutdownGrace bounds Stop.
	DefaultShutdownGrace = 3 * time.Second

	// drainPoll is how often Stop checks whether the queues are empty.
	drainPoll = 10 * time.Millisecond
)

// ErrGraceExceeded is returned by Stop when a loop was still running
// at the end of the grace period.
var ErrGraceExceeded = errors.New("monitor: shutdown grace period exceeded")

// Config holds the parameters for Start. The zero value runs a
// pipeline with no console, no log file, and a fresh state map.
type Config struct {
	QueueCapacity        int
	SubscriptionCapacity int
	MaxLineBytes         int

	// Console receives rendered lines; nil disables console output.
	Console io.Writer
	Color   bool

	// LogPath, MaxBytes and Compression configure the log file.
	LogPath     string
	MaxBytes    int64
	Compression logsink.Compression

	// States receives tracker commits. Nil allocates a new map.
	States *telemetry.StateMap

	// OnEvent observes action-rule events from the tracker loop.
	OnEvent func(telemetry.Event)

	ShutdownGrace time.Duration
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Monitor is a running pipeline. It satisfies rollout.Subscriber,
// rollout.VersionReader via States, and console.Sender.
type Monitor struct {
	transport   io.ReadWriteCloser
	framer      *lineframe.Framer
	logQueue    *lineframe.Queue
	procQueue   *lineframe.Queue
	broadcaster *lineframe.Broadcaster
	states      *telemetry.StateMap

	subscriptionCapacity int
	grace                time.Duration
	clock                clock.Clock
	logger               *slog.Logger

	cancel      context.CancelFunc
	readerDone  chan struct{}
	writerDone  chan struct{}
	trackerDone chan struct{}

	readerErr  error
	writerErr  error
	trackerErr error

	sendMu   sync.Mutex
	stopOnce sync.Once
	stopErr  error
}

// Start spawns the reader, writer and tracker loops around transport.
// The loops run until Stop is called or ctx is cancelled; cancelling
// ctx skips the drain and is equivalent to a forced stop.
func Start(ctx context.Context, config Config, transport io.ReadWriteCloser) (*Monitor, error) {
	if transport == nil {
		return nil, errors.New("monitor: no transport")
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultQueueCapacity
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.States == nil {
		config.States = telemetry.NewStateMap()
	}

	m := &Monitor{
		transport:            transport,
		logQueue:             lineframe.NewQueue("log", config.QueueCapacity),
		procQueue:            lineframe.NewQueue("process", config.QueueCapacity),
		broadcaster:          lineframe.NewBroadcaster(config.Logger),
		states:               config.States,
		subscriptionCapacity: config.SubscriptionCapacity,
		grace:                config.ShutdownGrace,
		clock:                config.Clock,
		logger:               config.Logger,
		readerDone:           make(chan struct{}),
		writerDone:           make(chan struct{}),
		trackerDone:          make(chan struct{}),
	}
	m.framer = lineframe.NewFramer(lineframe.FramerConfig{
		Sinks:        []lineframe.Sink{m.logQueue, m.procQueue, m.broadcaster},
		Clock:        config.Clock,
		MaxLineBytes: config.MaxLineBytes,
		Logger:       config.Logger,
		Metrics:      config.Metrics,
	})

	writer := logsink.New(logsink.Config{
		Source:      m.logQueue,
		Console:     config.Console,
		Color:       config.Color,
		Path:        config.LogPath,
		MaxBytes:    config.MaxBytes,
		Compression: config.Compression,
		Clock:       config.Clock,
		Logger:      config.Logger.With("loop", "writer"),
		Metrics:     config.Metrics,
	})
	tracker := telemetry.NewTracker(telemetry.TrackerConfig{
		Source:  m.procQueue,
		States:  config.States,
		OnEvent: config.OnEvent,
		Logger:  config.Logger.With("loop", "tracker"),
		Metrics: config.Metrics,
	})

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go func() {
		defer close(m.writerDone)
		m.writerErr = writer.Run(loopCtx)
		if m.writerErr != nil {
			m.logger.Error("log writer stopped", "error", m.writerErr)
		}
	}()
	go func() {
		defer close(m.trackerDone)
		m.trackerErr = tracker.Run(loopCtx)
		if m.trackerErr != nil {
			m.logger.Error("tracker stopped", "error", m.trackerErr)
		}
	}()
	go func() {
		defer close(m.readerDone)
		m.readerErr = serialport.Pump(transport, m.framer, m.logger.With("loop", "reader"))
		if m.readerErr != nil {
			m.logger.Error("transport reader stopped", "error", m.readerErr)
		}
	}()

	m.logger.Info("monitor started",
		"queue_capacity", config.QueueCapacity,
		"log_file", config.LogPath,
	)
	return m, nil
}

// States returns the live version map.
func (m *Monitor) States() *telemetry.StateMap { return m.states }

// Subscribe opens a live view of framed lines. A non-positive
// capacity uses the configured subscription capacity.
func (m *Monitor) Subscribe(name string, capacity int) *lineframe.Subscription {
	if capacity <= 0 {
		capacity = m.subscriptionCapacity
	}
	return m.broadcaster.Subscribe(name, capacity)
}

// Send writes one operator command to the device, terminated by CRLF.
func (m *Monitor) Send(command string) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	if _, err := io.WriteString(m.transport, command+"\r\n"); err != nil {
		return fmt.Errorf("monitor: sending command: %w", err)
	}
	return nil
}

// Detached is closed when the transport stops delivering data, either
// because the device went away or because Stop closed it.
func (m *Monitor) Detached() <-chan struct{} { return m.readerDone }

// Dropped reports per-queue drop counts.
func (m *Monitor) Dropped() map[string]uint64 {
	return map[string]uint64{
		m.logQueue.Name():  m.logQueue.Dropped(),
		m.procQueue.Name(): m.procQueue.Dropped(),
	}
}

// Stop shuts the pipeline down: close the transport, wait for the
// queues to drain, stop the loops. Everything after closing the
// transport is bounded by the grace period. It returns the first loop
// failures observed, or ErrGraceExceeded. Safe to call repeatedly.
func (m *Monitor) Stop() error {
	m.stopOnce.Do(func() { m.stopErr = m.stop() })
	return m.stopErr
}

func (m *Monitor) stop() error {
	defer m.cancel()

	if err := m.transport.Close(); err != nil {
		m.logger.Warn("closing transport", "error", err)
	}
	deadline := m.clock.After(m.grace)

	select {
	case <-m.readerDone:
	case <-deadline:
		m.logger.Warn("transport reader did not detach within grace period")
		return ErrGraceExceeded
	}

	if !m.drain(deadline) {
		m.logger.Warn("queues not drained within grace period, forcing stop",
			"log_pending", m.logQueue.Len(),
			"process_pending", m.procQueue.Len(),
		)
		m.cancel()
		return ErrGraceExceeded
	}

	m.cancel()
	for _, done := range []chan struct{}{m.writerDone, m.trackerDone} {
		select {
		case <-done:
		case <-deadline:
			m.logger.Warn("loop did not stop within grace period, abandoning")
			return ErrGraceExceeded
		}
	}

	dropped := m.Dropped()
	m.logger.Info("monitor stopped",
		"log_dropped", dropped[m.logQueue.Name()],
		"process_dropped", dropped[m.procQueue.Name()],
	)
	return errors.Join(m.readerErr, m.writerErr, m.trackerErr)
}

// drain waits until both queues are empty or deadline fires. A loop
// that has already exited will never empty its queue, so it counts
// as drained.
func (m *Monitor) drain(deadline <-chan time.Time) bool {
	ticker := m.clock.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		if m.drained(m.logQueue, m.writerDone) && m.drained(m.procQueue, m.trackerDone) {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return false
		}
	}
}

func (m *Monitor) drained(queue *lineframe.Queue, done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return queue.Len() == 0
	}
}
