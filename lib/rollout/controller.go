// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/audit"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/clock"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/delivery"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/fwversion"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/lineframe"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/manifest"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/telemetry"
)

// Defaults for the acknowledgment window.
const (
	DefaultTimeout      = 120 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// subscriptionCapacity buffers live lines between polls.
const subscriptionCapacity = 1024

var (
	// ErrNoFirmware is returned by New when the firmware list is empty.
	ErrNoFirmware = errors.New("rollout: firmware list is empty")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("rollout: controller already started")
)

// Subscriber opens a live line subscription.
// *lineframe.Broadcaster satisfies it.
type Subscriber interface {
	Subscribe(name string, capacity int) *lineframe.Subscription
}

// VersionReader looks up tracked versions. *telemetry.StateMap
// satisfies it.
type VersionReader interface {
	Lookup(state, key string) (string, bool)
}

// Config holds the parameters for a Controller. Firmware, Lines,
// States, Submitter and Recorder are required.
type Config struct {
	DeviceID  string
	Firmware  *manifest.List
	Lines     Subscriber
	States    VersionReader
	Submitter delivery.Submitter
	Recorder  audit.Recorder

	// Timeout is the acknowledgment window per step.
	Timeout time.Duration

	// PollInterval is how often the window deadline is sampled.
	PollInterval time.Duration

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Controller runs one rollout session.
type Controller struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	session Session
}

// New validates config and returns an Idle controller.
func New(config Config) (*Controller, error) {
	if config.Firmware == nil || config.Firmware.Len() == 0 {
		return nil, ErrNoFirmware
	}
	if config.DeviceID == "" {
		return nil, errors.New("rollout: device id is required")
	}
	if config.Lines == nil || config.States == nil || config.Submitter == nil || config.Recorder == nil {
		return nil, errors.New("rollout: lines, states, submitter, and recorder are required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		config: config,
		clock:  config.Clock,
		logger: logger,
		state:  Idle,
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the session so far.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Run executes the session and returns it in its terminal state. The
// error is non-nil exactly when the outcome is Failed.
func (c *Controller) Run(ctx context.Context) (Session, error) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return Session{}, ErrAlreadyStarted
	}
	c.state = Running
	c.session = Session{
		ID:       uuid.NewString(),
		DeviceID: c.config.DeviceID,
		Started:  c.clock.Now(),
		Outcome:  Running,
	}
	c.mu.Unlock()

	latest := c.config.Firmware.Latest()
	c.logger.Info("rollout started",
		"session", c.session.ID,
		"device", c.config.DeviceID,
		"entries", c.config.Firmware.Len(),
		"latest", latest.Version,
	)

	for index := range c.config.Firmware.Len() {
		c.mu.Lock()
		c.session.Index = index
		c.mu.Unlock()

		step, err := c.runStep(ctx, index)
		if err != nil {
			return c.finish(Failed, err)
		}
		if converged(step.AfterVersion, latest.Version) {
			c.logger.Info("device reached latest version", "version", step.AfterVersion)
			return c.finish(Converged, nil)
		}
	}
	return c.finish(Exhausted, nil)
}

// runStep performs one manifest entry and appends its audit record.
func (c *Controller) runStep(ctx context.Context, index int) (Step, error) {
	firmware := c.config.Firmware.At(index)
	logger := c.logger.With("step", index, "firmware", firmware.ID, "target", firmware.Version)

	if err := ctx.Err(); err != nil {
		return Step{}, err
	}

	subscription := c.config.Lines.Subscribe("rollout", subscriptionCapacity)
	defer subscription.Close()

	before, _ := c.config.States.Lookup(telemetry.StateLogin, c.config.DeviceID)

	if digest, err := manifest.Digest(firmware.Path); err == nil {
		logger.Info("submitting firmware", "path", firmware.Path, "blake3", digest)
	} else {
		logger.Info("submitting firmware", "path", firmware.Path)
		logger.Debug("image digest unavailable", "error", err)
	}
	jobID, err := c.config.Submitter.Submit(ctx, c.config.DeviceID, firmware)
	if err != nil {
		if ctx.Err() != nil {
			return Step{}, ctx.Err()
		}
		logger.Warn("delivery failed, continuing without job id", "error", err)
		jobID = ""
	} else if jobID == "" {
		logger.Info("no job id returned")
	} else {
		logger.Info("delivery submitted", "job_id", jobID)
	}

	after, err := c.awaitVersion(ctx, subscription, logger)
	if err != nil {
		return Step{}, err
	}

	step := Step{
		Index:         index,
		Firmware:      firmware,
		BeforeVersion: before,
		AfterVersion:  after,
		JobID:         jobID,
	}
	step.Outcome, step.Result = Classify(after, firmware.Version)

	record := audit.Record{
		Timestamp:       c.clock.Now(),
		DeviceID:        c.config.DeviceID,
		FirmwareID:      firmware.ID,
		FirmwareVersion: firmware.Version,
		FirmwarePath:    firmware.Path,
		BeforeVersion:   before,
		AfterVersion:    after,
		Result:          step.Result,
		JobID:           jobID,
		SessionID:       c.session.ID,
	}
	if err := c.config.Recorder.Append(ctx, record); err != nil {
		return Step{}, fmt.Errorf("rollout: recording step %d: %w", index, err)
	}
	c.config.Metrics.RolloutStep(string(step.Outcome))

	c.mu.Lock()
	c.session.Steps = append(c.session.Steps, step)
	c.mu.Unlock()

	logger.Info("step complete", "result", step.Result, "before", before, "after", after)
	return step, nil
}

// awaitVersion watches live lines until one carries a version token or
// the acknowledgment window closes. A closed window returns "".
func (c *Controller) awaitVersion(ctx context.Context, subscription *lineframe.Subscription, logger *slog.Logger) (string, error) {
	deadline := c.clock.Now().Add(c.config.Timeout)
	ticker := c.clock.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	lines := subscription.Lines()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			if !c.clock.Now().Before(deadline) {
				logger.Info("acknowledgment window closed", "timeout", c.config.Timeout)
				return "", nil
			}
		case framed, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			line := lineframe.StripTimestamp(framed)
			if version := fwversion.Find(line); version != "" {
				logger.Info("device reported version", "version", version, "line", line)
				return version, nil
			}
			logger.Debug("device line", "line", line)
		}
	}
}

func (c *Controller) finish(outcome State, err error) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = outcome
	c.session.Outcome = outcome
	c.session.Finished = c.clock.Now()
	if err != nil {
		c.session.Err = err.Error()
		c.logger.Error("rollout failed", "session", c.session.ID, "error", err)
	} else {
		c.logger.Info("rollout finished",
			"session", c.session.ID,
			"outcome", outcome.String(),
			"steps", len(c.session.Steps),
		)
	}
	return c.session.clone(), err
}

// converged reports whether after is at or above latest. Absent or
// malformed versions never converge.
func converged(after, latest string) bool {
	if after == "" {
		return false
	}
	less, err := fwversion.Less(after, latest)
	return err == nil && !less
}
