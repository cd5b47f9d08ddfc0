// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/lineframe"
	"github.com/suraj-bhalerao/4G-FOTA-ACTIVITY/lib/metrics"
)

// Source yields lines one at a time. *lineframe.Queue satisfies it.
type Source interface {
	Take(ctx context.Context) (string, error)
}

// TrackerConfig holds the parameters for a Tracker.
type TrackerConfig struct {
	Source Source
	States *StateMap

	// Rules defaults to DefaultRules.
	Rules []Rule

	// Actions defaults to DefaultActions.
	Actions []ActionRule

	// OnEvent, if set, is called synchronously from the tracker loop
	// for every action event.
	OnEvent func(Event)

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Tracker applies parse rules to lines and commits the results.
type Tracker struct {
	source  Source
	states  *StateMap
	rules   []Rule
	actions []ActionRule
	onEvent func(Event)
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewTracker creates a Tracker. A nil States gets a fresh map.
func NewTracker(config TrackerConfig) *Tracker {
	tracker := &Tracker{
		source:  config.Source,
		states:  config.States,
		rules:   config.Rules,
		actions: config.Actions,
		onEvent: config.OnEvent,
		logger:  config.Logger,
		metrics: config.Metrics,
	}
	if tracker.states == nil {
		tracker.states = NewStateMap()
	}
	if tracker.rules == nil {
		tracker.rules = DefaultRules()
	}
	if tracker.actions == nil {
		tracker.actions = DefaultActions()
	}
	if tracker.logger == nil {
		tracker.logger = slog.New(slog.DiscardHandler)
	}
	return tracker
}

// States returns the map the tracker writes to.
func (t *Tracker) States() *StateMap { return t.states }

// Run consumes the source until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if t.source == nil {
		return errors.New("telemetry: no source configured")
	}
	for {
		line, err := t.source.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("telemetry: reading source: %w", err)
		}
		t.Handle(line)
	}
}

// Handle processes one framed line. The leading framing timestamp, if
// present, is removed first.
func (t *Tracker) Handle(framed string) {
	line := lineframe.StripTimestamp(framed)
	if line == "" {
		return
	}

	update, matched := Classify(t.rules, line)
	if matched {
		t.states.Apply(update)
		t.metrics.StateCommitted(update.Rule)
		t.logger.Debug("map update",
			"state", update.State,
			"key", update.Key,
			"version", update.Version,
			"rule", update.Rule,
		)
		if update.Rule != RuleBare {
			return
		}
	}

	event, fired := matchAction(t.actions, line)
	if !fired {
		return
	}
	switch event.Kind {
	case EventIgnitionOn:
		t.logger.Warn("ignition on", "line", line)
	default:
		t.logger.Info("device event", "kind", event.Kind, "line", line)
	}
	if t.onEvent != nil {
		t.onEvent(event)
	}
}
