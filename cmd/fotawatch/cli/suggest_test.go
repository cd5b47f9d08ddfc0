// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"rollout", "rollout", 0},
		{"rolout", "rollout", 1},
		{"mointor", "monitor", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := levenshtein(tt.b, tt.a); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestSuggestCommandThreshold(t *testing.T) {
	commands := []*Command{{Name: "monitor"}, {Name: "manifest"}, {Name: "state"}}
	if got := suggestCommand("stat", commands); got != "state" {
		t.Errorf("suggestCommand(stat) = %q, want state", got)
	}
	if got := suggestCommand("firmware", commands); got != "" {
		t.Errorf("suggestCommand(firmware) = %q, want none", got)
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("rollout", pflag.ContinueOnError)
	flagSet.String("device-id", "", "")
	flagSet.Duration("timeout", 0, "")

	if got := suggestFlag([]string{"--timeout", "5s", "--devce-id=X"}, flagSet); got != "--device-id" {
		t.Errorf("suggestFlag = %q, want --device-id", got)
	}
	if got := suggestFlag([]string{"--completely-unrelated"}, flagSet); got != "" {
		t.Errorf("suggestFlag = %q, want none", got)
	}
}
