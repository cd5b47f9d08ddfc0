// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the fotawatch binary.
//
// A [Command] is a named node with optional [Command.Subcommands], a
// lazily built [pflag.FlagSet], and a Run function. [Command.Execute]
// routes args down the tree, parses flags, and renders help. Unknown
// commands and flags get a "did you mean" suggestion when something is
// within edit distance 3.
//
// Errors returned from Run can carry a category ([Validation],
// [NotFound], [Transient], [Internal]) which main maps to an exit
// code, and an optional hint printed after the message.
package cli
