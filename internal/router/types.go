// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
)

// Error variables for router failures. Provider failures pass through as
// provider.Error values and are not re-wrapped here.
var (
	// ErrDisabled indicates solution routing is turned off in settings.
	ErrDisabled = errors.New("solution routing is disabled")

	// ErrEmptyPool indicates there are no saved solutions to match against.
	// Short-circuited before any network call.
	ErrEmptyPool = errors.New("no saved solutions to match against")

	// ErrEmptyQuery indicates the query is blank. Short-circuited before
	// any network call.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUnparsable indicates the model's response could not be recovered
	// as valid JSON, or referenced a solution ID not in the pool.
	ErrUnparsable = errors.New("unparsable router response")
)

// =============================================================================
// TYPES
// =============================================================================

// Solution is one saved solution as presented to the matching model.
type Solution struct {
	ID          string
	Title       string
	Topics      []string
	Difficulty  string
	Query       string
	Description string
}

// MatchResult is the outcome of one match attempt.
//
// Matched and Accepted are deliberately separate: a match below the
// confidence threshold is rejected for automatic use, but the candidate and
// its numeric confidence are still surfaced so a human can override.
type MatchResult struct {
	// SolutionID is the pool member the model selected. Empty when
	// Matched is false.
	SolutionID string

	// Confidence is the model's self-reported score in [0,1], clamped.
	Confidence float64

	// Reasoning is the model's explanation, for display.
	Reasoning string

	// Matched reports whether the model selected any candidate.
	Matched bool

	// Accepted reports whether the match clears the caller's threshold.
	Accepted bool
}
