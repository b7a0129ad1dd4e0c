// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package solution

import (
	"github.com/jeranaias/solvault/internal/markdown"
)

// =============================================================================
// DIFFICULTY
// =============================================================================

// Difficulty grades a solution.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// =============================================================================
// CANDIDATE
// =============================================================================

// Candidate is an in-memory, not-yet-persisted solution: a question, its
// answer, and extracted code blocks, awaiting either discard or an explicit
// commit. The Packager fills the deterministic fields; the Extractor fills
// the LLM-derived ones. A candidate is never partially persisted.
type Candidate struct {
	// Deterministic fields, filled by Package.
	Query      string
	Answer     string
	CodeBlocks []markdown.CodeBlock
	Languages  []string

	// LLM-derived fields, filled by Extractor.Extract. Zero values mean
	// absent, not empty.
	Title       string
	Topics      []string
	Difficulty  Difficulty
	Description string
}

// HasCode reports whether the answer contained any fenced code blocks.
func (c *Candidate) HasCode() bool {
	return len(c.CodeBlocks) > 0
}
