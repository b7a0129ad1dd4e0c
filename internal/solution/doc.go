// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package solution builds reusable solution candidates from conversation
// exchanges.
//
// Package fills a Candidate's deterministic fields from the raw exchange
// (code blocks, languages); Extractor fills the descriptive fields (title,
// topics, difficulty, description) with one LLM call. The candidate stays
// in memory until a human explicitly commits it to the vault.
package solution
