// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across solvault.
//
// It contains three small concerns: atomic file writes used by the
// conversation store, rune-safe string truncation used for log lines, and
// best-effort JSON recovery from free-form LLM output used by the router
// and the extractor.
package util
