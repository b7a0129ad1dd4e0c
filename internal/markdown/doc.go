// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown extracts fenced code blocks and block statistics from
// markdown text.
//
// Extraction is deterministic and stateless: the same input always yields
// the same ordered block sequence, so block order numbers can be used to
// correlate downstream results back to the source document.
package markdown
