// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON indicates no parseable JSON object could be recovered from the
// input text.
var ErrNoJSON = errors.New("no parseable JSON object in response")

// RecoverJSON extracts a JSON object from free-form LLM output and
// unmarshals it into v. LLM responses frequently wrap otherwise-valid JSON
// in prose or a fenced code block; recovery proceeds in order:
//
//  1. Trim surrounding whitespace.
//  2. If the text starts with a fenced block (tagged "json" or untagged),
//     strip the opening and closing fence.
//  3. Otherwise, if the text contains a '{', slice from the first '{' to
//     the last '}' inclusive.
//  4. Attempt a strict parse of the result.
//
// On failure it returns ErrNoJSON; it never panics.
func RecoverJSON(text string, v any) error {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return ErrNoJSON
	}

	if strings.HasPrefix(candidate, "```") {
		candidate = stripFence(candidate)
	} else if start := strings.Index(candidate, "{"); start >= 0 {
		end := strings.LastIndex(candidate, "}")
		if end <= start {
			return ErrNoJSON
		}
		candidate = candidate[start : end+1]
	} else {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return ErrNoJSON
	}
	return nil
}

// stripFence removes an opening ``` line (with optional language tag) and a
// trailing ``` fence. The fence content is returned as-is; if the closing
// fence is missing the remainder after the opening line is used.
func stripFence(s string) string {
	// Drop the opening fence line ("```" or "```json").
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		return strings.TrimPrefix(s, "```")
	}

	// Drop everything from the closing fence on.
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
