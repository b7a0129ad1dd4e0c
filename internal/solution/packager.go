// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package solution

import (
	"github.com/jeranaias/solvault/internal/markdown"
)

// Package turns a raw (question, answer) exchange into a Candidate with its
// deterministic fields filled: code blocks in source order and the unique
// normalized languages they declare, with lexical detection filling in for
// untagged blocks. No LLM involved.
func Package(question, answer string) Candidate {
	blocks := markdown.ExtractCodeBlocks(answer)

	var languages []string
	seen := make(map[string]bool)
	for _, b := range blocks {
		lang := markdown.BlockLanguage(b)
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		languages = append(languages, lang)
	}

	return Candidate{
		Query:      question,
		Answer:     answer,
		CodeBlocks: blocks,
		Languages:  languages,
	}
}
