// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// =============================================================================
// CODE BLOCK EXTRACTION
// =============================================================================

// CodeBlock is one fenced code block extracted from markdown text.
type CodeBlock struct {
	// Code is the block body, verbatim, without the fence lines.
	Code string

	// Language is the fence's info string, empty when the fence is untagged.
	Language string

	// Order is the zero-based position of the block in the source document.
	// Stable across re-parses of the same input, so callers can correlate
	// derived results back to specific blocks.
	Order int
}

// ExtractCodeBlocks scans markdown text and returns its fenced code blocks
// in source order. It is a pure function of its input.
//
// A line whose trimmed form starts with ``` opens a block; the remainder of
// the fence line is the language tag. Lines are accumulated verbatim until a
// bare closing fence. An unterminated trailing fence produces no block.
func ExtractCodeBlocks(text string) []CodeBlock {
	lines := strings.Split(text, "\n")

	var blocks []CodeBlock
	var inBlock bool
	var codeLines []string
	var language string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				blocks = append(blocks, CodeBlock{
					Code:     strings.Join(codeLines, "\n"),
					Language: language,
					Order:    len(blocks),
				})
				codeLines = nil
				language = ""
				inBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				inBlock = true
			}
			continue
		}
		if inBlock {
			codeLines = append(codeLines, line)
		}
	}

	// An unclosed trailing fence yields no partial block.
	return blocks
}

// =============================================================================
// METADATA
// =============================================================================

// Metadata summarizes the code blocks of a markdown document.
type Metadata struct {
	HasCodeBlocks bool
	Count         int
	Languages     []string
	ContentLength int
}

// ExtractMetadata derives block statistics from markdown text. Languages are
// unique, normalized, in first-appearance order; untagged blocks go through
// lexical detection and contribute no entry only when that is inconclusive.
func ExtractMetadata(text string) Metadata {
	blocks := ExtractCodeBlocks(text)

	var languages []string
	seen := make(map[string]bool)
	for _, b := range blocks {
		lang := BlockLanguage(b)
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		languages = append(languages, lang)
	}

	return Metadata{
		HasCodeBlocks: len(blocks) > 0,
		Count:         len(blocks),
		Languages:     languages,
		ContentLength: len(text),
	}
}

// =============================================================================
// LANGUAGE NORMALIZATION
// =============================================================================

// aliases maps common fence tags to canonical language names.
var aliases = map[string]string{
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"rb":     "ruby",
	"sh":     "bash",
	"shell":  "bash",
	"zsh":    "bash",
	"yml":    "yaml",
	"golang": "go",
	"c++":    "cpp",
	"cs":     "csharp",
	"rs":     "rust",
	"kt":     "kotlin",
	"md":     "markdown",
}

// NormalizeLanguage lowercases a fence tag and resolves common aliases to a
// canonical name. Unknown tags pass through lowercased.
func NormalizeLanguage(tag string) string {
	lang := strings.ToLower(strings.TrimSpace(tag))
	if canonical, ok := aliases[lang]; ok {
		return canonical
	}
	return lang
}

// DetectLanguage attempts lexical language detection on untagged code.
// Returns the normalized language name, or "" when analysis is inconclusive.
func DetectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer == nil {
		return ""
	}
	return NormalizeLanguage(lexer.Config().Name)
}

// BlockLanguage resolves a block's language: the normalized fence tag when
// present, otherwise lexical detection on the block body.
func BlockLanguage(b CodeBlock) string {
	if lang := NormalizeLanguage(b.Language); lang != "" {
		return lang
	}
	return DetectLanguage(b.Code)
}
