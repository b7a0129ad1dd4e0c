// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"testing"
)

// =============================================================================
// EXTRACTION TESTS
// =============================================================================

func TestExtractCodeBlocks(t *testing.T) {
	text := "Intro text\n" +
		"```go\n" +
		"func main() {}\n" +
		"```\n" +
		"Middle prose\n" +
		"```\n" +
		"plain block\n" +
		"```\n" +
		"Outro"

	blocks := ExtractCodeBlocks(text)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}

	if blocks[0].Language != "go" {
		t.Errorf("blocks[0].Language = %q, want 'go'", blocks[0].Language)
	}
	if blocks[0].Code != "func main() {}" {
		t.Errorf("blocks[0].Code = %q", blocks[0].Code)
	}
	if blocks[0].Order != 0 {
		t.Errorf("blocks[0].Order = %d, want 0", blocks[0].Order)
	}

	if blocks[1].Language != "" {
		t.Errorf("blocks[1].Language = %q, want empty", blocks[1].Language)
	}
	if blocks[1].Code != "plain block" {
		t.Errorf("blocks[1].Code = %q", blocks[1].Code)
	}
	if blocks[1].Order != 1 {
		t.Errorf("blocks[1].Order = %d, want 1", blocks[1].Order)
	}
}

func TestExtractCodeBlocks_NoBlocks(t *testing.T) {
	blocks := ExtractCodeBlocks("just prose, no fences")
	if len(blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(blocks))
	}
}

func TestExtractCodeBlocks_UnterminatedTrailingFence(t *testing.T) {
	text := "```python\n" +
		"print('done')\n" +
		"```\n" +
		"```go\n" +
		"// never closed"

	blocks := ExtractCodeBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 (unterminated fence yields no block)", len(blocks))
	}
	if blocks[0].Language != "python" {
		t.Errorf("Language = %q, want 'python'", blocks[0].Language)
	}
}

func TestExtractCodeBlocks_OnlyUnterminatedFence(t *testing.T) {
	blocks := ExtractCodeBlocks("```rust\nlet x = 1;")
	if len(blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(blocks))
	}
}

func TestExtractCodeBlocks_IndentedFence(t *testing.T) {
	text := "  ```sh\n" +
		"echo hi\n" +
		"  ```"

	blocks := ExtractCodeBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if blocks[0].Language != "sh" {
		t.Errorf("Language = %q, want 'sh'", blocks[0].Language)
	}
	if blocks[0].Code != "echo hi" {
		t.Errorf("Code = %q", blocks[0].Code)
	}
}

func TestExtractCodeBlocks_PreservesBody(t *testing.T) {
	text := "```go\n" +
		"\n" +
		"\tindented := true\n" +
		"\n" +
		"```"

	blocks := ExtractCodeBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if blocks[0].Code != "\n\tindented := true\n" {
		t.Errorf("Code = %q, body should be verbatim", blocks[0].Code)
	}
}

func TestExtractCodeBlocks_Deterministic(t *testing.T) {
	text := "```a\nx\n```\n```b\ny\n```"

	first := ExtractCodeBlocks(text)
	second := ExtractCodeBlocks(text)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("block %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// =============================================================================
// METADATA TESTS
// =============================================================================

func TestExtractMetadata(t *testing.T) {
	text := "```js\na\n```\n```py\nb\n```\n```javascript\nc\n```"

	meta := ExtractMetadata(text)
	if !meta.HasCodeBlocks {
		t.Error("HasCodeBlocks = false, want true")
	}
	if meta.Count != 3 {
		t.Errorf("Count = %d, want 3", meta.Count)
	}
	// js and javascript normalize to the same language
	if len(meta.Languages) != 2 {
		t.Fatalf("Languages = %v, want 2 entries", meta.Languages)
	}
	if meta.Languages[0] != "javascript" || meta.Languages[1] != "python" {
		t.Errorf("Languages = %v", meta.Languages)
	}
	if meta.ContentLength != len(text) {
		t.Errorf("ContentLength = %d, want %d", meta.ContentLength, len(text))
	}
}

func TestExtractMetadata_DetectsUntaggedLanguage(t *testing.T) {
	text := "```\n#!/bin/bash\necho hello\n```\n```\nnothing recognizable\n```"

	meta := ExtractMetadata(text)
	if meta.Count != 2 {
		t.Fatalf("Count = %d, want 2", meta.Count)
	}
	// The shebang block is detected lexically; the inconclusive block
	// contributes no entry.
	if len(meta.Languages) != 1 || meta.Languages[0] != "bash" {
		t.Errorf("Languages = %v, want [bash]", meta.Languages)
	}
}

func TestExtractMetadata_Empty(t *testing.T) {
	meta := ExtractMetadata("no code here")
	if meta.HasCodeBlocks {
		t.Error("HasCodeBlocks = true, want false")
	}
	if meta.Count != 0 {
		t.Errorf("Count = %d, want 0", meta.Count)
	}
	if len(meta.Languages) != 0 {
		t.Errorf("Languages = %v, want empty", meta.Languages)
	}
}

// =============================================================================
// LANGUAGE NORMALIZATION TESTS
// =============================================================================

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JS", "javascript"},
		{"ts", "typescript"},
		{"py", "python"},
		{"golang", "go"},
		{"Shell", "bash"},
		{"GO", "go"},
		{"rust", "rust"},
		{"  yml ", "yaml"},
		{"", ""},
		{"brainfuck", "brainfuck"},
	}

	for _, tc := range tests {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	code := "#!/bin/bash\necho hello\nexit 0"
	if got := DetectLanguage(code); got != "bash" {
		t.Errorf("DetectLanguage = %q, want 'bash'", got)
	}
}

func TestBlockLanguage(t *testing.T) {
	tagged := CodeBlock{Code: "print('x')", Language: "py"}
	if got := BlockLanguage(tagged); got != "python" {
		t.Errorf("BlockLanguage(tagged) = %q, want 'python'", got)
	}

	untagged := CodeBlock{Code: "#!/bin/bash\necho hello"}
	if got := BlockLanguage(untagged); got != "bash" {
		t.Errorf("BlockLanguage(untagged) = %q, want 'bash'", got)
	}
}
