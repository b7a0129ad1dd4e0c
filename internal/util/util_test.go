// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := AtomicWriteFile(path, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %q, want %q", data, `{"a":1}`)
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("first write error: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("second write error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want 'second'", data)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.txt")

	if err := AtomicWriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should exist: %v", err)
	}
}

// =============================================================================
// TRUNCATION TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"tiny max no ellipsis", "hello", 2, "he"},
		{"multibyte safe", "héllo wörld", 8, "héllo..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateRunes(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}

// =============================================================================
// JSON RECOVERY TESTS
// =============================================================================

func TestRecoverJSON_FencedBlock(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}

	if err := RecoverJSON("```json\n{\"a\":1}\n```", &v); err != nil {
		t.Fatalf("RecoverJSON() error: %v", err)
	}
	if v.A != 1 {
		t.Errorf("a = %d, want 1", v.A)
	}
}

func TestRecoverJSON_UntaggedFence(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}

	if err := RecoverJSON("```\n{\"a\":2}\n```", &v); err != nil {
		t.Fatalf("RecoverJSON() error: %v", err)
	}
	if v.A != 2 {
		t.Errorf("a = %d, want 2", v.A)
	}
}

func TestRecoverJSON_ProseWrapped(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}

	if err := RecoverJSON(`Sure! {"a":1} ok`, &v); err != nil {
		t.Fatalf("RecoverJSON() error: %v", err)
	}
	if v.A != 1 {
		t.Errorf("a = %d, want 1", v.A)
	}
}

func TestRecoverJSON_NoBraces(t *testing.T) {
	var v map[string]any

	err := RecoverJSON("no braces here", &v)
	if err != ErrNoJSON {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestRecoverJSON_Empty(t *testing.T) {
	var v map[string]any

	if err := RecoverJSON("   ", &v); err != ErrNoJSON {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestRecoverJSON_MalformedInsideBraces(t *testing.T) {
	var v map[string]any

	if err := RecoverJSON(`text { not json } text`, &v); err != ErrNoJSON {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestRecoverJSON_NestedBraces(t *testing.T) {
	var v struct {
		Outer struct {
			Inner int `json:"inner"`
		} `json:"outer"`
	}

	if err := RecoverJSON(`Here you go: {"outer":{"inner":3}} hope that helps`, &v); err != nil {
		t.Fatalf("RecoverJSON() error: %v", err)
	}
	if v.Outer.Inner != 3 {
		t.Errorf("inner = %d, want 3", v.Outer.Inner)
	}
}
