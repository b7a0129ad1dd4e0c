// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jeranaias/solvault/internal/provider"
)

// scriptedProvider returns a canned Complete response and records prompts.
type scriptedProvider struct {
	response string
	err      error
	calls    int
	lastMsg  string
}

func (s *scriptedProvider) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	s.calls++
	if len(messages) > 0 {
		s.lastMsg = messages[0].Content.Text
	}
	return s.response, s.err
}

func (s *scriptedProvider) StreamComplete(ctx context.Context, messages []provider.Message, onChunk provider.ChunkFunc, opts provider.Options) error {
	return nil
}

func (s *scriptedProvider) CheckLiveness(ctx context.Context, opts provider.Options) (string, error) {
	return "scripted", nil
}

func testPool() []Solution {
	return []Solution{
		{ID: "sol-1", Title: "Reverse-sorting collections", Topics: []string{"sorting"}, Difficulty: "beginner", Query: "how to sort descending"},
		{ID: "sol-2", Title: "Binary search trees", Topics: []string{"trees"}},
	}
}

// =============================================================================
// MATCHING TESTS
// =============================================================================

func TestFindMatch_Accepted(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":"sol-1","confidence":0.88,"reasoning":"same sorting intent"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "how do I sort a list in reverse", testPool(), 0.75)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}

	if !result.Matched || !result.Accepted {
		t.Errorf("Matched = %v, Accepted = %v, want both true", result.Matched, result.Accepted)
	}
	if result.SolutionID != "sol-1" {
		t.Errorf("SolutionID = %q, want 'sol-1'", result.SolutionID)
	}
	if result.Confidence != 0.88 {
		t.Errorf("Confidence = %v, want 0.88", result.Confidence)
	}
}

func TestFindMatch_BelowThreshold(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":"sol-1","confidence":0.6,"reasoning":"weak overlap"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "sort stuff", testPool(), 0.75)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}

	// Rejected for automatic use, but the raw confidence survives for
	// manual override.
	if !result.Matched {
		t.Error("Matched = false, want true")
	}
	if result.Accepted {
		t.Error("Accepted = true, want false below threshold")
	}
	if result.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", result.Confidence)
	}
	if result.SolutionID != "sol-1" {
		t.Errorf("SolutionID = %q, want 'sol-1'", result.SolutionID)
	}
}

func TestFindMatch_NullMeansNoMatch(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":null,"confidence":0.2,"reasoning":"nothing close"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "unrelated question", testPool(), 0.75)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}
	if result.Matched || result.Accepted {
		t.Errorf("result = %+v, want no match", result)
	}
	if result.Confidence != 0.2 {
		t.Errorf("Confidence = %v, want 0.2", result.Confidence)
	}
}

func TestFindMatch_NumericID(t *testing.T) {
	pool := []Solution{{ID: "42", Title: "Answer to everything"}}
	p := &scriptedProvider{response: `{"best_match_id":42,"confidence":0.9,"reasoning":"exact"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "what is the answer", pool, 0.5)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}
	if result.SolutionID != "42" || !result.Accepted {
		t.Errorf("result = %+v", result)
	}
}

func TestFindMatch_HallucinatedID(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":"sol-999","confidence":0.95,"reasoning":"made up"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	_, err := r.FindMatch(context.Background(), "sort", testPool(), 0.5)
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("err = %v, want ErrUnparsable for an ID not in the pool", err)
	}
}

func TestFindMatch_ProseWrappedJSON(t *testing.T) {
	p := &scriptedProvider{response: "Sure! Here's my analysis:\n```json\n{\"best_match_id\":\"sol-2\",\"confidence\":0.8,\"reasoning\":\"tree topic\"}\n```"}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "bst lookup", testPool(), 0.7)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}
	if result.SolutionID != "sol-2" || !result.Accepted {
		t.Errorf("result = %+v", result)
	}
}

func TestFindMatch_UnparsableResponse(t *testing.T) {
	p := &scriptedProvider{response: "I cannot answer in JSON, sorry."}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	_, err := r.FindMatch(context.Background(), "sort", testPool(), 0.5)
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("err = %v, want ErrUnparsable", err)
	}
}

func TestFindMatch_ConfidenceClamped(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":"sol-1","confidence":1.7,"reasoning":"overconfident"}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	result, err := r.FindMatch(context.Background(), "sort", testPool(), 0.5)
	if err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want clamped to 1.0", result.Confidence)
	}
}

func TestFindMatch_ProviderFailure(t *testing.T) {
	providerErr := &provider.Error{Kind: provider.ErrKindUnreachable, Message: "down"}
	p := &scriptedProvider{err: providerErr}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	_, err := r.FindMatch(context.Background(), "sort", testPool(), 0.5)
	if !provider.IsUnreachable(err) {
		t.Errorf("err = %v, want provider unreachable passed through", err)
	}
}

// =============================================================================
// SHORT-CIRCUIT TESTS
// =============================================================================

func TestFindMatch_Disabled(t *testing.T) {
	p := &scriptedProvider{}
	r := NewRouter(p, provider.Options{Model: "m"}, false)

	_, err := r.FindMatch(context.Background(), "sort", testPool(), 0.5)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
}

func TestFindMatch_EmptyPool(t *testing.T) {
	p := &scriptedProvider{}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	_, err := r.FindMatch(context.Background(), "how do I sort a list in reverse", nil, 0.5)
	if !errors.Is(err, ErrEmptyPool) {
		t.Errorf("err = %v, want ErrEmptyPool", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0 (no network call on empty pool)", p.calls)
	}
}

func TestFindMatch_EmptyQuery(t *testing.T) {
	p := &scriptedProvider{}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	_, err := r.FindMatch(context.Background(), "   ", testPool(), 0.5)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times, want 0", p.calls)
	}
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestFindMatch_PromptEnumeratesPool(t *testing.T) {
	p := &scriptedProvider{response: `{"best_match_id":null,"confidence":0,"reasoning":""}`}
	r := NewRouter(p, provider.Options{Model: "m"}, true)

	if _, err := r.FindMatch(context.Background(), "my query", testPool(), 0.5); err != nil {
		t.Fatalf("FindMatch() error: %v", err)
	}

	for _, want := range []string{"sol-1", "Reverse-sorting collections", "sol-2", "Binary search trees", "my query", "best_match_id"} {
		if !strings.Contains(p.lastMsg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
