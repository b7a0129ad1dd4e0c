// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/solvault/internal/provider"
	"github.com/jeranaias/solvault/internal/util"
)

// =============================================================================
// SOLUTION ROUTER
// =============================================================================

// Router decides whether a saved solution semantically answers a new query
// well enough to bypass a fresh LLM call. It is stateless beyond its
// provider binding; calls for different conversations may run concurrently.
type Router struct {
	client  provider.Client
	opts    provider.Options
	enabled bool
}

// NewRouter creates a router backed by the given provider.
func NewRouter(client provider.Client, opts provider.Options, enabled bool) *Router {
	return &Router{client: client, opts: opts, enabled: enabled}
}

// matchResponse is the strict JSON shape the model is instructed to return.
// best_match_id is tolerant of models that answer with a bare number.
type matchResponse struct {
	BestMatchID json.RawMessage `json:"best_match_id"`
	Confidence  float64         `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
}

// FindMatch asks the model to pick the best semantic match for query from
// pool, and accepts it iff its confidence clears threshold. A sub-threshold
// match is returned with Accepted=false and its confidence intact.
//
// Empty queries and empty pools short-circuit before any network call.
func (r *Router) FindMatch(ctx context.Context, query string, pool []Solution, threshold float64) (MatchResult, error) {
	if !r.enabled {
		return MatchResult{}, ErrDisabled
	}
	if strings.TrimSpace(query) == "" {
		return MatchResult{}, ErrEmptyQuery
	}
	if len(pool) == 0 {
		return MatchResult{}, ErrEmptyPool
	}

	response, err := r.client.Complete(ctx, buildMatchPrompt(query, pool), r.opts)
	if err != nil {
		return MatchResult{}, err
	}

	var parsed matchResponse
	if err := util.RecoverJSON(response, &parsed); err != nil {
		return MatchResult{}, ErrUnparsable
	}

	confidence := clamp01(parsed.Confidence)

	id, matched := decodeMatchID(parsed.BestMatchID)
	if !matched {
		return MatchResult{Confidence: confidence, Reasoning: parsed.Reasoning}, nil
	}

	// Defensive: the model may hallucinate an ID not in the pool.
	if !poolContains(pool, id) {
		return MatchResult{}, ErrUnparsable
	}

	return MatchResult{
		SolutionID: id,
		Confidence: confidence,
		Reasoning:  parsed.Reasoning,
		Matched:    true,
		Accepted:   confidence >= threshold,
	}, nil
}

// =============================================================================
// PROMPT CONSTRUCTION
// =============================================================================

// buildMatchPrompt enumerates the candidate pool and instructs the model to
// answer with strict JSON.
func buildMatchPrompt(query string, pool []Solution) []provider.Message {
	var b strings.Builder

	b.WriteString("You are a matching engine. Given a user query and a list of saved solutions, ")
	b.WriteString("decide which solution, if any, answers the query.\n\nSaved solutions:\n")

	for _, s := range pool {
		fmt.Fprintf(&b, "- id: %s\n  title: %s\n", s.ID, s.Title)
		if len(s.Topics) > 0 {
			fmt.Fprintf(&b, "  topics: %s\n", strings.Join(s.Topics, ", "))
		}
		if s.Difficulty != "" {
			fmt.Fprintf(&b, "  difficulty: %s\n", s.Difficulty)
		}
		if s.Query != "" {
			fmt.Fprintf(&b, "  original question: %s\n", s.Query)
		}
		if s.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", s.Description)
		}
	}

	fmt.Fprintf(&b, "\nUser query: %s\n\n", query)
	b.WriteString("Respond with ONLY a JSON object, no prose, in this exact shape:\n")
	b.WriteString(`{"best_match_id": "<id of the best match, or null if none applies>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)

	return []provider.Message{provider.NewUserMessage(b.String())}
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeMatchID reads best_match_id as a string or bare number. Returns
// matched=false for null, absent, or empty values.
func decodeMatchID(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		return asString, asString != "" && asString != "null"
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String(), true
	}

	return "", false
}

func poolContains(pool []Solution, id string) bool {
	for _, s := range pool {
		if s.ID == id {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
