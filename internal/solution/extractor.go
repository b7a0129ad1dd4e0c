// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package solution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/solvault/internal/provider"
	"github.com/jeranaias/solvault/internal/util"
)

// Error variables for extraction failures.
var (
	// ErrMissingCredential indicates the extraction provider requires an
	// API key that is not configured.
	ErrMissingCredential = errors.New("extraction provider credential not configured")

	// ErrUnparsable indicates the model's response could not be recovered
	// as valid JSON.
	ErrUnparsable = errors.New("unparsable extraction response")
)

// Metadata is the LLM-derived description of a solution. Missing keys in
// the model's output default to zero values rather than failing the
// extraction.
type Metadata struct {
	Title       string
	Topics      []string
	Difficulty  Difficulty
	Description string
	Languages   []string
}

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extractor derives structured metadata from a packaged exchange using one
// non-streaming LLM call. Stateless; calls may run concurrently.
type Extractor struct {
	client provider.Client
	opts   provider.Options
}

// NewExtractor creates an extractor backed by the given provider.
func NewExtractor(client provider.Client, opts provider.Options) *Extractor {
	return &Extractor{client: client, opts: opts}
}

// extractionResponse is the strict JSON shape the model is instructed to
// return. Every key is optional; absent keys default.
type extractionResponse struct {
	Title       string   `json:"title"`
	Topics      []string `json:"topics"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	Languages   []string `json:"languages"`
}

// Extract asks the model for title/topics/difficulty/description/languages
// metadata for the candidate. Partial model output never fails: missing
// topics and languages come back as empty lists, missing title, difficulty,
// and description as absent. An unrecognized difficulty grade is dropped.
func (e *Extractor) Extract(ctx context.Context, c Candidate) (Metadata, error) {
	response, err := e.client.Complete(ctx, buildExtractionPrompt(c), e.opts)
	if err != nil {
		if provider.IsNotConfigured(err) {
			return Metadata{}, ErrMissingCredential
		}
		return Metadata{}, err
	}

	var parsed extractionResponse
	if err := util.RecoverJSON(response, &parsed); err != nil {
		return Metadata{}, ErrUnparsable
	}

	meta := Metadata{
		Title:       strings.TrimSpace(parsed.Title),
		Topics:      parsed.Topics,
		Description: strings.TrimSpace(parsed.Description),
		Languages:   parsed.Languages,
	}
	if meta.Topics == nil {
		meta.Topics = []string{}
	}
	if meta.Languages == nil {
		meta.Languages = []string{}
	}

	if d := Difficulty(strings.ToLower(strings.TrimSpace(parsed.Difficulty))); d.Valid() {
		meta.Difficulty = d
	}

	return meta, nil
}

// Apply copies extracted metadata onto a candidate.
func (m Metadata) Apply(c *Candidate) {
	c.Title = m.Title
	c.Topics = m.Topics
	c.Difficulty = m.Difficulty
	c.Description = m.Description
	if len(m.Languages) > 0 {
		c.Languages = m.Languages
	}
}

// =============================================================================
// PROMPT CONSTRUCTION
// =============================================================================

func buildExtractionPrompt(c Candidate) []provider.Message {
	var b strings.Builder

	b.WriteString("Analyze this question/answer exchange and produce metadata for saving it as a reusable solution.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\nAnswer:\n%s\n\n", c.Query, c.Answer)

	if len(c.Languages) > 0 {
		fmt.Fprintf(&b, "Code block languages detected: %s\n\n", strings.Join(c.Languages, ", "))
	}

	b.WriteString("Respond with ONLY a JSON object, no prose, in this exact shape:\n")
	b.WriteString(`{"title": "<short title>", "topics": ["<topic>", ...], "difficulty": "beginner"|"intermediate"|"advanced", "description": "<one or two sentences>", "languages": ["<language>", ...]}`)

	return []provider.Message{provider.NewUserMessage(b.String())}
}
