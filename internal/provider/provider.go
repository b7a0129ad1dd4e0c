// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the capability contract shared by all LLM backends.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options holds the per-call configuration for a provider request.
// The zero value is not usable; callers obtain Options from the settings
// layer, which guarantees Model and BaseURL are populated.
type Options struct {
	// Model is the model identifier to run the call against.
	Model string

	// BaseURL is the backend's API base URL.
	BaseURL string

	// Temperature is the sampling temperature passed through to the backend.
	Temperature float64

	// VisionModel is the model to substitute when a call carries image
	// parts. Empty when the backend has no vision-capable model configured.
	VisionModel string

	// APIKey authenticates against backends that require one. The local
	// backend ignores it.
	APIKey string
}

// =============================================================================
// CLIENT INTERFACE
// =============================================================================

// ChunkFunc receives one text fragment during a streaming completion.
// Fragments are deltas, not cumulative; callers accumulate. The function is
// invoked from the transport's reader loop and must not block indefinitely —
// forward into a channel and return.
type ChunkFunc func(text string)

// Client is the capability interface every LLM backend implements.
type Client interface {
	// Complete performs one blocking chat completion and returns the full
	// response text.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)

	// StreamComplete performs a streaming chat completion, invoking onChunk
	// zero or more times with successive text fragments. It returns only
	// after the transport stream ends or errors. Malformed individual
	// frames are skipped, not fatal.
	StreamComplete(ctx context.Context, messages []Message, onChunk ChunkFunc, opts Options) error

	// CheckLiveness verifies the backend is reachable and returns a version
	// or identity string.
	CheckLiveness(ctx context.Context, opts Options) (string, error)
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes provider errors for handling.
type ErrorKind int

const (
	// ErrKindUnknown is an uncategorized provider failure.
	ErrKindUnknown ErrorKind = iota

	// ErrKindUnreachable indicates a transport-level failure: the backend
	// could not be reached or the connection dropped.
	ErrKindUnreachable

	// ErrKindBadStatus indicates the backend answered with a non-2xx
	// status. Status carries the code and Message folds in the decoded body.
	ErrKindBadStatus

	// ErrKindInvalidResponse indicates the backend answered 2xx but the
	// body could not be decoded.
	ErrKindInvalidResponse

	// ErrKindNotConfigured indicates a required credential is missing.
	ErrKindNotConfigured
)

// Error is a typed error from a provider backend.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Kind == ErrKindBadStatus && e.Status != 0 {
		msg = fmt.Sprintf("unexpected status %d: %s", e.Status, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	// ErrNotConfigured indicates the backend requires a credential that is
	// not set.
	ErrNotConfigured = &Error{Kind: ErrKindNotConfigured, Message: "provider credential not configured"}
)

// Is lets wrapped *Error values match sentinels of the same kind.
func (e *Error) Is(target error) bool {
	var pe *Error
	if errors.As(target, &pe) {
		return e.Kind == pe.Kind
	}
	return false
}

// IsUnreachable reports whether err is a transport-level provider failure.
func IsUnreachable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrKindUnreachable
}

// IsBadStatus reports whether err is a non-2xx provider response.
func IsBadStatus(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrKindBadStatus
}

// IsNotConfigured reports whether err indicates a missing credential.
func IsNotConfigured(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == ErrKindNotConfigured
}
