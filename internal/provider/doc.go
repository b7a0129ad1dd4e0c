// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the capability contract shared by all LLM
// backends.
//
// A backend implements Client: one blocking completion call, one streaming
// completion call delivering text fragments through a callback, and a
// liveness check. The two concrete implementations live in the ollama and
// cloud packages; everything above them (the conversation worker, the
// solution router, the metadata extractor) talks only to this interface.
//
// # Key Types
//
//   - Client: the capability interface implemented by each backend
//   - Message: a chat message with role and content
//   - Content: plain text or a list of text/image parts
//   - Options: per-call model, endpoint, and sampling configuration
//   - Error: typed transport/protocol error with a Kind discriminator
package provider
