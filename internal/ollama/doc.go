// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama implements the provider.Client capability against a local
// Ollama server.
//
// The wire protocol is newline-delimited JSON: each HTTP chunk of a
// streaming response carries one JSON object with a message.content
// fragment, terminated by an object with done=true. Malformed lines are
// skipped so a single bad frame never loses the rest of the response.
//
// Multipart message content is split at this boundary: text parts are
// flattened into the message content, image parts become the per-message
// base64 images array that Ollama's multimodal models consume.
//
// # Usage
//
//	client := ollama.NewClient()
//	text, err := client.Complete(ctx, messages, opts)
//
// For streaming responses:
//
//	err := client.StreamComplete(ctx, messages, func(fragment string) {
//	    // forward into a channel; called from the reader loop
//	}, opts)
package ollama
