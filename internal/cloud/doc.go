// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements provider.Client against an OpenAI-compatible
// chat-completions API.
//
// The backend speaks the chat/completions wire format: non-streaming calls
// return choices[0].message.content, streaming calls deliver Server-Sent
// Events whose data payloads carry choices[0].delta.content fragments and
// terminate with a [DONE] marker.
//
// # Key Types
//
//   - Client: HTTP client with connection pooling and request pacing
//   - SSEReader: event parser for the streaming response body
//
// # Usage
//
//	client := cloud.NewClient()
//	text, err := client.Complete(ctx, messages, opts)
//
// All calls require opts.APIKey; a missing key fails fast with a
// NotConfigured error before any network traffic. Unlike the local backend,
// multipart messages are passed through as content-part arrays so
// vision-capable models receive image data intact.
package cloud
