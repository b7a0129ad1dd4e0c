// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

// =============================================================================
// REQUEST TYPES
// =============================================================================

// wireMessage is a chat message in Ollama's wire format. Content is always
// flattened text; image parts travel separately in the images array, which
// multimodal models (llava, etc.) read alongside the content.
type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatRequest is the request body for the /api/chat endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

// chatOptions carries the model parameters we pass through.
type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// chatResponse is the non-streaming response from /api/chat.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// versionResponse is the response from /api/version.
type versionResponse struct {
	Version string `json:"version"`
}

// apiError is an error body from the Ollama API.
type apiError struct {
	Error string `json:"error"`
}
