// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/solvault/internal/provider"
)

// DefaultBaseURL is the Ollama API base URL used when options omit one.
// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
// resolution issues on Windows.
const DefaultBaseURL = "http://127.0.0.1:11434"

// defaultTimeout bounds non-streaming requests. Streaming requests carry no
// client timeout; the transport's connection timeout is the only bound.
const defaultTimeout = 120 * time.Second

// =============================================================================
// CLIENT
// =============================================================================

// Client implements provider.Client against a local Ollama server.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	httpClient *http.Client

	// streamClient has no timeout; streaming calls are bounded only by the
	// caller's context.
	streamClient *http.Client
}

// NewClient creates a new Ollama client.
func NewClient() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		streamClient: &http.Client{},
	}
}

// baseURL resolves the endpoint for a call.
func baseURL(opts provider.Options) string {
	if opts.BaseURL != "" {
		return strings.TrimSuffix(opts.BaseURL, "/")
	}
	return DefaultBaseURL
}

// toWire converts messages into Ollama's wire format. Text parts are
// flattened into content; image parts become the message's base64 images
// array so vision models receive them.
func toWire(messages []provider.Message) []wireMessage {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		w := wireMessage{Role: m.Role, Content: m.Content.Flatten()}
		for _, p := range m.Content.Parts {
			if p.Kind == provider.PartImage {
				w.Images = append(w.Images, p.Data)
			}
		}
		wire = append(wire, w)
	}
	return wire
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends a non-streaming chat request and returns the response text.
func (c *Client) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	reqBody := chatRequest{
		Model:    opts.Model,
		Messages: toWire(messages),
		Stream:   false,
	}
	if opts.Temperature != 0 {
		reqBody.Options = &chatOptions{Temperature: opts.Temperature}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(opts)+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "Ollama is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", badStatusError(resp)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Message.Content, nil
}

// =============================================================================
// STREAMING
// =============================================================================

// StreamComplete sends a streaming chat request, invoking onChunk for each
// content fragment. Returns when the stream ends or errors.
func (c *Client) StreamComplete(ctx context.Context, messages []provider.Message, onChunk provider.ChunkFunc, opts provider.Options) error {
	reqBody := chatRequest{
		Model:    opts.Model,
		Messages: toWire(messages),
		Stream:   true,
	}
	if opts.Temperature != 0 {
		reqBody.Options = &chatOptions{Temperature: opts.Temperature}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(opts)+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &provider.Error{Kind: provider.ErrKindUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return &provider.Error{Kind: provider.ErrKindUnreachable, Message: "Ollama is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return badStatusError(resp)
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, onChunk)
}

// =============================================================================
// LIVENESS
// =============================================================================

// CheckLiveness verifies the server is reachable and returns its version.
func (c *Client) CheckLiveness(ctx context.Context, opts provider.Options) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(opts)+"/api/version", nil)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{Kind: provider.ErrKindUnreachable, Message: "Ollama is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", badStatusError(resp)
	}

	var result versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to decode version response", Cause: err}
	}

	return "ollama " + result.Version, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// badStatusError folds the decoded error body into a BadStatus error.
func badStatusError(resp *http.Response) *provider.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	msg := strings.TrimSpace(string(body))
	var ollamaErr apiError
	if err := json.Unmarshal(body, &ollamaErr); err == nil && ollamaErr.Error != "" {
		msg = ollamaErr.Error
	}

	return &provider.Error{
		Kind:    provider.ErrKindBadStatus,
		Status:  resp.StatusCode,
		Message: msg,
	}
}
