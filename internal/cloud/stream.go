// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/jeranaias/solvault/internal/provider"
	"github.com/jeranaias/solvault/internal/util"
)

// STREAMING: Robust SSE parsing with per-frame error isolation.

// streamChunk is one decoded SSE data payload from the streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the text fragment from the first choice's delta.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done reports whether the chunk carries a finish reason.
func (c *streamChunk) done() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a response body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event and returns its data payload. Multi-line
// data fields are joined with newlines. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Other fields (event:, id:, retry:, comments) are ignored.
	}
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// StreamComplete sends a streaming chat request, invoking onChunk for each
// content fragment. Returns when the stream ends or errors.
func (c *Client) StreamComplete(ctx context.Context, messages []provider.Message, onChunk provider.ChunkFunc, opts provider.Options) error {
	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    toWire(messages),
		Temperature: opts.Temperature,
		Stream:      true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &provider.Error{Kind: provider.ErrKindInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, baseURL(opts)+"/chat/completions", body, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return &provider.Error{Kind: provider.ErrKindUnreachable, Message: "cloud API is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return badStatusError(resp)
	}

	return processStream(ctx, resp.Body, onChunk)
}

// processStream reads SSE events until [DONE], a finish reason, or EOF.
// Malformed payloads are logged and skipped, never fatal.
func processStream(ctx context.Context, body io.Reader, onChunk provider.ChunkFunc) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &provider.Error{Kind: provider.ErrKindUnreachable, Message: "stream read failed", Cause: err}
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			log.Printf("WARNING: skipping malformed stream event: %s", util.TruncateRunes(string(data), 120))
			continue
		}

		if text := chunk.content(); text != "" {
			onChunk(text)
		}

		if chunk.done() {
			return nil
		}
	}
}
