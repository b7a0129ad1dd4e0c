// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/jeranaias/solvault/internal/provider"
	"github.com/jeranaias/solvault/internal/util"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
// Each line is one JSON object carrying a message.content fragment; an
// object with done=true terminates the stream.
type StreamReader struct {
	reader *bufio.Reader
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// streamFrame is one NDJSON line of a streaming chat response.
type streamFrame struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// Process reads the stream and calls onChunk for each content fragment.
// Blocks until the stream is complete, the context is cancelled, or the
// transport errors. Malformed lines are logged and skipped — one bad frame
// must not lose the remaining response.
func (s *StreamReader) Process(ctx context.Context, onChunk provider.ChunkFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return &provider.Error{Kind: provider.ErrKindUnreachable, Message: "stream read failed", Cause: err}
		}

		if len(line) > 0 {
			var frame streamFrame
			if jsonErr := json.Unmarshal(line, &frame); jsonErr != nil {
				log.Printf("WARNING: skipping malformed stream frame: %s", util.TruncateRunes(string(line), 120))
			} else {
				if frame.Message.Content != "" {
					onChunk(frame.Message.Content)
				}
				if frame.Done {
					return nil
				}
			}
		}

		if err == io.EOF {
			return nil
		}
	}
}
