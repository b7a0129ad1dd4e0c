// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/jeranaias/solvault/internal/provider"
)

// chunkBuffer bounds the transport-to-worker channel. The transport's
// callback forwards into it without blocking indefinitely.
const chunkBuffer = 64

// =============================================================================
// CONVERSATION WORKER
// =============================================================================

// Worker owns one streaming exchange for one conversation. It lives exactly
// as long as the streaming call and is deregistered on completion, failure,
// or cancellation; it is never reused across exchanges.
type Worker struct {
	conversationID      string
	triggeringMessageID string
	messages            []provider.Message

	registry *Registry
	ctx      context.Context
	cancel   context.CancelFunc
}

// ConversationID returns the conversation this worker streams for.
func (w *Worker) ConversationID() string {
	return w.conversationID
}

// run drives the streaming lifecycle. Event ordering per conversation:
// Started precedes all Chunk events, which precede exactly one terminal
// Completed or Failed. A cancelled worker emits no terminal event.
func (w *Worker) run() {
	defer w.registry.remove(w)
	defer w.cancel()

	w.registry.broker.Publish(Event{
		Type:                EventStarted,
		ConversationID:      w.conversationID,
		TriggeringMessageID: w.triggeringMessageID,
	})

	// Image parts force the vision-capable backend for this call only.
	client, opts := w.registry.selectProvider(provider.AnyImage(w.messages))

	// The transport callback pushes fragments into a channel; this
	// goroutine owns accumulation and broadcast. After cancellation at
	// most one more callback may fire and is discarded here.
	chunks := make(chan string, chunkBuffer)
	streamErr := make(chan error, 1)

	go func() {
		err := client.StreamComplete(w.ctx, w.messages, func(text string) {
			select {
			case chunks <- text:
			case <-w.ctx.Done():
			}
		}, opts)
		close(chunks)
		streamErr <- err
	}()

	var buf strings.Builder
	for {
		select {
		case <-w.ctx.Done():
			// Cancelled: discard late chunks, emit no terminal event.
			return
		case text, ok := <-chunks:
			if !ok {
				w.finish(<-streamErr, buf.String())
				return
			}
			buf.WriteString(text)
			w.registry.broker.Publish(Event{
				Type:           EventChunk,
				ConversationID: w.conversationID,
				Content:        buf.String(),
			})
		}
	}
}

// finish emits the terminal event for a stream that ended on its own.
func (w *Worker) finish(streamErr error, content string) {
	if w.ctx.Err() != nil {
		return
	}

	if streamErr != nil {
		w.fail(streamErr.Error())
		return
	}

	// A stream that ended cleanly with zero content is a failure; an empty
	// assistant message is never persisted.
	if content == "" {
		w.fail("no response received")
		return
	}

	saved, err := w.registry.save(w.conversationID, provider.RoleAssistant, content)
	if err != nil {
		w.fail("failed to save response: " + err.Error())
		return
	}

	w.registry.broker.Publish(Event{
		Type:           EventCompleted,
		ConversationID: w.conversationID,
		Message:        &saved,
	})
}

func (w *Worker) fail(description string) {
	w.registry.broker.Publish(Event{
		Type:           EventFailed,
		ConversationID: w.conversationID,
		Err:            description,
	})
}
