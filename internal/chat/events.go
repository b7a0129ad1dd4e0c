// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType identifies a lifecycle event in a conversation's stream.
type EventType int

const (
	// EventStarted is emitted once when streaming begins.
	EventStarted EventType = iota

	// EventChunk is emitted after each appended fragment. Content carries
	// the cumulative buffer, not a delta, so a late subscriber can
	// resynchronize from the latest event alone.
	EventChunk

	// EventCompleted is emitted once after the assistant message has been
	// persisted. Terminal.
	EventCompleted

	// EventFailed is emitted once when streaming fails or yields no
	// content. Terminal.
	EventFailed
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventChunk:
		return "chunk"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PersistedMessage is a message as returned by the persistence layer, with
// its stable identifier assigned.
type PersistedMessage struct {
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Event is one lifecycle notification for a conversation's stream.
//
// Per conversation, events are strictly ordered: one Started, zero or more
// Chunk events, then exactly one of Completed or Failed. A cancelled worker
// emits no terminal event.
type Event struct {
	Type           EventType
	ConversationID string

	// TriggeringMessageID identifies the user message that initiated the
	// stream. Set on Started.
	TriggeringMessageID string

	// Content is the cumulative response buffer. Set on Chunk.
	Content string

	// Message is the persisted assistant message. Set on Completed.
	Message *PersistedMessage

	// Err describes the failure. Set on Failed.
	Err string
}

// SaveFunc persists one message and returns it with its identifier assigned.
// Invoked exactly once per completed exchange, never for failed or cancelled
// ones.
type SaveFunc func(conversationID, role, content string) (PersistedMessage, error)
