// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the per-conversation streaming lifecycle.
//
// Each active conversation gets at most one Worker, tracked by a Registry
// that enforces single-flight starts with an atomic check-and-insert. The
// worker streams from the selected provider, accumulates fragments, and
// broadcasts lifecycle events through a Broker; subscribers attach and
// detach independently of the worker's lifetime.
//
// # Key Types
//
//   - Registry: conversation ID -> worker map with single-flight starts
//   - Worker: one streaming exchange, discarded at its terminal state
//   - Broker: fan-out of Event values to per-conversation subscribers
//
// # Usage
//
//	broker := chat.NewBroker()
//	registry := chat.NewRegistry(broker, selectProvider, save)
//
//	events, cancel := broker.Subscribe(conversationID)
//	defer cancel()
//
//	if _, err := registry.Start(conversationID, messages, userMsgID); err != nil {
//		// chat.ErrAlreadyRunning: a stream is in flight for this conversation
//	}
//
// Chunk events carry the cumulative buffer, so the caller that invoked Start
// may disconnect and a later subscriber still reconstructs the full response
// from the latest event alone.
package chat
