// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/solvault/internal/provider"
)

// ErrAlreadyRunning indicates a stream is already live for the conversation.
// Duplicate starts are rejected, never queued.
var ErrAlreadyRunning = errors.New("a stream is already running for this conversation")

// SelectFunc resolves the provider client and options for one streaming call.
// The vision flag is true when any outbound message carries an image part;
// implementations route those calls to a vision-capable backend regardless
// of the configured default.
type SelectFunc func(vision bool) (provider.Client, provider.Options)

// =============================================================================
// WORKER REGISTRY
// =============================================================================

// Registry tracks live conversation workers and enforces the single-flight
// guarantee: at most one active stream per conversation ID.
//
// The Registry is thread-safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*Worker

	broker         *Broker
	selectProvider SelectFunc
	save           SaveFunc
}

// NewRegistry creates a registry publishing to broker, selecting providers
// via selectProvider, and persisting completed messages via save.
func NewRegistry(broker *Broker, selectProvider SelectFunc, save SaveFunc) *Registry {
	return &Registry{
		workers:        make(map[string]*Worker),
		broker:         broker,
		selectProvider: selectProvider,
		save:           save,
	}
}

// Start spawns a worker streaming a response for the conversation. It
// returns as soon as the worker is registered, before the first chunk
// arrives. Returns ErrAlreadyRunning when a worker for the conversation is
// already live; the check and the insert happen under one critical section.
func (r *Registry) Start(conversationID string, messages []provider.Message, triggeringMessageID string) (*Worker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		conversationID:      conversationID,
		triggeringMessageID: triggeringMessageID,
		messages:            messages,
		registry:            r,
		ctx:                 ctx,
		cancel:              cancel,
	}

	r.mu.Lock()
	if _, exists := r.workers[conversationID]; exists {
		r.mu.Unlock()
		cancel()
		return nil, ErrAlreadyRunning
	}
	r.workers[conversationID] = w
	r.mu.Unlock()

	go w.run()
	return w, nil
}

// Stop cancels the conversation's live worker, if any, and deregisters it
// immediately so a future Start for the same ID succeeds right away. Late
// chunks from the cancelled stream are discarded, not broadcast.
func (r *Registry) Stop(conversationID string) {
	r.mu.Lock()
	w := r.workers[conversationID]
	delete(r.workers, conversationID)
	r.mu.Unlock()

	if w != nil {
		w.cancel()
	}
}

// Running reports whether a worker is live for the conversation.
func (r *Registry) Running(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.workers[conversationID]
	return ok
}

// remove deregisters a worker once it reaches a terminal state. The identity
// check keeps a finished worker from evicting a successor registered after
// Stop.
func (r *Registry) remove(w *Worker) {
	r.mu.Lock()
	if r.workers[w.conversationID] == w {
		delete(r.workers, w.conversationID)
	}
	r.mu.Unlock()
}
