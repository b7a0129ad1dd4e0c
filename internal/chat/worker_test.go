// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/solvault/internal/provider"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeProvider scripts a streaming response for worker tests.
type fakeProvider struct {
	chunks []string
	err    error

	// block, when non-nil, keeps the stream open after the scripted chunks
	// until the channel is closed or the context is cancelled.
	block chan struct{}
}

func (f *fakeProvider) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	return "", nil
}

func (f *fakeProvider) StreamComplete(ctx context.Context, messages []provider.Message, onChunk provider.ChunkFunc, opts provider.Options) error {
	for _, c := range f.chunks {
		onChunk(c)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeProvider) CheckLiveness(ctx context.Context, opts provider.Options) (string, error) {
	return "fake", nil
}

// recordingSaver records persistence calls.
type recordingSaver struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSaver) save(conversationID, role, content string) (PersistedMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, content)
	s.mu.Unlock()
	return PersistedMessage{ID: "msg-1", Role: role, Content: content, CreatedAt: time.Now()}, nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestRegistry(p provider.Client, save SaveFunc) (*Registry, *Broker) {
	broker := NewBroker()
	selector := func(vision bool) (provider.Client, provider.Options) {
		return p, provider.Options{Model: "test"}
	}
	return NewRegistry(broker, selector, save), broker
}

// nextEvent reads one event or fails the test after a timeout.
func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// waitNotRunning polls until the worker deregisters.
func waitNotRunning(t *testing.T, r *Registry, conversationID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Running(conversationID) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("worker never deregistered")
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestWorker_StreamsAndCompletes(t *testing.T) {
	saver := &recordingSaver{}
	registry, broker := newTestRegistry(&fakeProvider{chunks: []string{"Hel", "lo", "!"}}, saver.save)

	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	if _, err := registry.Start("conv-1", []provider.Message{provider.NewUserMessage("hi")}, "trigger-1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.Type != EventStarted {
		t.Fatalf("first event = %s, want started", ev.Type)
	}
	if ev.TriggeringMessageID != "trigger-1" {
		t.Errorf("TriggeringMessageID = %q", ev.TriggeringMessageID)
	}

	// Chunk events carry the cumulative buffer.
	wantCumulative := []string{"Hel", "Hello", "Hello!"}
	for i, want := range wantCumulative {
		ev = nextEvent(t, events)
		if ev.Type != EventChunk {
			t.Fatalf("event %d = %s, want chunk", i+1, ev.Type)
		}
		if ev.Content != want {
			t.Errorf("chunk %d content = %q, want %q", i, ev.Content, want)
		}
	}

	ev = nextEvent(t, events)
	if ev.Type != EventCompleted {
		t.Fatalf("terminal event = %s, want completed", ev.Type)
	}
	if ev.Message == nil || ev.Message.Content != "Hello!" {
		t.Errorf("persisted message = %+v", ev.Message)
	}
	if ev.Message.Role != provider.RoleAssistant {
		t.Errorf("persisted role = %q", ev.Message.Role)
	}

	if saver.count() != 1 {
		t.Errorf("save called %d times, want 1", saver.count())
	}
	waitNotRunning(t, registry, "conv-1")
}

func TestWorker_ZeroChunksFails(t *testing.T) {
	saver := &recordingSaver{}
	registry, broker := newTestRegistry(&fakeProvider{}, saver.save)

	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	if _, err := registry.Start("conv-1", []provider.Message{provider.NewUserMessage("hi")}, "t1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if ev := nextEvent(t, events); ev.Type != EventStarted {
		t.Fatalf("first event = %s, want started", ev.Type)
	}

	ev := nextEvent(t, events)
	if ev.Type != EventFailed {
		t.Fatalf("terminal event = %s, want failed", ev.Type)
	}
	if ev.Err != "no response received" {
		t.Errorf("Err = %q, want 'no response received'", ev.Err)
	}
	if saver.count() != 0 {
		t.Errorf("save called %d times, want 0", saver.count())
	}
}

func TestWorker_StreamErrorFails(t *testing.T) {
	saver := &recordingSaver{}
	streamErr := errors.New("connection reset")
	registry, broker := newTestRegistry(&fakeProvider{chunks: []string{"partial"}, err: streamErr}, saver.save)

	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	if _, err := registry.Start("conv-1", []provider.Message{provider.NewUserMessage("hi")}, "t1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	var terminal Event
	for {
		ev := nextEvent(t, events)
		if ev.Type == EventCompleted || ev.Type == EventFailed {
			terminal = ev
			break
		}
	}

	if terminal.Type != EventFailed {
		t.Fatalf("terminal event = %s, want failed", terminal.Type)
	}
	// Partial content is never persisted on transport error.
	if saver.count() != 0 {
		t.Errorf("save called %d times, want 0", saver.count())
	}
}

// =============================================================================
// SINGLE-FLIGHT TESTS
// =============================================================================

func TestRegistry_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	saver := &recordingSaver{}
	registry, _ := newTestRegistry(&fakeProvider{chunks: []string{"x"}, block: block}, saver.save)

	msgs := []provider.Message{provider.NewUserMessage("hi")}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted, rejected int

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Start("conv-1", msgs, "t1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrAlreadyRunning):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 1 || rejected != 1 {
		t.Errorf("accepted = %d, rejected = %d, want 1 and 1", accepted, rejected)
	}

	close(block)
	waitNotRunning(t, registry, "conv-1")

	// After the worker finishes, a fresh start is accepted.
	if _, err := registry.Start("conv-1", msgs, "t2"); err != nil {
		t.Errorf("restart after completion failed: %v", err)
	}
}

func TestRegistry_IndependentConversations(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	saver := &recordingSaver{}
	registry, _ := newTestRegistry(&fakeProvider{block: block}, saver.save)

	msgs := []provider.Message{provider.NewUserMessage("hi")}
	if _, err := registry.Start("conv-1", msgs, "t1"); err != nil {
		t.Fatalf("Start(conv-1) error: %v", err)
	}
	if _, err := registry.Start("conv-2", msgs, "t2"); err != nil {
		t.Errorf("Start(conv-2) error: %v, different conversations must not contend", err)
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestRegistry_StopDiscardsAndAllowsRestart(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	saver := &recordingSaver{}
	registry, broker := newTestRegistry(&fakeProvider{chunks: []string{"early"}, block: block}, saver.save)

	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	msgs := []provider.Message{provider.NewUserMessage("hi")}
	if _, err := registry.Start("conv-1", msgs, "t1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Wait for the stream to be live.
	if ev := nextEvent(t, events); ev.Type != EventStarted {
		t.Fatalf("first event = %s, want started", ev.Type)
	}
	if ev := nextEvent(t, events); ev.Type != EventChunk {
		t.Fatalf("second event = %s, want chunk", ev.Type)
	}

	registry.Stop("conv-1")

	// Deregistration is immediate; a restart succeeds right away.
	if registry.Running("conv-1") {
		t.Error("worker still registered after Stop")
	}
	if _, err := registry.Start("conv-1", msgs, "t2"); err != nil {
		t.Errorf("restart after Stop failed: %v", err)
	}

	// The cancelled worker emits no terminal event and persists nothing.
	// Only the restarted worker's events may follow.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			if ev.Type == EventCompleted || ev.Type == EventFailed {
				t.Fatalf("cancelled worker emitted terminal event %s", ev.Type)
			}
		case <-deadline:
			if saver.count() != 0 {
				t.Errorf("save called %d times after cancellation, want 0", saver.count())
			}
			return
		}
	}
}

// =============================================================================
// PROVIDER SELECTION TESTS
// =============================================================================

func TestWorker_VisionOverride(t *testing.T) {
	var mu sync.Mutex
	var sawVision []bool

	broker := NewBroker()
	saver := &recordingSaver{}
	fake := &fakeProvider{chunks: []string{"ok"}}
	selector := func(vision bool) (provider.Client, provider.Options) {
		mu.Lock()
		sawVision = append(sawVision, vision)
		mu.Unlock()
		return fake, provider.Options{Model: "test"}
	}
	registry := NewRegistry(broker, selector, saver.save)

	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	withImage := []provider.Message{
		provider.NewUserMessage("plain"),
		provider.NewMultipartMessage(provider.TextPart("look"), provider.ImagePart("aGk=", "image/png")),
	}
	if _, err := registry.Start("conv-1", withImage, "t1"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	for {
		if ev := nextEvent(t, events); ev.Type == EventCompleted || ev.Type == EventFailed {
			break
		}
	}

	waitNotRunning(t, registry, "conv-1")
	if _, err := registry.Start("conv-1", []provider.Message{provider.NewUserMessage("plain only")}, "t2"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	for {
		if ev := nextEvent(t, events); ev.Type == EventCompleted || ev.Type == EventFailed {
			break
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sawVision) != 2 || !sawVision[0] || sawVision[1] {
		t.Errorf("vision flags = %v, want [true false]", sawVision)
	}
}

// =============================================================================
// BROKER TESTS
// =============================================================================

func TestBroker_SubscribeAndCancel(t *testing.T) {
	broker := NewBroker()

	ch, cancel := broker.Subscribe("conv-1")
	if broker.SubscriberCount("conv-1") != 1 {
		t.Errorf("SubscriberCount = %d, want 1", broker.SubscriberCount("conv-1"))
	}

	broker.Publish(Event{Type: EventStarted, ConversationID: "conv-1"})
	if ev := nextEvent(t, ch); ev.Type != EventStarted {
		t.Errorf("event = %s, want started", ev.Type)
	}

	cancel()
	cancel() // safe to call twice
	if broker.SubscriberCount("conv-1") != 0 {
		t.Errorf("SubscriberCount after cancel = %d, want 0", broker.SubscriberCount("conv-1"))
	}

	// Channel is closed after cancel.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
}

func TestBroker_KeyedByConversation(t *testing.T) {
	broker := NewBroker()

	ch1, cancel1 := broker.Subscribe("conv-1")
	defer cancel1()
	ch2, cancel2 := broker.Subscribe("conv-2")
	defer cancel2()

	broker.Publish(Event{Type: EventStarted, ConversationID: "conv-1"})

	if ev := nextEvent(t, ch1); ev.ConversationID != "conv-1" {
		t.Errorf("conv-1 subscriber got event for %q", ev.ConversationID)
	}
	select {
	case ev := <-ch2:
		t.Errorf("conv-2 subscriber got foreign event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()

	// Never read from this subscriber; fill its buffer past capacity.
	_, cancel := broker.Subscribe("conv-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			broker.Publish(Event{Type: EventChunk, ConversationID: "conv-1", Content: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
