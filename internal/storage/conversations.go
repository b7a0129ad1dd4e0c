// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/solvault/internal/util"
)

// ErrConversationNotFound indicates no conversation exists for the ID.
var ErrConversationNotFound = errors.New("conversation not found")

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredConversation is a persisted conversation.
type StoredConversation struct {
	ID        string          `json:"id"`
	Summary   string          `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []StoredMessage `json:"messages"`
}

// StoredMessage is a persisted message with its stable identifier.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", or "system"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationMeta is the listing view of a conversation.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists conversations as one JSON file each under a
// base directory.
//
// The store is thread-safe; appends to the same conversation serialize on
// an internal lock.
type ConversationStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewConversationStore creates a store rooted at baseDir, creating it if
// needed.
func NewConversationStore(baseDir string) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ConversationStore{baseDir: baseDir}, nil
}

func (s *ConversationStore) filePath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// AppendMessage appends one message to a conversation, creating the
// conversation on first use, and returns the stored message with its ID
// assigned. This is the persistence callback the streaming worker invokes
// once per completed exchange.
func (s *ConversationStore) AppendMessage(conversationID, role, content string) (StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(conversationID)
	if errors.Is(err, ErrConversationNotFound) {
		now := time.Now()
		conv = &StoredConversation{ID: conversationID, CreatedAt: now, UpdatedAt: now}
	} else if err != nil {
		return StoredMessage{}, err
	}

	msg := StoredMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt
	if conv.Summary == "" {
		conv.Summary = summarize(conv)
	}

	if err := s.write(conv); err != nil {
		return StoredMessage{}, err
	}
	return msg, nil
}

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(id string) (*StoredConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *ConversationStore) load(id string) (*StoredConversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv StoredConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns metadata for all stored conversations, most recent first.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var metas []ConversationMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip unreadable files rather than failing the listing.
			continue
		}
		metas = append(metas, ConversationMeta{
			ID:           conv.ID,
			Summary:      conv.Summary,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a conversation. Deleting a missing conversation is not an
// error.
func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// write marshals and atomically replaces the conversation file.
func (s *ConversationStore) write(conv *StoredConversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.filePath(conv.ID), data, 0644)
}

// summarize derives a listing summary from the first user message.
func summarize(conv *StoredConversation) string {
	for _, msg := range conv.Messages {
		if msg.Role == "user" && msg.Content != "" {
			content := strings.ReplaceAll(msg.Content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			return util.TruncateRunes(content, 50)
		}
	}
	return "New conversation"
}
