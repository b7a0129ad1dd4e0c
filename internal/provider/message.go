// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "strings"

// =============================================================================
// ROLES
// =============================================================================

// Message roles. The wire protocols of both backends use the same strings.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// =============================================================================
// CONTENT MODEL
// =============================================================================

// PartKind discriminates the variants of a content Part.
type PartKind int

const (
	// PartText is a plain text fragment.
	PartText PartKind = iota

	// PartImage is an inline base64-encoded image.
	PartImage
)

// Part is one element of multipart message content.
type Part struct {
	Kind PartKind

	// Text is set for PartText.
	Text string

	// Data is the base64-encoded image payload, set for PartImage.
	Data string

	// MIME is the image media type (e.g. "image/png"), set for PartImage.
	MIME string
}

// Content is the tagged content variant: either plain text or a list of
// text/image parts. Parts == nil means plain text; a non-nil Parts slice
// takes precedence over Text.
type Content struct {
	Text  string
	Parts []Part
}

// IsMultipart reports whether the content is a structured part list.
func (c Content) IsMultipart() bool {
	return c.Parts != nil
}

// HasImage reports whether any part is an image.
func (c Content) HasImage() bool {
	for _, p := range c.Parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// Flatten returns the textual content: the plain text, or for multipart
// content the concatenation of the text parts only. Image parts contribute
// nothing here; backends that transmit images carry them in their own wire
// fields.
func (c Content) Flatten() string {
	if !c.IsMultipart() {
		return c.Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message represents a chat message in the conversation. ID is the stable
// identifier once persisted; ephemeral in-memory messages carry an empty ID.
type Message struct {
	ID      string
	Role    string
	Content Content
}

// HasImage reports whether the message carries any image part.
func (m Message) HasImage() bool {
	return m.Content.HasImage()
}

// NewUserMessage creates a new plain-text user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: Content{Text: text}}
}

// NewAssistantMessage creates a new plain-text assistant message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: Content{Text: text}}
}

// NewSystemMessage creates a new plain-text system message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: Content{Text: text}}
}

// NewMultipartMessage creates a user message from explicit parts.
func NewMultipartMessage(parts ...Part) Message {
	if parts == nil {
		parts = []Part{}
	}
	return Message{Role: RoleUser, Content: Content{Parts: parts}}
}

// TextPart builds a text content part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart builds an inline image content part from base64 data.
func ImagePart(data, mime string) Part {
	return Part{Kind: PartImage, Data: data, MIME: mime}
}

// AnyImage reports whether any message in the slice carries an image part.
func AnyImage(messages []Message) bool {
	for _, m := range messages {
		if m.HasImage() {
			return true
		}
	}
	return false
}
