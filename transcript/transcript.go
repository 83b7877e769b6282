// Package transcript defines the normalized conversation shape that every
// import path (URL scrape, manual paste, capture OCR) converges on.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joeychilson/chatimport/provider"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one of the closed set.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single normalized conversation message.
type Message struct {
	Role      Role   `json:"role" jsonschema:"enum=user,enum=assistant,enum=system"`
	Content   string `json:"content"`
	Order     int    `json:"order"`
	Author    string `json:"author,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Transcript is the common output contract for one imported conversation.
// It is a transient DTO: built once per import attempt, validated, then
// handed to chat creation. It is never mutated afterwards.
type Transcript struct {
	Provider  string    `json:"provider"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	FetchedAt int64     `json:"fetchedAt"`
}

// New creates a transcript stamped with the current time in epoch milliseconds.
func New(provider, title string, messages []Message, sourceURL string) *Transcript {
	return &Transcript{
		Provider:  provider,
		Title:     title,
		Messages:  messages,
		SourceURL: sourceURL,
		FetchedAt: time.Now().UnixMilli(),
	}
}

// Validate checks the transcript against the schema contract. A transcript
// with zero messages is valid here; emptiness is an import-level failure
// checked by the caller, not a schema violation.
func (t *Transcript) Validate() error {
	if t == nil {
		return fmt.Errorf("transcript is nil")
	}
	if t.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !provider.Provider(t.Provider).IsValid() {
		return fmt.Errorf("unknown provider %q", t.Provider)
	}
	if t.FetchedAt <= 0 {
		return fmt.Errorf("fetchedAt must be a positive epoch-millisecond timestamp")
	}

	prev := -1
	for i, msg := range t.Messages {
		if !msg.Role.IsValid() {
			return fmt.Errorf("message %d: invalid role %q", i, msg.Role)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("message %d: content is empty", i)
		}
		if msg.Order <= prev {
			return fmt.Errorf("message %d: order %d is not strictly increasing", i, msg.Order)
		}
		prev = msg.Order
	}

	return nil
}

// FilterEmpty returns the messages with empty content dropped and Order
// reassigned as 0..N-1. Parsers may emit transiently empty messages; the
// final transcript never carries them.
func FilterEmpty(messages []Message) []Message {
	filtered := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		msg.Order = len(filtered)
		filtered = append(filtered, msg)
	}
	return filtered
}

// Decode parses and validates transcript JSON, such as the response from the
// capture extraction service. Empty messages are dropped before validation;
// extraction models occasionally emit blank turns and those are noise, not a
// schema violation.
func Decode(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	t.Messages = FilterEmpty(t.Messages)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}
	return &t, nil
}

const (
	// excerptLength is how many characters of the first message become the
	// fallback title for fetched transcripts.
	excerptLength = 50

	// manualTitleLength bounds titles derived from manually pasted text.
	manualTitleLength = 60
)

// ExcerptTitle derives a title from message content: the first excerptLength
// characters plus an ellipsis when truncated.
func ExcerptTitle(content string) string {
	return truncate(singleLine(content), excerptLength)
}

// ManualTitle derives a title for a manual import: caller-supplied title if
// non-empty, else an excerpt of the first user message (or first message),
// else the placeholder.
func ManualTitle(supplied string, messages []Message) string {
	if s := strings.TrimSpace(supplied); s != "" {
		return truncate(singleLine(s), manualTitleLength)
	}
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return truncate(singleLine(msg.Content), manualTitleLength)
		}
	}
	if len(messages) > 0 {
		return truncate(singleLine(messages[0].Content), manualTitleLength)
	}
	return "Imported Chat"
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
