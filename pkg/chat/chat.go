package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength is the longest user message the engine accepts.
const MaxMessageLength = 500

const (
	ChatRoleUser   = "user"      // The detective
	ChatRoleAgent  = "assistant" // A suspect character
	ChatRoleSystem = "system"    // Engine notices (offline, moderation, errors)
)

// ChatRequest represents a single message the detective sends to a character.
type ChatRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	CharacterID string    `json:"character_id"`
	Message     string    `json:"message"`
}

// ChatResponse is returned by the chat endpoint. Messages holds every message
// appended during this exchange: the character reply, or a refusal/system pair
// when moderation fires.
type ChatResponse struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
	// Rejected is set when the pipeline short-circuited without
	// calling the response generator.
	Rejected string `json:"rejected,omitempty"` // "abuse" or "irrelevant"
	// RetryAfterSeconds is set when the character is offline.
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Message is a single persisted conversation entry. Messages are immutable
// once created and append-only within a conversation.
type Message struct {
	ID            uuid.UUID `json:"id"`
	CharacterID   string    `json:"character_id"`
	Role          string    `json:"role"` // "user", "assistant", "system"
	Content       string    `json:"content"`
	EmotionalTone string    `json:"emotional_tone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is the role/content pair sent to the LLM. This shape is defined
// by the chat-completions APIs and carries no engine metadata.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a conversation entry stamped with the current time.
func NewMessage(characterID, role, content string) Message {
	return Message{
		ID:          uuid.New(),
		CharacterID: characterID,
		Role:        role,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}

// ToChatMessage strips persistence metadata for LLM consumption.
func (m Message) ToChatMessage() ChatMessage {
	return ChatMessage{
		Role:    m.Role,
		Content: m.Content,
	}
}

func (cr *ChatRequest) Validate() error {
	if cr.Message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	if cr.CharacterID == "" {
		return fmt.Errorf("character_id is required")
	}
	return nil
}
