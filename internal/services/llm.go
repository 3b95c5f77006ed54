package services

import (
	"context"

	"github.com/parlorgames/mystery-engine/pkg/chat"
)

// LLMService is the response generator behind the gating pipeline. It only
// sees messages that survived moderation and cooldown checks.
type LLMService interface {
	// InitModel prepares the model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Chat generates the character's reply text for the given messages.
	Chat(ctx context.Context, messages []chat.ChatMessage) (string, error)
}
