package prompts

import (
	"fmt"

	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/state"
)

// Builder constructs the message array for one generation request using a
// fluent interface. It keeps prompt assembly out of the pipeline.
type Builder struct {
	char            *character.Character
	conversation    *state.Conversation
	timelineContext string
	userMessage     string
	historyLimit    int
	messages        []chat.ChatMessage
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithCharacter sets the suspect profile being questioned.
func (b *Builder) WithCharacter(c *character.Character) *Builder {
	b.char = c
	return b
}

// WithConversation sets the per-character conversation providing history.
func (b *Builder) WithConversation(conv *state.Conversation) *Builder {
	b.conversation = conv
	return b
}

// WithTimelineContext sets the knowledge-and-constraints fragment built by
// the timeline model for this character, trust, and progress.
func (b *Builder) WithTimelineContext(ctx string) *Builder {
	b.timelineContext = ctx
	return b
}

// WithUserMessage sets the detective's current message.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// WithHistoryLimit sets the chat history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build constructs and returns the final message array for the generator.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.char == nil {
		return nil, fmt.Errorf("character is required")
	}

	b.messages = make([]chat.ChatMessage, 0)

	b.addSystemPrompt()
	b.addHistory()
	b.addUserMessage()
	b.addFinalPrompt()

	return b.messages, nil
}

// addSystemPrompt combines the persona frame with the timeline context.
func (b *Builder) addSystemPrompt() {
	content := BuildSystemPrompt(b.char)
	if b.timelineContext != "" {
		content += "\n\n" + b.timelineContext
	}

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: content,
	})
}

// addHistory adds the windowed conversation history.
func (b *Builder) addHistory() {
	if b.conversation == nil || len(b.conversation.Messages) == 0 {
		return
	}

	history := b.conversation.Messages
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	for _, m := range history {
		b.messages = append(b.messages, m.ToChatMessage())
	}
}

// addUserMessage adds the detective's current message.
func (b *Builder) addUserMessage() {
	if b.userMessage == "" {
		return
	}

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: b.userMessage,
	})
}

// addFinalPrompt adds the standing reply reminders.
func (b *Builder) addFinalPrompt() {
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: FinalReminderPrompt,
	})
}

// BuildMessages is a convenience function for the common case.
func BuildMessages(
	c *character.Character,
	conv *state.Conversation,
	timelineContext string,
	message string,
	historyLimit int,
) ([]chat.ChatMessage, error) {
	return New().
		WithCharacter(c).
		WithConversation(conv).
		WithTimelineContext(timelineContext).
		WithUserMessage(message).
		WithHistoryLimit(historyLimit).
		Build()
}
