package prompts

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/state"
)

func testCharacter() *character.Character {
	return &character.Character{
		ID:             "thomas-grey",
		Name:           "Thomas Grey",
		Role:           "the groundskeeper",
		Personality:    "taciturn, wary of authority",
		Backstory:      "Has kept the manor grounds for thirty years.",
		EmotionalState: character.EmotionDefensive,
		ResponsePatterns: []string{
			"I keep to the grounds. What happens in the house is house business.",
		},
	}
}

func testConversation(messageCount int) *state.Conversation {
	conv := &state.Conversation{CharacterID: "thomas-grey"}
	for i := 0; i < messageCount; i++ {
		role := chat.ChatRoleUser
		if i%2 == 1 {
			role = chat.ChatRoleAgent
		}
		conv.Messages = append(conv.Messages, chat.NewMessage("thomas-grey", role, fmt.Sprintf("message %d", i)))
	}
	return conv
}

func TestBuild_MessageOrder(t *testing.T) {
	messages, err := New().
		WithCharacter(testCharacter()).
		WithConversation(testConversation(4)).
		WithTimelineContext("### Investigation Context\nPhase: The Gathering").
		WithUserMessage("Where were you at half nine?").
		Build()
	require.NoError(t, err)
	require.Len(t, messages, 7)

	assert.Equal(t, chat.ChatRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "You are Thomas Grey, the groundskeeper")
	assert.Contains(t, messages[0].Content, "Investigation Context")
	assert.Contains(t, messages[0].Content, "house business")

	assert.Equal(t, "message 0", messages[1].Content)
	assert.Equal(t, "message 3", messages[4].Content)

	assert.Equal(t, chat.ChatRoleUser, messages[5].Role)
	assert.Equal(t, "Where were you at half nine?", messages[5].Content)

	assert.Equal(t, chat.ChatRoleSystem, messages[6].Role)
	assert.Equal(t, FinalReminderPrompt, messages[6].Content)
}

func TestBuild_RequiresCharacter(t *testing.T) {
	_, err := New().WithUserMessage("hello").Build()
	assert.ErrorContains(t, err, "character is required")
}

func TestBuild_HistoryWindow(t *testing.T) {
	messages, err := New().
		WithCharacter(testCharacter()).
		WithConversation(testConversation(25)).
		WithUserMessage("And then?").
		WithHistoryLimit(10).
		Build()
	require.NoError(t, err)

	// system + 10 history + user + final reminder
	require.Len(t, messages, 13)
	assert.Equal(t, "message 15", messages[1].Content)
	assert.Equal(t, "message 24", messages[10].Content)
}

func TestBuild_NoHistoryNoUserMessage(t *testing.T) {
	messages, err := New().WithCharacter(testCharacter()).Build()
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, chat.ChatRoleSystem, messages[0].Role)
	assert.Equal(t, FinalReminderPrompt, messages[1].Content)
}

func TestBuildSystemPrompt_OmitsEmptySections(t *testing.T) {
	c := &character.Character{
		ID:          "lily-chen",
		Name:        "Lily Chen",
		Role:        "the secretary",
		Personality: "precise, observant",
	}
	prompt := BuildSystemPrompt(c)

	assert.Contains(t, prompt, "You are Lily Chen, the secretary")
	assert.NotContains(t, prompt, "Your history")
	assert.NotContains(t, prompt, "Your current state")
	assert.NotContains(t, prompt, "Lines in your voice")
}

func TestBuildMessages_Convenience(t *testing.T) {
	messages, err := BuildMessages(testCharacter(), testConversation(2), "", "Who found him?", DefaultHistoryLimit)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, "Who found him?", messages[3].Content)
}
