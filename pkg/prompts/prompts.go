package prompts

import (
	"fmt"
	"strings"

	"github.com/parlorgames/mystery-engine/pkg/character"
)

// DefaultHistoryLimit is the number of recent messages carried into each
// generation request.
const DefaultHistoryLimit = 10

// BaseSystemPrompt is the persona frame for every suspect. The three verbs
// are filled with name, role, and personality.
const BaseSystemPrompt = `You are %s, %s, being questioned by a detective about the death of Lord Ashworth at Ashworth Manor tonight. Your personality: %s.

### How you respond
- Stay in character at every moment. You are a person in 1923, not an assistant.
- Speak in first person. Keep replies to one short paragraph, three sentences at most.
- You have secrets. Reveal information gradually, and only as far as your trust in the detective allows.
- If asked about something you must not discuss, deflect the way this character would: change the subject, take offense, plead ignorance.
- Never mention game mechanics, trust levels, or that you are an AI. Never break the fourth wall.
- If the detective's question makes no sense in your world, react with the confusion your character would feel.`

// FinalReminderPrompt is appended after the user message on every request.
const FinalReminderPrompt = `Reply as your character, in period voice, one short paragraph. Do not narrate actions in third person and do not speak for the detective.`

// BuildSystemPrompt renders the persona section for a character, including
// backstory, emotional state, and style guidance from the profile.
func BuildSystemPrompt(c *character.Character) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, BaseSystemPrompt, c.Name, c.Role, c.Personality)

	if c.Backstory != "" {
		sb.WriteString("\n\n### Your history\n")
		sb.WriteString(c.Backstory)
	}

	if c.EmotionalState != "" {
		fmt.Fprintf(&sb, "\n\n### Your current state\nYou are feeling %s under this questioning.", c.EmotionalState)
	}

	if len(c.Relationships) > 0 {
		sb.WriteString("\n\n### How you see the others\n")
		for id, rel := range c.Relationships {
			fmt.Fprintf(&sb, "- %s: %s\n", id, rel)
		}
	}

	if len(c.ResponsePatterns) > 0 {
		sb.WriteString("\n### Lines in your voice\n")
		for _, line := range c.ResponsePatterns {
			sb.WriteString("- " + line + "\n")
		}
	}

	return sb.String()
}
