// Package character defines the static suspect profiles the engine
// interrogates. Profiles are loaded from JSON files at startup; mutable
// relationship state (trust, revealed secrets) lives in the session store,
// not here.
package character

import "fmt"

// EmotionalState describes how a character currently presents under
// questioning. It colors the prompt, not the gating logic.
type EmotionalState string

const (
	EmotionNeutral      EmotionalState = "neutral"
	EmotionDefensive    EmotionalState = "defensive"
	EmotionAggressive   EmotionalState = "aggressive"
	EmotionVulnerable   EmotionalState = "vulnerable"
	EmotionManipulative EmotionalState = "manipulative"
)

// Character is one interrogation subject. All fields are static
// configuration; the engine never writes back to a character file.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"` // e.g. "business partner", "widow"
	Personality string `json:"personality"`
	Backstory   string `json:"backstory"`

	// Secrets are facts the character hides. Whether a secret may surface is
	// governed by the timeline model's trust gates.
	Secrets []string `json:"secrets"`

	// Relationships maps other character IDs to a short description of the
	// relationship, as this character sees it.
	Relationships map[string]string `json:"relationships"`

	// ResponsePatterns are example lines in the character's voice, fed to the
	// generator as style guidance.
	ResponsePatterns []string `json:"response_patterns"`

	EmotionalState EmotionalState `json:"emotional_state"`
}

func (c *Character) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("character %s: name is required", c.ID)
	}
	if c.Personality == "" {
		return fmt.Errorf("character %s: personality is required", c.ID)
	}
	if c.EmotionalState != "" && !ValidEmotionalState(c.EmotionalState) {
		return fmt.Errorf("character %s: invalid emotional state %q", c.ID, c.EmotionalState)
	}
	return nil
}

// ValidEmotionalState reports whether s is one of the defined states.
func ValidEmotionalState(s EmotionalState) bool {
	switch s {
	case EmotionNeutral, EmotionDefensive, EmotionAggressive, EmotionVulnerable, EmotionManipulative:
		return true
	}
	return false
}
