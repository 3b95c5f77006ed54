package state

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/pkg/chat"
)

const (
	// InitialTrustLevel is the trust a character grants a detective they have
	// just met.
	InitialTrustLevel = 20

	// TrustIncrement is added after every successful exchange, regardless of
	// message quality. Fixed by product direction.
	TrustIncrement = 1

	// ProgressIncrement is added to investigation progress after every
	// successful exchange.
	ProgressIncrement = 1

	MaxTrustLevel = 100
	MaxProgress   = 100
)

// ConversationContext tracks the mutable per-character relationship state.
type ConversationContext struct {
	CurrentTopic    string    `json:"current_topic,omitempty"`
	Depth           int       `json:"depth"`
	TrustLevel      int       `json:"trust_level"`
	LastInteraction time.Time `json:"last_interaction"`
}

// Conversation holds the full exchange history with one character. Messages
// are append-only and chronological; a conversation is created lazily the
// first time a character is selected and survives until a full reset.
type Conversation struct {
	CharacterID       string              `json:"character_id"`
	Messages          []chat.Message      `json:"messages"`
	Context           ConversationContext `json:"context"`
	RelationshipScore int                 `json:"relationship_score"`
	RevealedSecrets   []string            `json:"revealed_secrets,omitempty"`
	LastMessageAt     time.Time           `json:"last_message_at"`
}

// Session is the complete state of one investigation. It is the single
// canonical aggregate: the source UI kept parallel investigation and game
// state lists, collapsed here into one model.
type Session struct {
	ID            uuid.UUID                `json:"id"`
	Conversations map[string]*Conversation `json:"conversations"`

	Progress            int      `json:"progress"` // 0-100, never decreases in play
	Evidence            []string `json:"evidence"`
	SuspectsInterviewed []string `json:"suspects_interviewed"`
	DiscoveredSecrets   []string `json:"discovered_secrets"`
	Notes               []string `json:"notes"`

	GameStarted      bool   `json:"game_started"`
	CaseSolved       bool   `json:"case_solved"`
	TrueKiller       string `json:"true_killer,omitempty"`
	CurrentCharacter string `json:"current_character,omitempty"`
	CurrentLocation  string `json:"current_location,omitempty"`
	TimeOfDay        string `json:"time_of_day,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryPatch carries partial updates to a conversation's context. Nil fields
// are left untouched.
type MemoryPatch struct {
	CurrentTopic    *string
	TrustDelta      int
	DepthDelta      int
	LastInteraction *time.Time
}

// NewSession creates a fresh investigation. The true killer is chosen
// randomly from the roster at creation and stays fixed until reset.
func NewSession(roster []string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:                  uuid.New(),
		Conversations:       make(map[string]*Conversation),
		Evidence:            make([]string, 0),
		SuspectsInterviewed: make([]string, 0),
		DiscoveredSecrets:   make([]string, 0),
		Notes:               make([]string, 0),
		GameStarted:         true,
		TrueKiller:          pickKiller(roster),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func pickKiller(roster []string) string {
	if len(roster) == 0 {
		return ""
	}
	return roster[rand.Intn(len(roster))]
}

// SelectCharacter makes the character current, lazily creating their
// conversation. Returns the conversation and whether it was newly created.
func (s *Session) SelectCharacter(characterID, characterName string) (*Conversation, bool) {
	s.CurrentCharacter = characterID

	if conv, ok := s.Conversations[characterID]; ok {
		return conv, false
	}

	conv := &Conversation{
		CharacterID: characterID,
		Messages:    make([]chat.Message, 0),
		Context: ConversationContext{
			TrustLevel:      InitialTrustLevel,
			LastInteraction: time.Now().UTC(),
		},
	}
	s.Conversations[characterID] = conv
	s.AddNote("Began questioning " + characterName + ".")
	s.RecordSuspect(characterID)
	s.touch()
	return conv, true
}

// AppendMessage appends to the character's conversation. The conversation
// must already exist; selection creates it.
func (s *Session) AppendMessage(characterID string, msg chat.Message) {
	conv, ok := s.Conversations[characterID]
	if !ok {
		return
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastMessageAt = msg.CreatedAt
	s.touch()
}

// UpdateMemory merges the patch into the conversation's context. Trust is
// clamped to [0, MaxTrustLevel].
func (s *Session) UpdateMemory(characterID string, patch MemoryPatch) {
	conv, ok := s.Conversations[characterID]
	if !ok {
		return
	}

	if patch.CurrentTopic != nil {
		conv.Context.CurrentTopic = *patch.CurrentTopic
	}
	if patch.TrustDelta != 0 {
		conv.Context.TrustLevel += patch.TrustDelta
		if conv.Context.TrustLevel > MaxTrustLevel {
			conv.Context.TrustLevel = MaxTrustLevel
		}
		if conv.Context.TrustLevel < 0 {
			conv.Context.TrustLevel = 0
		}
	}
	if patch.DepthDelta != 0 {
		conv.Context.Depth += patch.DepthDelta
	}
	if patch.LastInteraction != nil {
		conv.Context.LastInteraction = *patch.LastInteraction
	}
	s.touch()
}

// TrustLevel returns the current trust for a character, or the initial trust
// if no conversation exists yet.
func (s *Session) TrustLevel(characterID string) int {
	if conv, ok := s.Conversations[characterID]; ok {
		return conv.Context.TrustLevel
	}
	return InitialTrustLevel
}

func (s *Session) RecordEvidence(text string) {
	s.Evidence = append(s.Evidence, text)
	s.touch()
}

// RecordSuspect adds a character to the interviewed list once.
func (s *Session) RecordSuspect(characterID string) {
	for _, id := range s.SuspectsInterviewed {
		if id == characterID {
			return
		}
	}
	s.SuspectsInterviewed = append(s.SuspectsInterviewed, characterID)
	s.touch()
}

func (s *Session) RecordSecret(secret string) {
	for _, known := range s.DiscoveredSecrets {
		if known == secret {
			return
		}
	}
	s.DiscoveredSecrets = append(s.DiscoveredSecrets, secret)
	s.touch()
}

func (s *Session) AddNote(text string) {
	s.Notes = append(s.Notes, text)
	s.touch()
}

func (s *Session) SetRelationshipScore(characterID string, score int) {
	if conv, ok := s.Conversations[characterID]; ok {
		conv.RelationshipScore = score
		s.touch()
	}
}

// AdvanceProgress raises investigation progress, clamped to [0, MaxProgress].
// Negative deltas are ignored: progress never decreases except via Reset.
func (s *Session) AdvanceProgress(delta int) {
	if delta <= 0 {
		return
	}
	s.Progress += delta
	if s.Progress > MaxProgress {
		s.Progress = MaxProgress
	}
	s.touch()
}

// Reset returns the session to its initial state, discarding all
// conversations and investigation records. A new true killer is chosen for
// the next game.
func (s *Session) Reset(roster []string) {
	s.Conversations = make(map[string]*Conversation)
	s.Progress = 0
	s.Evidence = make([]string, 0)
	s.SuspectsInterviewed = make([]string, 0)
	s.DiscoveredSecrets = make([]string, 0)
	s.Notes = make([]string, 0)
	s.GameStarted = true
	s.CaseSolved = false
	s.TrueKiller = pickKiller(roster)
	s.CurrentCharacter = ""
	s.CurrentLocation = ""
	s.TimeOfDay = ""
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
