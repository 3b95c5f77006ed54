// Package pipeline orchestrates one chat exchange: input validation, the
// cooldown guard, lexicon moderation, prompt assembly, generation, timeline
// validation, and state mutation, in that order. Every message passes through
// here; handlers only translate the outcome to HTTP.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/internal/services"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/moderation"
	"github.com/parlorgames/mystery-engine/pkg/prompts"
	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

// ConfidenceThreshold is the minimum classifier confidence required to act on
// a moderation flag. Below it the message is treated as clean.
const ConfidenceThreshold = 80

const (
	RejectedAbuse      = "abuse"
	RejectedIrrelevant = "irrelevant"
)

// apologyResponse is returned in character when generation fails. The
// exchange does not count: no trust, depth, or progress change.
const apologyResponse = "I... forgive me, detective. My thoughts are elsewhere tonight. Could you ask me that again?"

var (
	ErrInvalidInput      = errors.New("invalid chat request")
	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterOffline  = errors.New("character is offline")
	ErrCharacterBusy     = errors.New("character is already responding")
)

// Pipeline gates and processes chat messages for one server instance.
// Cooldown state is tracked in memory; session state lives in storage.
type Pipeline struct {
	llm     services.LLMService
	storage storage.Storage
	tracker *state.StatusTracker
	logger  *slog.Logger

	historyLimit       int
	llmTimeout         time.Duration
	availabilityPolicy timeline.AvailabilityPolicy

	mu       sync.Mutex
	inFlight map[string]bool // sessionID:characterID
}

func New(llm services.LLMService, st storage.Storage, tracker *state.StatusTracker, logger *slog.Logger, historyLimit int, llmTimeout time.Duration, policy timeline.AvailabilityPolicy) *Pipeline {
	if historyLimit <= 0 {
		historyLimit = prompts.DefaultHistoryLimit
	}
	return &Pipeline{
		llm:                llm,
		storage:            st,
		tracker:            tracker,
		logger:             logger,
		historyLimit:       historyLimit,
		llmTimeout:         llmTimeout,
		availabilityPolicy: policy,
		inFlight:           make(map[string]bool),
	}
}

// Tracker exposes the cooldown tracker for status endpoints.
func (p *Pipeline) Tracker() *state.StatusTracker {
	return p.tracker
}

// AvailabilityPolicy reports the configured character availability policy.
func (p *Pipeline) AvailabilityPolicy() timeline.AvailabilityPolicy {
	return p.availabilityPolicy
}

// IsTyping reports whether a response is currently being generated for the
// character in this session.
func (p *Pipeline) IsTyping(sessionID uuid.UUID, characterID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[sessionID.String()+":"+characterID]
}

func (p *Pipeline) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[key] {
		return false
	}
	p.inFlight[key] = true
	return true
}

func (p *Pipeline) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, key)
}

// Process runs one exchange through the full gate sequence and mutates the
// session accordingly. The session is saved before returning on every path
// that changed it.
func (p *Pipeline) Process(ctx context.Context, session *state.Session, req *chat.ChatRequest) (*chat.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	char, err := p.storage.GetCharacter(ctx, req.CharacterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, req.CharacterID)
		}
		return nil, fmt.Errorf("failed to load character %s: %w", req.CharacterID, err)
	}

	key := session.ID.String() + ":" + req.CharacterID
	if !p.acquire(key) {
		return nil, ErrCharacterBusy
	}
	defer p.release(key)

	// Cooldown guard. Expiry is lazy: this check is what brings a character
	// back online.
	if !p.tracker.IsOnline(req.CharacterID) {
		remaining := p.tracker.TimeUntilOnline(req.CharacterID)
		return &chat.ChatResponse{
			SessionID:         session.ID,
			RetryAfterSeconds: remaining,
			Error:             p.tracker.OfflineReason(req.CharacterID),
		}, ErrCharacterOffline
	}

	result := moderation.Classify(req.Message)
	if result.Confidence >= ConfidenceThreshold && (result.IsAbusive || result.IsIrrelevant) {
		return p.reject(ctx, session, char, req, result)
	}

	return p.generate(ctx, session, char, req)
}

// reject takes the character offline and records a refusal pair: the
// character's in-period refusal plus a system departure notice. The user
// message that triggered it is not persisted to the conversation; it is kept
// only in the tracker's offline event log. The generator is never called and
// the exchange earns nothing.
func (p *Pipeline) reject(ctx context.Context, session *state.Session, char *character.Character, req *chat.ChatRequest, result moderation.Result) (*chat.ChatResponse, error) {
	rejected := RejectedIrrelevant
	if result.IsAbusive {
		rejected = RejectedAbuse
	}

	duration := state.CooldownForSeverity(result.Severity)
	p.tracker.SetOffline(req.CharacterID, result.Reason, result.SuggestedResponse, req.Message, duration)

	p.logger.Warn("message rejected, character offline",
		"character_id", req.CharacterID,
		"rejected", rejected,
		"severity", result.Severity,
		"confidence", result.Confidence,
		"cooldown_seconds", int(duration.Seconds()))

	session.SelectCharacter(req.CharacterID, char.Name)

	refusal := chat.NewMessage(req.CharacterID, chat.ChatRoleAgent, result.SuggestedResponse)
	notice := chat.NewMessage(req.CharacterID, chat.ChatRoleSystem,
		fmt.Sprintf("%s has left the conversation and will return in %d seconds.", char.Name, int(duration.Seconds())))
	session.AppendMessage(req.CharacterID, refusal)
	session.AppendMessage(req.CharacterID, notice)

	if err := p.storage.SaveSession(ctx, session.ID, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &chat.ChatResponse{
		SessionID:         session.ID,
		Messages:          []chat.Message{refusal, notice},
		Rejected:          rejected,
		RetryAfterSeconds: int(duration.Seconds()),
	}, nil
}

// generate runs the full generation path for a clean message.
func (p *Pipeline) generate(ctx context.Context, session *state.Session, char *character.Character, req *chat.ChatRequest) (*chat.ChatResponse, error) {
	conv, _ := session.SelectCharacter(req.CharacterID, char.Name)
	trust := conv.Context.TrustLevel

	timelineContext := timeline.BuildContext(req.CharacterID, trust, session.Progress)
	messages, err := prompts.BuildMessages(char, conv, timelineContext, req.Message, p.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	userMsg := chat.NewMessage(req.CharacterID, chat.ChatRoleUser, req.Message)
	session.AppendMessage(req.CharacterID, userMsg)

	llmCtx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()

	reply, err := p.llm.Chat(llmCtx, messages)
	if err != nil {
		// Generation failed: apologize in character. The exchange does not
		// count toward trust or progress.
		p.logger.Error("generation failed", "character_id", req.CharacterID, "error", err)

		apology := chat.NewMessage(req.CharacterID, chat.ChatRoleAgent, apologyResponse)
		session.AppendMessage(req.CharacterID, apology)

		if saveErr := p.storage.SaveSession(ctx, session.ID, session); saveErr != nil {
			return nil, fmt.Errorf("failed to save session: %w", saveErr)
		}

		return &chat.ChatResponse{
			SessionID: session.ID,
			Messages:  []chat.Message{apology},
			Error:     "the character is having trouble responding",
		}, nil
	}

	// Timeline validation is advisory: violations are redacted, never
	// rejected, since there is no regeneration loop. The raw reply is kept
	// for the discovery scan, which runs on pre-redaction text.
	rawReply := reply
	validation := timeline.Validate(req.CharacterID, reply, trust)
	if !validation.IsValid {
		p.logger.Warn("timeline violations redacted",
			"character_id", req.CharacterID,
			"violations", validation.Violations)
		reply = timeline.Redact(reply, validation.Terms)
	}

	agentMsg := chat.NewMessage(req.CharacterID, chat.ChatRoleAgent, reply)
	session.AppendMessage(req.CharacterID, agentMsg)

	now := time.Now().UTC()
	session.UpdateMemory(req.CharacterID, state.MemoryPatch{
		TrustDelta:      state.TrustIncrement,
		DepthDelta:      1,
		LastInteraction: &now,
	})
	session.AdvanceProgress(state.ProgressIncrement)
	p.recordDiscoveries(session, rawReply)

	if err := p.storage.SaveSession(ctx, session.ID, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &chat.ChatResponse{
		SessionID: session.ID,
		Messages:  []chat.Message{agentMsg},
	}, nil
}

// recordDiscoveries scans the reply against the event tables and records any
// evidence or secret tags it surfaced.
func (p *Pipeline) recordDiscoveries(session *state.Session, reply string) {
	lower := strings.ToLower(reply)

	for _, ev := range timeline.AllEvents() {
		for _, tag := range ev.EvidenceTags {
			if strings.Contains(lower, strings.ToLower(tag)) && !contains(session.Evidence, tag) {
				session.RecordEvidence(tag)
			}
		}
		for _, tag := range ev.SecretTags {
			if strings.Contains(lower, strings.ToLower(tag)) {
				session.RecordSecret(tag)
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
