package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/mystery-engine/internal/services"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	pipeline *Pipeline
	llm      *services.MockLLMAPI
	store    *storage.MockStorage
	clock    *fakeClock
	session  *state.Session
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{t: time.Date(2024, 10, 31, 21, 0, 0, 0, time.UTC)}
	tracker := state.NewStatusTrackerWithClock(clock.now)

	store := storage.NewMockStorage()
	for _, id := range timeline.Roster() {
		store.AddCharacter(&character.Character{
			ID:          id,
			Name:        strings.ReplaceAll(id, "-", " "),
			Personality: "test personality",
		})
	}

	llm := services.NewMockLLMAPI()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	p := New(llm, store, tracker, logger, 10, 15*time.Second, timeline.PolicyAll)

	return &testEnv{
		pipeline: p,
		llm:      llm,
		store:    store,
		clock:    clock,
		session:  state.NewSession(timeline.Roster()),
	}
}

func TestProcess_AbusiveMessageTakesCharacterOffline(t *testing.T) {
	env := setupTest(t)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})
	require.NoError(t, err)

	assert.Equal(t, RejectedAbuse, resp.Rejected)
	assert.Equal(t, 45, resp.RetryAfterSeconds)

	// Refusal pair: in-character refusal plus departure notice.
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, chat.ChatRoleAgent, resp.Messages[0].Role)
	assert.NotEmpty(t, resp.Messages[0].Content)
	assert.Equal(t, chat.ChatRoleSystem, resp.Messages[1].Role)
	assert.Contains(t, resp.Messages[1].Content, "45 seconds")

	// The generator is never consulted for rejected messages.
	_, chatCalls := env.llm.GetCalls()
	assert.Empty(t, chatCalls)

	assert.False(t, env.pipeline.Tracker().IsOnline("james-blackwood"))

	// Only the refusal pair is persisted; the triggering message is not.
	conv := env.session.Conversations["james-blackwood"]
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, chat.ChatRoleAgent, conv.Messages[0].Role)
	assert.Equal(t, chat.ChatRoleSystem, conv.Messages[1].Role)
	assert.Equal(t, state.InitialTrustLevel, conv.Context.TrustLevel)
	assert.Equal(t, 0, env.session.Progress)
}

func TestProcess_HighSeverityGetsLongerCooldown(t *testing.T) {
	env := setupTest(t)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "thomas-grey",
		Message:     "i will kill you",
	})
	require.NoError(t, err)

	assert.Equal(t, RejectedAbuse, resp.Rejected)
	assert.Equal(t, 60, resp.RetryAfterSeconds)
}

func TestProcess_IrrelevantMessageTakesCharacterOffline(t *testing.T) {
	env := setupTest(t)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "victoria-ashworth",
		Message:     "what is your favorite color",
	})
	require.NoError(t, err)

	// Off-topic messages carry low severity: the short cooldown applies.
	assert.Equal(t, RejectedIrrelevant, resp.Rejected)
	assert.Equal(t, 40, resp.RetryAfterSeconds)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, chat.ChatRoleAgent, resp.Messages[0].Role)
	assert.Equal(t, chat.ChatRoleSystem, resp.Messages[1].Role)
	assert.Contains(t, resp.Messages[1].Content, "40 seconds")

	assert.False(t, env.pipeline.Tracker().IsOnline("victoria-ashworth"))
	assert.Equal(t, 40, env.pipeline.Tracker().TimeUntilOnline("victoria-ashworth"))

	// The rejection earns nothing and never reaches the generator.
	assert.Equal(t, 0, env.session.Progress)
	_, chatCalls := env.llm.GetCalls()
	assert.Empty(t, chatCalls)
}

func TestProcess_CleanMessageGeneratesAndAdvances(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("I was in the drawing room all evening, detective.")

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "lily-chen",
		Message:     "Where were you when the lights went out?",
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Rejected)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "I was in the drawing room all evening, detective.", resp.Messages[0].Content)

	conv := env.session.Conversations["lily-chen"]
	require.NotNil(t, conv)
	assert.Len(t, conv.Messages, 2) // user + reply
	assert.Equal(t, state.InitialTrustLevel+1, conv.Context.TrustLevel)
	assert.Equal(t, 1, conv.Context.Depth)
	assert.Equal(t, 1, env.session.Progress)
	assert.Contains(t, env.session.SuspectsInterviewed, "lily-chen")
}

func TestProcess_OfflineCharacterRejectsWithRemaining(t *testing.T) {
	env := setupTest(t)

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})
	require.NoError(t, err)

	env.clock.advance(33 * time.Second)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "I apologize. Where were you at nine?",
	})
	require.ErrorIs(t, err, ErrCharacterOffline)
	assert.Equal(t, 12, resp.RetryAfterSeconds)
	assert.NotEmpty(t, resp.Error)
}

func TestProcess_CooldownExpiresLazily(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("Very well. Ask your questions.")

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})
	require.NoError(t, err)

	env.clock.advance(46 * time.Second)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "I apologize. Where were you at nine?",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Rejected)
	assert.True(t, env.pipeline.Tracker().IsOnline("james-blackwood"))
}

func TestProcess_OtherCharactersUnaffectedByCooldown(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("I heard the cry from the grounds.")

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})
	require.NoError(t, err)

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "thomas-grey",
		Message:     "What did you hear that night?",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Rejected)
}

func TestProcess_InvalidRequests(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name string
		req  chat.ChatRequest
	}{
		{"empty message", chat.ChatRequest{CharacterID: "lily-chen"}},
		{"too long", chat.ChatRequest{CharacterID: "lily-chen", Message: strings.Repeat("a", chat.MaxMessageLength+1)}},
		{"missing character", chat.ChatRequest{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pipeline.Process(context.Background(), env.session, &tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestProcess_UnknownCharacter(t *testing.T) {
	env := setupTest(t)

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "colonel-mustard",
		Message:     "Where were you?",
	})
	assert.ErrorIs(t, err, ErrCharacterNotFound)
}

func TestProcess_CharacterLoadFailure(t *testing.T) {
	env := setupTest(t)
	env.store.SetCharacterError(errors.New("read-only file system"))

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "lily-chen",
		Message:     "Where were you?",
	})
	// A load failure is not a missing character.
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCharacterNotFound)
	assert.ErrorContains(t, err, "failed to load character")
}

func TestProcess_BusyCharacter(t *testing.T) {
	env := setupTest(t)

	key := env.session.ID.String() + ":lily-chen"
	require.True(t, env.pipeline.acquire(key))
	defer env.pipeline.release(key)

	assert.True(t, env.pipeline.IsTyping(env.session.ID, "lily-chen"))
	assert.False(t, env.pipeline.IsTyping(env.session.ID, "thomas-grey"))

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "lily-chen",
		Message:     "Where were you?",
	})
	assert.ErrorIs(t, err, ErrCharacterBusy)
}

func TestProcess_GenerationFailureApologizesInCharacter(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatError(errors.New("upstream timeout"))

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "marcus-reed",
		Message:     "What was in the tonic?",
	})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, apologyResponse, resp.Messages[0].Content)

	// A failed exchange earns nothing.
	conv := env.session.Conversations["marcus-reed"]
	assert.Equal(t, state.InitialTrustLevel, conv.Context.TrustLevel)
	assert.Equal(t, 0, conv.Context.Depth)
	assert.Equal(t, 0, env.session.Progress)
}

func TestProcess_ForbiddenContentRedacted(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("I confess the embezzlement weighed on me.")

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "Tell me about the business.",
	})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.NotContains(t, resp.Messages[0].Content, "embezzlement")
	assert.Contains(t, resp.Messages[0].Content, "certain matters")
}

func TestProcess_RepliesSurfaceEvidence(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("The ledgers went into the fire, or so the ashes suggest.")

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "lily-chen",
		Message:     "What did you see in the library?",
	})
	require.NoError(t, err)

	assert.Contains(t, env.session.Evidence, "ledgers")
	assert.Contains(t, env.session.Evidence, "ashes")
}

func TestProcess_DiscoveryScanRunsOnRawReply(t *testing.T) {
	env := setupTest(t)
	// "morphine" is both a forbidden topic for marcus-reed and a secret tag,
	// so it is redacted from the stored reply but must still be discovered.
	env.llm.SetChatResponse("The tonic? Nothing in it but morphine, if you must know.")

	resp, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "marcus-reed",
		Message:     "What was in the tonic?",
	})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.NotContains(t, resp.Messages[0].Content, "morphine")
	assert.Contains(t, env.session.DiscoveredSecrets, "morphine")
	assert.Contains(t, env.session.Evidence, "tonic")
}

func TestProcess_SavesSession(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("A fine evening until it wasn't.")

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "victoria-ashworth",
		Message:     "Tell me about the dinner.",
	})
	require.NoError(t, err)

	saved, err := env.store.LoadSession(context.Background(), env.session.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Contains(t, saved.Conversations, "victoria-ashworth")
}

func TestProcess_SaveFailure(t *testing.T) {
	env := setupTest(t)
	env.llm.SetChatResponse("As I said, I was in the conservatory.")
	env.store.SetSaveError(errors.New("connection refused"))

	_, err := env.pipeline.Process(context.Background(), env.session, &chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "thomas-grey",
		Message:     "Where were you?",
	})
	assert.ErrorContains(t, err, "failed to save session")
}
