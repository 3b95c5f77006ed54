package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/mystery-engine/internal/pipeline"
	"github.com/parlorgames/mystery-engine/internal/services"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/character"
	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

type handlerEnv struct {
	store    *storage.MockStorage
	llm      *services.MockLLMAPI
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	session  *state.Session
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()

	store := storage.NewMockStorage()
	for _, id := range timeline.Roster() {
		store.AddCharacter(&character.Character{
			ID:          id,
			Name:        strings.ReplaceAll(id, "-", " "),
			Role:        "suspect",
			Personality: "test personality",
		})
	}

	llm := services.NewMockLLMAPI()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tracker := state.NewStatusTracker()
	p := pipeline.New(llm, store, tracker, logger, 10, 15*time.Second, timeline.PolicyAll)

	session := state.NewSession(timeline.Roster())
	require.NoError(t, store.SaveSession(context.Background(), session.ID, session))

	return &handlerEnv{
		store:    store,
		llm:      llm,
		pipeline: p,
		logger:   logger,
		session:  session,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestChatHandler_Success(t *testing.T) {
	env := setupHandlerTest(t)
	env.llm.SetChatResponse("I was at dinner with the others.")
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	w := postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "victoria-ashworth",
		Message:     "Where were you at eight?",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp chat.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, env.session.ID, resp.SessionID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "I was at dinner with the others.", resp.Messages[0].Content)
	assert.Empty(t, resp.Rejected)
}

func TestChatHandler_AbuseReturnsOKWithRejection(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	w := postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp chat.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, pipeline.RejectedAbuse, resp.Rejected)
	assert.Equal(t, 45, resp.RetryAfterSeconds)
	assert.Len(t, resp.Messages, 2)
}

func TestChatHandler_OfflineCharacterReturnsLocked(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	// First message takes the character offline.
	postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "you are an idiot",
	})

	w := postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "james-blackwood",
		Message:     "I am sorry. Shall we continue?",
	})

	assert.Equal(t, http.StatusLocked, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var resp chat.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Greater(t, resp.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, resp.RetryAfterSeconds, 45)
}

func TestChatHandler_ValidationErrors(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	tests := []struct {
		name     string
		req      chat.ChatRequest
		wantCode int
	}{
		{"missing session", chat.ChatRequest{CharacterID: "lily-chen", Message: "hello"}, http.StatusBadRequest},
		{"empty message", chat.ChatRequest{SessionID: env.session.ID, CharacterID: "lily-chen"}, http.StatusBadRequest},
		{"message too long", chat.ChatRequest{SessionID: env.session.ID, CharacterID: "lily-chen", Message: strings.Repeat("x", chat.MaxMessageLength+1)}, http.StatusBadRequest},
		{"unknown character", chat.ChatRequest{SessionID: env.session.ID, CharacterID: "nobody", Message: "hello"}, http.StatusNotFound},
		{"unknown session", chat.ChatRequest{SessionID: uuid.New(), CharacterID: "lily-chen", Message: "hello"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handler, "/v1/chat", tt.req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestChatHandler_CharacterLoadFailure(t *testing.T) {
	env := setupHandlerTest(t)
	env.store.SetCharacterError(assert.AnError)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	w := postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "lily-chen",
		Message:     "Where were you?",
	})

	// A broken character file is a server fault, not a missing character.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestChatHandler_InvalidBody(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_GenerationFailure(t *testing.T) {
	env := setupHandlerTest(t)
	env.llm.SetChatError(assert.AnError)
	handler := NewChatHandler(env.pipeline, env.store, env.logger)

	w := postJSON(t, handler, "/v1/chat", chat.ChatRequest{
		SessionID:   env.session.ID,
		CharacterID: "marcus-reed",
		Message:     "What killed him, doctor?",
	})

	// Generation failures degrade to an in-character apology, not an error.
	assert.Equal(t, http.StatusOK, w.Code)

	var resp chat.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0].Content, "forgive me, detective")
}
