package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

func TestSessionHandler_Create(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created state.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.GameStarted)
	assert.Contains(t, timeline.Roster(), created.TrueKiller)
	assert.Zero(t, created.Progress)
}

func TestSessionHandler_ReadAndDelete(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+env.session.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loaded state.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loaded))
	assert.Equal(t, env.session.ID, loaded.ID)

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+env.session.ID.String(), nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+env.session.ID.String(), nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_InvalidID(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Reset(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	// Dirty the session and put a character on cooldown.
	env.session.SelectCharacter("lily-chen", "Lily Chen")
	env.session.AdvanceProgress(40)
	env.session.RecordEvidence("ledgers")
	env.pipeline.Tracker().SetOffline("lily-chen", "abusive message", "I shall not stay for this.", "insult", state.CooldownMedium)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+env.session.ID.String()+"/reset", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var reset state.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reset))
	assert.Zero(t, reset.Progress)
	assert.Empty(t, reset.Evidence)
	assert.Empty(t, reset.Conversations)
	assert.Contains(t, timeline.Roster(), reset.TrueKiller)

	// Cooldowns are lifted by reset.
	assert.True(t, env.pipeline.Tracker().IsOnline("lily-chen"))
}

func TestSessionHandler_Select(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	w := postJSON(t, handler, "/v1/sessions/"+env.session.ID.String()+"/select", selectRequest{CharacterID: "marcus-reed"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated state.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "marcus-reed", updated.CurrentCharacter)
	assert.Contains(t, updated.Conversations, "marcus-reed")
	assert.Contains(t, updated.SuspectsInterviewed, "marcus-reed")

	// Selection registers the character with the cooldown tracker.
	statuses := env.pipeline.Tracker().Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "marcus-reed", statuses[0].CharacterID)
	assert.True(t, statuses[0].IsOnline)
}

func TestSessionHandler_SelectUnknownCharacter(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewSessionHandler(env.store, env.pipeline, env.logger)

	w := postJSON(t, handler, "/v1/sessions/"+env.session.ID.String()+"/select", selectRequest{CharacterID: "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
