package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/internal/pipeline"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/state"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

// SessionHandler handles investigation session lifecycle
type SessionHandler struct {
	storage  storage.Storage
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

type selectRequest struct {
	CharacterID string `json:"character_id"`
}

func NewSessionHandler(storage storage.Storage, p *pipeline.Pipeline, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		storage:  storage,
		pipeline: p,
		logger:   logger,
	}
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/sessions               - Create new session
// GET /v1/sessions/{id}           - Read session by ID
// DELETE /v1/sessions/{id}        - Delete session by ID
// POST /v1/sessions/{id}/reset    - Reset session to initial state
// POST /v1/sessions/{id}/select   - Select the character being questioned
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Use POST to create a session.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, sessionID)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, sessionID)
	case action == "reset" && r.Method == http.MethodPost:
		h.handleReset(w, r, sessionID)
	case action == "select" && r.Method == http.MethodPost:
		h.handleSelect(w, r, sessionID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed for this path.")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session := state.NewSession(timeline.Roster())

	if err := h.storage.SaveSession(r.Context(), session.ID, session); err != nil {
		h.logger.Error("Failed to save new session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session.")
		return
	}

	h.logger.Info("Session created", "session_id", session.ID)
	writeJSON(w, h.logger, http.StatusCreated, session)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	session, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, session)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReset restores a session to its initial state: conversations and
// investigation records cleared, a new killer drawn, all cooldowns lifted.
func (h *SessionHandler) handleReset(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	session, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	session.Reset(timeline.Roster())
	h.pipeline.Tracker().Reset()

	if err := h.storage.SaveSession(r.Context(), id, session); err != nil {
		h.logger.Error("Failed to save reset session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	h.logger.Info("Session reset", "session_id", id)
	writeJSON(w, h.logger, http.StatusOK, session)
}

func (h *SessionHandler) handleSelect(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'character_id' field.")
		return
	}
	if req.CharacterID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "character_id is required.")
		return
	}

	char, err := h.storage.GetCharacter(r.Context(), req.CharacterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Character not found: "+req.CharacterID)
			return
		}
		h.logger.Error("Failed to load character", "character_id", req.CharacterID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character.")
		return
	}

	session, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	available := timeline.AvailableCharacters(session.Progress, h.pipeline.AvailabilityPolicy(), timeline.Roster())
	if !containsString(available, req.CharacterID) {
		writeError(w, h.logger, http.StatusConflict, "Character is not available at this point of the investigation.")
		return
	}

	session.SelectCharacter(req.CharacterID, char.Name)
	h.pipeline.Tracker().Init(req.CharacterID)

	if err := h.storage.SaveSession(r.Context(), id, session); err != nil {
		h.logger.Error("Failed to save session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, session)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
