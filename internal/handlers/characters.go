package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/internal/pipeline"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/timeline"
)

// CharacterHandler serves the suspect roster and per-character status
type CharacterHandler struct {
	storage  storage.Storage
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// CharacterSummary is one roster entry with live availability.
type CharacterSummary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Role              string `json:"role,omitempty"`
	Available         bool   `json:"available"`
	Online            bool   `json:"online"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// CharacterStatusResponse reports one character's cooldown state. Typing is
// only populated when the request carries a session_id.
type CharacterStatusResponse struct {
	CharacterID       string `json:"character_id"`
	Online            bool   `json:"online"`
	Typing            bool   `json:"typing"`
	Reason            string `json:"reason,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func NewCharacterHandler(storage storage.Storage, p *pipeline.Pipeline, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{
		storage:  storage,
		pipeline: p,
		logger:   logger,
	}
}

// ServeHTTP handles HTTP requests for character operations
// Routes:
// GET /v1/characters              - List roster with availability
// GET /v1/characters/{id}/status  - Cooldown status for one character
func (h *CharacterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/characters")
	path = strings.Trim(path, "/")

	if path == "" {
		h.handleList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 2 && parts[1] == "status" {
		h.handleStatus(w, r, parts[0])
		return
	}

	writeError(w, h.logger, http.StatusNotFound, "Not found.")
}

// handleList returns the roster. Availability reflects the configured policy
// against the session's progress; without a session_id, progress zero is
// assumed.
func (h *CharacterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	progress := 0
	if sidStr := r.URL.Query().Get("session_id"); sidStr != "" {
		sid, err := uuid.Parse(sidStr)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		session, err := h.storage.LoadSession(r.Context(), sid)
		if err != nil {
			h.logger.Error("Failed to load session", "session_id", sid, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
			return
		}
		if session == nil {
			writeError(w, h.logger, http.StatusNotFound, "Session not found.")
			return
		}
		progress = session.Progress
	}

	roster := timeline.Roster()
	available := timeline.AvailableCharacters(progress, h.pipeline.AvailabilityPolicy(), roster)

	summaries := make([]CharacterSummary, 0, len(roster))
	for _, id := range roster {
		summary := CharacterSummary{
			ID:        id,
			Available: containsString(available, id),
			Online:    h.pipeline.Tracker().IsOnline(id),
		}
		if !summary.Online {
			summary.RetryAfterSeconds = h.pipeline.Tracker().TimeUntilOnline(id)
		}
		if char, err := h.storage.GetCharacter(r.Context(), id); err == nil {
			summary.Name = char.Name
			summary.Role = char.Role
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, h.logger, http.StatusOK, summaries)
}

func (h *CharacterHandler) handleStatus(w http.ResponseWriter, r *http.Request, characterID string) {
	if _, err := h.storage.GetCharacter(r.Context(), characterID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Character not found: "+characterID)
			return
		}
		h.logger.Error("Failed to load character", "character_id", characterID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character.")
		return
	}

	tracker := h.pipeline.Tracker()
	resp := CharacterStatusResponse{
		CharacterID: characterID,
		Online:      tracker.IsOnline(characterID),
	}
	if sidStr := r.URL.Query().Get("session_id"); sidStr != "" {
		if sid, err := uuid.Parse(sidStr); err == nil {
			resp.Typing = h.pipeline.IsTyping(sid, characterID)
		}
	}
	if !resp.Online {
		resp.Reason = tracker.OfflineReason(characterID)
		resp.RetryAfterSeconds = tracker.TimeUntilOnline(characterID)
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
