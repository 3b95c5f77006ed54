package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/parlorgames/mystery-engine/internal/pipeline"
	"github.com/parlorgames/mystery-engine/internal/storage"
	"github.com/parlorgames/mystery-engine/pkg/chat"
)

// ChatHandler handles chat requests
type ChatHandler struct {
	pipeline *pipeline.Pipeline
	storage  storage.Storage
	logger   *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(p *pipeline.Pipeline, storage storage.Storage, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		pipeline: p,
		storage:  storage,
		logger:   logger,
	}
}

// ServeHTTP handles POST /v1/chat
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for chat endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'session_id', 'character_id' and 'message' fields.")
		return
	}

	if req.SessionID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "session_id is required.")
		return
	}

	session, err := h.storage.LoadSession(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", req.SessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	resp, err := h.pipeline.Process(r.Context(), session, &req)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidInput):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrCharacterNotFound):
			writeError(w, h.logger, http.StatusNotFound, err.Error())
		case errors.Is(err, pipeline.ErrCharacterOffline):
			// resp carries the remaining cooldown for the Retry-After header.
			w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
			writeJSON(w, h.logger, http.StatusLocked, resp)
		case errors.Is(err, pipeline.ErrCharacterBusy):
			writeError(w, h.logger, http.StatusTooManyRequests, "Character is already responding. Wait for the current reply.")
		default:
			h.logger.Error("Chat processing failed", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to process message. Please try again.")
		}
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
