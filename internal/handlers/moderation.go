package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parlorgames/mystery-engine/pkg/chat"
	"github.com/parlorgames/mystery-engine/pkg/moderation"
)

// ModerationHandler exposes the lexicon classifier directly, so clients can
// pre-screen messages without touching session state.
type ModerationHandler struct {
	logger *slog.Logger
}

type ModerationRequest struct {
	Message string `json:"message"`
}

type ModerationResponse struct {
	Success bool              `json:"success"`
	Data    moderation.Result `json:"data"`
}

func NewModerationHandler(logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{logger: logger}
}

func (h *ModerationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req ModerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid moderation request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}

	if req.Message == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Message cannot be empty.")
		return
	}
	if len(req.Message) > chat.MaxMessageLength {
		writeError(w, h.logger, http.StatusBadRequest, "Message is too long.")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ModerationResponse{
		Success: true,
		Data:    moderation.Classify(req.Message),
	})
}
