package handlers

import (
	"log/slog"
	"net/http"

	"github.com/parlorgames/mystery-engine/internal/storage"
)

// HealthHandler reports service and storage health
type HealthHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func NewHealthHandler(storage storage.Storage, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	resp := HealthResponse{Status: "ok", Storage: "ok"}
	status := http.StatusOK

	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Error("Storage health check failed", "error", err)
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, status, resp)
}
