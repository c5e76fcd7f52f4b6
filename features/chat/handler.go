package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pdfinsight/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Reply handles POST /jobs/{id}/chat: one user message in, one assistant
// message out. A failed turn never affects the job and is retryable by
// resubmitting the same message.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := h.service.Reply(r.Context(), id, msg)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidMessage):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrJobNotCompleted):
			h.writeError(r.Context(), w, "JOB_NOT_COMPLETED", err.Error(), http.StatusConflict)
		case errors.Is(err, ErrChatFailed):
			h.writeError(r.Context(), w, "CHAT_FAILED", err.Error(), http.StatusBadGateway)
		default:
			slog.ErrorContext(r.Context(), "chat failed", "error", err, "job_id", id)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": reply}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
