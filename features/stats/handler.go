package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"pdfinsight/features/job"
	"pdfinsight/internal/middleware"
)

type JobCounter interface {
	CountByStatus(ctx context.Context) (map[job.Status]int, error)
}

type Handler struct {
	jobs JobCounter
}

func NewHandler(jobs JobCounter) *Handler {
	return &Handler{jobs: jobs}
}

type StatsResponse struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.jobs.CountByStatus(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Queued:     counts[job.StatusQueued],
		Processing: counts[job.StatusProcessingOCR] + counts[job.StatusProcessingChunks],
		Completed:  counts[job.StatusCompleted],
		Failed:     counts[job.StatusFailed],
	}
	for _, c := range counts {
		resp.Total += c
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
