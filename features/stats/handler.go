package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Nerdward/my-llm-twin/internal/middleware"
	"github.com/Nerdward/my-llm-twin/internal/vector"
)

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

// PointCounter counts the points stored in one sink collection.
type PointCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

type Handler struct {
	jobRepo JobRepo
	points  PointCounter
}

func NewHandler(j JobRepo, p PointCounter) *Handler {
	return &Handler{jobRepo: j, points: p}
}

type StatsResponse struct {
	Documents   int            `json:"documents"`
	Chunks      int            `json:"chunks"`
	FailedJobs  int            `json:"failed_jobs"`
	Collections map[string]int `json:"collections"`
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /stats", h.GetStats)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	jCount, err := h.jobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{FailedJobs: jCount, Collections: map[string]int{}}
	for _, c := range vector.Collections(0) {
		n, err := h.points.Count(ctx, c.Name)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count points", "collection", c.Name, "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count "+c.Name, http.StatusInternalServerError)
			return
		}
		resp.Collections[c.Name] = n
		if c.Vectors {
			resp.Chunks += n
		} else {
			resp.Documents += n
		}
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
