package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"matchmail/backend/internal/middleware"
)

type UserRepo interface {
	Count(ctx context.Context) (int, error)
}

type ProfileRepo interface {
	Count(ctx context.Context) (int, error)
}

type FragmentStore interface {
	CountFragments(ctx context.Context) (int, error)
}

type Handler struct {
	userRepo    UserRepo
	profileRepo ProfileRepo
	fragments   FragmentStore
}

func NewHandler(u UserRepo, p ProfileRepo, f FragmentStore) *Handler {
	return &Handler{userRepo: u, profileRepo: p, fragments: f}
}

type StatsResponse struct {
	Users     int `json:"users"`
	Profiles  int `json:"profiles"`
	Fragments int `json:"fragments"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	uCount, err := h.userRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count users", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count users", http.StatusInternalServerError)
		return
	}

	pCount, err := h.profileRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count profiles", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count profiles", http.StatusInternalServerError)
		return
	}

	fCount, err := h.fragments.CountFragments(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count fragments", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count fragments", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Users:     uCount,
		Profiles:  pCount,
		Fragments: fCount,
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
