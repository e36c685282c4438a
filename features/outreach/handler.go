package outreach

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"matchmail/backend/internal/extract"
	"matchmail/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GenerateEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := middleware.GetSubject(ctx)

	var req struct {
		JobURL  string `json:"job_url"`
		JobText string `json:"job_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "outreach requested", "user_id", email, "has_url", req.JobURL != "")

	outcome, err := h.service.GenerateEmail(ctx, email, req.JobURL, req.JobText)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoInput):
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(ctx, w, "NOT_FOUND", "no profile for user, submit a resume first", http.StatusNotFound)
		case errors.Is(err, extract.ErrExtraction):
			h.writeError(ctx, w, "EXTRACTION_ERROR", err.Error(), http.StatusBadGateway)
		default:
			slog.ErrorContext(ctx, "outreach pipeline failed", "error", err, "user_id", email)
			h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": outcome}); err != nil {
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
