package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"matchmail/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitResume accepts already-extracted resume text. PDF-to-text conversion
// happens upstream of this service.
func (h *Handler) SubmitResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := middleware.GetSubject(ctx)

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "text is required", http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "resume submitted", "user_id", email, "length", len(req.Text))

	prof, err := h.service.SubmitResume(ctx, email, req.Text)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			h.writeError(ctx, w, "EXTRACTION_ERROR", err.Error(), http.StatusBadGateway)
			return
		}
		slog.ErrorContext(ctx, "resume submission failed", "error", err, "user_id", email)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": prof}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := middleware.GetSubject(ctx)

	prof, err := h.service.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(ctx, w, "NOT_FOUND", "no profile for user", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to load profile", "error", err, "user_id", email)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": prof}); err != nil {
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
