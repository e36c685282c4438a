package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"matchmail/backend/internal/middleware"
)

type IndexConsumer struct {
	profiles ProfileLoader
	indexer  Reindexer
}

func NewIndexConsumer(p ProfileLoader, ix Reindexer) *IndexConsumer {
	return &IndexConsumer{
		profiles: p,
		indexer:  ix,
	}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IndexTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.UserID == "" {
		slog.Error("poison pill: missing user_id")
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	taskCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	prof, err := h.profiles.Get(taskCtx, payload.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "load profile failed", "error", err, "user_id", payload.UserID)
		return err // Retry
	}

	res, err := h.indexer.Reindex(taskCtx, payload.UserID, prof)
	if err != nil {
		slog.ErrorContext(ctx, "reindex failed", "error", err, "user_id", payload.UserID)
		return err // Retry
	}

	if res.Skipped {
		slog.InfoContext(ctx, "reindex skipped, no fragments", "user_id", payload.UserID)
		return nil
	}
	slog.InfoContext(ctx, "reindex complete", "user_id", payload.UserID, "count", res.Indexed, "batch", res.Batch)
	return nil
}
