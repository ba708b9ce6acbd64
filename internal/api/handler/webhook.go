package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// WebhookPublisher: сюда ретранслируются события ClickUp (Redis или никуда).
type WebhookPublisher interface {
	PublishWebhook(ctx context.Context, payload []byte) error
}

type WebhookHandler struct {
	publisher WebhookPublisher
	logger    *zap.Logger
}

func NewWebhookHandler(p WebhookPublisher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{publisher: p, logger: logger.Named("webhook")}
}

type clickUpEvent struct {
	Event  string `json:"event"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ClickUp принимает событие, логирует и ретранслирует. Решения по GMUD
// здесь не принимаются: источник правды остается опрос статуса.
func (h *WebhookHandler) ClickUp(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var ev clickUpEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook payload", err)
		return
	}

	h.logger.Info("clickup webhook received",
		zap.String("event", ev.Event),
		zap.String("task_id", ev.TaskID),
		zap.String("status", ev.Status))

	if err := h.publisher.PublishWebhook(r.Context(), raw); err != nil {
		h.logger.Warn("failed to relay webhook", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
