package handler

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/service"
	"github.com/lipo-out/linebot/pkg/logger"
)

// WebhookHandler receives platform webhook deliveries, verifies their
// signature and hands each event to the dispatcher.
type WebhookHandler struct {
	channelSecret string
	dispatcher    *service.Dispatcher
	log           *logger.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(channelSecret string, dispatcher *service.Dispatcher, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		log:           log,
	}
}

// Receive handles POST /webhook. The signature is computed over the exact
// raw body bytes, so the body must be read before any JSON decoding.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(h.channelSecret, body, signature) {
		h.log.Warn("webhook signature rejected",
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	inbound, err := line.ParseEvents(body)
	if err != nil {
		h.log.Warn("webhook body unparseable", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Events are processed in delivery order. A failure on one event is
	// logged and must not block the rest of the batch, and the platform
	// always gets a 200 once the signature is accepted so it does not
	// redeliver the whole batch.
	for _, ev := range inbound {
		if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
			h.log.Error("event dispatch failed",
				zap.String("kind", string(ev.Kind)),
				zap.String("source", string(ev.Source.Type)),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
