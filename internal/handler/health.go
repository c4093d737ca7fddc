package handler

import (
	"net/http"
	"time"

	"github.com/lipo-out/linebot/internal/events"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	publisher events.Publisher
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(publisher events.Publisher) *HealthHandler {
	return &HealthHandler{
		publisher: publisher,
		startedAt: time.Now(),
	}
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Ready reports whether downstream connections are usable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.publisher.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
