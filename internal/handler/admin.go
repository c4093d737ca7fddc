package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lipo-out/linebot/internal/line"
	"github.com/lipo-out/linebot/internal/middleware"
	"github.com/lipo-out/linebot/internal/model"
	"github.com/lipo-out/linebot/internal/service"
	"github.com/lipo-out/linebot/pkg/logger"
)

// AdminHandler serves the operator API: catalog inspection and manual
// push messages.
type AdminHandler struct {
	messenger service.Messenger
	catalog   []model.CatalogItem
	log       *logger.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(messenger service.Messenger, catalog []model.CatalogItem, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		messenger: messenger,
		catalog:   catalog,
		log:       log,
	}
}

// ListCatalog handles GET /api/v1/catalog.
func (h *AdminHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": h.catalog,
		"count": len(h.catalog),
	})
}

// PushRequest is the body for POST /api/v1/push.
type PushRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Push handles POST /api/v1/push: sends a text message to a user or group.
func (h *AdminHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.To = strings.TrimSpace(req.To)
	req.Text = strings.TrimSpace(req.Text)
	if req.To == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "to and text are required")
		return
	}

	if err := h.messenger.PushMessage(r.Context(), req.To, line.NewText(req.Text)); err != nil {
		h.log.Error("manual push failed",
			zap.String("operator", middleware.GetOperatorID(r.Context())),
			zap.String("to", req.To),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "push delivery failed")
		return
	}

	h.log.Info("manual push delivered",
		zap.String("operator", middleware.GetOperatorID(r.Context())),
		zap.String("to", req.To),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
