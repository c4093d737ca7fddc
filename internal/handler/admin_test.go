package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipo-out/linebot/internal/service"
	"github.com/lipo-out/linebot/pkg/logger"
)

func TestListCatalog(t *testing.T) {
	h := NewAdminHandler(&stubMessenger{}, service.DefaultCatalog(), logger.NewNop())

	rec := httptest.NewRecorder()
	h.ListCatalog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":3`)
	assert.Contains(t, rec.Body.String(), "P001")
}

func TestPush(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		messenger := &stubMessenger{}
		h := NewAdminHandler(messenger, service.DefaultCatalog(), logger.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/push",
			strings.NewReader(`{"to":"U1","text":"本週健康提醒"}`))
		rec := httptest.NewRecorder()
		h.Push(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := NewAdminHandler(&stubMessenger{}, service.DefaultCatalog(), logger.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/push",
			strings.NewReader(`{"to":"  ","text":""}`))
		rec := httptest.NewRecorder()
		h.Push(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewAdminHandler(&stubMessenger{}, service.DefaultCatalog(), logger.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/push", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.Push(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
