package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"equip_shop/internal/pkg/mailer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSender struct {
	sent []mailer.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newRouter(h *SystemHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	r.POST("/test-email", h.TestEmail)
	return r
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all up", func(t *testing.T) {
		h := NewSystemHandler(map[string]HealthCheck{"database": ok, "redis": ok}, nil, nil, zap.NewNop())
		w := httptest.NewRecorder()
		newRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{"database":"ok","redis":"ok"}}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler(map[string]HealthCheck{"database": down}, nil, nil, zap.NewNop())
		w := httptest.NewRecorder()
		newRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"success":false,"data":{"database":"down"}}`, w.Body.String())
	})
}

func postEmail(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test-email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTestEmail(t *testing.T) {
	t.Run("defaults to notification recipients", func(t *testing.T) {
		sender := &captureSender{}
		r := newRouter(NewSystemHandler(nil, sender, []string{"sales@example.vn"}, zap.NewNop()))

		w := postEmail(r, "")
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, []string{"sales@example.vn"}, sender.sent[0].To)
	})

	t.Run("explicit recipient", func(t *testing.T) {
		sender := &captureSender{}
		r := newRouter(NewSystemHandler(nil, sender, []string{"sales@example.vn"}, zap.NewNop()))

		w := postEmail(r, `{"to":["ops@example.vn"]}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"ops@example.vn"}, sender.sent[0].To)
	})

	t.Run("invalid recipient", func(t *testing.T) {
		sender := &captureSender{}
		r := newRouter(NewSystemHandler(nil, sender, nil, zap.NewNop()))

		w := postEmail(r, `{"to":["not-an-address"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, sender.sent)
	})

	t.Run("not configured", func(t *testing.T) {
		r := newRouter(NewSystemHandler(nil, nil, nil, zap.NewNop()))
		w := postEmail(r, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("smtp failure", func(t *testing.T) {
		sender := &captureSender{err: errors.New("i/o timeout")}
		r := newRouter(NewSystemHandler(nil, sender, []string{"sales@example.vn"}, zap.NewNop()))

		w := postEmail(r, "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "failed to send test email")
	})
}
