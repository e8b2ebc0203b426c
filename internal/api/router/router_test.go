package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atendezap/atendezap/internal/http/handlers"
)

func TestHealthRoute(t *testing.T) {
	h := New(&Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookRoutesMounted(t *testing.T) {
	wh := handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{VerifyToken: "segredo"})
	h := New(&Config{WhatsAppWebhook: wh})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=segredo&hub.challenge=ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ping", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/webhooks/whatsapp", nil))
	// Empty body is malformed JSON.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRouteOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&Config{}).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stub := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	rec = httptest.NewRecorder()
	New(&Config{MetricsHandler: stub}).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRateLimit(t *testing.T) {
	wh := handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{VerifyToken: "segredo"})
	h := New(&Config{WhatsAppWebhook: wh, WebhookRateLimit: 1, WebhookBurst: 1})

	target := "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=segredo&hub.challenge=x"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
