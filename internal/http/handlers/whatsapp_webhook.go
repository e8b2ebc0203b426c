// Package handlers exposes the inbound HTTP surface: the WhatsApp Cloud
// API webhook pair (subscription verify + message delivery) and health.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/pkg/logging"
)

// Enqueuer hands a normalized message to the async pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg conversation.InboundMessage) error
}

// BusinessResolver maps a Cloud API phone-number id onto a tenant.
type BusinessResolver interface {
	GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*business.Business, error)
}

// WhatsAppWebhookHandler terminates the Meta webhook: it answers the
// subscription challenge and turns delivery payloads into queue jobs.
// Processing never blocks the webhook response.
type WhatsAppWebhookHandler struct {
	verifyToken string
	businesses  BusinessResolver
	queue       Enqueuer
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// WhatsAppWebhookConfig wires a WhatsAppWebhookHandler.
type WhatsAppWebhookConfig struct {
	VerifyToken string
	Businesses  BusinessResolver
	Queue       Enqueuer
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		verifyToken: cfg.VerifyToken,
		businesses:  cfg.Businesses,
		queue:       cfg.Queue,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// Verify answers Meta's subscription handshake: echo hub.challenge when the
// token matches, 403 otherwise.
func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken && h.verifyToken != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	h.logger.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
	http.Error(w, "verification failed", http.StatusForbidden)
}

// webhookPayload is the slice of the Cloud API notification we consume.
// Status-only changes carry no messages and are skipped.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []inboundPayload `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundPayload struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// HandleInbound normalizes the provider payload and enqueues one job per
// message. It always answers 200 for well-formed payloads so Meta does not
// retry delivery; per-message failures are logged and counted instead.
func (h *WhatsAppWebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			h.enqueueChange(r.Context(), change.Value.Metadata.PhoneNumberID, change.Value.Messages)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WhatsAppWebhookHandler) enqueueChange(ctx context.Context, phoneNumberID string, messages []inboundPayload) {
	if len(messages) == 0 {
		return
	}

	biz, err := h.businesses.GetByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		h.logger.Warn("no business for phone number id", "phone_number_id", phoneNumberID, "error", err)
		for _, msg := range messages {
			h.metrics.ObserveInbound(msg.Type, "unknown_business")
		}
		return
	}

	for _, msg := range messages {
		inbound := conversation.InboundMessage{
			BusinessID:  biz.ID,
			Phone:       msg.From,
			Text:        strings.TrimSpace(msg.Text.Body),
			MessageType: msg.Type,
			IsGroup:     strings.Contains(msg.From, "@g.us"),
		}
		if err := h.queue.Enqueue(ctx, inbound); err != nil {
			h.logger.Error("enqueue failed", "business_id", biz.ID, "message_id", msg.ID, "error", err)
			h.metrics.ObserveInbound(msg.Type, "enqueue_failed")
			continue
		}
		h.metrics.ObserveInbound(msg.Type, "enqueued")
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
