package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/pkg/logging"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// CloudAPISender posts messages to the WhatsApp Cloud API, retrying transient
// failures with a short jittered backoff.
type CloudAPISender struct {
	baseURL    string
	registry   Registry
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics
	attempts   int
}

// CloudAPIOption customizes the sender.
type CloudAPIOption func(*CloudAPISender)

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(url string) CloudAPIOption {
	return func(s *CloudAPISender) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithAttempts sets how many delivery attempts are made.
func WithAttempts(n int) CloudAPIOption {
	return func(s *CloudAPISender) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) CloudAPIOption {
	return func(s *CloudAPISender) { s.httpClient = c }
}

// WithMetrics enables outbound delivery counters.
func WithMetrics(m *metrics.Metrics) CloudAPIOption {
	return func(s *CloudAPISender) { s.metrics = m }
}

// NewCloudAPISender builds a sender resolving credentials via the registry.
func NewCloudAPISender(registry Registry, logger *logging.Logger, opts ...CloudAPIOption) *CloudAPISender {
	if logger == nil {
		logger = logging.Default()
	}
	s := &CloudAPISender{
		baseURL:    defaultGraphBaseURL,
		registry:   registry,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		attempts:   3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Sender = (*CloudAPISender)(nil)

// SendText delivers a plain text message.
func (s *CloudAPISender) SendText(ctx context.Context, businessID uuid.UUID, phone, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("messaging: text body required")
	}
	return s.send(ctx, businessID, phone, map[string]any{
		"type": "text",
		"text": map[string]any{"body": text},
	})
}

// SendImage delivers an image by URL with an optional caption.
func (s *CloudAPISender) SendImage(ctx context.Context, businessID uuid.UUID, phone, imageURL, caption string) (string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("messaging: image url required")
	}
	image := map[string]any{"link": imageURL}
	if caption != "" {
		image["caption"] = caption
	}
	return s.send(ctx, businessID, phone, map[string]any{
		"type":  "image",
		"image": image,
	})
}

// SendContact delivers a contact card.
func (s *CloudAPISender) SendContact(ctx context.Context, businessID uuid.UUID, phone, name, contactPhone string) (string, error) {
	if strings.TrimSpace(contactPhone) == "" {
		return "", errors.New("messaging: contact phone required")
	}
	return s.send(ctx, businessID, phone, map[string]any{
		"type": "contacts",
		"contacts": []map[string]any{{
			"name":   map[string]any{"formatted_name": name},
			"phones": []map[string]any{{"phone": contactPhone, "type": "CELL"}},
		}},
	})
}

// SendLocation delivers a map pin.
func (s *CloudAPISender) SendLocation(ctx context.Context, businessID uuid.UUID, phone string, latitude, longitude float64, name, address string) (string, error) {
	return s.send(ctx, businessID, phone, map[string]any{
		"type": "location",
		"location": map[string]any{
			"latitude":  latitude,
			"longitude": longitude,
			"name":      name,
			"address":   address,
		},
	})
}

func (s *CloudAPISender) send(ctx context.Context, businessID uuid.UUID, phone string, content map[string]any) (string, error) {
	to := NormalizeMSISDN(phone)
	if to == "" {
		return "", errors.New("messaging: recipient phone required")
	}

	creds, err := s.registry.Credentials(ctx, businessID)
	if err != nil {
		return "", fmt.Errorf("messaging: resolve credentials: %w", err)
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
	}
	for k, v := range content {
		payload[k] = v
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("messaging: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, creds.PhoneNumberID)

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					Messages []struct {
						ID string `json:"id"`
					} `json:"messages"`
				}
				var messageID string
				if json.Unmarshal(body, &parsed) == nil && len(parsed.Messages) > 0 {
					messageID = parsed.Messages[0].ID
				}
				s.logger.Info("whatsapp message sent",
					"business_id", businessID, "to", phone, "message_id", messageID)
				s.metrics.ObserveOutbound("sent")
				return messageID, nil
			}

			lastErr = fmt.Errorf("messaging: cloud api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			// Client errors other than rate limiting will not heal on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}

		if attempt < s.attempts {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	s.logger.Error("failed to send whatsapp message",
		"business_id", businessID, "to", phone, "error", lastErr)
	s.metrics.ObserveOutbound("failed")
	return "", lastErr
}
