// Package conversation is the core state machine: it owns the per-user
// session, classifies inbound messages and advances the active flow.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/customers"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
)

// InboundMessage is a normalized webhook message, produced by the HTTP
// adapter before the core ever sees provider JSON.
type InboundMessage struct {
	BusinessID  uuid.UUID `json:"business_id"`
	Phone       string    `json:"phone"`
	Text        string    `json:"text"`
	MessageType string    `json:"message_type"` // "text", "image", "audio", ...
	FromMe      bool      `json:"from_me"`
	IsGroup     bool      `json:"is_group"`
}

// Messenger is the slice of the outbound sender the core needs.
type Messenger interface {
	SendText(ctx context.Context, businessID uuid.UUID, phone, text string) (string, error)
}

// BusinessSource resolves cached business configuration.
type BusinessSource interface {
	Get(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

// AdminChecker reports whether a phone holds delegated admin rights.
type AdminChecker interface {
	IsDelegatedAdmin(ctx context.Context, businessID uuid.UUID, phone string) (bool, error)
}

// CustomerStore lazily creates customer records on first contact.
type CustomerStore interface {
	EnsureByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*customers.Customer, error)
}

// SessionStore persists conversation state between messages.
type SessionStore interface {
	Load(ctx context.Context, businessID uuid.UUID, phone string) (*session.State, error)
	Save(ctx context.Context, businessID uuid.UUID, phone string, st *session.State, ttl time.Duration) error
}

// ExchangeLogger records each user/bot exchange for long-term history.
type ExchangeLogger interface {
	AppendExchange(ctx context.Context, businessID uuid.UUID, phone, userText, botText string) error
}

// ContextRetriever produces a knowledge block for LLM prompts.
type ContextRetriever interface {
	Context(ctx context.Context, businessID uuid.UUID, query string, topK int) (string, error)
}

// FlowContext is the shared working set handed to flow handlers for one
// inbound message.
type FlowContext struct {
	Business *business.Business
	State    *session.State
	Msg      InboundMessage
	// Detected is the classifier's proposal for this message; the session's
	// CurrentIntent stays authoritative for dispatch.
	Detected intent.Intent
}

// FlowHandler is the resumable state-machine contract shared by the customer
// and admin flows: one step consumes the message, mutates the session and
// returns the reply text. An empty reply means nothing is sent.
type FlowHandler interface {
	Handles(it intent.Intent) bool
	Step(ctx context.Context, fc *FlowContext) (string, error)
}
