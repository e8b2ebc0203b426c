package messaging

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
)

// ErrNoCredentials indicates a business has no usable WhatsApp credentials.
var ErrNoCredentials = errors.New("messaging: business has no whatsapp credentials")

// Credentials identify one business on the WhatsApp Cloud API.
type Credentials struct {
	PhoneNumberID string
	AccessToken   string
}

// Registry resolves per-business API credentials. Injected into senders so
// routing never depends on package-level state.
type Registry interface {
	Credentials(ctx context.Context, businessID uuid.UUID) (Credentials, error)
}

// BusinessRegistry resolves credentials from the cached business config store.
type BusinessRegistry struct {
	store *business.Store
}

// NewBusinessRegistry creates a Registry backed by the business config cache.
func NewBusinessRegistry(store *business.Store) *BusinessRegistry {
	return &BusinessRegistry{store: store}
}

// Credentials looks up the business and returns its Cloud API identity.
func (r *BusinessRegistry) Credentials(ctx context.Context, businessID uuid.UUID) (Credentials, error) {
	b, err := r.store.Get(ctx, businessID)
	if err != nil {
		return Credentials{}, err
	}
	if strings.TrimSpace(b.PhoneNumberID) == "" || strings.TrimSpace(b.AccessToken) == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{PhoneNumberID: b.PhoneNumberID, AccessToken: b.AccessToken}, nil
}
